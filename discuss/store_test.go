package discuss_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dailytribune/tribune/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Create(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("article-1")
	store := discuss.NewStore(repo)

	comment, err := store.Create(ctx, discuss.CreateParams{
		ArticleID: "article-1",
		AuthorID:  "alice",
		Content:   "  first!  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "first!", comment.Content)
	assert.Equal(t, discuss.StatusActive, comment.Status)
	assert.True(t, comment.IsTopLevel())
	assert.False(t, comment.IsFlagged())
	assert.Equal(t, 1, repo.commentCount("article-1"))

	t.Run("empty content", func(t *testing.T) {
		_, err := store.Create(ctx, discuss.CreateParams{ArticleID: "article-1", AuthorID: "alice", Content: " \n"})

		var validationErr discuss.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "content", validationErr.Field)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := store.Create(ctx, discuss.CreateParams{
			ArticleID: "article-1",
			AuthorID:  "alice",
			Content:   strings.Repeat("é", discuss.MaxContentLength+1),
		})

		var validationErr discuss.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("missing article", func(t *testing.T) {
		_, err := store.Create(ctx, discuss.CreateParams{ArticleID: "nope", AuthorID: "alice", Content: "hi"})

		var notFoundErr discuss.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, discuss.ResourceArticle, notFoundErr.Resource)
	})
}

func TestStore_Edit(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("article-1")
	store := discuss.NewStore(repo)

	comment, err := store.Create(ctx, discuss.CreateParams{ArticleID: "article-1", AuthorID: "alice", Content: "typo"})
	require.NoError(t, err)

	t.Run("by another user", func(t *testing.T) {
		_, err := store.Edit(ctx, comment.ID, "bob", "hijacked")

		var permissionErr discuss.PermissionError
		require.ErrorAs(t, err, &permissionErr)
	})

	t.Run("by the author", func(t *testing.T) {
		edited, err := store.Edit(ctx, comment.ID, "alice", "fixed")
		require.NoError(t, err)

		assert.Equal(t, "fixed", edited.Content)
		assert.Equal(t, discuss.StatusEdited, edited.Status)
		assert.True(t, edited.IsEdited())
		assert.False(t, edited.UpdatedAt.Before(comment.UpdatedAt))
	})

	t.Run("keeps the flag", func(t *testing.T) {
		_, err := discuss.NewModeration(repo).Flag(ctx, comment.ID, "bob", "spam")
		require.NoError(t, err)

		edited, err := store.Edit(ctx, comment.ID, "alice", "fixed again")
		require.NoError(t, err)
		assert.True(t, edited.IsFlagged())
	})

	t.Run("deleted comment", func(t *testing.T) {
		_, err := store.SoftDelete(ctx, comment.ID, "alice")
		require.NoError(t, err)

		_, err = store.Edit(ctx, comment.ID, "alice", "back from the dead")

		var notFoundErr discuss.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestStore_SoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("article-1")
	store := discuss.NewStore(repo)

	parent, err := store.Create(ctx, discuss.CreateParams{ArticleID: "article-1", AuthorID: "alice", Content: "parent"})
	require.NoError(t, err)

	child, err := store.Create(ctx, discuss.CreateParams{
		ArticleID: "article-1",
		AuthorID:  "bob",
		ParentID:  parent.ID,
		Content:   "child",
	})
	require.NoError(t, err)
	require.Equal(t, 2, repo.commentCount("article-1"))

	_, err = store.SoftDelete(ctx, parent.ID, "bob")

	var permissionErr discuss.PermissionError
	require.ErrorAs(t, err, &permissionErr)

	deleted, err := store.SoftDelete(ctx, parent.ID, "alice")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, repo.commentCount("article-1"))

	got, err := store.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, discuss.AuthorTombstone, got.Content)
	assert.Equal(t, discuss.StatusDeletedByAuthor, got.Status)

	deleted, err = store.SoftDelete(ctx, parent.ID, "alice")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 1, repo.commentCount("article-1"))

	got, err = store.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "child", got.Content)
	assert.Equal(t, parent.ID, *got.ParentID)
}

func TestStore_DepthOf(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("article-1")
	store := discuss.NewStore(repo)

	parentID := ""

	for want := range 4 {
		comment, err := store.Create(ctx, discuss.CreateParams{
			ArticleID: "article-1",
			AuthorID:  "alice",
			ParentID:  parentID,
			Content:   "level",
		})
		require.NoError(t, err)

		depth, err := store.DepthOf(ctx, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, want, depth)

		parentID = comment.ID
	}

	t.Run("broken chain", func(t *testing.T) {
		orphan, err := store.Create(ctx, discuss.CreateParams{
			ArticleID: "article-1",
			AuthorID:  "alice",
			ParentID:  "vanished",
			Content:   "orphan",
		})
		require.NoError(t, err)

		depth, err := store.DepthOf(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, depth)
	})

	t.Run("missing comment", func(t *testing.T) {
		_, err := store.DepthOf(ctx, "missing")

		var notFoundErr discuss.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestStore_ListTopLevel(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("article-1", "article-2")
	store := discuss.NewStore(repo)

	var ids []string

	for range 3 {
		comment, err := store.Create(ctx, discuss.CreateParams{ArticleID: "article-1", AuthorID: "alice", Content: "c"})
		require.NoError(t, err)

		ids = append(ids, comment.ID)
	}

	_, err := store.Create(ctx, discuss.CreateParams{ArticleID: "article-2", AuthorID: "alice", Content: "other"})
	require.NoError(t, err)

	_, err = store.Create(ctx, discuss.CreateParams{
		ArticleID: "article-1",
		AuthorID:  "alice",
		ParentID:  ids[0],
		Content:   "reply",
	})
	require.NoError(t, err)

	_, err = store.SoftDelete(ctx, ids[1], "alice")
	require.NoError(t, err)

	comments, err := store.ListTopLevel(ctx, "article-1", discuss.Page{})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, ids[2], comments[0].ID)
	assert.Equal(t, ids[0], comments[1].ID)

	comments, err = store.ListTopLevel(ctx, "article-1", discuss.Page{Number: 2, Size: 1})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, ids[0], comments[0].ID)

	_, err = store.ListTopLevel(ctx, "article-1", discuss.Page{Number: 1, Size: 101})

	var validationErr discuss.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestStore_ListThreadRoots(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("article-1")
	store := discuss.NewStore(repo)
	moderation := discuss.NewModeration(repo)

	root, err := store.Create(ctx, discuss.CreateParams{ArticleID: "article-1", AuthorID: "alice", Content: "root"})
	require.NoError(t, err)

	parentID := root.ID

	var chain []string

	for range discuss.MaxDepth {
		reply, err := store.Create(ctx, discuss.CreateParams{
			ArticleID: "article-1",
			AuthorID:  "bob",
			ParentID:  parentID,
			Content:   "reply",
		})
		require.NoError(t, err)

		chain = append(chain, reply.ID)
		parentID = reply.ID
	}

	_, err = moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   root.ID,
		ModeratorID: "editor",
		Action:      discuss.ModerationReject,
	})
	require.NoError(t, err)

	comments, err := store.ListTopLevel(ctx, "article-1", discuss.Page{})
	require.NoError(t, err)
	assert.Empty(t, comments)

	roots, err := store.ListThreadRoots(ctx, "article-1", discuss.Page{})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	descendants, err := store.ListDescendants(ctx, roots)
	require.NoError(t, err)

	var ids []string
	for _, c := range descendants {
		ids = append(ids, c.ID)
	}

	assert.Equal(t, chain, ids)
}

func TestPage_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		page    discuss.Page
		want    discuss.Page
		wantErr bool
	}{
		{name: "defaults", page: discuss.Page{}, want: discuss.Page{Number: 1, Size: 50}},
		{name: "explicit", page: discuss.Page{Number: 3, Size: 10}, want: discuss.Page{Number: 3, Size: 10}},
		{name: "negative page", page: discuss.Page{Number: -1}, wantErr: true},
		{name: "size too big", page: discuss.Page{Size: 500}, wantErr: true},
		{name: "negative size", page: discuss.Page{Size: -5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.page.Normalize()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
