package discuss_test

import (
	"context"
	"testing"

	"github.com/dailytribune/tribune/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModerationFixture(t *testing.T) (*memoryRepo, *discuss.Store, *discuss.Moderation) {
	t.Helper()

	repo := newMemoryRepo("article-1")

	return repo, discuss.NewStore(repo), discuss.NewModeration(repo)
}

func createComment(t *testing.T, store *discuss.Store, authorID, parentID string) *discuss.Comment {
	t.Helper()

	comment, err := store.Create(context.Background(), discuss.CreateParams{
		ArticleID: "article-1",
		AuthorID:  authorID,
		ParentID:  parentID,
		Content:   "comment by " + authorID,
	})
	require.NoError(t, err)

	return comment
}

func TestModeration_Flag(t *testing.T) {
	ctx := context.Background()
	_, store, moderation := newModerationFixture(t)
	comment := createComment(t, store, "alice", "")

	_, err := moderation.Flag(ctx, comment.ID, "bob", "   ")

	var validationErr discuss.ValidationError
	require.ErrorAs(t, err, &validationErr)

	flagged, err := moderation.Flag(ctx, comment.ID, "bob", "spam")
	require.NoError(t, err)
	require.True(t, flagged.IsFlagged())
	assert.Equal(t, "spam", flagged.Flag.Reason)

	flagged, err = moderation.Flag(ctx, comment.ID, "carol", "offensive")
	require.NoError(t, err)
	assert.Equal(t, "offensive", flagged.Flag.Reason)
	assert.Equal(t, "carol", flagged.Flag.ReporterID)

	queue, err := moderation.Queue(ctx, discuss.Page{})
	require.NoError(t, err)
	require.Len(t, queue, 1)

	_, err = store.SoftDelete(ctx, comment.ID, "alice")
	require.NoError(t, err)

	_, err = moderation.Flag(ctx, comment.ID, "bob", "spam")

	var notFoundErr discuss.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestModeration_QueueOrder(t *testing.T) {
	ctx := context.Background()
	_, store, moderation := newModerationFixture(t)

	first := createComment(t, store, "alice", "")
	second := createComment(t, store, "bob", "")
	deleted := createComment(t, store, "carol", "")
	createComment(t, store, "dave", "")

	for _, c := range []*discuss.Comment{second, deleted, first} {
		_, err := moderation.Flag(ctx, c.ID, "reporter", "spam")
		require.NoError(t, err)
	}

	_, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   deleted.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationDelete,
	})
	require.NoError(t, err)

	queue, err := moderation.Queue(ctx, discuss.Page{})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].ID)
	assert.Equal(t, second.ID, queue[1].ID)
}

func TestModeration_Approve(t *testing.T) {
	ctx := context.Background()
	_, store, moderation := newModerationFixture(t)
	comment := createComment(t, store, "alice", "")

	_, err := moderation.Flag(ctx, comment.ID, "bob", "spam")
	require.NoError(t, err)

	approved, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationApprove,
		Reason:      "fine",
	})
	require.NoError(t, err)
	assert.False(t, approved.IsFlagged())
	assert.True(t, approved.IsApproved())
	require.NotNil(t, approved.ModeratedBy)
	assert.Equal(t, "mod", *approved.ModeratedBy)
	require.NotNil(t, approved.ModeratedAt)

	again, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "other-mod",
		Action:      discuss.ModerationApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, approved.Status, again.Status)
	assert.Equal(t, "mod", *again.ModeratedBy)
	assert.Equal(t, *approved.ModeratedAt, *again.ModeratedAt)
}

func TestModeration_RejectThenApprove(t *testing.T) {
	ctx := context.Background()
	_, store, moderation := newModerationFixture(t)
	comment := createComment(t, store, "alice", "")

	_, err := store.Edit(ctx, comment.ID, "alice", "edited")
	require.NoError(t, err)

	_, err = moderation.Flag(ctx, comment.ID, "bob", "rude")
	require.NoError(t, err)

	rejected, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationReject,
	})
	require.NoError(t, err)
	assert.Equal(t, discuss.StatusRejected, rejected.Status)
	assert.False(t, rejected.IsFlagged())
	assert.Equal(t, "edited", rejected.Content)

	rejected, err = moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationReject,
	})
	require.NoError(t, err)
	assert.Equal(t, discuss.StatusRejected, rejected.Status)

	approved, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, discuss.StatusEdited, approved.Status)
}

func TestModeration_Delete(t *testing.T) {
	ctx := context.Background()
	repo, store, moderation := newModerationFixture(t)
	comment := createComment(t, store, "alice", "")
	reply := createComment(t, store, "bob", comment.ID)

	require.Equal(t, 2, repo.commentCount("article-1"))

	deleted, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationDelete,
		Reason:      "abuse",
	})
	require.NoError(t, err)
	assert.Equal(t, discuss.StatusDeletedByModerator, deleted.Status)
	assert.Equal(t, discuss.ModeratorTombstone, deleted.Content)
	assert.Equal(t, "abuse", deleted.ModerationReason)
	assert.Equal(t, 1, repo.commentCount("article-1"))

	again, err := moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationDelete,
	})
	require.NoError(t, err)
	assert.Equal(t, discuss.StatusDeletedByModerator, again.Status)
	assert.Equal(t, 1, repo.commentCount("article-1"))

	_, err = moderation.Apply(ctx, discuss.ModerateParams{
		CommentID:   comment.ID,
		ModeratorID: "mod",
		Action:      discuss.ModerationApprove,
	})

	var notFoundErr discuss.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	got, err := store.Get(ctx, reply.ID)
	require.NoError(t, err)
	assert.True(t, got.IsApproved())
}

func TestParseModerationAction(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"approve", "reject", "delete"} {
		action, err := discuss.ParseModerationAction(s)
		require.NoError(t, err)
		assert.Equal(t, discuss.ModerationAction(s), action)
	}

	_, err := discuss.ParseModerationAction("ban")

	var validationErr discuss.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "action", validationErr.Field)
}
