package discuss_test

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/dailytribune/tribune/discuss"
)

// memoryRepo is a CommentRepository and ArticleChecker backed by maps.
type memoryRepo struct {
	mu       sync.Mutex
	comments map[string]discuss.Comment
	articles map[string]int
}

var _ discuss.CommentRepository = (*memoryRepo)(nil)

func newMemoryRepo(articleIDs ...string) *memoryRepo {
	repo := &memoryRepo{
		comments: make(map[string]discuss.Comment),
		articles: make(map[string]int),
	}

	for _, id := range articleIDs {
		repo.articles[id] = 0
	}

	return repo
}

func (r *memoryRepo) Exists(_ context.Context, articleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.articles[articleID]

	return ok, nil
}

func (r *memoryRepo) commentCount(articleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.articles[articleID]
}

func (r *memoryRepo) Insert(_ context.Context, comment *discuss.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[comment.ArticleID]; !ok {
		return discuss.NotFoundError{Resource: discuss.ResourceArticle, ID: comment.ArticleID}
	}

	r.comments[comment.ID] = *comment
	r.articles[comment.ArticleID]++

	return nil
}

func (r *memoryRepo) Find(_ context.Context, id string) (*discuss.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[id]
	if !ok {
		return nil, discuss.NotFoundError{Resource: discuss.ResourceComment, ID: id}
	}

	return &comment, nil
}

func (r *memoryRepo) Update(_ context.Context, comment *discuss.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.comments[comment.ID]
	if !ok || stored.IsDeleted() {
		return discuss.NotFoundError{Resource: discuss.ResourceComment, ID: comment.ID}
	}

	r.comments[comment.ID] = *comment

	return nil
}

func (r *memoryRepo) SoftDelete(_ context.Context, params discuss.SoftDeleteParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[params.CommentID]
	if !ok {
		return false, discuss.NotFoundError{Resource: discuss.ResourceComment, ID: params.CommentID}
	}

	if comment.IsDeleted() {
		return false, nil
	}

	at := params.At

	comment.Status = params.Status
	comment.Content = params.Tombstone
	comment.UpdatedAt = at

	if params.ModeratedBy != nil {
		comment.ModeratedBy = params.ModeratedBy
		comment.ModeratedAt = &at
		comment.ModerationReason = params.Reason
	}

	r.comments[comment.ID] = comment
	r.articles[comment.ArticleID] = max(0, r.articles[comment.ArticleID]-1)

	return true, nil
}

func (r *memoryRepo) filter(keep func(c *discuss.Comment) bool) []*discuss.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []*discuss.Comment

	for _, c := range r.comments {
		if keep(&c) {
			res = append(res, &c)
		}
	}

	return res
}

func ascending(a, b *discuss.Comment) int {
	return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
}

func paginate(comments []*discuss.Comment, limit, offset int) []*discuss.Comment {
	if offset >= len(comments) {
		return nil
	}

	comments = comments[offset:]

	if limit > 0 && limit < len(comments) {
		comments = comments[:limit]
	}

	return comments
}

func (r *memoryRepo) ListTopLevel(
	_ context.Context,
	params discuss.ListTopLevelParams,
) ([]*discuss.Comment, error) {
	res := r.filter(func(c *discuss.Comment) bool {
		if c.ArticleID != params.ArticleID || !c.IsTopLevel() {
			return false
		}

		return c.IsApproved() || params.IncludeHidden
	})

	slices.SortFunc(res, func(a, b *discuss.Comment) int { return ascending(b, a) })

	return paginate(res, params.Limit, params.Offset), nil
}

func (r *memoryRepo) ListReplies(_ context.Context, parentIDs []string) ([]*discuss.Comment, error) {
	res := r.filter(func(c *discuss.Comment) bool {
		return c.ParentID != nil && slices.Contains(parentIDs, *c.ParentID)
	})

	slices.SortFunc(res, ascending)

	return res, nil
}

func (r *memoryRepo) ListFlagged(_ context.Context, params discuss.ListFlaggedParams) ([]*discuss.Comment, error) {
	res := r.filter(func(c *discuss.Comment) bool {
		return c.IsFlagged() && !c.IsDeleted()
	})

	slices.SortFunc(res, ascending)

	return paginate(res, params.Limit, params.Offset), nil
}
