package discuss

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxParentHops bounds DepthOf on corrupted parent chains.
const maxParentHops = 64

// Store applies author-side comment semantics on top of a CommentRepository.
type Store struct {
	repo CommentRepository
	now  func() time.Time
}

func NewStore(repo CommentRepository) *Store {
	return &Store{
		repo: repo,
		now:  time.Now,
	}
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)

	if content == "" {
		return "", ValidationError{Field: "content", Message: "must not be empty"}
	}

	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("must be at most %d characters", MaxContentLength),
		}
	}

	return content, nil
}

type CreateParams struct {
	ArticleID string
	AuthorID  string
	ParentID  string
	Content   string
}

// Create stores a new active, unflagged comment. The article comment count is
// incremented by the repository in the same transaction.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Comment, error) {
	content, err := normalizeContent(params.Content)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if params.ParentID != "" {
		parentID = &params.ParentID
	}

	timeNow := s.now().UTC()

	comment := &Comment{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ArticleID: params.ArticleID,
		AuthorID:  params.AuthorID,
		ParentID:  parentID,
		Content:   content,
		Status:    StatusActive,
		CreatedAt: timeNow,
		UpdatedAt: timeNow,
	}

	err = s.repo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	return comment, nil
}

func (s *Store) Get(ctx context.Context, commentID string) (*Comment, error) {
	comment, err := s.repo.Find(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

// Edit replaces the content of a comment owned by authorID. Flag and
// rejection state are kept.
func (s *Store) Edit(ctx context.Context, commentID, authorID, content string) (*Comment, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	comment, err := s.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if comment.IsDeleted() {
		return nil, NotFoundError{Resource: ResourceComment, ID: commentID}
	}

	if comment.AuthorID != authorID {
		return nil, PermissionError{UserID: authorID, CommentID: commentID, Action: "edit"}
	}

	timeNow := s.now().UTC()

	comment.Content = content
	comment.UpdatedAt = timeNow
	comment.EditedAt = &timeNow

	if comment.Status == StatusActive {
		comment.Status = StatusEdited
	}

	err = s.repo.Update(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return comment, nil
}

// SoftDelete tombstones a comment owned by authorID. It reports false when
// the comment had already been deleted.
func (s *Store) SoftDelete(ctx context.Context, commentID, authorID string) (bool, error) {
	comment, err := s.Get(ctx, commentID)
	if err != nil {
		return false, err
	}

	if comment.AuthorID != authorID {
		return false, PermissionError{UserID: authorID, CommentID: commentID, Action: "delete"}
	}

	if comment.IsDeleted() {
		return false, nil
	}

	deleted, err := s.repo.SoftDelete(ctx, SoftDeleteParams{
		CommentID: commentID,
		Status:    StatusDeletedByAuthor,
		Tombstone: AuthorTombstone,
		At:        s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to soft delete comment: %w", err)
	}

	return deleted, nil
}

// DepthOf counts parent hops from commentID up to its top-level comment. A
// broken chain ends the walk at the last comment found.
func (s *Store) DepthOf(ctx context.Context, commentID string) (int, error) {
	comment, err := s.Get(ctx, commentID)
	if err != nil {
		return 0, err
	}

	seen := map[string]struct{}{comment.ID: {}}
	depth := 0

	for comment.ParentID != nil && depth < maxParentHops {
		parentID := *comment.ParentID

		if _, ok := seen[parentID]; ok {
			break
		}

		parent, err := s.repo.Find(ctx, parentID)
		if err != nil {
			var notFoundErr NotFoundError
			if errors.As(err, &notFoundErr) {
				break
			}

			return 0, fmt.Errorf("failed to find parent comment: %w", err)
		}

		seen[parentID] = struct{}{}
		comment = parent
		depth++
	}

	return depth, nil
}

// ListTopLevel returns approved, non-deleted top-level comments of an
// article, newest first.
func (s *Store) ListTopLevel(ctx context.Context, articleID string, page Page) ([]*Comment, error) {
	return s.listTopLevel(ctx, articleID, page, false)
}

// ListThreadRoots is ListTopLevel plus deleted and rejected top-level
// comments, whose replies must stay reachable in a thread.
func (s *Store) ListThreadRoots(ctx context.Context, articleID string, page Page) ([]*Comment, error) {
	return s.listTopLevel(ctx, articleID, page, true)
}

func (s *Store) listTopLevel(ctx context.Context, articleID string, page Page, includeHidden bool) ([]*Comment, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.ListTopLevel(ctx, ListTopLevelParams{
		ArticleID:     articleID,
		IncludeHidden: includeHidden,
		Limit:         page.Size,
		Offset:        page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list top level comments: %w", err)
	}

	return comments, nil
}

// ListDescendants fetches every reply below top down to MaxDepth, one query
// per level, whatever its status.
func (s *Store) ListDescendants(ctx context.Context, top []*Comment) ([]*Comment, error) {
	parentIDs := make([]string, 0, len(top))
	for _, c := range top {
		parentIDs = append(parentIDs, c.ID)
	}

	var all []*Comment

	for depth := 1; depth <= MaxDepth && len(parentIDs) > 0; depth++ {
		level, err := s.repo.ListReplies(ctx, parentIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list replies: %w", err)
		}

		parentIDs = make([]string, 0, len(level))
		for _, c := range level {
			parentIDs = append(parentIDs, c.ID)
		}

		all = append(all, level...)
	}

	return all, nil
}
