package discuss

import (
	"context"
	"time"
)

type Status string

const (
	StatusActive             Status = "active"
	StatusEdited             Status = "edited"
	StatusRejected           Status = "rejected"
	StatusDeletedByAuthor    Status = "deleted_by_author"
	StatusDeletedByModerator Status = "deleted_by_moderator"
)

func (s Status) IsDeleted() bool {
	return s == StatusDeletedByAuthor || s == StatusDeletedByModerator
}

func (s Status) IsApproved() bool {
	return s == StatusActive || s == StatusEdited
}

const (
	AuthorTombstone    = "[Comment removed]"
	ModeratorTombstone = "[Removed by moderator]"
)

const (
	MaxContentLength    = 5000
	MaxFlagReasonLength = 500
)

// Flag is the latest report against a comment.
type Flag struct {
	Reason     string
	ReporterID string
	FlaggedAt  time.Time
}

type Comment struct {
	ID               string
	ArticleID        string
	AuthorID         string
	ParentID         *string
	Content          string
	Status           Status
	Flag             *Flag
	ModeratedBy      *string
	ModeratedAt      *time.Time
	ModerationReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EditedAt         *time.Time
}

func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

func (c *Comment) IsDeleted() bool {
	return c.Status.IsDeleted()
}

func (c *Comment) IsApproved() bool {
	return c.Status.IsApproved()
}

func (c *Comment) IsFlagged() bool {
	return c.Flag != nil
}

func (c *Comment) IsEdited() bool {
	return c.EditedAt != nil
}

type CommentRepository interface {
	// Insert stores the comment and increments its article's comment count in
	// one transaction.
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, id string) (comment *Comment, err error)
	// Update overwrites the mutable fields of a comment that is not deleted.
	Update(ctx context.Context, comment *Comment) (err error)
	// SoftDelete tombstones a comment that is not deleted yet and decrements
	// its article's comment count in the same transaction. It reports false
	// when the comment was already deleted.
	SoftDelete(ctx context.Context, params SoftDeleteParams) (deleted bool, err error)
	ListTopLevel(ctx context.Context, params ListTopLevelParams) (comments []*Comment, err error)
	ListReplies(ctx context.Context, parentIDs []string) (comments []*Comment, err error)
	ListFlagged(ctx context.Context, params ListFlaggedParams) (comments []*Comment, err error)
}

type SoftDeleteParams struct {
	CommentID   string
	Status      Status
	Tombstone   string
	ModeratedBy *string
	Reason      string
	At          time.Time
}

type ListTopLevelParams struct {
	ArticleID string
	// IncludeHidden also returns deleted and rejected top-level comments so
	// that their replies stay reachable in a thread.
	IncludeHidden bool
	Limit         int
	Offset        int
}

type ListFlaggedParams struct {
	Limit  int
	Offset int
}
