package discuss

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
	ModerationDelete  ModerationAction = "delete"
)

func ParseModerationAction(s string) (ModerationAction, error) {
	switch action := ModerationAction(s); action {
	case ModerationApprove, ModerationReject, ModerationDelete:
		return action, nil
	default:
		return "", ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("must be one of %s, %s, %s", ModerationApprove, ModerationReject, ModerationDelete),
		}
	}
}

// Moderation drives the flag/review state machine of comments.
type Moderation struct {
	repo CommentRepository
	now  func() time.Time
}

func NewModeration(repo CommentRepository) *Moderation {
	return &Moderation{
		repo: repo,
		now:  time.Now,
	}
}

func (m *Moderation) findLive(ctx context.Context, commentID string) (*Comment, error) {
	comment, err := m.repo.Find(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.IsDeleted() {
		return nil, NotFoundError{Resource: ResourceComment, ID: commentID}
	}

	return comment, nil
}

// Flag reports a comment for review. Flagging again replaces the reason and
// reporter.
func (m *Moderation) Flag(ctx context.Context, commentID, reporterID, reason string) (*Comment, error) {
	reason = strings.TrimSpace(reason)

	if reason == "" {
		return nil, ValidationError{Field: "reason", Message: "must not be empty"}
	}

	if utf8.RuneCountInString(reason) > MaxFlagReasonLength {
		return nil, ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("must be at most %d characters", MaxFlagReasonLength),
		}
	}

	comment, err := m.findLive(ctx, commentID)
	if err != nil {
		return nil, err
	}

	timeNow := m.now().UTC()

	comment.Flag = &Flag{
		Reason:     reason,
		ReporterID: reporterID,
		FlaggedAt:  timeNow,
	}
	comment.UpdatedAt = timeNow

	err = m.repo.Update(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to flag comment: %w", err)
	}

	slog.InfoContext(ctx, "comment flagged", "commentId", commentID, "reporterId", reporterID)

	return comment, nil
}

// Queue lists flagged comments that are not deleted, oldest first.
func (m *Moderation) Queue(ctx context.Context, page Page) ([]*Comment, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	comments, err := m.repo.ListFlagged(ctx, ListFlaggedParams{
		Limit:  page.Size,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged comments: %w", err)
	}

	return comments, nil
}

type ModerateParams struct {
	CommentID   string
	ModeratorID string
	Action      ModerationAction
	Reason      string
}

// Apply performs a moderation decision. Repeating a decision that is already
// in effect returns the current comment without writing.
func (m *Moderation) Apply(ctx context.Context, params ModerateParams) (*Comment, error) {
	var (
		comment *Comment
		err     error
	)

	switch params.Action {
	case ModerationApprove:
		comment, err = m.approve(ctx, params)
	case ModerationReject:
		comment, err = m.reject(ctx, params)
	case ModerationDelete:
		comment, err = m.delete(ctx, params)
	default:
		_, err = ParseModerationAction(string(params.Action))
	}

	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "comment moderated",
		"moderatorId", params.ModeratorID,
		"commentId", params.CommentID,
		"action", params.Action,
		"reason", params.Reason,
	)

	return comment, nil
}

func (m *Moderation) stamp(comment *Comment, params ModerateParams) {
	timeNow := m.now().UTC()
	moderatorID := params.ModeratorID

	comment.ModeratedBy = &moderatorID
	comment.ModeratedAt = &timeNow
	comment.ModerationReason = strings.TrimSpace(params.Reason)
	comment.UpdatedAt = timeNow
}

func (m *Moderation) approve(ctx context.Context, params ModerateParams) (*Comment, error) {
	comment, err := m.findLive(ctx, params.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.IsApproved() && !comment.IsFlagged() {
		return comment, nil
	}

	comment.Flag = nil

	if comment.Status == StatusRejected {
		comment.Status = StatusActive
		if comment.IsEdited() {
			comment.Status = StatusEdited
		}
	}

	m.stamp(comment, params)

	err = m.repo.Update(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to approve comment: %w", err)
	}

	return comment, nil
}

func (m *Moderation) reject(ctx context.Context, params ModerateParams) (*Comment, error) {
	comment, err := m.findLive(ctx, params.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.Status == StatusRejected && !comment.IsFlagged() {
		return comment, nil
	}

	comment.Status = StatusRejected
	comment.Flag = nil

	m.stamp(comment, params)

	err = m.repo.Update(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to reject comment: %w", err)
	}

	return comment, nil
}

func (m *Moderation) delete(ctx context.Context, params ModerateParams) (*Comment, error) {
	comment, err := m.repo.Find(ctx, params.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.IsDeleted() {
		return comment, nil
	}

	moderatorID := params.ModeratorID

	_, err = m.repo.SoftDelete(ctx, SoftDeleteParams{
		CommentID:   params.CommentID,
		Status:      StatusDeletedByModerator,
		Tombstone:   ModeratorTombstone,
		ModeratedBy: &moderatorID,
		Reason:      strings.TrimSpace(params.Reason),
		At:          m.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}

	comment, err = m.repo.Find(ctx, params.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload comment: %w", err)
	}

	return comment, nil
}
