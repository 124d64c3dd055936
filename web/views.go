package web

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/dailytribune/tribune/authentication"
	"github.com/dailytribune/tribune/contents"
	"github.com/dailytribune/tribune/discuss"
	"github.com/dailytribune/tribune/reactions"
)

type commentView struct {
	ID               string         `json:"id"`
	ArticleID        string         `json:"article_id"`
	AuthorID         string         `json:"author_id"`
	ParentID         *string        `json:"parent_id"`
	Content          string         `json:"content"`
	ContentHTML      string         `json:"content_html"`
	Status           discuss.Status `json:"status"`
	IsEdited         bool           `json:"is_edited"`
	IsFlagged        bool           `json:"is_flagged"`
	Depth            *int           `json:"depth,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	EditedAt         *time.Time     `json:"edited_at,omitempty"`
	Flag             *flagView      `json:"flag,omitempty"`
	ModeratedBy      *string        `json:"moderated_by,omitempty"`
	ModeratedAt      *time.Time     `json:"moderated_at,omitempty"`
	ModerationReason string         `json:"moderation_reason,omitempty"`
	Replies          []*commentView `json:"replies,omitempty"`
}

type flagView struct {
	Reason     string    `json:"reason"`
	ReporterID string    `json:"reporter_id"`
	FlaggedAt  time.Time `json:"flagged_at"`
}

// newCommentView renders c for an API response. Moderation details are only
// included for moderators.
func (h *Handler) newCommentView(ctx context.Context, c *discuss.Comment, moderator bool) *commentView {
	view := &commentView{
		ID:          c.ID,
		ArticleID:   c.ArticleID,
		AuthorID:    c.AuthorID,
		ParentID:    c.ParentID,
		Content:     c.Content,
		ContentHTML: h.renderMarkdown(ctx, c.Content),
		Status:      c.Status,
		IsEdited:    c.IsEdited(),
		IsFlagged:   c.IsFlagged(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		EditedAt:    c.EditedAt,
	}

	if !moderator {
		return view
	}

	if c.Flag != nil {
		view.Flag = &flagView{
			Reason:     c.Flag.Reason,
			ReporterID: c.Flag.ReporterID,
			FlaggedAt:  c.Flag.FlaggedAt,
		}
	}

	view.ModeratedBy = c.ModeratedBy
	view.ModeratedAt = c.ModeratedAt
	view.ModerationReason = c.ModerationReason

	return view
}

func (h *Handler) newNodeView(ctx context.Context, node *discuss.Node, moderator bool) *commentView {
	view := h.newCommentView(ctx, node.Comment, moderator)
	view.Depth = &node.Depth

	for _, reply := range node.Replies {
		view.Replies = append(view.Replies, h.newNodeView(ctx, reply, moderator))
	}

	return view
}

func (h *Handler) renderMarkdown(ctx context.Context, content string) string {
	var buf bytes.Buffer

	err := h.markdown.Convert([]byte(content), &buf)
	if err != nil {
		slog.WarnContext(ctx, "failed to render markdown", "error", err)

		return ""
	}

	return buf.String()
}

type threadView struct {
	ArticleID string         `json:"article_id"`
	Page      int            `json:"page"`
	PerPage   int            `json:"per_page"`
	Comments  []*commentView `json:"comments"`
}

type commentListView struct {
	Page     int            `json:"page"`
	PerPage  int            `json:"per_page"`
	Comments []*commentView `json:"comments"`
}

type reactionView struct {
	Action       reactions.ToggleAction `json:"action"`
	ReactionType reactions.Kind         `json:"reaction_type"`
	Counts       reactions.Counts       `json:"counts"`
}

type countsView struct {
	TargetType reactions.TargetType `json:"target_type"`
	TargetID   string               `json:"target_id"`
	Counts     reactions.Counts     `json:"counts"`
}

type articleView struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	BodyHTML     string    `json:"body_html"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) newArticleView(ctx context.Context, a *contents.Article) *articleView {
	return &articleView{
		ID:           a.ID,
		AuthorID:     a.AuthorID,
		Title:        a.Title,
		Body:         a.Body,
		BodyHTML:     h.renderMarkdown(ctx, a.Body),
		CommentCount: a.CommentCount,
		CreatedAt:    a.CreatedAt,
	}
}

type userView struct {
	ID           string              `json:"id"`
	Username     string              `json:"username"`
	Role         authentication.Role `json:"role"`
	RegisteredAt time.Time           `json:"registered_at"`
}

func newUserView(u *authentication.User) *userView {
	return &userView{
		ID:           u.ID,
		Username:     u.Username,
		Role:         u.Role,
		RegisteredAt: u.RegisteredAt,
	}
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *userView `json:"user"`
}

type eventView struct {
	Type    discuss.EventType `json:"type"`
	Comment *commentView      `json:"comment"`
}
