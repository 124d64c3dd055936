package discuss

import (
	"context"
	"errors"
	"fmt"

	"github.com/dailytribune/tribune/reactions"
)

const ServiceName = "github.com/dailytribune/tribune/discuss"

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Actor is the caller of a comment operation as resolved by the transport.
// An empty UserID is an anonymous caller.
type Actor struct {
	UserID    string
	Moderator bool
}

func (a Actor) IsAnonymous() bool {
	return a.UserID == ""
}

// canSeeRejected reports whether the text of a rejected comment is shown to a.
func (a Actor) canSeeRejected(c *Comment) bool {
	return a.Moderator || (!a.IsAnonymous() && c.AuthorID == a.UserID)
}

type Page struct {
	Number int
	Size   int
}

// Normalize fills zero values with defaults and validates the result.
func (p Page) Normalize() (Page, error) {
	if p.Number == 0 {
		p.Number = 1
	}

	if p.Size == 0 {
		p.Size = DefaultPageSize
	}

	if p.Number < 1 {
		return Page{}, ValidationError{Field: "page", Message: "must be at least 1"}
	}

	if p.Size < 1 || p.Size > MaxPageSize {
		return Page{}, ValidationError{
			Field:   "per_page",
			Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize),
		}
	}

	return p, nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type ArticleChecker interface {
	Exists(ctx context.Context, articleID string) (bool, error)
}

type ReactionLedger interface {
	Toggle(
		ctx context.Context,
		target reactions.Target,
		userID string,
		kind reactions.Kind,
	) (*reactions.ToggleResult, error)
	Counts(ctx context.Context, target reactions.Target) (reactions.Counts, error)
}

type CreateCommentRequest struct {
	ArticleID string
	ParentID  string
	Content   string
}

type ModerateCommentRequest struct {
	CommentID string
	Action    string
	Reason    string
}

type ThreadPage struct {
	ArticleID string
	Page      Page
	Thread    *Thread
}

type Service interface {
	CreateComment(ctx context.Context, actor Actor, req CreateCommentRequest) (*Comment, error)
	GetComment(ctx context.Context, actor Actor, commentID string) (*Comment, error)
	EditComment(ctx context.Context, actor Actor, commentID, content string) (*Comment, error)
	DeleteComment(ctx context.Context, actor Actor, commentID string) error
	ListComments(ctx context.Context, actor Actor, articleID string, page Page) (*ThreadPage, error)
	FlagComment(ctx context.Context, actor Actor, commentID, reason string) (*Comment, error)
	ModerationQueue(ctx context.Context, actor Actor, page Page) ([]*Comment, error)
	ModerateComment(ctx context.Context, actor Actor, req ModerateCommentRequest) (*Comment, error)
	ReactToComment(ctx context.Context, actor Actor, commentID, kind string) (*reactions.ToggleResult, error)
	CommentReactions(ctx context.Context, actor Actor, commentID string) (reactions.Counts, error)
}

// CommentService composes the store, rate limiter, moderation workflow and
// reaction ledger.
type CommentService struct {
	repo       CommentRepository
	store      *Store
	moderation *Moderation
	articles   ArticleChecker
	limiter    *RateLimiter
	ledger     ReactionLedger
	broker     *Broker
}

var _ Service = (*CommentService)(nil)

func NewCommentService(
	repo CommentRepository,
	articles ArticleChecker,
	limiter *RateLimiter,
	ledger ReactionLedger,
	broker *Broker,
) *CommentService {
	if limiter == nil {
		limiter = NewRateLimiter(nil, DefaultRateLimit, DefaultRateWindow)
	}

	return &CommentService{
		repo:       repo,
		store:      NewStore(repo),
		moderation: NewModeration(repo),
		articles:   articles,
		limiter:    limiter,
		ledger:     ledger,
		broker:     broker,
	}
}

func requireUser(actor Actor, commentID, action string) error {
	if actor.IsAnonymous() {
		return PermissionError{CommentID: commentID, Action: action}
	}

	return nil
}

func requireModerator(actor Actor, commentID, action string) error {
	if !actor.Moderator {
		return PermissionError{UserID: actor.UserID, CommentID: commentID, Action: action}
	}

	return nil
}

func (svc *CommentService) CreateComment(ctx context.Context, actor Actor, req CreateCommentRequest) (*Comment, error) {
	err := requireUser(actor, "", "create")
	if err != nil {
		return nil, err
	}

	_, err = normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	if !svc.limiter.Allow(ctx, actor.UserID) {
		return nil, LimitExceededError{Code: CodeRateLimitExceeded, Limit: svc.limiter.Limit()}
	}

	exists, err := svc.articles.Exists(ctx, req.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check article: %w", err)
	}

	if !exists {
		return nil, NotFoundError{Resource: ResourceArticle, ID: req.ArticleID}
	}

	if req.ParentID != "" {
		err = svc.checkParent(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	comment, err := svc.store.Create(ctx, CreateParams{
		ArticleID: req.ArticleID,
		AuthorID:  actor.UserID,
		ParentID:  req.ParentID,
		Content:   req.Content,
	})
	if err != nil {
		return nil, err
	}

	svc.broker.Publish(EventCreated, comment)

	return comment, nil
}

func (svc *CommentService) checkParent(ctx context.Context, req CreateCommentRequest) error {
	parent, err := svc.repo.Find(ctx, req.ParentID)
	if err != nil {
		var notFoundErr NotFoundError
		if errors.As(err, &notFoundErr) {
			return NotFoundError{Resource: ResourceParent, ID: req.ParentID}
		}

		return fmt.Errorf("failed to find parent comment: %w", err)
	}

	if parent.IsDeleted() {
		return NotFoundError{Resource: ResourceParent, ID: req.ParentID}
	}

	if parent.ArticleID != req.ArticleID {
		return ValidationError{Field: "parent_id", Message: "must belong to the same article"}
	}

	depth, err := svc.store.DepthOf(ctx, req.ParentID)
	if err != nil {
		return err
	}

	if depth >= MaxDepth {
		return LimitExceededError{Code: CodeDepthLimitExceeded, Limit: MaxDepth}
	}

	return nil
}

// GetComment returns deleted comments as tombstones. Rejected comments are
// visible to their author and moderators only.
func (svc *CommentService) GetComment(ctx context.Context, actor Actor, commentID string) (*Comment, error) {
	comment, err := svc.store.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if comment.Status == StatusRejected && !actor.canSeeRejected(comment) {
		return nil, NotFoundError{Resource: ResourceComment, ID: commentID}
	}

	return comment, nil
}

func (svc *CommentService) EditComment(ctx context.Context, actor Actor, commentID, content string) (*Comment, error) {
	err := requireUser(actor, commentID, "edit")
	if err != nil {
		return nil, err
	}

	comment, err := svc.store.Edit(ctx, commentID, actor.UserID, content)
	if err != nil {
		return nil, err
	}

	svc.broker.Publish(EventUpdated, comment)

	return comment, nil
}

// DeleteComment tombstones the actor's own comment. Deleting it again
// succeeds without side effects.
func (svc *CommentService) DeleteComment(ctx context.Context, actor Actor, commentID string) error {
	err := requireUser(actor, commentID, "delete")
	if err != nil {
		return err
	}

	deleted, err := svc.store.SoftDelete(ctx, commentID, actor.UserID)
	if err != nil {
		return err
	}

	if deleted {
		comment, err := svc.store.Get(ctx, commentID)
		if err == nil {
			svc.broker.Publish(EventDeleted, comment)
		}
	}

	return nil
}

func (svc *CommentService) ListComments(
	ctx context.Context,
	actor Actor,
	articleID string,
	page Page,
) (*ThreadPage, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	exists, err := svc.articles.Exists(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check article: %w", err)
	}

	if !exists {
		return nil, NotFoundError{Resource: ResourceArticle, ID: articleID}
	}

	top, err := svc.store.ListThreadRoots(ctx, articleID, page)
	if err != nil {
		return nil, err
	}

	replies, err := svc.store.ListDescendants(ctx, top)
	if err != nil {
		return nil, err
	}

	return &ThreadPage{
		ArticleID: articleID,
		Page:      page,
		Thread:    BuildThread(top, replies, actor),
	}, nil
}

func (svc *CommentService) FlagComment(ctx context.Context, actor Actor, commentID, reason string) (*Comment, error) {
	err := requireUser(actor, commentID, "flag")
	if err != nil {
		return nil, err
	}

	comment, err := svc.moderation.Flag(ctx, commentID, actor.UserID, reason)
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func (svc *CommentService) ModerationQueue(ctx context.Context, actor Actor, page Page) ([]*Comment, error) {
	err := requireModerator(actor, "", "review")
	if err != nil {
		return nil, err
	}

	return svc.moderation.Queue(ctx, page)
}

func (svc *CommentService) ModerateComment(
	ctx context.Context,
	actor Actor,
	req ModerateCommentRequest,
) (*Comment, error) {
	err := requireModerator(actor, req.CommentID, "moderate")
	if err != nil {
		return nil, err
	}

	action, err := ParseModerationAction(req.Action)
	if err != nil {
		return nil, err
	}

	comment, err := svc.moderation.Apply(ctx, ModerateParams{
		CommentID:   req.CommentID,
		ModeratorID: actor.UserID,
		Action:      action,
		Reason:      req.Reason,
	})
	if err != nil {
		return nil, err
	}

	svc.broker.Publish(EventModerated, comment)

	return comment, nil
}

func (svc *CommentService) reactable(ctx context.Context, actor Actor, commentID string) error {
	comment, err := svc.GetComment(ctx, actor, commentID)
	if err != nil {
		return err
	}

	if comment.IsDeleted() {
		return NotFoundError{Resource: ResourceComment, ID: commentID}
	}

	return nil
}

func (svc *CommentService) ReactToComment(
	ctx context.Context,
	actor Actor,
	commentID string,
	kind string,
) (*reactions.ToggleResult, error) {
	err := requireUser(actor, commentID, "react to")
	if err != nil {
		return nil, err
	}

	reactionKind, err := reactions.ParseKind(kind)
	if err != nil {
		return nil, ValidationError{Field: "reaction_type", Message: err.Error()}
	}

	err = svc.reactable(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}

	res, err := svc.ledger.Toggle(ctx, reactions.CommentTarget(commentID), actor.UserID, reactionKind)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	return res, nil
}

func (svc *CommentService) CommentReactions(
	ctx context.Context,
	actor Actor,
	commentID string,
) (reactions.Counts, error) {
	err := svc.reactable(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}

	counts, err := svc.ledger.Counts(ctx, reactions.CommentTarget(commentID))
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}

	return counts, nil
}
