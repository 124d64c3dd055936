package discuss

import (
	"context"
	"fmt"

	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/reactions"
)

const (
	ActionCreateComment    = "createComment"
	ActionReadComment      = "readComment"
	ActionEditComment      = "editComment"
	ActionDeleteComment    = "deleteComment"
	ActionListComments     = "listComments"
	ActionFlagComment      = "flagComment"
	ActionReactComment     = "reactComment"
	ActionModerateComments = "moderateComments"
)

// AuthorizationMiddleware checks the policy of every operation before
// calling next. Ownership and moderator rules are still applied by next.
type AuthorizationMiddleware struct {
	authzClient *authorization.Client
	next        Service
}

var _ Service = (*AuthorizationMiddleware)(nil)

func NewAuthorizationMiddleware(authzClient *authorization.Client, next Service) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		authzClient: authzClient,
		next:        next,
	}
}

func (mw *AuthorizationMiddleware) check(ctx context.Context, object, action string) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, object, action)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	return nil
}

func (mw *AuthorizationMiddleware) CreateComment(
	ctx context.Context,
	actor Actor,
	req CreateCommentRequest,
) (*Comment, error) {
	err := mw.check(ctx, req.ArticleID, ActionCreateComment)
	if err != nil {
		return nil, err
	}

	return mw.next.CreateComment(ctx, actor, req)
}

func (mw *AuthorizationMiddleware) GetComment(ctx context.Context, actor Actor, commentID string) (*Comment, error) {
	err := mw.check(ctx, commentID, ActionReadComment)
	if err != nil {
		return nil, err
	}

	return mw.next.GetComment(ctx, actor, commentID)
}

func (mw *AuthorizationMiddleware) EditComment(
	ctx context.Context,
	actor Actor,
	commentID, content string,
) (*Comment, error) {
	err := mw.check(ctx, commentID, ActionEditComment)
	if err != nil {
		return nil, err
	}

	return mw.next.EditComment(ctx, actor, commentID, content)
}

func (mw *AuthorizationMiddleware) DeleteComment(ctx context.Context, actor Actor, commentID string) error {
	err := mw.check(ctx, commentID, ActionDeleteComment)
	if err != nil {
		return err
	}

	return mw.next.DeleteComment(ctx, actor, commentID)
}

func (mw *AuthorizationMiddleware) ListComments(
	ctx context.Context,
	actor Actor,
	articleID string,
	page Page,
) (*ThreadPage, error) {
	err := mw.check(ctx, articleID, ActionListComments)
	if err != nil {
		return nil, err
	}

	return mw.next.ListComments(ctx, actor, articleID, page)
}

func (mw *AuthorizationMiddleware) FlagComment(
	ctx context.Context,
	actor Actor,
	commentID, reason string,
) (*Comment, error) {
	err := mw.check(ctx, commentID, ActionFlagComment)
	if err != nil {
		return nil, err
	}

	return mw.next.FlagComment(ctx, actor, commentID, reason)
}

func (mw *AuthorizationMiddleware) ModerationQueue(ctx context.Context, actor Actor, page Page) ([]*Comment, error) {
	err := mw.check(ctx, "", ActionModerateComments)
	if err != nil {
		return nil, err
	}

	return mw.next.ModerationQueue(ctx, actor, page)
}

func (mw *AuthorizationMiddleware) ModerateComment(
	ctx context.Context,
	actor Actor,
	req ModerateCommentRequest,
) (*Comment, error) {
	err := mw.check(ctx, req.CommentID, ActionModerateComments)
	if err != nil {
		return nil, err
	}

	return mw.next.ModerateComment(ctx, actor, req)
}

func (mw *AuthorizationMiddleware) ReactToComment(
	ctx context.Context,
	actor Actor,
	commentID, kind string,
) (*reactions.ToggleResult, error) {
	err := mw.check(ctx, commentID, ActionReactComment)
	if err != nil {
		return nil, err
	}

	return mw.next.ReactToComment(ctx, actor, commentID, kind)
}

func (mw *AuthorizationMiddleware) CommentReactions(
	ctx context.Context,
	actor Actor,
	commentID string,
) (reactions.Counts, error) {
	err := mw.check(ctx, commentID, ActionReadComment)
	if err != nil {
		return nil, err
	}

	return mw.next.CommentReactions(ctx, actor, commentID)
}
