package discuss

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

const (
	ResourceComment = "comment"
	ResourceArticle = "article"
	ResourceParent  = "parent comment"
)

type NotFoundError struct {
	Resource string
	ID       string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Resource, err.ID)
}

type PermissionError struct {
	UserID    string
	CommentID string
	Action    string
}

func (err PermissionError) Error() string {
	return fmt.Sprintf("user %q is not allowed to %s comment %q", err.UserID, err.Action, err.CommentID)
}

const (
	CodeRateLimitExceeded  = "rate_limit_exceeded"
	CodeDepthLimitExceeded = "depth_limit_exceeded"
)

type LimitExceededError struct {
	Code  string
	Limit int
}

func (err LimitExceededError) Error() string {
	switch err.Code {
	case CodeRateLimitExceeded:
		return fmt.Sprintf("comment rate limit of %d exceeded", err.Limit)
	case CodeDepthLimitExceeded:
		return fmt.Sprintf("replies deeper than %d levels are not allowed", err.Limit)
	default:
		return fmt.Sprintf("limit %d exceeded: %s", err.Limit, err.Code)
	}
}
