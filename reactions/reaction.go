package reactions

import (
	"context"
	"fmt"
	"slices"
	"time"
)

type Kind string

const (
	KindLike  Kind = "like"
	KindLove  Kind = "love"
	KindAngry Kind = "angry"
	KindSad   Kind = "sad"
	KindWow   Kind = "wow"
)

var kinds = []Kind{KindLike, KindLove, KindAngry, KindSad, KindWow}

// Kinds returns every reaction kind in display order.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

func (kind Kind) IsValid() bool {
	return slices.Contains(kinds, kind)
}

func ParseKind(s string) (Kind, error) {
	kind := Kind(s)
	if !kind.IsValid() {
		return "", InvalidKindError{Kind: s, Allowed: Kinds()}
	}

	return kind, nil
}

type TargetType string

const (
	TargetTypeArticle TargetType = "article"
	TargetTypeComment TargetType = "comment"
)

func (targetType TargetType) IsValid() bool {
	switch targetType {
	case TargetTypeArticle, TargetTypeComment:
		return true
	default:
		return false
	}
}

// Target is the single article or comment a reaction points at.
type Target struct {
	Type TargetType
	ID   string
}

func (target Target) String() string {
	return string(target.Type) + ":" + target.ID
}

func ArticleTarget(articleID string) Target {
	return Target{Type: TargetTypeArticle, ID: articleID}
}

func CommentTarget(commentID string) Target {
	return Target{Type: TargetTypeComment, ID: commentID}
}

type Reaction struct {
	ID        string
	Target    Target
	UserID    string
	Kind      Kind
	CreatedAt time.Time
}

type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleChanged ToggleAction = "changed"
	ToggleRemoved ToggleAction = "removed"
)

// Counts maps every kind to its number of reactions on a target.
type Counts map[Kind]int

func zeroCounts() Counts {
	counts := make(Counts, len(kinds))
	for _, kind := range kinds {
		counts[kind] = 0
	}

	return counts
}

type ToggleResult struct {
	Action ToggleAction
	Kind   Kind
	Counts Counts
}

type ReactionRepository interface {
	// Toggle applies the add/change/remove rule for reaction.UserID on
	// reaction.Target as one atomic step.
	Toggle(ctx context.Context, reaction *Reaction) (action ToggleAction, err error)
	FindByUserTarget(ctx context.Context, target Target, userID string) (reaction *Reaction, err error)
	CountByTarget(ctx context.Context, target Target) (counts map[Kind]int, err error)
}

// TargetResolver reports whether a reaction target exists and accepts
// reactions.
type TargetResolver interface {
	TargetExists(ctx context.Context, target Target) (exists bool, err error)
}

type TargetResolverFunc func(ctx context.Context, target Target) (bool, error)

func (f TargetResolverFunc) TargetExists(ctx context.Context, target Target) (bool, error) {
	return f(ctx, target)
}

type ReactionNotFoundError struct {
	Target Target
	UserID string
}

func (err ReactionNotFoundError) Error() string {
	return fmt.Sprintf("reaction for user %q on %s not found", err.UserID, err.Target)
}

type InvalidTargetTypeError struct {
	TargetType TargetType
}

func (err InvalidTargetTypeError) Error() string {
	return fmt.Sprintf("invalid target type: %q", err.TargetType)
}

type InvalidKindError struct {
	Kind    string
	Allowed []Kind
}

func (err InvalidKindError) Error() string {
	return fmt.Sprintf("reaction %q is not allowed; allowed: %v", err.Kind, err.Allowed)
}

type TargetNotFoundError struct {
	Target Target
}

func (err TargetNotFoundError) Error() string {
	return fmt.Sprintf("reaction target %s not found", err.Target)
}
