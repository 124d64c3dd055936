package reactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dailytribune/tribune/cache"
	"github.com/google/uuid"
)

const ServiceName = "github.com/dailytribune/tribune/reactions"

const (
	ActionToggleReaction = "toggleReaction"
	ActionReadReactions  = "readReactions"
)

const DefaultCountsTTL = 5 * time.Minute

const (
	countsKeyPrefix     = "reactions:"
	generationKeyPrefix = "reactions:gen:"
)

type Service struct {
	repo      ReactionRepository
	cache     cache.Cache
	countsTTL time.Duration
	targets   TargetResolver
}

// NewService builds the ledger. A nil cache disables count caching and a nil
// resolver accepts every target.
func NewService(repo ReactionRepository, c cache.Cache, countsTTL time.Duration, targets TargetResolver) *Service {
	if c == nil {
		c = cache.Nop{}
	}

	if countsTTL <= 0 {
		countsTTL = DefaultCountsTTL
	}

	return &Service{
		repo:      repo,
		cache:     c,
		countsTTL: countsTTL,
		targets:   targets,
	}
}

// Count snapshots are keyed by the target's generation, which every toggle
// bumps. A reader that scanned the store before a toggle can only write its
// snapshot under the old generation, where nobody looks anymore.
func countsKey(target Target, generation int64) string {
	return countsKeyPrefix + target.String() + ":" + strconv.FormatInt(generation, 10)
}

func generationKey(target Target) string {
	return generationKeyPrefix + target.String()
}

func (svc *Service) checkTarget(ctx context.Context, target Target) error {
	if !target.Type.IsValid() {
		return InvalidTargetTypeError{TargetType: target.Type}
	}

	if svc.targets == nil {
		return nil
	}

	exists, err := svc.targets.TargetExists(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to resolve reaction target: %w", err)
	}

	if !exists {
		return TargetNotFoundError{Target: target}
	}

	return nil
}

// Toggle adds kind for userID on target, switches an existing reaction to
// kind, or removes it when it already is kind.
func (svc *Service) Toggle(ctx context.Context, target Target, userID string, kind Kind) (*ToggleResult, error) {
	if !kind.IsValid() {
		return nil, InvalidKindError{Kind: string(kind), Allowed: Kinds()}
	}

	err := svc.checkTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	action, err := svc.repo.Toggle(ctx, &Reaction{
		ID:        uuid.NewString(),
		Target:    target,
		UserID:    userID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	svc.invalidate(ctx, target)

	counts, err := svc.countFromStore(ctx, target)
	if err != nil {
		return nil, err
	}

	return &ToggleResult{
		Action: action,
		Kind:   kind,
		Counts: counts,
	}, nil
}

func (svc *Service) invalidate(ctx context.Context, target Target) {
	_, err := svc.cache.Incr(ctx, generationKey(target))
	if err == nil {
		return
	}

	slog.WarnContext(ctx, "failed to bump reaction counts generation", "target", target.String(), "error", err)

	generation, err := svc.generation(ctx, target)
	if err != nil {
		return
	}

	err = svc.cache.Delete(ctx, countsKey(target, generation))
	if err != nil {
		slog.WarnContext(ctx, "failed to invalidate reaction counts", "target", target.String(), "error", err)
	}
}

// generation is the current snapshot generation of target; a target that was
// never toggled is at generation 0.
func (svc *Service) generation(ctx context.Context, target Target) (int64, error) {
	value, err := svc.cache.Get(ctx, generationKey(target))
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	generation, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse reaction counts generation: %w", err)
	}

	return generation, nil
}

// Counts returns the number of reactions per kind, zero-filled, serving a
// cached snapshot when one is available.
func (svc *Service) Counts(ctx context.Context, target Target) (Counts, error) {
	err := svc.checkTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	generation, err := svc.generation(ctx, target)
	if err != nil {
		slog.WarnContext(ctx, "failed to read reaction counts generation", "target", target.String(), "error", err)

		return svc.countFromStore(ctx, target)
	}

	key := countsKey(target, generation)

	counts, err := svc.cachedCounts(ctx, key)
	if err == nil {
		return counts, nil
	}

	if !errors.Is(err, cache.ErrMiss) {
		slog.WarnContext(ctx, "failed to read cached reaction counts", "target", target.String(), "error", err)
	}

	counts, err = svc.countFromStore(ctx, target)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reaction counts: %w", err)
	}

	err = svc.cache.Set(ctx, key, string(encoded), svc.countsTTL)
	if err != nil {
		slog.WarnContext(ctx, "failed to cache reaction counts", "target", target.String(), "error", err)
	}

	return counts, nil
}

func (svc *Service) cachedCounts(ctx context.Context, key string) (Counts, error) {
	value, err := svc.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	counts := zeroCounts()

	err = json.Unmarshal([]byte(value), &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached counts: %w", err)
	}

	return counts, nil
}

func (svc *Service) countFromStore(ctx context.Context, target Target) (Counts, error) {
	stored, err := svc.repo.CountByTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}

	counts := zeroCounts()

	for kind, n := range stored {
		if kind.IsValid() {
			counts[kind] = n
		}
	}

	return counts, nil
}

// UserReaction returns the reaction of userID on target, or nil when there
// is none.
func (svc *Service) UserReaction(ctx context.Context, target Target, userID string) (*Reaction, error) {
	reaction, err := svc.repo.FindByUserTarget(ctx, target, userID)
	if err != nil {
		var notFoundErr ReactionNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find user reaction: %w", err)
	}

	return reaction, nil
}
