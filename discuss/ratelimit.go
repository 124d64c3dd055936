package discuss

import (
	"context"
	"log/slog"
	"time"

	"github.com/dailytribune/tribune/cache"
)

const (
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Hour

	rateLimitKeyPrefix = "comment_rate:"
)

// RateLimiter counts comment submissions per author in fixed windows. It
// fails open when the counter backend is unavailable.
type RateLimiter struct {
	counter cache.Cache
	limit   int
	window  time.Duration
}

func NewRateLimiter(counter cache.Cache, limit int, window time.Duration) *RateLimiter {
	if counter == nil {
		counter = cache.Nop{}
	}

	if limit <= 0 {
		limit = DefaultRateLimit
	}

	if window <= 0 {
		window = DefaultRateWindow
	}

	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
	}
}

func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Allow consumes one slot for authorID and reports whether it was within the
// limit. Rejected attempts keep their slot.
func (rl *RateLimiter) Allow(ctx context.Context, authorID string) bool {
	key := rateLimitKeyPrefix + authorID

	n, err := rl.counter.Incr(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "rate limiter unavailable, allowing comment", "authorId", authorID, "error", err)

		return true
	}

	if n == 1 {
		err = rl.counter.Expire(ctx, key, rl.window)
		if err != nil {
			slog.WarnContext(ctx, "failed to set rate limit window", "authorId", authorID, "error", err)

			// a counter without expiry would lock the author out for good
			delErr := rl.counter.Delete(ctx, key)
			if delErr != nil {
				slog.WarnContext(ctx, "failed to drop rate limit counter", "authorId", authorID, "error", delErr)
			}
		}
	}

	return n <= int64(rl.limit)
}
