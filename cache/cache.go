// Package cache defines the key-value capability used for rate-limit
// counters and reaction count snapshots. Callers must treat every
// implementation as optional: a miss or an unavailable backend is never a
// correctness problem, only a slower path.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")

	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("cache unavailable")
)

type Cache interface {
	Get(ctx context.Context, key string) (value string, err error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) (err error)
	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (value int64, err error)
	Expire(ctx context.Context, key string, ttl time.Duration) (err error)
	Delete(ctx context.Context, keys ...string) (err error)
}

// Nop is a cache that never holds anything. Counters report ErrUnavailable
// so that limiters built on it fail open.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(context.Context, string) (string, error) {
	return "", ErrMiss
}

func (Nop) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (Nop) Incr(context.Context, string) (int64, error) {
	return 0, ErrUnavailable
}

func (Nop) Expire(context.Context, string, time.Duration) error {
	return nil
}

func (Nop) Delete(context.Context, ...string) error {
	return nil
}
