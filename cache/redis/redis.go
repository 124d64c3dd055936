package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dailytribune/tribune/cache"
	goredis "github.com/redis/go-redis/v9"
)

// Cache implements cache.Cache on a Redis server.
type Cache struct {
	client *goredis.Client
}

var _ cache.Cache = (*Cache)(nil)

func New(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*Cache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return New(client), nil
}

func (c *Cache) Close() error {
	err := c.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("failed to %s %q: %w: %w", op, key, cache.ErrUnavailable, err)
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", cache.ErrMiss
		}

		return "", unavailable("get", key, err)
	}

	return value, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	err := c.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return unavailable("set", key, err)
	}

	return nil
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable("incr", key, err)
	}

	return n, nil
}

func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := c.client.Expire(ctx, key, ttl).Err()
	if err != nil {
		return unavailable("expire", key, err)
	}

	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	err := c.client.Del(ctx, keys...).Err()
	if err != nil {
		return unavailable("delete", keys[0], err)
	}

	return nil
}
