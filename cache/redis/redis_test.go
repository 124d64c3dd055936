package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dailytribune/tribune/cache"
	"github.com/dailytribune/tribune/cache/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)

	c, err := redis.Connect(context.Background(), "redis://"+srv.Addr())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c, srv
}

func TestCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, srv := newCache(t)

	_, err := c.Get(ctx, "reactions:comment:1")
	require.ErrorIs(t, err, cache.ErrMiss)

	err = c.Set(ctx, "reactions:comment:1", `{"like":1}`, 5*time.Minute)
	require.NoError(t, err)

	v, err := c.Get(ctx, "reactions:comment:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"like":1}`, v)
	assert.Equal(t, 5*time.Minute, srv.TTL("reactions:comment:1"))

	srv.FastForward(5 * time.Minute)

	_, err = c.Get(ctx, "reactions:comment:1")
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx))

	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func TestCache_IncrExpire(t *testing.T) {
	ctx := context.Background()
	c, srv := newCache(t)

	n, err := c.Incr(ctx, "comment_rate:u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.Expire(ctx, "comment_rate:u1", time.Hour))

	n, err = c.Incr(ctx, "comment_rate:u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	srv.FastForward(time.Hour)

	n, err = c.Incr(ctx, "comment_rate:u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	c, srv := newCache(t)

	srv.SetError("ERR simulated failure")

	_, err := c.Incr(ctx, "k")
	require.ErrorIs(t, err, cache.ErrUnavailable)

	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrUnavailable)
	require.NotErrorIs(t, err, cache.ErrMiss)
}
