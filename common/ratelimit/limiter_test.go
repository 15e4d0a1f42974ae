package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, logger.Discard()), mr
}

func TestCheckCreateLimit(t *testing.T) {
	ctx := context.Background()
	rl, _ := newLimiter(t)

	for i := 1; i <= 3; i++ {
		res, err := rl.CheckCreateLimit(ctx, "alice", 3, 60)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i), res.CurrentCount)
		assert.NoError(t, res.Err())
	}

	res, err := rl.CheckCreateLimit(ctx, "alice", 3, 60)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.Limit)
	assert.Greater(t, res.RetryAfterSeconds, int64(0))

	var rlErr *RateLimitError
	require.True(t, errors.As(res.Err(), &rlErr))
	assert.Equal(t, time.Duration(res.RetryAfterSeconds)*time.Second, rlErr.RetryAfter)

	res, err = rl.CheckCreateLimit(ctx, "bob", 3, 60)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "counters are per user")
}

func TestCheckCreateLimit_WindowResets(t *testing.T) {
	ctx := context.Background()
	rl, mr := newLimiter(t)

	_, _ = rl.CheckCreateLimit(ctx, "alice", 1, 60)
	res, _ := rl.CheckCreateLimit(ctx, "alice", 1, 60)
	require.False(t, res.Allowed)

	mr.FastForward(61 * time.Second)

	res, err := rl.CheckCreateLimit(ctx, "alice", 1, 60)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckUserLimit_SeparateFromCreate(t *testing.T) {
	ctx := context.Background()
	rl, _ := newLimiter(t)

	_, _ = rl.CheckCreateLimit(ctx, "alice", 1, 60)
	res, err := rl.CheckUserLimit(ctx, "alice", 1, 60)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.NoError(t, rl.ResetLimit(ctx, "rate_limit:user:alice:create"))
	res, _ = rl.CheckCreateLimit(ctx, "alice", 1, 60)
	assert.True(t, res.Allowed)
}
