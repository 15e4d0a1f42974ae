package bootstrap

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/lyzr/colorsort/common/cache"
	"github.com/lyzr/colorsort/common/config"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("test")
	require.NoError(t, err)
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnablePprof = false
	return cfg
}

func TestSetup_MemoryStack(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Queue.Type = "memory"
	cfg.Cache.Type = "memory"
	cfg.RateLimit.Enabled = false

	c, err := Setup(ctx, "test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
	)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	assert.Nil(t, c.Redis)
	assert.IsType(t, &queue.MemoryQueue{}, c.Queue)
	assert.IsType(t, &cache.MemoryCache{}, c.Cache)
	assert.NoError(t, c.Health(ctx))
}

func TestSetup_RedisStack(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mustPort(t, mr.Port())
	cfg.Queue.Type = "redis"
	cfg.Cache.Type = "redis"

	c, err := Setup(ctx, "test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
	)
	require.NoError(t, err)

	assert.NotNil(t, c.Redis)
	assert.IsType(t, &queue.RedisStreamQueue{}, c.Queue)
	assert.IsType(t, &cache.RedisCache{}, c.Cache)
	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}

func TestSetup_RedisUnavailable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1

	_, err := Setup(ctx, "test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutDB(),
	)
	assert.ErrorContains(t, err, "redis")
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return n
}
