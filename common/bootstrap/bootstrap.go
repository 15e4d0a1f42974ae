package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/colorsort/common/cache"
	"github.com/lyzr/colorsort/common/config"
	"github.com/lyzr/colorsort/common/db"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/queue"
	rediscommon "github.com/lyzr/colorsort/common/redis"
	"github.com/lyzr/colorsort/common/telemetry"
	"github.com/redis/go-redis/v9"
)

// ConsumerGroup is the Redis stream consumer group shared by all workers
const ConsumerGroup = "colorsort-workers"

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.DB.Close()
			return nil
		})

		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize Redis when any component needs it
	if !options.skipRedis && needsRedis(cfg, options) {
		components.Logger.Info("connecting to redis", "addr", cfg.RedisAddr())

		raw := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		components.Redis = rediscommon.NewClient(raw, components.Logger)

		if err := components.Redis.Ping(ctx); err != nil {
			raw.Close()
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return raw.Close()
		})
	}

	// 5. Initialize queue (if not skipped)
	if !options.skipQueue {
		components.Logger.Info("initializing queue", "type", cfg.Queue.Type, "topic", cfg.Queue.Topic)

		switch cfg.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(cfg.Queue.BufferSize, components.Logger)
		case "redis":
			if components.Redis == nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("redis queue requires redis")
			}
			components.Queue = queue.NewRedisStreamQueue(components.Redis, ConsumerGroup, cfg.Queue.ClaimIdle, components.Logger)
		default:
			components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", cfg.Queue.Type)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 6. Initialize cache (if not skipped)
	if !options.skipCache && cfg.Cache.Enabled {
		components.Logger.Info("initializing cache", "type", cfg.Cache.Type, "size", cfg.Cache.Size)

		switch cfg.Cache.Type {
		case "redis":
			if components.Redis == nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("redis cache requires redis")
			}
			components.Cache = cache.NewRedisCache(components.RedisRaw(), "colorsort:cache:")
		default:
			components.Cache = cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.DefaultTTL, components.Logger)
		}

		components.addCleanup(func() error {
			return components.Cache.Close()
		})
	}

	// 7. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && (cfg.Telemetry.EnablePprof || cfg.Telemetry.EnableMetrics) {
		pprofPort, metricsPort := 0, 0
		if cfg.Telemetry.EnablePprof {
			pprofPort = cfg.Telemetry.PprofPort
		}
		if cfg.Telemetry.EnableMetrics {
			metricsPort = cfg.Telemetry.MetricsPort
		}

		components.Telemetry = telemetry.New(pprofPort, metricsPort, components.Logger)
		if err := components.Telemetry.Start(ctx); err != nil {
			// telemetry is optional
			components.Logger.Warn("failed to start telemetry", "error", err)
		}
		components.addCleanup(func() error {
			components.Telemetry.Shutdown()
			return nil
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

func needsRedis(cfg *config.Config, o *options) bool {
	return (!o.skipQueue && cfg.Queue.Type == "redis") ||
		(!o.skipCache && cfg.Cache.Enabled && cfg.Cache.Type == "redis") ||
		cfg.RateLimit.Enabled
}

// MustSetup is like Setup but panics on error
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
