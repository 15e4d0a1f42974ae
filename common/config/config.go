package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service    ServiceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Queue      QueueConfig
	Ranker     RankerConfig
	Thumbnails ThumbnailConfig
	Policy     PolicyConfig
	RateLimit  RateLimitConfig
	Telemetry  TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name           string
	Port           int
	Environment    string
	LogLevel       string
	LogFormat      string
	InternalSecret string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds read cache settings
type CacheConfig struct {
	Enabled    bool
	Type       string // "memory" or "redis"
	Size       int    // max entries for the memory cache
	DefaultTTL time.Duration
}

// QueueConfig holds work queue settings
type QueueConfig struct {
	Type        string // "memory" for single process, "redis" for separate workers
	Topic       string
	Concurrency int
	Embedded    bool // run the worker pool inside the API process
	BufferSize  int

	ClaimIdle      time.Duration // stream messages unacked this long are taken over
	PendingTimeout time.Duration // pending records older than this are deleted
	SweepInterval  time.Duration
}

// RankerConfig holds similarity ranker settings
type RankerConfig struct {
	Type              string // "native" or "script"
	Python            string
	Script            string
	Timeout           time.Duration
	DecodeConcurrency int
}

// ThumbnailConfig describes where image thumbnails live
type ThumbnailConfig struct {
	Prefix       string // local directory or http(s) base URL
	Format       string
	FetchTimeout time.Duration
}

// PolicyConfig holds the CEL expression deciding if a collection can be sorted
type PolicyConfig struct {
	Sortable string
}

// RateLimitConfig holds per-user limits for creation requests
type RateLimitConfig struct {
	Enabled       bool
	CreatePerMin  int64
	WindowSeconds int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	queueType := getEnv("QUEUE_TYPE", "redis")

	cfg := &Config{
		Service: ServiceConfig{
			Name:           serviceName,
			Port:           getEnvInt("PORT", 8080),
			Environment:    getEnv("ENVIRONMENT", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "text"), // Default to text for development
			InternalSecret: getEnv("INTERNAL_SERVICE_SECRET", ""),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "biigle"),
			User:        getEnv("POSTGRES_USER", "biigle"),
			Password:    getEnv("POSTGRES_PASSWORD", "biigle"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			Type:       getEnv("CACHE_TYPE", queueType), // shared with workers when they run out of process
			Size:       getEnvInt("CACHE_SIZE", 4096),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 10*time.Minute),
		},
		Queue: QueueConfig{
			Type:        queueType,
			Topic:       getEnv("QUEUE_TOPIC", "colorsort.tasks.high"),
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 4),
			Embedded:    getEnvBool("WORKER_EMBEDDED", false),
			BufferSize:  getEnvInt("QUEUE_BUFFER_SIZE", 1000),

			ClaimIdle:      getEnvDuration("QUEUE_CLAIM_IDLE", 15*time.Minute),
			PendingTimeout: getEnvDuration("PENDING_TIMEOUT", 30*time.Minute),
			SweepInterval:  getEnvDuration("PENDING_SWEEP_INTERVAL", time.Minute),
		},
		Ranker: RankerConfig{
			Type:              getEnv("RANKER_TYPE", "native"),
			Python:            getEnv("RANKER_PYTHON", "/usr/bin/python3"),
			Script:            getEnv("RANKER_SCRIPT", "scripts/sort.py"),
			Timeout:           getEnvDuration("RANKER_TIMEOUT", 10*time.Minute),
			DecodeConcurrency: getEnvInt("RANKER_DECODE_CONCURRENCY", 8),
		},
		Thumbnails: ThumbnailConfig{
			Prefix:       getEnv("THUMBNAILS_PREFIX", "storage/thumbs"),
			Format:       getEnv("THUMBNAILS_FORMAT", "jpg"),
			FetchTimeout: getEnvDuration("THUMBNAILS_FETCH_TIMEOUT", 30*time.Second),
		},
		Policy: PolicyConfig{
			Sortable: getEnv("SORTABLE_POLICY", `collection.media_type == "image"`),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			CreatePerMin:  int64(getEnvInt("CREATE_RATE_LIMIT", 30)),
			WindowSeconds: getEnvInt("CREATE_RATE_LIMIT_WINDOW", 60),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("worker concurrency must be >= 1, got %d", c.Queue.Concurrency)
	}

	switch c.Ranker.Type {
	case "native", "script":
	default:
		return fmt.Errorf("unknown ranker type: %s", c.Ranker.Type)
	}

	if c.Queue.ClaimIdle <= c.Ranker.Timeout {
		return fmt.Errorf("queue claim idle (%s) must exceed the ranker timeout (%s)", c.Queue.ClaimIdle, c.Ranker.Timeout)
	}

	if c.Queue.PendingTimeout <= c.Ranker.Timeout {
		return fmt.Errorf("pending timeout (%s) must exceed the ranker timeout (%s)", c.Queue.PendingTimeout, c.Ranker.Timeout)
	}

	if c.Ranker.Type == "script" && c.Ranker.Script == "" {
		return fmt.Errorf("ranker script path is required for the script ranker")
	}

	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache type: %s", c.Cache.Type)
	}

	// workers in other processes invalidate through the cache they share with the API
	if c.Queue.Type == "redis" && c.Cache.Enabled && c.Cache.Type == "memory" {
		return fmt.Errorf("memory cache cannot be used with the redis queue, set CACHE_TYPE=redis or CACHE_ENABLED=false")
	}

	if c.Thumbnails.Format == "" {
		return fmt.Errorf("thumbnail format is required")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
