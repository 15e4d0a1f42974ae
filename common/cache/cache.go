package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lyzr/colorsort/common/logger"
)

// Cache interface for key-value storage
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryCache is a bounded in-process cache backed by an expirable LRU.
// The LRU TTL is the upper bound; shorter per-entry TTLs are checked on read.
type MemoryCache struct {
	lru *expirable.LRU[string, cacheEntry]
	log *logger.Logger
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache holding at most size entries
func NewMemoryCache(size int, maxTTL time.Duration, log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, cacheEntry](size, nil, maxTTL),
		log: log,
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value in cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.lru.Add(key, cacheEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Close purges the cache
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	c.log.Info("memory cache closed")
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"entries": c.lru.Len(),
		"type":    "memory",
	}
}
