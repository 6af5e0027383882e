package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPED CACHE
// Redis-backed counterpart of the in-memory TTL cache. Same contract: a
// GetOrFill that serializes the miss path per key, and server-side expiry
// instead of lazy eviction.
// ══════════════════════════════════════════════════════════════════════════════

// TypedCache caches values of one type under string keys with Redis expiry.
type TypedCache[T any] struct {
	cache  *Cache
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTypedCache creates a typed cache on top of a Redis connection.
func NewTypedCache[T any](cache *Cache, logger *slog.Logger) *TypedCache[T] {
	if logger == nil {
		logger = slog.Default()
	}

	return &TypedCache[T]{
		cache:  cache,
		logger: logger.With("component", "redis_cache"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// GetOrFill returns the cached value for key, or runs fill to produce and
// store one. Concurrent callers for the same key are serialized so fill runs
// at most once per expiry window. Redis failures degrade to calling fill
// directly; a flaky cache must not take the bot down with it.
func (c *TypedCache[T]) GetOrFill(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) (T, error)) (T, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	var cached T
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("cache read failed, fetching directly", "key", key, "error", err)
	}

	value, err := fill(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if setErr := c.cache.Set(ctx, key, value, ttl); setErr != nil {
		c.logger.Warn("cache write failed", "key", key, "error", setErr)
	}

	return value, nil
}

// Delete removes key. Best effort: the caller treats the cache as advisory.
func (c *TypedCache[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// keyLock returns the per-key mutex, creating it on first use.
func (c *TypedCache[T]) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}
