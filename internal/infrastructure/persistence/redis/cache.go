// Package redis implements Redis-backed caching for the portal monitor.
// The monitor runs fine on the in-memory cache alone; Redis is an optional
// upgrade that keeps cached marks warm across restarts and shares them when
// the bot and a worker run as separate processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss signals the key is absent.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection signals the initial ping failed.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization signals a JSON encode/decode failure.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty rejects empty keys before they reach Redis.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// KeyPrefix namespaces every key the monitor writes, so a shared Redis
// instance stays readable.
const KeyPrefix = "portal:"

// Config holds the Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// PoolSize and MinIdleConns size the socket pool; the monitor's
	// traffic is tiny so both stay small.
	PoolSize     int
	MinIdleConns int

	// MaxRetries is go-redis's own per-command retry budget.
	MaxRetries int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns settings for a local unauthenticated Redis.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     5,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr formats the host:port pair.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Cache stores JSON-encoded values under prefixed keys with server-side
// expiry.
type Cache struct {
	client *redis.Client
	config Config
}

// NewCache connects and verifies the connection with a bounded ping.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client, config: cfg}, nil
}

// Client exposes the raw go-redis client.
func (c *Cache) Client() *redis.Client { return c.client }

// Close releases the connection pool.
func (c *Cache) Close() error { return c.client.Close() }

// Ping verifies Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON under key with the given expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, KeyPrefix+key, raw, ttl).Err()
}

// Get decodes the value at key into dest, or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	raw, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = KeyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// Exists reports whether key is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}
	n, err := c.client.Exists(ctx, KeyPrefix+key).Result()
	return n > 0, err
}

// TTL returns the remaining expiry for key (-2 absent, -1 no expiry).
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if key == "" {
		return 0, ErrCacheKeyEmpty
	}
	return c.client.TTL(ctx, KeyPrefix+key).Result()
}
