// Package cache provides the in-memory TTL cache shared by the polling loop
// and the interactive command handlers.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is the expiry applied to marks-related keys when no explicit
// TTL is given.
const DefaultTTL = 300 * time.Second

// Well-known cache keys.
const (
	KeyLatestMarks    = "latest_marks"
	KeyMarksSemesters = "marks_semesters"

	// KeyMarksSemesterPrefix prefixes per-semester keys; append the
	// semester's display name.
	KeyMarksSemesterPrefix = "marks_semester_"
)

// MarksSemesterKey builds the cache key for one semester's marks.
func MarksSemesterKey(label string) string {
	return KeyMarksSemesterPrefix + label
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// TTLCache is a keyed cache with explicit expiry and lazy eviction: expired
// entries are treated as absent and overwritten on the next fill, there is
// no background sweeper. All access goes through one mutex, and GetOrFill
// additionally serializes the miss path per key so two concurrent callers
// cannot both miss and duplicate an expensive upstream call.
type TTLCache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	locks   map[string]*sync.Mutex
	ttl     time.Duration
}

// New creates a TTLCache with the given default TTL. A non-positive TTL
// falls back to DefaultTTL.
func New[T any](defaultTTL time.Duration) *TTLCache[T] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TTLCache[T]{
		entries: make(map[string]entry[T]),
		locks:   make(map[string]*sync.Mutex),
		ttl:     defaultTTL,
	}
}

// Get returns the cached value for key if it has not expired.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl uses the cache default.
func (c *TTLCache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// IsValid reports whether key holds an unexpired entry.
func (c *TTLCache[T]) IsValid(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && time.Now().Before(e.expiresAt)
}

// Delete removes key.
func (c *TTLCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// GetOrFill returns the cached value for key, or runs fill to produce and
// store one. Concurrent callers for the same key are serialized so fill
// runs at most once per expiry window; callers for other keys are not
// blocked while fill is in flight.
func (c *TTLCache[T]) GetOrFill(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) (T, error)) (T, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := fill(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(key, v, ttl)
	return v, nil
}

// keyLock returns the per-key mutex, creating it on first use. Key locks
// are never removed; the key space here is small and fixed.
func (c *TTLCache[T]) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}
