// cache.go - Short-lived in-memory cache for values that are expensive to rebuild

package storage

import (
	"context"
	"sync"
	"time"
)

// TTLCache keeps the last value returned by load for ttl. The usage
// endpoint uses it so dashboards polling it do not hit the quota store on
// every request.
type TTLCache[T any] struct {
	ttl  time.Duration
	load func(ctx context.Context) T
	now  func() time.Time

	mu       sync.RWMutex
	value    T
	loadedAt time.Time
	loaded   bool
}

// NewTTLCache creates a cache. A ttl of zero disables caching.
func NewTTLCache[T any](ttl time.Duration, load func(ctx context.Context) T) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, load: load, now: time.Now}
}

// Get returns the cached value or loads a fresh one.
func (c *TTLCache[T]) Get(ctx context.Context) T {
	c.mu.RLock()
	if c.fresh() {
		v := c.value
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.fresh() {
		return c.value
	}
	c.value = c.load(ctx)
	c.loadedAt = c.now()
	c.loaded = true
	return c.value
}

// Invalidate drops the cached value.
func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// fresh must be called with mu held.
func (c *TTLCache[T]) fresh() bool {
	return c.loaded && c.ttl > 0 && c.now().Sub(c.loadedAt) < c.ttl
}
