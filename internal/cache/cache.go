// Package cache provides the in-memory TTL cache shared by every SSH session
// for Catalog Store reads.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a generic TTL cache with mutex protection. A zero or negative TTL
// disables caching: Set is a no-op and every Get misses.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	items   map[K]entry[V]
	ttl     time.Duration
	nowFunc func() time.Time // For testing
}

// New creates a new cache with the specified TTL.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		items:   make(map[K]entry[V]),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// TTL returns the configured time to live.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[K, V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

// Get returns the value for key if present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.expired(e, c.nowFunc()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{value: value, storedAt: c.nowFunc()}
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// caching its result. Load errors are returned as-is and never cached.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// DeleteFunc removes every entry whose key matches and returns how many
// were removed.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.items {
		if match(key) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Clear removes every entry. The admin panel calls this after each mutation.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]entry[V])
}

// Cleanup drops expired entries and returns how many were removed.
func (c *Cache[K, V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	n := 0
	for key, e := range c.items {
		if c.expired(e, now) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
