// Package cache provides a small in-process TTL cache. Each component owns its
// own instance; writers invalidate entries explicitly instead of patching them.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is a concurrency-safe map whose entries expire after a fixed duration.
// A TTL <= 0 disables the cache: Get always misses and Set is a no-op.
type TTL[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a cache. maxEntries <= 0 means unbounded.
func New[K comparable, V any](ttl time.Duration, maxEntries int) *TTL[K, V] {
	return &TTL[K, V]{
		items:      make(map[K]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *TTL[K, V]) Enabled() bool { return c != nil && c.ttl > 0 }

func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V
	if !c.Enabled() {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expires) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[key] = entry[V]{value: value, expires: now.Add(c.ttl)}
}

// Delete invalidates key. Safe on a nil or disabled cache.
func (c *TTL[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *TTL[K, V]) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

func (c *TTL[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictLocked drops expired entries, then the soonest-to-expire one if still full.
func (c *TTL[K, V]) evictLocked(now time.Time) {
	var (
		oldestKey K
		oldest    time.Time
		found     bool
	)
	for k, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, k)
			continue
		}
		if !found || e.expires.Before(oldest) {
			oldestKey, oldest, found = k, e.expires, true
		}
	}
	if len(c.items) >= c.maxEntries && found {
		delete(c.items, oldestKey)
	}
}
