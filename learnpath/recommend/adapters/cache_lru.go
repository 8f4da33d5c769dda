package adapters

import (
	"context"
	"sync"
	"time"
)

// LRUCache is a bounded least-recently-used cache with per-entry expiry.
// The serving fallback keeps each learner's last good recommendations in one.
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*lruEntry[V]
	newest   *lruEntry[V]
	oldest   *lruEntry[V]
	now      func() time.Time
}

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	newer     *lruEntry[V]
	older     *lruEntry[V]
}

// NewLRUCache creates a cache holding at most capacity entries. A capacity
// of zero or less disables caching.
func NewLRUCache[V any](capacity int) *LRUCache[V] {
	return &LRUCache[V]{
		capacity: capacity,
		entries:  make(map[string]*lruEntry[V]),
		now:      time.Now,
	}
}

// Get returns the live value for key and marks it most recently used.
func (c *LRUCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	// Get reorders the list, so it needs the write lock
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.unlink(e)
		delete(c.entries, key)
		return zero, false
	}

	c.promote(e)
	return e.value, true
}

// Set stores value under key until ttl elapses, evicting the least recently
// used entry when the cache is full.
func (c *LRUCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if c.capacity <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.promote(e)
		return nil
	}

	e := &lruEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.pushNewest(e)
	c.entries[key] = e

	if len(c.entries) > c.capacity {
		victim := c.oldest
		c.unlink(victim)
		delete(c.entries, victim.key)
	}
	return nil
}

// Delete drops key if present.
func (c *LRUCache[V]) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.unlink(e)
		delete(c.entries, key)
	}
	return nil
}

// Len returns the number of cached entries, expired ones included.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache[V]) promote(e *lruEntry[V]) {
	if e == c.newest {
		return
	}
	c.unlink(e)
	c.pushNewest(e)
}

func (c *LRUCache[V]) pushNewest(e *lruEntry[V]) {
	e.older = c.newest
	e.newer = nil
	if c.newest != nil {
		c.newest.newer = e
	}
	c.newest = e
	if c.oldest == nil {
		c.oldest = e
	}
}

func (c *LRUCache[V]) unlink(e *lruEntry[V]) {
	if e.newer != nil {
		e.newer.older = e.older
	} else {
		c.newest = e.older
	}
	if e.older != nil {
		e.older.newer = e.newer
	} else {
		c.oldest = e.newer
	}
	e.newer = nil
	e.older = nil
}
