package cache

import (
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Cache is a bounded in-memory cache with TTL. When full, expired entries
// are purged first; if none have expired the new entry is dropped.
type Cache[V any] struct {
	mu         sync.RWMutex
	items      map[string]*Entry[V]
	maxEntries int
}

// New creates a cache holding at most maxEntries items (<= 0 means 1024)
func New[V any](maxEntries int) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache[V]{items: map[string]*Entry[V]{}, maxEntries: maxEntries}
}

// Set stores a value in the cache with a given TTL and reports whether it was kept
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.purgeExpiredLocked(time.Now())
		if len(c.items) >= c.maxEntries {
			return false
		}
	}
	c.items[key] = &Entry[V]{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return true
}

// Get retrieves a value from the cache if it hasn't expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero V
	entry, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return zero, false
	}
	return entry.Value, true
}

// Delete removes a key from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts stored entries, expired ones included until purged
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) purgeExpiredLocked(now time.Time) {
	for key, e := range c.items {
		if now.After(e.ExpiresAt) {
			delete(c.items, key)
		}
	}
}
