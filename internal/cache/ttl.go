package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with its expiry and content hash marker.
type entry[V any] struct {
	value       V
	expiresAt   time.Time
	contentHash string
}

// TTL is an in-process expiring key/value store. Expired entries are
// treated as absent on read and evicted lazily at that point; there is
// no background sweeper. Safe for concurrent use.
//
// Multiple named instances exist for independent domains (route
// resolutions, last-known-good snapshots, breaker bookkeeping), each
// with its own default TTL.
type TTL[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTTL creates a TTL cache with the given default entry lifetime.
func NewTTL[V any](defaultTTL time.Duration) *TTL[V] {
	return &TTL[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the live value for key, if any.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry since the read lock was dropped.
		if cur, still := c.entries[key]; still && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl uses the cache's
// default.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// SetWithHash stores value under key along with a content hash marker used
// for persistent-tier write suppression.
func (c *TTL[V]) SetWithHash(key string, value V, ttl time.Duration, contentHash string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{
		value:       value,
		expiresAt:   c.now().Add(ttl),
		contentHash: contentHash,
	}
	c.mu.Unlock()
}

// Hash returns the content hash marker stored for key, if the entry is live.
func (c *TTL[V]) Hash(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.contentHash, true
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key with the given prefix and returns the
// number removed.
func (c *TTL[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, counting entries that
// have expired but not yet been evicted.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
