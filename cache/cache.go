package cache

import (
	"sync"
	"time"
)

// Entry is one stored value plus its creation and absolute expiry times.
// It is valid iff the current time is strictly before ExpiresAt.
type Entry struct {
	Value     any
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache is a concurrency-safe in-memory TTL cache. Expired entries are
// evicted lazily on the next Get of their key; there is no background sweep.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

var defaultCache = New()

// Default returns the process-wide shared cache. Provider instances use it
// unless an explicit cache is injected, so structurally identical checks for
// the same subject hit across provider trees.
func Default() *Cache {
	return defaultCache
}

// Set stores value under key with expiry now + ttl. A ttl <= 0 stores an
// entry that is already expired: the next Get of key observes a miss and
// evicts it. That shape is deliberate — callers that compute a ttl of zero
// get miss-on-read rather than an error.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Get returns the value stored under key if present and unexpired. An
// expired entry is evicted and reported absent.
func (c *Cache) Get(key string) (any, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if entry.Expired(now) {
		c.mu.Lock()
		// re-check under the write lock; a Set may have raced the eviction
		if current, still := c.entries[key]; still && current.Expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.Value, true
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Size returns the number of entries currently stored. Entries that expired
// but were never read again still count until their lazy eviction.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
