package geocode

import (
	"context"
	"sync"
	"time"
)

// CacheEntry is one successful resolution. Entries are append-only: once a
// key has an entry it is never overwritten.
type CacheEntry struct {
	QueryKey   string    `json:"query_key"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Provider   string    `json:"provider"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Cache stores resolutions by normalized query key. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns the entry for key; a miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	// PutIfAbsent stores e unless an entry for e.QueryKey exists. It
	// reports whether e was written.
	PutIfAbsent(ctx context.Context, e CacheEntry) (bool, error)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CacheEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

// PutIfAbsent implements Cache.
func (c *MemoryCache) PutIfAbsent(_ context.Context, e CacheEntry) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[e.QueryKey]; ok {
		return false, nil
	}
	c.entries[e.QueryKey] = e
	return true, nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
