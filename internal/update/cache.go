package update

import (
	"sync"
	"time"
)

const (
	// LatestReleaseKey is the cache key for the most recent release lookup.
	LatestReleaseKey = "latest_release"

	// DefaultCacheTTL is how long a cached release may be reused without a
	// network call.
	DefaultCacheTTL = 10 * time.Minute
)

// CacheEntry is a release plus the time it was fetched.
type CacheEntry struct {
	Release   Release
	FetchedAt time.Time
}

// Fresh reports whether the entry may still be served at now.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// ReleaseCache memoizes resolved releases for the lifetime of the process.
// It is safe for concurrent use. The lock is only held for map access.
//
// A nil cache behaves as permanently empty, so a resolver built without
// one still performs network lookups.
type ReleaseCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
}

// NewReleaseCache returns an empty cache.
func NewReleaseCache() *ReleaseCache {
	return &ReleaseCache{entries: make(map[string]CacheEntry)}
}

// Get returns the raw entry stored under key. Freshness is not checked.
func (c *ReleaseCache) Get(key string) (CacheEntry, bool) {
	if c == nil {
		return CacheEntry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Put stores release under key, replacing any previous entry.
func (c *ReleaseCache) Put(key string, release Release, now time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]CacheEntry)
	}
	c.entries[key] = CacheEntry{Release: release, FetchedAt: now}
}

// Len returns the number of stored entries, fresh or stale.
func (c *ReleaseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
