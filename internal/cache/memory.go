package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process Cache backing bundle reads. TTL eviction
// keeps long-running batch processes from pinning every case they touch.
type MemoryCache struct {
	entries *gocache.Cache
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a memory cache with the given default TTL and
// eviction sweep interval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns the cached bytes for key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	return v.([]byte), true
}

// Set stores value under key for ttl.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.entries.Set(key, value, ttl)
}
