// Package cache memoizes reads of immutable case files. Evidence bundles
// are written once at capture time and never mutated, so a cached read
// cannot go stale within a verification run.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw file bytes for the lifetime of one process.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// Key derives the cache key for a file path. Paths are hashed so keys keep
// a fixed length however deep case roots nest.
func Key(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "casewarden:v1:" + hex.EncodeToString(sum[:])
}
