// Package cache stores finished analyses so repeated requests for the same
// video skip the analyzers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "commentpulse:v1:"

// CacheKey generates a cache key from a video ID
func CacheKey(videoID string) string {
	hash := sha256.Sum256([]byte(videoID))
	return KeyPrefix + hex.EncodeToString(hash[:])
}
