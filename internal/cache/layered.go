package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through a fast cache in front of a durable one.
type LayeredCache struct {
	front Cache
	back  Cache
}

// NewLayeredCache stacks front (usually memory) over back (disk or redis).
func NewLayeredCache(front, back Cache) *LayeredCache {
	return &LayeredCache{front: front, back: back}
}

// Get checks the front cache first, then promotes hits from the back cache.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.front.Get(key); found {
		return val, true
	}

	if val, found := c.back.Get(key); found {
		_ = c.front.Set(key, val, 0) // front cache default TTL
		return val, true
	}

	return nil, false
}

// Set stores a value in both caches
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(key, value, ttl)
}

// Delete removes a value from both caches
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.front.Delete(key), c.back.Delete(key))
}

// Clear removes all values from both caches
func (c *LayeredCache) Clear() error {
	return errors.Join(c.front.Clear(), c.back.Clear())
}
