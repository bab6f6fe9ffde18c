package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter implements per-key rate limiting. Keys are backend names, so each
// generative provider gets its own token bucket.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request for key is allowed or ctx is done.
// A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l == nil {
		return ctx.Err()
	}
	return l.getLimiter(key).Wait(ctx)
}

// Allow reports whether a request for key may proceed now, consuming a
// token if so. A nil Limiter always allows.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.getLimiter(key).Allow()
}

// getLimiter returns the rate limiter for a key
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter

	return limiter
}

// SetRate overrides the limit for one key. A non-positive rate disables
// limiting for that key.
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	l.limiters[key] = rate.NewLimiter(limit, burst)
}
