package worker

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-root rate limiting. The key is the case directory's
// parent, so batch runs stay polite per storage mount when cases live on a
// shared network filesystem.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(casesPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(casesPerSecond),
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the given case directory
func (l *Limiter) Wait(ctx context.Context, caseRoot string) error {
	limiter := l.getLimiter(parentRoot(caseRoot))
	return limiter.Wait(ctx)
}

// Allow checks if a verification may start without waiting
func (l *Limiter) Allow(caseRoot string) bool {
	limiter := l.getLimiter(parentRoot(caseRoot))
	return limiter.Allow()
}

// getLimiter returns the rate limiter for a root
func (l *Limiter) getLimiter(root string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[root]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[root]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[root] = limiter

	return limiter
}

// SetRootRate sets a custom rate limit for a specific root
func (l *Limiter) SetRootRate(root string, casesPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[root] = rate.NewLimiter(rate.Limit(casesPerSecond), burst)
}

// parentRoot groups case directories by their parent directory
func parentRoot(caseRoot string) string {
	abs, err := filepath.Abs(caseRoot)
	if err != nil {
		return caseRoot
	}
	return filepath.Dir(abs)
}

// WaitWithDelay waits for rate limit and adds an additional delay
func (l *Limiter) WaitWithDelay(ctx context.Context, caseRoot string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, caseRoot); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}
