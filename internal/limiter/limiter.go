// Package limiter throttles outbound provider calls.
package limiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrWaitExceeded is returned when the projected wait for a permit is
// longer than the limiter's configured maximum.
var ErrWaitExceeded = errors.New("rate limit wait exceeded")

// Limiter implements per-provider rate limiting. Each provider name gets
// its own token bucket enforcing a minimum interval between calls.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
	maxWait  time.Duration
}

// NewLimiter creates a rate limiter enforcing one call per interval and
// refusing to queue callers longer than maxWait.
func NewLimiter(interval, maxWait time.Duration) *Limiter {
	if interval <= 0 {
		interval = time.Second
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
		maxWait:  maxWait,
	}
}

// Acquire blocks until the provider may issue a call, the context is
// cancelled, or the wait would exceed the configured maximum.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := l.getLimiter(provider).Reserve()
	if !r.OK() {
		return ErrWaitExceeded
	}

	delay := r.Delay()
	if delay > l.maxWait {
		r.Cancel()
		return ErrWaitExceeded
	}
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Allow reports whether a call may proceed immediately without waiting
func (l *Limiter) Allow(provider string) bool {
	return l.getLimiter(provider).Allow()
}

// getLimiter returns the rate limiter for a provider
func (l *Limiter) getLimiter(provider string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[provider]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(l.interval), 1)
	l.limiters[provider] = limiter

	return limiter
}

// SetProviderRate sets a custom minimum interval for a specific provider
func (l *Limiter) SetProviderRate(provider string, interval time.Duration, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if interval <= 0 {
		interval = l.interval
	}
	if burst <= 0 {
		burst = 1
	}

	l.limiters[provider] = rate.NewLimiter(rate.Every(interval), burst)
}
