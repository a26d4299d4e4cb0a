package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum gap between successive fetches of one run.
// The first Wait never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewRateLimiter creates a new rate limiter. A delay <= 0 disables waiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(limit, 1),
		delay:   delay,
	}
}

// Wait blocks until the next fetch may start or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Delay returns the configured gap.
func (r *RateLimiter) Delay() time.Duration {
	return r.delay
}
