package common

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces the requests a client sends to one remote API so a
// sequential walk stays within the rate the operator configured for it.
// It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing rps requests per second with
// the given burst. A non-positive rps disables pacing entirely.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Wait blocks until the next request may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error { return rl.limiter.Wait(ctx) }

// Limit returns the configured requests per second; +Inf when disabled.
func (rl *RateLimiter) Limit() float64 { return float64(rl.limiter.Limit()) }

// Burst returns the number of requests that may be sent back to back.
func (rl *RateLimiter) Burst() int { return rl.limiter.Burst() }
