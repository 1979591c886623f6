// Package papersources provides the rate-limited, retrying HTTP transport
// used to talk to upstream bibliographic APIs.
package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by every request issued through an
// HTTPClient. It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained requests
// with bursts of up to burst requests.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
