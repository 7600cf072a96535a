// Package ratelimit provides the token-bucket throttle shared by the
// injector and the active trigger prober.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter is a thread-safe token bucket. Tokens refill at a fixed rate up to
// the burst capacity; the bucket starts full. Timing is monotonic, so
// wall-clock adjustments do not affect pacing.
type Limiter struct {
	limiter *rate.Limiter
	rps     float64
	burst   int
}

// New creates a limiter that allows ratePerSec acquisitions per second with
// a bucket capacity of burst. ratePerSec must be positive and burst at
// least 1.
func New(ratePerSec float64, burst int) (*Limiter, error) {
	if ratePerSec <= 0 {
		return nil, fmt.Errorf("ratelimit: rate must be positive, got %v", ratePerSec)
	}
	if burst < 1 {
		return nil, fmt.Errorf("ratelimit: burst must be at least 1, got %d", burst)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		rps:     ratePerSec,
		burst:   burst,
	}, nil
}

// Acquire blocks until a token is available or ctx is cancelled. Blocked
// callers sleep without holding any lock, so concurrent acquirers observe
// refills as they happen.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// TryAcquire takes a token if one is available and reports whether it did.
func (l *Limiter) TryAcquire() bool {
	return l.limiter.Allow()
}

// Rate returns the configured refill rate in tokens per second.
func (l *Limiter) Rate() float64 { return l.rps }

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int { return l.burst }

// Tokens returns the approximate number of tokens currently available.
func (l *Limiter) Tokens() float64 { return l.limiter.Tokens() }
