package fetch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a fixed minimum interval between consecutive requests.
// It is a burst-1 token bucket, so there is no adaptive backoff.
type RateLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration
	log     *logrus.Entry
}

// NewRateLimiter creates a RateLimiter; a non-positive delay disables pacing.
func NewRateLimiter(delay time.Duration, log *logrus.Entry) *RateLimiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, 1),
		delay:   delay,
		log:     log,
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.delay <= 0 {
		return ctx.Err()
	}
	start := time.Now()
	if err := rl.limiter.Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		rl.log.WithField("waited", waited).Trace("Request paced")
	}
	return nil
}

// Delay returns the configured interval.
func (rl *RateLimiter) Delay() time.Duration {
	return rl.delay
}
