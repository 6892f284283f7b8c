package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/safetycheck/safetycheck/internal/logger"
)

// Limiter paces outbound classifier calls across all requests with a
// token bucket. It is global where Quota and AbuseDetector are per-key.
type Limiter struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewLimiter creates a limiter allowing rps calls per second with the
// given burst. Non-positive values fall back to 10 rps with burst=rps.
func NewLimiter(rps, burst int, log logger.Logger) *Limiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = rps
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  log,
	}
}

// Wait blocks until a call is permitted or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.logger.Warn("limiter wait aborted", logger.Error(err))
		return err
	}
	return nil
}

// Allow reports whether a call is permitted right now, without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
