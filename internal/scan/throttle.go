// Package scan turns a stream of camera frames into a growing set of
// distinct object labels.
package scan

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle intervals for the two detection paths.
const (
	ScanInterval = 150 * time.Millisecond
	HuntInterval = 330 * time.Millisecond
)

// Throttler admits at most one event per interval. Rejected calls leave
// its state untouched.
type Throttler struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewThrottler creates a Throttler. A non-positive interval admits everything.
func NewThrottler(interval time.Duration) *Throttler {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttler{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Admit reports whether an event at now may proceed.
func (t *Throttler) Admit(now time.Time) bool {
	return t.limiter.AllowN(now, 1)
}

// Interval returns the configured minimum spacing.
func (t *Throttler) Interval() time.Duration {
	return t.interval
}
