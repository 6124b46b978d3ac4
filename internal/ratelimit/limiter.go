// Package ratelimit enforces the provider's request-rate ceiling for all
// pipeline workers sharing one run.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var acquireWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "placeharvest_ratelimit_wait_seconds",
	Help:    "Time spent waiting for a request slot",
	Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
})

// Limiter grants request slots so that no more than maxRequests acquisitions
// complete within any period-length sliding window. Safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a limiter allowing maxRequests per period. Slots are spaced
// evenly at period/maxRequests so the sliding-window bound holds regardless
// of how callers cluster.
func New(maxRequests int, period time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if period <= 0 {
		period = time.Second
	}
	interval := period / time.Duration(maxRequests)
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Acquire blocks until a request slot is available or ctx is done. It only
// fails when the context is cancelled or its deadline cannot accommodate the
// wait, and the returned error always wraps the context error so callers can
// classify it.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	acquireWaitSeconds.Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("acquire request slot: %w", ctxErr)
	}
	// Wait refuses up front when the backlog cannot fit inside the
	// deadline, before ctx.Err() reports anything.
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("acquire request slot: %w", context.DeadlineExceeded)
	}
	return err
}
