package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy describes how the detail fetcher retries transient failures.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt. It doubles on
	// each subsequent retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration
}

// DefaultPolicy returns the retry policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Backoff returns the delay to wait after the given failed attempt
// (1-based), with ±20% jitter.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	return time.Duration(float64(delay) * (0.8 + rand.Float64()*0.4))
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is exhausted. retryable decides which errors are retried.
// The error from the final attempt is returned unchanged so callers can
// inspect its classification.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				log.Debug().Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		retriesTotal.Inc()
		backoff := p.Backoff(attempt)
		log.Debug().
			Err(lastErr).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("retrying after transient failure")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.Inc()
	return lastErr
}
