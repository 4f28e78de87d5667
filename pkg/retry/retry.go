// Package retry wraps fallible operations with bounded-attempt exponential
// backoff, filtered by error class. The policy is reusable by any fallible
// step (navigation, element waits), not just extraction.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// Multiplier is the exponential factor between retries (typically 2).
	Multiplier float64

	// RetryIf decides whether an error is worth retrying. A nil RetryIf
	// retries every error. Errors rejected by RetryIf fail immediately
	// without incurring any backoff delay.
	RetryIf func(error) bool
}

// DefaultPolicy mirrors the service's standard knobs: three attempts with
// delays of 2s and 4s (8s capped at 10s would follow on a fourth attempt).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// WithRetryIf returns a copy of the policy with the given error filter.
func (p Policy) WithRetryIf(fn func(error) bool) Policy {
	p.RetryIf = fn
	return p
}

// Do runs op, retrying on errors accepted by RetryIf with delay
// min(BaseDelay × Multiplier^(attempt−1), MaxDelay) between attempts.
// Context cancellation aborts the backoff wait immediately. After
// MaxAttempts the last error is returned as terminal, wrapped with the
// attempt count.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := delay
			if p.MaxDelay > 0 && wait > p.MaxDelay {
				wait = p.MaxDelay
			}
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * multiplier)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.RetryIf != nil && !p.RetryIf(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
