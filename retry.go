package deepresearch

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds retries of a transient operation.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 run a single attempt.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier scales the wait after every failed attempt. Zero or
	// negative values fall back to 2.
	Multiplier float64

	// Retryable reports whether an error deserves another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// DefaultPolicy returns the policy used across the pipeline: three attempts
// with exponential backoff from 500ms, capped at 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2,
	}
}

// Retry runs fn under p. It returns nil on the first success, the error
// itself when Retryable rejects it or ctx is done, and otherwise the last
// error wrapped with the attempt count once attempts are exhausted.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		delay = time.Duration(float64(delay) * multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
