// Package retry provides the exponential backoff strategy used when a
// transport-level subscription cannot be established on the first try.
package retry

import (
	"context"
	"math"
	"time"
)

// Strategy configures exponential backoff between attempts.
// The schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay).
type Strategy struct {
	MaxAttempts     int           // attempts before giving up
	BaseDelay       time.Duration // delay after the first failure
	MaxDelay        time.Duration // cap on the computed delay
	ExponentialBase float64       // backoff multiplier
}

// DefaultStrategy retries five times, from 100ms up to a 5s cap.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     5,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Delay returns the wait before the given 0-based retry attempt.
func (s Strategy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return s.BaseDelay
	}
	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// Do runs fn until it succeeds, attempts run out, or ctx is cancelled.
// The error of the last attempt is returned.
func (s Strategy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.MaxAttempts-1 {
			break
		}
		timer := time.NewTimer(s.Delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}
