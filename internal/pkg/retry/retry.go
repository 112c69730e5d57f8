// Package retry is a bounded retry combinator shared by the batch store calls.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned when the operation is still incomplete after the last attempt.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Backoff returns the delay to wait after the given zero-based attempt.
type Backoff func(attempt int) time.Duration

// Op runs one attempt. It returns done=true when nothing is left to retry.
// A non-nil error aborts the loop immediately.
type Op func(ctx context.Context, attempt int) (done bool, err error)

// Exponential returns base * 2^attempt plus up to 50% jitter, capped at max.
func Exponential(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if base <= 0 {
			return 0
		}
		d := base << uint(attempt)
		if d <= 0 || (max > 0 && d > max) {
			d = max
		}
		if half := int64(d / 2); half > 0 {
			d += time.Duration(rand.Int64N(half))
		}
		if max > 0 && d > max {
			d = max
		}
		return d
	}
}

// Constant always waits d. Useful in tests.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Do calls op up to attempts times, sleeping backoff(attempt) between calls.
func Do(ctx context.Context, attempts int, backoff Backoff, op Op) error {
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		done, err := op(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return err
		}
	}
	return ErrExhausted
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
