// Package retry runs an operation a bounded number of times with
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	Name     string
	Attempts int
	// Min and Max clamp the wait computed as 2^attempt seconds.
	Min time.Duration
	Max time.Duration
	// Retryable decides whether an error is worth another attempt.
	// A nil Retryable retries everything except context cancellation.
	Retryable func(error) bool
	// Sleep waits between attempts; tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// LLMPolicy is used around chat completion calls.
func LLMPolicy() Policy {
	return Policy{Name: "llm", Attempts: 3, Min: 4 * time.Second, Max: 10 * time.Second}
}

// StorePolicy is used around document store calls.
func StorePolicy() Policy {
	return Policy{Name: "store", Attempts: 3, Min: 2 * time.Second, Max: 10 * time.Second}
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d attempts failed: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Backoff returns the wait before the attempt following the given one (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if d < p.Min {
		d = p.Min
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. Errors that are not retried are returned unchanged.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := p.Backoff(attempt - 1)
			slog.Debug("retrying operation", "op", p.Name, "attempt", attempt, "wait", wait, "error", lastErr)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	if attempts == 1 {
		return lastErr
	}
	return &ExhaustedError{Name: p.Name, Attempts: attempts, Err: lastErr}
}

// DefaultRetryable retries anything but context cancellation.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
