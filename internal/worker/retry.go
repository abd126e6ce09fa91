package worker

import (
	"context"
	"fmt"
	"time"
)

// RetryError reports that every attempt of withRetry failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// backoffBase is the first retry delay; it doubles on each attempt.
var backoffBase = time.Second

// withRetry calls fn up to maxAttempts times with exponential backoff
// (1s, 2s, 4s …). It stops early when ctx is done.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := backoffBase << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &RetryError{Attempts: maxAttempts, Err: lastErr}
}
