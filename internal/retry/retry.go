package retry

import (
	"context"
	"errors"
	"syscall"
	"time"
)

// transientErrors are filesystem errors worth a second attempt: the file is
// momentarily busy or the call was interrupted.
var transientErrors = []error{
	syscall.EBUSY,
	syscall.EAGAIN,
	syscall.EINTR,
	syscall.ETXTBSY,
	syscall.ETIMEDOUT,
}

// Retry executes fn with exponential backoff until it succeeds or maxAttempts is reached.
// The backoff doubles after each failed attempt starting from initialBackoff.
// Non-retryable errors (not found, permission denied, ...) return immediately.
// Cancelling ctx stops waiting and returns the last error.
func Retry(ctx context.Context, fn func() error, maxAttempts int, initialBackoff time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		// Don't sleep after the last attempt
		if attempt < maxAttempts {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
			backoff *= 2
		}
	}

	return lastErr
}

// IsRetryable returns true if the error is a transient filesystem error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range transientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
