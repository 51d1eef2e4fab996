package runtime

import (
	"errors"
	"time"
)

type retryError struct {
	err error
}

func (e *retryError) Error() string { return e.err.Error() }

func (e *retryError) Unwrap() error { return e.err }

// Retry marks err as worth another attempt.
func Retry(err error) error {
	if err == nil {
		return nil
	}
	return &retryError{err: err}
}

func IsRetry(err error) bool {
	var r *retryError
	return errors.As(err, &r)
}

// BackoffAfter is the wait after the nth failed attempt: (2^n - 1) units.
// The first attempt runs immediately; the second and third follow 1 and 3
// units after the failure before them.
func BackoffAfter(attempt int, unit time.Duration) time.Duration {
	if attempt < 1 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return time.Duration((1<<attempt)-1) * unit
}
