package reliability

import (
	"context"
	"time"
)

// IsRetryableHTTPStatus classifies status codes worth another attempt.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff for attempt n
// (0-based).
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// Retry runs fn up to attempts times, sleeping a capped exponential backoff
// between tries. It stops early when fn succeeds, fn reports the error as
// permanent, or the context is done. The last error is returned.
func Retry(ctx context.Context, attempts int, base, cap time.Duration, fn func(ctx context.Context) (retryable bool, err error)) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		retryable, err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || attempt == attempts-1 {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(attempt, base, cap)):
		}
	}
	return lastErr
}
