package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("%d should be retryable", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 404, 409} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("%d should not be retryable", code)
		}
	}
}

func TestExponentialBackoffCaps(t *testing.T) {
	base := 10 * time.Millisecond
	max := 80 * time.Millisecond
	if got := ExponentialBackoff(0, base, max); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(10, base, max); got != max {
		t.Fatalf("attempt 10 = %v, want cap %v", got, max)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	errPermanent := errors.New("bad request")
	err := Retry(context.Background(), 5, time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return false, errPermanent
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("err = %v, want %v", err, errPermanent)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 4, time.Millisecond, 5*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}
