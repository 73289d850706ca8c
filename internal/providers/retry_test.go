package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	prev := baseBackoff
	baseBackoff = time.Millisecond
	t.Cleanup(func() { baseBackoff = prev })
}

func TestIsAuthError(t *testing.T) {
	if !IsAuthError(&authError{message: "bad key"}) {
		t.Error("authError should be detected")
	}
	if !IsAuthError(fmt.Errorf("wrapped: %w", &authError{message: "x"})) {
		t.Error("wrapped authError should be detected")
	}
	if IsAuthError(errors.New("other")) {
		t.Error("plain error is not an auth error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &rateLimitError{}, true},
		{"server", &serverError{statusCode: 502, body: "bad gateway"}, true},
		{"wrapped rate limit", fmt.Errorf("openai: %w", &rateLimitError{}), true},
		{"auth", &authError{message: "no"}, false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	if !IsRateLimited(classifyStatus(429, nil)) {
		t.Error("429 should be rate limited")
	}
	if !IsAuthError(classifyStatus(403, []byte("forbidden"))) {
		t.Error("403 should be an auth error")
	}
	var se *serverError
	if !errors.As(classifyStatus(503, []byte("down")), &se) || se.statusCode != 503 {
		t.Error("503 should be a server error")
	}
	if err := classifyStatus(400, []byte("bad")); isRetryable(err) {
		t.Error("400 should not be retryable")
	}
}

func TestRetryWithBackoff_SucceedsAfterRetries(t *testing.T) {
	fastBackoff(t)
	attempts := 0
	err := retryWithBackoff(context.Background(), 3, func() error {
		attempts++
		if attempts < 3 {
			return &serverError{statusCode: 500, body: "oops"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_StopsOnNonRetryable(t *testing.T) {
	fastBackoff(t)
	attempts := 0
	err := retryWithBackoff(context.Background(), 3, func() error {
		attempts++
		return &authError{message: "denied"}
	})
	if !IsAuthError(err) {
		t.Fatalf("err = %v, want auth error", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	fastBackoff(t)
	attempts := 0
	err := retryWithBackoff(context.Background(), 2, func() error {
		attempts++
		return &rateLimitError{}
	})
	if !IsRateLimited(err) {
		t.Fatalf("err = %v, want rate limit", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	prev := baseBackoff
	baseBackoff = time.Hour
	t.Cleanup(func() { baseBackoff = prev })

	ctx, cancel := context.WithCancel(context.Background())
	err := retryWithBackoff(ctx, 3, func() error {
		cancel()
		return &rateLimitError{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
