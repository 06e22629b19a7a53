package engine

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func testRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Multiplier: 2}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &httpStatusError{429}, true},
		{"http 500", &httpStatusError{500}, true},
		{"http 503", &httpStatusError{503}, true},
		{"http 404", &httpStatusError{404}, false},
		{"quota 403 not retryable", &httpStatusError{403}, false},
		{"plain error", errors.New("boom"), false},
		{"dns timeout", &net.DNSError{IsTimeout: true}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryDo(t *testing.T) {
	t.Run("first try succeeds", func(t *testing.T) {
		calls := 0
		got, err := RetryDo(context.Background(), testRetryConfig(), func() (string, error) {
			calls++
			return "transcript", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "transcript" || calls != 1 {
			t.Errorf("got %q after %d calls, want 1 call", got, calls)
		}
	})

	t.Run("retries transient then succeeds", func(t *testing.T) {
		calls := 0
		got, err := RetryDo(context.Background(), testRetryConfig(), func() (int, error) {
			calls++
			if calls < 3 {
				return 0, &httpStatusError{503}
			}
			return 42, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 42 || calls != 3 {
			t.Errorf("got %d after %d calls, want 42 after 3", got, calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		rc := testRetryConfig()
		rc.MaxRetries = 2
		_, err := RetryDo(context.Background(), rc, func() (string, error) {
			calls++
			return "", &httpStatusError{502}
		})
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if calls != 3 { // initial attempt + 2 retries
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("no retry for permanent error", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(context.Background(), testRetryConfig(), func() (string, error) {
			calls++
			return "", errors.New("bad request")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("canceled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RetryDo(ctx, testRetryConfig(), func() (string, error) {
			return "", &httpStatusError{503}
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
