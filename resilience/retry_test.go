package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, BackoffFactor: 2.0}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), DefaultRetryConfig(), func() (string, error) {
		calls++
		return "published", nil
	})
	if err != nil || result != "published" {
		t.Errorf("got %q, %v", result, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("nats: outbound buffer limit exceeded")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	last := errors.New("attempt 3")
	err := RetryFunc(context.Background(), fastRetry(3), func() error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("earlier")
	})
	if !errors.Is(err, last) {
		t.Errorf("expected last error, got %v", err)
	}
}

func TestRetry_SingleAttempt(t *testing.T) {
	calls := 0
	_ = RetryFunc(context.Background(), fastRetry(1), func() error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: 100 * time.Millisecond, BackoffFactor: 2.0}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	err := RetryFunc(ctx, cfg, func() error {
		calls++
		return errors.New("error")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before the deadline, got %d", calls)
	}
}

func TestRetry_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RetryFunc(ctx, fastRetry(3), func() error { calls++; return nil })
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("expected no call and context.Canceled, got %d calls, %v", calls, err)
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	transient := errors.New("transient")
	permanent := errors.New("permanent")
	cfg := fastRetry(3)
	cfg.RetryIf = func(err error) bool { return errors.Is(err, transient) }

	calls := 0
	_ = RetryFunc(context.Background(), cfg, func() error { calls++; return transient })
	if calls != 3 {
		t.Errorf("expected 3 calls for transient error, got %d", calls)
	}

	calls = 0
	err := RetryFunc(context.Background(), cfg, func() error { calls++; return permanent })
	if calls != 1 || !errors.Is(err, permanent) {
		t.Errorf("expected 1 call returning permanent, got %d, %v", calls, err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = RetryFunc(context.Background(), cfg, func() error { return errors.New("error") })

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", attempts)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
	}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{6, time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt, cfg); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2.0, Jitter: 0.5}
	for i := 0; i < 100; i++ {
		got := Backoff(1, cfg)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered backoff %v out of bounds", got)
		}
	}
}

func TestRetryConfigDefaultsAndValidate(t *testing.T) {
	var cfg RetryConfig
	cfg.ApplyDefaults()
	if cfg.MaxAttempts != 3 || cfg.InitialBackoff != 50*time.Millisecond || cfg.RetryIf == nil {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid defaults, got %v", err)
	}
	cfg.Jitter = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected jitter above 1 to fail")
	}
}
