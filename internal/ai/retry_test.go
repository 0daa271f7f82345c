package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 100*time.Millisecond)

	if cb.GetState() != CircuitClosed {
		t.Fatalf("initial state = %s, want CLOSED", cb.GetState())
	}

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != CircuitClosed {
		t.Errorf("state after 2 failures = %s, want CLOSED", cb.GetState())
	}

	cb.RecordFailure()
	if cb.GetState() != CircuitOpen {
		t.Errorf("state after 3 failures = %s, want OPEN", cb.GetState())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 100*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.GetState() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED after success reset the count", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	if cb.GetState() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow after open timeout = %v, want probe allowed", err)
	}
	if cb.GetState() != CircuitHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", cb.GetState())
	}

	cb.RecordSuccess()
	if cb.GetState() != CircuitHalfOpen {
		t.Errorf("state after 1 success = %s, want HALF_OPEN", cb.GetState())
	}
	cb.RecordSuccess()
	if cb.GetState() != CircuitClosed {
		t.Errorf("state after 2 successes = %s, want CLOSED", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe not allowed: %v", err)
	}
	cb.RecordFailure()

	if cb.GetState() != CircuitOpen {
		t.Errorf("state = %s, want OPEN after half-open failure", cb.GetState())
	}
}

func TestRetryWithBackoff_RetriesTransientErrors(t *testing.T) {
	c := &Client{retry: RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	}}

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff = %v, want success on third attempt", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_StopsOnNonRetriable(t *testing.T) {
	c := &Client{retry: RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	}}

	calls := 0
	authErr := errors.New("401 unauthorized")
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return authErr
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("retryWithBackoff = %v, want the auth error back", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on auth failure)", calls)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	c := &Client{retry: RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	}}

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return errors.New("rate limit exceeded")
	})
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetryWithBackoff_CircuitOpenFailsFast(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, time.Minute)
	cb.RecordFailure()

	c := &Client{
		retry:          RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1, Timeout: time.Second},
		circuitBreaker: cb,
	}

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("retryWithBackoff = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 while circuit is open", calls)
	}
}

func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		err       error
		retriable bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("500 Internal Server Error"), true},
		{errors.New("502 Bad Gateway"), true},
		{errors.New("overloaded_error: Overloaded"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("dial tcp: i/o timeout"), true},
		{errors.New("400 bad request"), false},
		{errors.New("401 unauthorized"), false},
		{errors.New("404 not found"), false},
		{errors.New("invalid prompt"), false},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		if got := isRetriableError(tt.err); got != tt.retriable {
			t.Errorf("isRetriableError(%q) = %v, want %v", name, got, tt.retriable)
		}
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	c := &Client{retry: RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := c.retryWithBackoff(ctx, "test", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("503 service unavailable")
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if calls > 2 {
		t.Errorf("calls = %d, want retries to stop once canceled", calls)
	}
}
