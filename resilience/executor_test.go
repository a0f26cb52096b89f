package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()

	calls := 0
	if err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if e.CircuitBreaker() != nil {
		t.Error("CircuitBreaker() should be nil when not configured")
	}
}

func TestExecutor_RetryWithTimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithTimeout(10*time.Millisecond),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestExecutor_BreakerStopsRetries(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})),
		WithCircuitBreaker(cb),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errUnavailable
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestExecutor_RateLimitedAttempts(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 500, Burst: 1, WaitOnLimit: true})
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithRateLimiter(rl),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errUnavailable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
