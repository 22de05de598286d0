package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	p := NewRetryPolicy(2, time.Millisecond)
	want := errors.New("still failing")
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewRetryPolicy(5, 10*time.Millisecond)
	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	if !cb.Allow() {
		t.Fatal("breaker should start closed")
	}
	cb.OnError(errors.New("pipe broken"))
	if !cb.Allow() {
		t.Fatal("breaker opened below threshold")
	}
	cb.OnError(errors.New("pipe broken"))
	if cb.Allow() {
		t.Fatal("breaker should be open after threshold")
	}
	cb.OnSuccess()
	if !cb.Allow() {
		t.Fatal("breaker should close after success")
	}
}

func TestCircuitBreakerOpensImmediatelyOnRateLimit(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)
	cb.OnError(RateLimitError{Provider: "deepgram"})
	if cb.Allow() {
		t.Fatal("a rate limit should open the breaker immediately")
	}
}

func TestCircuitBreakerIgnoresNilError(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.OnError(nil)
	if !cb.Allow() {
		t.Fatal("nil errors must not open the breaker")
	}
}
