package resilience

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"syscall"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("expected ok after 1 call, got %q after %d", got, calls)
	}
}

func TestDoVal_RetriesTransient(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("busy"), 503)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("expected 42 after 3 calls, got %d after %d", got, calls)
	}
}

func TestDoVal_DoesNotRetryPermanent(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_StopsOnDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	var calls int
	_, err := DoVal(ctx, fastRetry(5), func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestFromRetryConfig_KeepsDefaults(t *testing.T) {
	cfg := FromRetryConfig(0, 0, 0)
	if !reflect.DeepEqual(cfg, DefaultRetryConfig()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	cfg = FromRetryConfig(4, 10, 100)
	if cfg.MaxAttempts != 4 || cfg.InitialBackoff != 10*time.Millisecond || cfg.MaxBackoff != 100*time.Millisecond {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("x"), 429), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("x"), 502)), true},
		{"conn reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"pattern", errors.New("read: connection reset by peer"), true},
		{"deadline", fmt.Errorf("lookup: %w", context.DeadlineExceeded), false},
		{"canceled", context.Canceled, false},
		{"permanent", errors.New("invalid zpid"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be permanent", code)
		}
	}
}

func failing(_ context.Context) (int, error) { return 0, errors.New("fail") }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("comps", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = ExecuteVal(context.Background(), cb, failing)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		t.Error("should not be called when circuit is open")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("images", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.nowFunc = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failing)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(2 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected probe success, got %d %v", v, err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_ShouldTripFilters(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("property", CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       func(err error) bool { return !errors.Is(err, notFound) },
	})

	_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 0, notFound })
	if cb.State() != CircuitClosed {
		t.Errorf("expected not-found to leave circuit closed, got %s", cb.State())
	}
}

func TestBreakers_ForIsStable(t *testing.T) {
	b := NewBreakers(DefaultCircuitBreakerConfig())
	if b.For("market") != b.For("market") {
		t.Error("expected same breaker for same provider")
	}
	if b.For("market") == b.For("comps") {
		t.Error("expected distinct breakers per provider")
	}
	if len(b.States()) != 2 {
		t.Errorf("expected 2 states, got %d", len(b.States()))
	}
}
