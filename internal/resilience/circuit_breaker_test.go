package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	if cb.State() != StateClosed {
		t.Errorf("expected initial state closed, got %v", cb.State())
	}
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("expected call to pass through, got %v", err)
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	if cb.State() != StateClosed {
		t.Error("expected closed after 2 failures")
	}

	cb.RecordResult(false)
	if cb.State() != StateOpen {
		t.Error("expected open after 3 failures")
	}

	err := cb.Call(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(false)
	cb.RecordResult(true)
	cb.RecordResult(false)
	cb.RecordResult(false)

	if cb.State() != StateClosed {
		t.Error("expected closed, success should reset the failure streak")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordResult(false)
	}
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(80 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("expected probe call allowed after reset timeout, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("expected half_open, got %v", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordResult(false)
	}
	time.Sleep(80 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("probe call %d rejected: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("expected closed after half-open successes, got %v", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordResult(false)
	}
	time.Sleep(80 * time.Millisecond)

	cb.Call(func() error { return errors.New("still down") })

	if cb.State() != StateOpen {
		t.Errorf("expected open after half-open failure, got %v", cb.State())
	}
}

func TestCircuitBreaker_CallPropagatesError(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	wantErr := errors.New("backend failure")
	if err := cb.Call(func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("expected backend error, got %v", err)
	}

	calls, failures := cb.Stats()
	if calls != 1 || failures != 1 {
		t.Errorf("stats = (%d, %d), want (1, 1)", calls, failures)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Hour)

	cb.RecordResult(false)
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Error("expected closed after reset")
	}
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("expected call allowed after reset, got %v", err)
	}
}
