package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/voxterm/voxterm/internal/observability"
)

// ErrCircuitOpen is returned when the breaker rejects a call outright.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker's current mode.
type CircuitState int

const (
	StateClosed   CircuitState = iota // normal operation
	StateOpen                         // calls fail immediately
	StateHalfOpen                     // probing whether the backend recovered
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards a remote transcription backend. After maxFailures
// consecutive failures it rejects calls for resetTimeout, then probes with
// a few half-open calls before closing again.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu            sync.RWMutex
	state         CircuitState
	failureCount  int
	successCount  int
	halfOpenCalls int
	lastFailTime  time.Time

	totalCalls    int64
	totalFailures int64
}

// NewCircuitBreaker creates a closed breaker named after the backend it
// protects.
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  3,
		state:        StateClosed,
	}
}

// Call executes fn under breaker protection.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.RecordResult(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailTime) >= cb.resetTimeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenCalls = 0
			cb.successCount = 0
			cb.halfOpenCalls++
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.halfOpenMax {
			cb.halfOpenCalls++
			return true
		}
		return false
	}
	return false
}

// RecordResult feeds a call result into the breaker.
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	if success {
		cb.onSuccess()
	} else {
		cb.onFailure()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.halfOpenMax {
			cb.setState(StateClosed)
			cb.failureCount = 0
			cb.halfOpenCalls = 0
			cb.successCount = 0
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.totalFailures++
	cb.lastFailTime = time.Now()
	observability.IncrementCircuitBreakerFailures(cb.name)

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.maxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// Any failure while probing reopens immediately.
		cb.setState(StateOpen)
		cb.halfOpenCalls = 0
		cb.successCount = 0
	}
}

// setState is called with cb.mu held.
func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	observability.UpdateCircuitBreakerState(cb.name, int(s))
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats reports lifetime call and failure counts.
func (cb *CircuitBreaker) Stats() (calls, failures int64) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.totalCalls, cb.totalFailures
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failureCount = 0
	cb.halfOpenCalls = 0
	cb.successCount = 0
}
