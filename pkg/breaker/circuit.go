package breaker

import (
	"context"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed allows calls to pass through.
	StateClosed State = iota
	// StateOpen rejects all calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen admits trial calls to test whether the dependency has
	// recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker is a three-state failure-isolation gate for calls to an
// unreliable dependency. Safe for concurrent use.
//
// Closed: failures are counted; reaching the failure threshold opens the
// circuit. Any success resets the count. Open: calls fail fast with
// *OpenError until the reset timeout elapses, then the breaker moves to
// half-open and admits the call. Half-open: the trial success threshold
// closes the circuit; a single failure reopens it.
type CircuitBreaker struct {
	mu sync.RWMutex

	failureThreshold int
	successThreshold int
	resetTimeout     time.Duration

	state           State
	failures        int
	successCount    int // consecutive successes while half-open
	lastFailureTime time.Time
}

// New creates a circuit breaker. Non-positive arguments fall back to
// defaults that protect against flapping while allowing quick recovery.
func New(failureThreshold, successThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// Execute runs fn through the breaker. When the circuit is open and the
// reset timeout has not elapsed, fn is not invoked and a *OpenError carrying
// the remaining wait is returned. Otherwise the outcome of fn drives the
// state transitions and fn's error is returned unchanged; the breaker never
// swallows or rewraps the underlying failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// Allow reports whether a call would currently be admitted. Takes a write
// lock because an expired open circuit transitions to half-open here.
func (cb *CircuitBreaker) Allow() bool {
	return cb.allow() == nil
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		since := time.Since(cb.lastFailureTime)
		if since > cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.successCount = 0
			return nil
		}
		return &OpenError{TimeUntilReset: cb.resetTimeout - since}

	case StateHalfOpen:
		return nil

	default:
		return &OpenError{}
	}
}

// RecordSuccess records a successful call and may close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successCount = 0
		}
	}
}

// RecordFailure records a failed call and may open the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
		}

	case StateHalfOpen:
		// Still failing: a single trial failure reopens the circuit.
		cb.state = StateOpen
		cb.failures = cb.failureThreshold
		cb.successCount = 0
	}
}

// State returns the current state, accounting for the automatic open to
// half-open transition that would happen on the next call.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.state == StateOpen && time.Since(cb.lastFailureTime) > cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed with all counters cleared.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successCount = 0
	cb.lastFailureTime = time.Time{}
}

// Stats provides visibility into breaker state for monitoring.
type Stats struct {
	State           string
	Failures        int
	SuccessCount    int
	LastFailureTime time.Time
}

// Stats returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return Stats{
		State:           cb.state.String(),
		Failures:        cb.failures,
		SuccessCount:    cb.successCount,
		LastFailureTime: cb.lastFailureTime,
	}
}
