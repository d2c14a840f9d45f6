package errors

import (
	"errors"
	"sync"
	"time"
)

// Breaker tuning. The breaker guards Telegram delivery: once half of a
// meaningful sample fails, sends are short-circuited until a probe
// window succeeds.
const (
	errorThreshold      = 0.5
	minRequests         = 10
	openTimeout         = 30 * time.Second
	halfOpenMaxRequests = 3
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var (
	errCircuitOpen             = errors.New("circuit breaker is open")
	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// CircuitBreaker trips open on a high failure rate and recovers through
// a limited half-open probe phase.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	requests    int
	lastFailure time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{state: StateClosed}
}

// Call runs fn unless the circuit is open. Errors returned by fn count
// toward tripping the breaker and are passed through.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) < openTimeout {
			return errCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.resetLocked()
	}

	if cb.state == StateHalfOpen && cb.requests >= halfOpenMaxRequests {
		return errHalfOpenTooManyRequests
	}

	return nil
}

func (cb *CircuitBreaker) record(callErr error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++

	if callErr != nil {
		cb.failures++

		// Any failure during a probe re-opens the circuit.
		if cb.state == StateHalfOpen {
			cb.tripLocked()
			return
		}

		if cb.requests >= minRequests && float64(cb.failures)/float64(cb.requests) >= errorThreshold {
			cb.tripLocked()
		}
		return
	}

	cb.successes++
	if cb.state == StateHalfOpen && cb.successes >= halfOpenMaxRequests {
		cb.state = StateClosed
		cb.resetLocked()
	}
}

func (cb *CircuitBreaker) resetLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) tripLocked() {
	cb.state = StateOpen
	cb.lastFailure = time.Now()
	cb.resetLocked()
}
