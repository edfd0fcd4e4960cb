package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	// StateClosed allows requests to pass through
	StateClosed CircuitState = "closed"
	// StateOpen blocks requests
	StateOpen CircuitState = "open"
	// StateHalfOpen lets a single probe through
	StateHalfOpen CircuitState = "half-open"
)

var (
	// ErrCircuitOpen is returned when circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when a probe is already in flight
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitStats is a point-in-time view of a breaker, for health endpoints
type CircuitStats struct {
	Name        string       `json:"name"`
	State       CircuitState `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure *time.Time   `json:"last_failure,omitempty"`
}

// CircuitBreaker stops calling a failing dependency for resetTimeout after
// maxFailures consecutive errors
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	now          func() time.Time

	mutex       sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	halfOpenReq int
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  1,
		now:          time.Now,
		state:        StateClosed,
	}
}

// Call executes fn with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	return cb.Execute(context.Background(), func(context.Context) error { return fn() })
}

// Execute runs fn unless the circuit is open. A cancelled context is not
// counted as a failure of the dependency.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn(ctx)

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil && ctx.Err() == nil {
		cb.onFailure()
		return err
	}
	if err != nil {
		cb.releaseProbe()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) before() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.halfOpenReq = 0
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenReq >= cb.halfOpenMax {
			return ErrTooManyRequests
		}
		cb.halfOpenReq++
	}
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailure = cb.now()

	if cb.state == StateHalfOpen {
		cb.setState(StateOpen)
		cb.failures = cb.maxFailures
		return
	}
	if cb.failures >= cb.maxFailures {
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		cb.halfOpenReq = 0
	}
	cb.failures = 0
}

func (cb *CircuitBreaker) releaseProbe() {
	if cb.state == StateHalfOpen && cb.halfOpenReq > 0 {
		cb.halfOpenReq--
	}
}

func (cb *CircuitBreaker) setState(next CircuitState) {
	if cb.state == next {
		return
	}
	logrus.WithFields(logrus.Fields{
		"breaker": cb.name,
		"from":    cb.state,
		"to":      next,
	}).Warn("Circuit breaker state changed")
	cb.state = next
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Stats returns the breaker's current counters
func (cb *CircuitBreaker) Stats() CircuitStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	stats := CircuitStats{Name: cb.name, State: cb.state, Failures: cb.failures}
	if !cb.lastFailure.IsZero() {
		last := cb.lastFailure
		stats.LastFailure = &last
	}
	return stats
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.setState(StateClosed)
	cb.failures = 0
	cb.halfOpenReq = 0
}
