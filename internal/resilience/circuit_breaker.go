// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resilience guards calls to dependencies that may be down.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned without calling the guarded function while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	DefaultThreshold    = 3
	DefaultResetTimeout = 30 * time.Second
)

// Clock supplies the current time. loop.Executor satisfies it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithIgnore marks errors that count as success, such as a cache miss.
func WithIgnore(match func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.ignore = match }
}

// CircuitBreaker opens after threshold consecutive failures and rejects calls
// until resetTimeout has passed. The next call is then a trial: success
// closes the breaker, failure opens it again.
type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	state        State
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	clock        Clock
	ignore       func(error) bool
}

// NewCircuitBreaker returns a closed breaker. Non-positive values select the
// defaults.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	cb := &CircuitBreaker{
		name:         name,
		state:        StateClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		clock:        realClock{},
		ignore:       func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(cb.name, string(cb.state))
	return cb
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	if err != nil && !cb.ignore(err) {
		cb.recordFailure(err)
		return err
	}
	cb.recordSuccess()
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		if cb.clock.Now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.transitionTo(StateHalfOpen)
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++

	reason := ""
	switch {
	case cb.state == StateHalfOpen:
		reason = "half_open_failure"
	case cb.state == StateClosed && cb.failures >= cb.threshold:
		reason = "threshold_exceeded"
	default:
		return
	}
	metrics.RecordCircuitBreakerTrip(cb.name, reason)
	logger := log.WithComponent("resilience")
	logger.Warn().
		Err(err).
		Str(log.FieldEvent, "breaker.opened").
		Str("breaker", cb.name).
		Str("reason", reason).
		Int("failures", cb.failures).
		Dur("reset_after", cb.resetTimeout).
		Msg("circuit breaker opened")
	cb.transitionTo(StateOpen)
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	if cb.state != StateClosed {
		cb.transitionTo(StateClosed)
	}
}

// transitionTo requires cb.mu.
func (cb *CircuitBreaker) transitionTo(next State) {
	if cb.state == next {
		return
	}
	cb.state = next
	if next == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(next))
}
