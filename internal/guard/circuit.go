// Package guard protects outbound game-callback delivery from misbehaving
// game backends.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result says whether a delivery may proceed, and why not when it may not.
type Result struct {
	Allowed bool
	Reason  string
}

// CircuitState represents the state of a single game's circuit.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker keeps one circuit per game id. A run of delivery failures
// opens the circuit; after the reset timeout a single probe is allowed
// through before the circuit fully closes again.
type CircuitBreaker struct {
	mu            sync.Mutex
	circuits      map[string]*circuit
	failThreshold int
	resetTimeout  time.Duration
	halfOpenMax   int
}

type circuit struct {
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(failThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		circuits:      make(map[string]*circuit),
		failThreshold: failThreshold,
		resetTimeout:  resetTimeout,
		halfOpenMax:   1,
	}
}

// Check reports whether a delivery to the given game may proceed.
func (cb *CircuitBreaker) Check(_ context.Context, gameID string) Result {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[gameID]
	if !ok {
		cb.circuits[gameID] = &circuit{state: CircuitClosed}
		return Result{Allowed: true}
	}

	switch c.state {
	case CircuitOpen:
		if time.Since(c.lastFailure) > cb.resetTimeout {
			c.state = CircuitHalfOpen
			c.successes = 0
			return Result{Allowed: true}
		}
		return Result{
			Allowed: false,
			Reason:  fmt.Sprintf("circuit open for game %s, resets in %s", gameID, cb.resetTimeout-time.Since(c.lastFailure)),
		}
	case CircuitHalfOpen:
		if c.successes >= cb.halfOpenMax {
			return Result{Allowed: false, Reason: "circuit half-open, probe in flight"}
		}
		return Result{Allowed: true}
	default:
		return Result{Allowed: true}
	}
}

// RecordSuccess marks a successful delivery for the given game.
func (cb *CircuitBreaker) RecordSuccess(gameID string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[gameID]
	if !ok {
		return
	}

	switch c.state {
	case CircuitHalfOpen:
		c.successes++
		if c.successes >= cb.halfOpenMax {
			c.state = CircuitClosed
			c.failures = 0
		}
	case CircuitClosed:
		c.failures = 0
	}
}

// RecordFailure marks a failed delivery for the given game.
func (cb *CircuitBreaker) RecordFailure(gameID string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[gameID]
	if !ok {
		cb.circuits[gameID] = &circuit{state: CircuitClosed, failures: 1, lastFailure: time.Now()}
		return
	}

	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= cb.failThreshold {
		c.state = CircuitOpen
	}
}
