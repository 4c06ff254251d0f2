// Package resilience provides reliability patterns for external service calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker protects an external dependency from being hammered while it is
// failing. After maxFailures consecutive failures the circuit opens and calls
// are rejected until cooldown elapses; the next call is then a probe that
// closes the circuit on success and re-opens it on failure.
type Breaker struct {
	mu          sync.Mutex
	failures    int
	maxFailures int
	cooldown    time.Duration
	open        bool
	openedAt    time.Time
	clock       func() time.Time // injectable for tests
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and allows a probe call after cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		clock:       time.Now,
	}
}

// Execute runs fn unless the circuit is open, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.open || b.failures >= b.maxFailures {
			b.open = true
			b.openedAt = b.clock()
		}
		return err
	}

	b.failures = 0
	b.open = false
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	// Open: permit a probe once the cooldown has elapsed.
	return b.clock().Sub(b.openedAt) >= b.cooldown
}
