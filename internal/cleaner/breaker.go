package cleaner

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCircuitOpen signals a sustained cleaning-service outage. It aborts the
// whole run rather than letting every remaining page degrade silently.
var ErrCircuitOpen = errors.New("cleaning circuit breaker open")

// breaker counts consecutive failed cleaning calls across the whole run.
// Any success resets it; reaching the limit trips it permanently.
type breaker struct {
	mu       sync.Mutex
	limit    int
	failures int
	open     bool
}

func newBreaker(limit int) *breaker {
	return &breaker{limit: limit}
}

// Failure records a failed call. It returns ErrCircuitOpen when the failure
// reaches the configured limit.
func (b *breaker) Failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.limit {
		b.open = true
	}
	if b.open {
		return fmt.Errorf("%w: %d consecutive failures", ErrCircuitOpen, b.failures)
	}
	return nil
}

// Success resets the consecutive-failure count. A breaker that has already
// tripped stays open.
func (b *breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		b.failures = 0
	}
}

// Err returns ErrCircuitOpen if the breaker has tripped.
func (b *breaker) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return ErrCircuitOpen
	}
	return nil
}

// Failures returns the current consecutive-failure count.
func (b *breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
