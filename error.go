package breaker

import "errors"

// CircuitOpenError is returned when a [Breaker] rejects a call because it is
// open, or half-open and already probing. It names the state that caused the
// rejection.
type CircuitOpenError struct {
	State State
}

func (e *CircuitOpenError) Error() string {
	return "breaker: circuit is " + e.State.String()
}

// Is allows errors.Is(err, ErrCircuitOpen) to succeed for any
// [*CircuitOpenError], regardless of which state it carries.
func (e *CircuitOpenError) Is(target error) bool {
	_, ok := target.(*CircuitOpenError)
	return ok
}

// ErrCircuitOpen is a sentinel usable with errors.Is to test whether an error
// returned by the breaker was a rejection, independent of which state caused
// it.
var ErrCircuitOpen = &CircuitOpenError{}

var (
	// ErrConcurrencyLimitReached is returned by a [Limiter] in non-blocking
	// mode when its configured limit is reached.
	ErrConcurrencyLimitReached = errors.New("breaker: concurrency limit reached")
	// ErrWaitingForSlot is returned by a [Limiter] in blocking mode when the
	// context is done while waiting for a slot. The returned error wraps both
	// ErrWaitingForSlot and the underlying context error.
	ErrWaitingForSlot = errors.New("breaker: waiting for slot")
)
