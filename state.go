package breaker

// State represents the current position of a Breaker in the
// closed → open → half-open state machine.
type State int

const (
	// StateClosed means the breaker is admitting calls and counting failures.
	StateClosed State = iota
	// StateOpen means the breaker is rejecting every call with [CircuitOpenError].
	StateOpen
	// StateHalfOpen means the breaker is admitting a single probe call to decide
	// whether to close again or reopen.
	StateHalfOpen
)

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

// stateImpl encodes the per-state admission and accounting policy. Implementations
// are stateless singletons selected via stateImpls; all mutable state lives on the
// Breaker itself and is guarded by its mutex.
//
// Keeping this as a small interface, rather than switching on State everywhere,
// keeps the policy for each state in one place.
type stateImpl interface {
	// admit is called with b.mu held, before the wrapped operation runs. It may
	// mutate b (e.g. to transition open→half-open) and returns a non-nil error
	// if the call must be rejected.
	admit(b *Breaker) error

	// onSuccess is called with b.mu held, after the wrapped operation returned
	// without error (or HandleSuccess was called directly).
	onSuccess(b *Breaker)

	// onFailure is called with b.mu held, after the wrapped operation returned a
	// non-excluded error (or HandleError was called directly).
	onFailure(b *Breaker, err error)
}

var stateImpls = map[State]stateImpl{
	StateClosed:   closedState{},
	StateOpen:     openState{},
	StateHalfOpen: halfOpenState{},
}

func (b *Breaker) impl() stateImpl {
	return stateImpls[b.state]
}

type closedState struct{}

func (closedState) admit(b *Breaker) error {
	return nil
}

func (closedState) onSuccess(b *Breaker) {
	b.failCounter = 0
}

func (closedState) onFailure(b *Breaker, _ error) {
	b.failCounter++
	if b.failCounter >= b.failMax {
		b.transition(StateOpen)
	}
}

type openState struct{}

func (openState) admit(b *Breaker) error {
	if b.clock.Since(b.openedAt) < b.resetTimeout {
		return &CircuitOpenError{State: StateOpen}
	}
	// The reset timeout has elapsed: let exactly one caller probe the wrapped
	// operation. We transition to half-open here, under the mutex, so every
	// concurrent admission attempt observes the new state and the in-flight
	// guard consistently.
	b.transition(StateHalfOpen)
	b.halfOpenInFlight = true
	return nil
}

func (openState) onSuccess(b *Breaker) {
	// Admission never permits a call while purely open; an outcome reaching
	// this point (a call admitted before the breaker opened, or a direct
	// HandleSuccess) changes nothing.
}

func (openState) onFailure(b *Breaker, _ error) {
	// Admission never permits a call while purely open; an outcome reaching
	// this point (a call admitted before the breaker opened, or a direct
	// HandleError) changes nothing.
}

type halfOpenState struct{}

func (halfOpenState) admit(b *Breaker) error {
	if b.halfOpenInFlight {
		return &CircuitOpenError{State: StateHalfOpen}
	}
	b.halfOpenInFlight = true
	return nil
}

func (halfOpenState) onSuccess(b *Breaker) {
	b.halfOpenInFlight = false
	b.transition(StateClosed)
}

func (halfOpenState) onFailure(b *Breaker, _ error) {
	b.failCounter++
	b.halfOpenInFlight = false
	b.transition(StateOpen)
}
