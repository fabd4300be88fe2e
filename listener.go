package breaker

import "context"

// Listener observes a [Breaker]'s state transitions and call lifecycle. All
// methods are invoked while the breaker's internal mutex is held, so
// implementations must not block indefinitely or call back into the same
// breaker.
type Listener interface {
	// BeforeCall fires after admission succeeds, before the wrapped operation
	// runs.
	BeforeCall(b *Breaker, ctx context.Context)
	// Success fires when a call is accounted as a success, before the
	// counter reset and any state transition that accounting causes.
	Success(b *Breaker)
	// Failure fires when a call is accounted as a failure, only for
	// non-excluded errors, before the counter increment and any state
	// transition that accounting causes.
	Failure(b *Breaker, err error)
	// Rejected fires instead of BeforeCall when admission denies a call,
	// typically with a [*CircuitOpenError].
	Rejected(b *Breaker, err error)
	// StateChange fires on every transition, including administrative ones
	// triggered by Open/HalfOpen/Close. It does not fire on construction.
	StateChange(b *Breaker, from, to State)
}

// BaseListener is a no-op [Listener]. Embed it to implement only the hooks you
// need.
type BaseListener struct{}

func (BaseListener) BeforeCall(*Breaker, context.Context) {}
func (BaseListener) Success(*Breaker)                     {}
func (BaseListener) Failure(*Breaker, error)              {}
func (BaseListener) Rejected(*Breaker, error)             {}
func (BaseListener) StateChange(*Breaker, State, State)   {}

// ListenerFuncs adapts up to five plain functions into a [Listener]; any nil
// field behaves as a no-op.
type ListenerFuncs struct {
	OnBeforeCall  func(b *Breaker, ctx context.Context)
	OnSuccess     func(b *Breaker)
	OnFailure     func(b *Breaker, err error)
	OnRejected    func(b *Breaker, err error)
	OnStateChange func(b *Breaker, from, to State)
}

func (l ListenerFuncs) BeforeCall(b *Breaker, ctx context.Context) {
	if l.OnBeforeCall != nil {
		l.OnBeforeCall(b, ctx)
	}
}

func (l ListenerFuncs) Success(b *Breaker) {
	if l.OnSuccess != nil {
		l.OnSuccess(b)
	}
}

func (l ListenerFuncs) Failure(b *Breaker, err error) {
	if l.OnFailure != nil {
		l.OnFailure(b, err)
	}
}

func (l ListenerFuncs) Rejected(b *Breaker, err error) {
	if l.OnRejected != nil {
		l.OnRejected(b, err)
	}
}

func (l ListenerFuncs) StateChange(b *Breaker, from, to State) {
	if l.OnStateChange != nil {
		l.OnStateChange(b, from, to)
	}
}
