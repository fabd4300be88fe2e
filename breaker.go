// Package breaker implements a process-local circuit breaker: a small
// concurrency primitive that wraps a potentially failing operation and, based
// on a consecutive-failure counter, switches between admitting, rejecting and
// probing invocations of that operation.
//
// A zero Breaker is not usable; construct one with [NewBreaker].
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultFailMax is the consecutive-failure threshold used when
	// [WithFailMax] is not provided.
	DefaultFailMax = 5
	// DefaultResetTimeout is the minimum time a breaker stays open before a
	// probe is permitted, used when [WithResetTimeout] is not provided.
	DefaultResetTimeout = 60 * time.Second
)

// Breaker holds the configuration, counters and current state of a single
// protected dependency. All of its exported methods are safe for concurrent
// use; the wrapped operation itself is always invoked outside of the
// breaker's internal lock.
type Breaker struct {
	mu sync.Mutex

	failMax      int
	resetTimeout time.Duration
	excluded     []Category
	listeners    []Listener
	clock        clock

	state            State
	failCounter      int
	openedAt         time.Time
	halfOpenInFlight bool
}

// NewBreaker constructs a Breaker with the given options applied over the
// defaults: fail_max=5, reset_timeout=60s, no exclusions, no listeners,
// initial state closed.
func NewBreaker(opts ...Option) *Breaker {
	b := &Breaker{
		failMax:      DefaultFailMax,
		resetTimeout: DefaultResetTimeout,
		clock:        realClock{},
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt.apply(b)
	}
	return b
}

// transition moves the breaker into the given state, updating opened_at and
// fail_counter as required by the invariants, and notifies listeners.
// Must be called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	switch to {
	case StateOpen:
		b.openedAt = b.clock.Now()
	case StateClosed:
		b.failCounter = 0
		b.halfOpenInFlight = false
	}
	for _, l := range b.listeners {
		l.StateChange(b, from, to)
	}
}

// Call runs op under the breaker's discipline: admission is checked first: a
// rejected call returns a non-nil [*CircuitOpenError] and never invokes op. A
// panic inside op is observed as a failure and then repanicked, matching the
// treatment of an ordinary returned error.
//
// Because Go does not allow methods to introduce their own type parameters,
// Call is a free function parameterized over the operation's result type,
// rather than a method on Breaker; one Breaker can protect any number of
// differently-shaped operations over its lifetime.
func Call[OUT any](ctx context.Context, b *Breaker, op func(context.Context) (OUT, error)) (OUT, error) {
	var zero OUT

	b.mu.Lock()
	if err := b.impl().admit(b); err != nil {
		for _, l := range b.listeners {
			l.Rejected(b, err)
		}
		b.mu.Unlock()
		return zero, err
	}
	for _, l := range b.listeners {
		l.BeforeCall(b, ctx)
	}
	b.mu.Unlock()

	// Observe context cancellation as soon as it happens, even if op blocks
	// past it, so the breaker reacts promptly without making the call itself
	// asynchronous.
	obsCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(errCallDone)

	var once sync.Once
	account := func(failure bool, err error) {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.account(failure, err)
		})
	}

	go func() {
		<-obsCtx.Done()
		if context.Cause(obsCtx) == errCallDone {
			return
		}
		account(true, obsCtx.Err())
	}()

	out, err := func() (out OUT, err error) {
		defer func() {
			if r := recover(); r != nil {
				account(true, fmt.Errorf("panic: %v", r))
				panic(r)
			}
		}()
		return op(ctx)
	}()

	account(err != nil, err)
	return out, err
}

// account applies success/failure accounting for err (nil meaning success),
// honoring the exclusion list. Must be called with b.mu held.
func (b *Breaker) account(failure bool, err error) {
	if !failure {
		for _, l := range b.listeners {
			l.Success(b)
		}
		b.impl().onSuccess(b)
		return
	}
	if b.isExcluded(err) {
		return
	}
	for _, l := range b.listeners {
		l.Failure(b, err)
	}
	b.impl().onFailure(b, err)
}

// errCallDone distinguishes the context cancellation caused by Call's own
// bookkeeping from a genuine external cancellation of ctx.
var errCallDone = fmt.Errorf("breaker: call done")

// CallFuture implements the split "prepare/report" adapter: admission is
// checked exactly like [Call], and only if it succeeds is prepare invoked to
// produce the invoker. The caller is responsible for driving the invoker and
// reporting its outcome via [Breaker.HandleSuccess], [Breaker.HandleError] or
// [Breaker.HandleSoftSuccess].
func CallFuture[OUT any](ctx context.Context, b *Breaker, prepare func(context.Context) (OUT, error)) (OUT, error) {
	var zero OUT

	b.mu.Lock()
	if err := b.impl().admit(b); err != nil {
		for _, l := range b.listeners {
			l.Rejected(b, err)
		}
		b.mu.Unlock()
		return zero, err
	}
	for _, l := range b.listeners {
		l.BeforeCall(b, ctx)
	}
	b.mu.Unlock()

	return prepare(ctx)
}

// HandleSuccess records a successful outcome for a call admitted via
// [CallFuture]. It is equivalent to the accounting half of [Call].
func (b *Breaker) HandleSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account(false, nil)
}

// HandleError records a failed outcome for a call admitted via [CallFuture].
// A nil err is a no-op: it neither accounts nor returns an error, so callers
// may report "no error occurred" unconditionally. If err matches an excluded
// [Category], it is not accounted. If reraise is true, err is returned
// unchanged; otherwise HandleError always returns nil.
func (b *Breaker) HandleError(err error, reraise bool) error {
	if err != nil {
		b.mu.Lock()
		b.account(true, err)
		b.mu.Unlock()
	}
	if reraise {
		return err
	}
	return nil
}

// HandleSoftSuccess reports that a call admitted via [CallFuture] completed
// without error, but should not count as a recovery: it leaves fail_counter
// and current_state unchanged. While half-open, it clears the single-probe
// guard so a subsequent call may probe again, without closing the breaker.
func (b *Breaker) HandleSoftSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.halfOpenInFlight = false
	}
}

// Open forces the breaker into the open state.
func (b *Breaker) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateOpen)
}

// HalfOpen forces the breaker into the half-open state.
func (b *Breaker) HalfOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateHalfOpen)
}

// Close forces the breaker into the closed state, resetting fail_counter.
func (b *Breaker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailCounter reports the number of consecutive failures in the current
// regime.
func (b *Breaker) FailCounter() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failCounter
}

// FailMax reports the consecutive-failure threshold.
func (b *Breaker) FailMax() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failMax
}

// SetFailMax updates the consecutive-failure threshold. It takes effect the
// next time a failure is accounted.
func (b *Breaker) SetFailMax(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failMax = n
}

// ResetTimeout reports the minimum duration the breaker stays open before a
// probe is permitted.
func (b *Breaker) ResetTimeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetTimeout
}

// SetResetTimeout updates the reset timeout. It takes effect on the next
// admission.
func (b *Breaker) SetResetTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetTimeout = d
}

// Listeners returns a snapshot of the currently registered listeners, in
// notification order.
func (b *Breaker) Listeners() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}

// AddListeners registers one or more listeners, appended in the given order.
func (b *Breaker) AddListeners(ls ...Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, ls...)
}

// RemoveListener removes the first registered listener equal to l, if any.
func (b *Breaker) RemoveListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.listeners {
		if existing == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// ExcludedCategories returns a snapshot of the currently excluded error
// categories, in the order they were added.
func (b *Breaker) ExcludedCategories() []Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Category, len(b.excluded))
	copy(out, b.excluded)
	return out
}

// AddExcluded registers one or more error categories that should propagate to
// the caller without affecting fail_counter or current_state.
func (b *Breaker) AddExcluded(cats ...Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.excluded = append(b.excluded, cats...)
}

// RemoveExcluded removes the first excluded category with the same name as
// cat, if any.
func (b *Breaker) RemoveExcluded(cat Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.excluded {
		if existing.name == cat.name {
			b.excluded = append(b.excluded[:i], b.excluded[i+1:]...)
			return
		}
	}
}

// isExcluded reports whether err matches any registered [Category]. Must be
// called with b.mu held.
func (b *Breaker) isExcluded(err error) bool {
	for _, cat := range b.excluded {
		if cat.Matches(err) {
			return true
		}
	}
	return false
}

// clock abstracts wall-clock reads so tests can exercise reset_timeout
// boundaries deterministically.
type clock interface {
	Now() time.Time
	Since(time.Time) time.Duration
}

type realClock struct{}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }
