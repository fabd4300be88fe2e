package breaker

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of concurrent in-flight calls independently of a
// [Breaker]'s failure-based admission. It composes in front of a Breaker (or
// any other gate): acquire a slot, run the protected call, release the slot.
//
// This mirrors the ConcurrencyLimiter middleware of the reference
// implementation this breaker's design is grounded on, built directly on the
// same golang.org/x/sync/semaphore primitive, as a standalone admission gate
// rather than a Breaker-specific middleware — the specification's breaker
// core has no notion of middleware chaining, so Limiter is composed by the
// caller instead of wrapped around an ObserverFactory-style interface.
type Limiter struct {
	sem   *semaphore.Weighted
	block bool
}

// NewLimiter creates a Limiter admitting at most limit concurrent callers. If
// block is false, Acquire returns [ErrConcurrencyLimitReached] immediately
// once the limit is reached; if true, Acquire blocks until a slot is
// available or ctx is done.
func NewLimiter(limit int64, block bool) *Limiter {
	return &Limiter{
		sem:   semaphore.NewWeighted(limit),
		block: block,
	}
}

// Acquire reserves a slot, returning a release function to call once the
// protected call has completed.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if l.block {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWaitingForSlot, err)
		}
	} else if !l.sem.TryAcquire(1) {
		return nil, ErrConcurrencyLimitReached
	}
	return func() { l.sem.Release(1) }, nil
}
