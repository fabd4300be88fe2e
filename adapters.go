package breaker

import (
	"context"
	"iter"
)

// NamedFunc pairs an operation with the identity metadata Go functions don't
// carry at runtime (no __name__/__doc__), so that a decorated operation
// remains introspectable, per the decorator contract.
type NamedFunc[IN, OUT any] struct {
	Name string
	Doc  string
	Func func(context.Context, IN) (OUT, error)
}

// Decorate wraps f so every invocation is routed through [Call] on b,
// preserving f's Name and Doc.
func Decorate[IN, OUT any](b *Breaker, f NamedFunc[IN, OUT]) NamedFunc[IN, OUT] {
	wrapped := f.Func
	return NamedFunc[IN, OUT]{
		Name: f.Name,
		Doc:  f.Doc,
		Func: func(ctx context.Context, in IN) (OUT, error) {
			return Call(ctx, b, func(ctx context.Context) (OUT, error) {
				return wrapped(ctx, in)
			})
		},
	}
}

// Seq wraps an operation that produces a lazy sequence of (value, error)
// pairs, accounting each element individually against b: a produced value is
// a success, a produced error is a failure, and the sequence simply ending is
// not itself an event. Admission is checked once, before op is called to
// obtain the sequence; a rejected admission surfaces as a sequence that
// yields a single (zero, *CircuitOpenError) pair.
func Seq[T any](ctx context.Context, b *Breaker, op func(context.Context) iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		b.mu.Lock()
		if err := b.impl().admit(b); err != nil {
			for _, l := range b.listeners {
				l.Rejected(b, err)
			}
			b.mu.Unlock()
			yield(zero, err)
			return
		}
		for _, l := range b.listeners {
			l.BeforeCall(b, ctx)
		}
		b.mu.Unlock()

		for v, err := range op(ctx) {
			b.mu.Lock()
			b.account(err != nil, err)
			b.mu.Unlock()

			if !yield(v, err) {
				return
			}
		}
	}
}
