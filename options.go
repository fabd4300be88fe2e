package breaker

import "time"

// Option configures a [Breaker] at construction time, applied in [NewBreaker].
type Option interface {
	apply(*Breaker)
}

type optionFunc func(*Breaker)

func (f optionFunc) apply(b *Breaker) { f(b) }

// WithFailMax sets the consecutive-failure threshold at which a closed
// breaker opens. The default is [DefaultFailMax].
func WithFailMax(n int) Option {
	return optionFunc(func(b *Breaker) {
		b.failMax = n
	})
}

// WithResetTimeout sets the minimum duration an open breaker waits before
// admitting a probe call. The default is [DefaultResetTimeout].
func WithResetTimeout(d time.Duration) Option {
	return optionFunc(func(b *Breaker) {
		b.resetTimeout = d
	})
}

// WithExcluded registers error categories that propagate to the caller
// without being accounted as failures. See [ForType] and [Is].
func WithExcluded(cats ...Category) Option {
	return optionFunc(func(b *Breaker) {
		b.excluded = append(b.excluded, cats...)
	})
}

// WithListeners registers listeners notified of state transitions and call
// lifecycle events, in the given order.
func WithListeners(ls ...Listener) Option {
	return optionFunc(func(b *Breaker) {
		b.listeners = append(b.listeners, ls...)
	})
}
