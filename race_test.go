package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCall_concurrentFailuresExactCount mirrors the concurrency scenario:
// with fail_max set far above the total number of attempted calls, many
// goroutines hammering a breaker with failing calls must never lose or
// double-count a failure. Run with -race.
func TestCall_concurrentFailuresExactCount(t *testing.T) {
	const goroutines = 3
	const callsEach = 500

	b := NewBreaker(WithFailMax(3000))

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				_, _ = Call(context.Background(), b, func(context.Context) (int, error) {
					return 0, sentinel
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*callsEach, b.FailCounter())
	assert.Equal(t, StateClosed, b.State())
}

// TestCall_concurrentMixedOutcomes exercises successes and failures racing
// against each other; the final fail_counter must reflect only the
// consecutive failures since the last success, with no data race on the
// shared counter.
func TestCall_concurrentMixedOutcomes(t *testing.T) {
	b := NewBreaker(WithFailMax(1_000_000))

	var wg sync.WaitGroup
	var successes, failures int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if (n+j)%2 == 0 {
					atomic.AddInt64(&successes, 1)
					_, _ = Call(context.Background(), b, func(context.Context) (int, error) {
						return 0, nil
					})
				} else {
					atomic.AddInt64(&failures, 1)
					_, _ = Call(context.Background(), b, func(context.Context) (int, error) {
						return 0, sentinel
					})
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1600), successes+failures)
	// fail_counter is bounded by the total number of failing calls and never
	// exceeds fail_max; the exact value is a race of successes vs. failures
	// so we only assert the invariant, not a fixed number.
	assert.GreaterOrEqual(t, b.FailCounter(), 0)
	assert.LessOrEqual(t, b.FailCounter(), int(failures))
}

// TestCall_halfOpenAdmitsExactlyOneProbeConcurrently drives many concurrent
// callers at an open breaker whose reset_timeout has already elapsed, and
// asserts that exactly one of them is admitted as the half-open probe while
// every other concurrent caller is rejected.
func TestCall_halfOpenAdmitsExactlyOneProbeConcurrently(t *testing.T) {
	b := NewBreaker(WithFailMax(1))
	fc := &fakeClock{}
	b.clock = fc

	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		return 0, sentinel
	})
	require.Error(t, err)
	require.Equal(t, StateOpen, b.State())

	fc.advance(b.ResetTimeout())

	const callers = 50
	var admitted int64
	var rejected int64

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := Call(context.Background(), b, func(context.Context) (int, error) {
				atomic.AddInt64(&admitted, 1)
				close(started)
				<-release
				return 0, nil
			})
			if err != nil {
				var openErr *CircuitOpenError
				require.True(t, errors.As(err, &openErr))
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}

	<-started
	// hold the probe until every other caller has been rejected, so that no
	// caller reaches the breaker only after the probe has closed it
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&rejected) == callers-1
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), admitted)
	assert.Equal(t, int64(callers-1), rejected)
	assert.Equal(t, StateClosed, b.State())
}

// fakeClock is a deterministic clock for tests that need to control the
// passage of time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Unix(0, 0)
	}
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Unix(0, 0)
	}
	c.now = c.now.Add(d)
}
