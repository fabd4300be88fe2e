// Package zaplog adapts a breaker.Listener to structured logging via
// go.uber.org/zap, in the style of the gateway's access-log middleware:
// one Debugw/Warnw call per event, with key-value fields rather than
// a formatted message.
package zaplog

import (
	"context"

	breaker "github.com/riftlatch/breaker"

	"go.uber.org/zap"
)

// Listener logs a breaker's state transitions and failures via a
// *zap.SugaredLogger. Successes and rejections are logged at debug level to
// keep steady-state traffic quiet; state transitions and failures are logged
// at warn level since they represent a change in the health of the
// protected dependency.
type Listener struct {
	breaker.BaseListener

	log     *zap.SugaredLogger
	circuit string
}

// NewListener returns a Listener that logs events for the named circuit
// using log. The circuit name is attached as a field on every log line.
func NewListener(circuitName string, log *zap.SugaredLogger) *Listener {
	return &Listener{
		log:     log.With("circuit", circuitName),
		circuit: circuitName,
	}
}

func (l *Listener) BeforeCall(_ *breaker.Breaker, _ context.Context) {
	l.log.Debugw("call admitted")
}

func (l *Listener) Success(_ *breaker.Breaker) {
	l.log.Debugw("call succeeded")
}

// Failure must not call back into b's locking accessors (FailCounter,
// FailMax, ...): account holds b.mu for the duration of this call, and
// Breaker's mutex is not reentrant.
func (l *Listener) Failure(_ *breaker.Breaker, err error) {
	l.log.Warnw("call failed", "error", err)
}

func (l *Listener) Rejected(_ *breaker.Breaker, err error) {
	l.log.Debugw("call rejected", "error", err)
}

func (l *Listener) StateChange(_ *breaker.Breaker, from, to breaker.State) {
	l.log.Warnw("circuit state changed",
		"from", from.String(),
		"to", to.String(),
	)
}
