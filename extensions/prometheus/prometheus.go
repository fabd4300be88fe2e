// Package breakerprom adapts a breaker.Listener to publish Prometheus
// metrics for a single circuit breaker instance.
package breakerprom

import (
	"context"
	"errors"
	"fmt"

	breaker "github.com/riftlatch/breaker"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "breaker"

// Listener publishes Prometheus metrics for a single breaker. Register one
// per circuit via [NewListener] and attach it with [breaker.WithListeners].
//
// Unlike the reference implementation's ObserverFactory, which hands back a
// per-call Observer closure to close over, breaker.Listener's
// BeforeCall/Success/Failure hooks carry no token correlating a given
// BeforeCall with its eventual outcome. Exporting a per-call duration
// histogram would require guessing which in-flight call a concurrent
// Success/Failure belongs to, which cannot be done safely without such a
// token. This listener instead exports counters and a gauge, which only ever
// need 1:1 pairing of one admitted call with its own eventual outcome, not
// cross-call correlation — every admitted call gets exactly one BeforeCall
// and exactly one of Success/Failure.
type Listener struct {
	breaker.BaseListener

	callsTotal    *prometheus.CounterVec
	droppedCalls  *prometheus.CounterVec
	inflightCalls prometheus.Gauge
}

// NewListener registers and returns a [Listener] for the named circuit.
//
// The circuit name must be unique across all breakers sharing reg.
func NewListener(circuitName string, reg prometheus.Registerer) (*Listener, error) {
	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit",
			Name:      "calls_total",
			Help:      "Total number of calls admitted by the circuit, by outcome",
			ConstLabels: prometheus.Labels{
				"circuit": circuitName,
			},
		},
		[]string{"outcome"},
	)

	droppedCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit",
			Name:      "dropped_calls_total",
			Help:      "Total number of calls rejected by the circuit without reaching the wrapped function",
			ConstLabels: prometheus.Labels{
				"circuit": circuitName,
			},
		},
		[]string{"cause"},
	)

	inflightCalls := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit",
			Name:      "inflight_calls_current",
			Help:      "Current number of calls admitted by the circuit and not yet accounted",
			ConstLabels: prometheus.Labels{
				"circuit": circuitName,
			},
		},
	)

	for _, c := range []prometheus.Collector{callsTotal, droppedCalls, inflightCalls} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("breakerprom: registering collector: %w", err)
		}
	}

	return &Listener{
		callsTotal:    callsTotal,
		droppedCalls:  droppedCalls,
		inflightCalls: inflightCalls,
	}, nil
}

func (l *Listener) BeforeCall(*breaker.Breaker, context.Context) {
	l.inflightCalls.Inc()
}

func (l *Listener) Success(*breaker.Breaker) {
	l.inflightCalls.Dec()
	l.callsTotal.WithLabelValues("success").Inc()
}

func (l *Listener) Failure(_ *breaker.Breaker, _ error) {
	l.inflightCalls.Dec()
	l.callsTotal.WithLabelValues("failure").Inc()
}

func (l *Listener) Rejected(_ *breaker.Breaker, err error) {
	l.droppedCalls.WithLabelValues(rejectionCause(err)).Inc()
}

// rejectionCause converts a rejection error into a metric label.
func rejectionCause(err error) string {
	var openErr *breaker.CircuitOpenError
	switch {
	case errors.As(err, &openErr):
		return "circuit_" + openErr.State.String()
	case errors.Is(err, breaker.ErrConcurrencyLimitReached):
		return "concurrency_limit"
	case errors.Is(err, breaker.ErrWaitingForSlot):
		return "waiting_for_slot"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	default:
		return "other"
	}
}
