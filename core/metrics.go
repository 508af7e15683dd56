// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines Prometheus instrumentation for the dispatch pipeline,
// installed as an around behavior so it composes with every registered
// stage and extension without modifying them.
package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// aroundMetricsName identifies the instrumentation around behavior, so
// re-installation replaces instead of stacking.
const aroundMetricsName = "metrics"

// Metrics holds the Prometheus collectors the instrumentation around
// observes into.
type Metrics struct {
	dispatches *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with the given
// registerer (pass prometheus.DefaultRegisterer for the default).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wisp_dispatches_total",
			Help: "Number of operations dispatched, by kind and model.",
		}, []string{"kind", "model"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wisp_dispatch_failures_total",
			Help: "Number of dispatched operations that failed, by kind and model.",
		}, []string{"kind", "model"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wisp_dispatch_duration_seconds",
			Help:    "Time spent constructing the operation's result pipeline.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "model"}),
	}
	registerer.MustRegister(m.dispatches, m.failures, m.duration)
	return m
}

// Instrument installs the metrics around behavior on all three operation
// kinds of the mapper's registry.
//
// The observed duration covers dispatch and pipeline construction; time
// spent by the consumer pulling the lazy result is deliberately not
// attributed to the operation.
//
// Example:
//
//	metrics := core.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.Instrument(mapper)
func (metrics *Metrics) Instrument(m *Mapper) {
	for _, kind := range Kinds {
		m.registry.RegisterAround(kind, AnyModel, aroundMetricsName, metrics.around)
	}
}

// around is the instrumentation behavior: count, time, delegate.
func (metrics *Metrics) around(ctx context.Context, op *Operation, next PrimaryFunc) (*Result, error) {
	labels := prometheus.Labels{"kind": string(op.Kind), "model": string(op.Model)}
	metrics.dispatches.With(labels).Inc()
	start := time.Now()
	result, err := next(ctx, op)
	metrics.duration.With(labels).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.failures.With(labels).Inc()
		return nil, err
	}
	return result, nil
}
