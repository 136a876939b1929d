// Package metrics holds the Prometheus collectors for the streaming server.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Tick metrics
	TicksTotal   *prometheus.CounterVec
	TickDuration prometheus.Histogram

	// Error metrics
	SendErrorsTotal prometheus.Counter
	FallbacksTotal  *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "avatar"
	}

	registry := prometheus.NewRegistry()

	sessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected streaming sessions",
		},
	)

	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of streaming sessions by source kind",
		},
		[]string{"source"},
	)

	sessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Streaming session lifetime in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 3600},
		},
	)

	ticksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of motion ticks by controller mode",
		},
		[]string{"mode"},
	)

	tickDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent in poll, advance, encode and send for one tick",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
		},
	)

	sendErrorsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total number of frames that failed to send",
		},
	)

	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fallbacks_total",
			Help:      "Sessions that fell back to a synthetic source",
		},
		[]string{"reason"},
	)

	registry.MustRegister(
		sessionsActive,
		sessionsTotal,
		sessionDuration,
		ticksTotal,
		tickDuration,
		sendErrorsTotal,
		fallbacksTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		SessionsActive:  sessionsActive,
		SessionsTotal:   sessionsTotal,
		SessionDuration: sessionDuration,
		TicksTotal:      ticksTotal,
		TickDuration:    tickDuration,
		SendErrorsTotal: sendErrorsTotal,
		FallbacksTotal:  fallbacksTotal,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionStart records a new session.
func (m *Metrics) RecordSessionStart(source string) {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.WithLabelValues(source).Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(duration.Seconds())
}

// RecordTick records one completed tick.
func (m *Metrics) RecordTick(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.WithLabelValues(mode).Inc()
	m.TickDuration.Observe(duration.Seconds())
}

// RecordSendError records a failed frame send.
func (m *Metrics) RecordSendError() {
	if m == nil {
		return
	}
	m.SendErrorsTotal.Inc()
}

// RecordFallback records a session switched to the synthetic source.
func (m *Metrics) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}
