// Package metrics exposes completion and memory counters as Prometheus
// collectors. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memoraxx"

// Completion outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeInput     = "input"
	OutcomeTransport = "transport"
	OutcomeHTTP      = "http"
	OutcomePayload   = "payload"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	attempts           prometheus.Counter
	retries            prometheus.Counter
	completions        *prometheus.CounterVec
	toolCalls          *prometheus.CounterVec
	latency            prometheus.Histogram
	memoryTokens       prometheus.Gauge
	memoryInteractions prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_attempts_total",
			Help:      "HTTP attempts made against the generation endpoint.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Attempts that were retried after a transport error or 5xx.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion calls by outcome.",
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched from model replies.",
		}, []string{"tool"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Wall time of completion calls including retries.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		memoryTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_tokens",
			Help:      "Approximate tokens held in conversation memory.",
		}),
		memoryInteractions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_interactions",
			Help:      "Interactions held in conversation memory.",
		}),
	}
	m.registry.MustRegister(
		m.attempts, m.retries, m.completions, m.toolCalls,
		m.latency, m.memoryTokens, m.memoryInteractions,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAttempt() {
	if m == nil {
		return
	}
	m.attempts.Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// ObserveCompletion records the outcome and duration of one completion call.
func (m *Metrics) ObserveCompletion(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) ObserveToolCall(tool string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
}

// SetMemory reports the current memory occupancy.
func (m *Metrics) SetMemory(tokens, interactions int) {
	if m == nil {
		return
	}
	m.memoryTokens.Set(float64(tokens))
	m.memoryInteractions.Set(float64(interactions))
}
