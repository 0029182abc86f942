// Package metrics exposes Prometheus metrics for chat sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fluentchat"

// Completion outcomes used as the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var durationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics collects session metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	turns          prometheus.Counter
	commands       *prometheus.CounterVec
	rejections     prometheus.Counter
	clarifications prometheus.Counter
	summaries      prometheus.Counter
	evicted        prometheus.Counter

	completions *prometheus.CounterVec   // provider,status
	tokens      *prometheus.CounterVec   // provider,type
	latency     *prometheus.HistogramVec // provider
}

// New creates a Metrics collector with every metric registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Input lines processed by the session",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed by kind",
		}, []string{"command"}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_rejections_total",
			Help:      "Input lines rejected by the input guard",
		}),
		clarifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clarifications_total",
			Help:      "Input lines answered with a clarification prompt",
		}),
		summaries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Conversation summaries produced by eviction",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_messages_total",
			Help:      "Messages folded into summaries",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion requests by provider and status",
		}, []string{"provider", "status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by providers",
		}, []string{"provider", "type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion request duration",
			Buckets:   durationBuckets,
		}, []string{"provider"}),
	}

	m.registry.MustRegister(
		m.turns,
		m.commands,
		m.rejections,
		m.clarifications,
		m.summaries,
		m.evicted,
		m.completions,
		m.tokens,
		m.latency,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTurn counts one processed input line.
func (m *Metrics) RecordTurn() {
	m.turns.Inc()
}

// RecordCommand counts an executed command.
func (m *Metrics) RecordCommand(kind string) {
	m.commands.WithLabelValues(kind).Inc()
}

// RecordRejection counts a rejected input line.
func (m *Metrics) RecordRejection() {
	m.rejections.Inc()
}

// RecordClarification counts a clarification prompt.
func (m *Metrics) RecordClarification() {
	m.clarifications.Inc()
}

// RecordSummary counts a summary and the messages it replaced.
func (m *Metrics) RecordSummary(evicted int) {
	m.summaries.Inc()
	m.evicted.Add(float64(evicted))
}

// RecordCompletion records a successful completion.
func (m *Metrics) RecordCompletion(provider string, duration time.Duration, inputTokens, outputTokens int) {
	m.completions.WithLabelValues(provider, StatusOK).Inc()
	m.latency.WithLabelValues(provider).Observe(duration.Seconds())
	m.tokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	m.tokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
}

// RecordCompletionError records a failed completion.
func (m *Metrics) RecordCompletionError(provider string, duration time.Duration) {
	m.completions.WithLabelValues(provider, StatusError).Inc()
	m.latency.WithLabelValues(provider).Observe(duration.Seconds())
}

// Handler returns an HTTP handler that serves the registry in the
// Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
