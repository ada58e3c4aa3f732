// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks conversation turns processed.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"tenant_id", "sender"},
	)

	// ConversationsTotal tracks conversations started.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_conversations_total",
			Help: "Total conversations started",
		},
		[]string{"tenant_id"},
	)

	// ClassificationsTotal tracks case classification attempts.
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_classifications_total",
			Help: "Total case classification attempts",
		},
		[]string{"status"},
	)

	// HandoffsTotal tracks chat-to-case hand-offs by outcome.
	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_handoffs_total",
			Help: "Total chat-to-case hand-offs",
		},
		[]string{"outcome"},
	)

	// ProductFetchesTotal tracks per-deployment product fetches.
	ProductFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployment_product_fetches_total",
			Help: "Total per-deployment product fetches",
		},
		[]string{"status"},
	)

	// LLMCompletionDuration tracks LLM completion latency.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// EventStreamPublishes tracks publishes to the audit stream.
	EventStreamPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_stream_publishes_total",
			Help: "Total publishes to the conversation audit stream",
		},
		[]string{"subject_kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCompletion records metrics for one LLM completion.
func RecordLLMCompletion(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCompletionDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
