// Package metrics provides Prometheus metrics export for the chat and memory
// pipelines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter registers and records the service metrics.
type Exporter struct {
	registry *prometheus.Registry

	chatRequests *prometheus.CounterVec
	chatLatency  prometheus.Histogram
	llmTokens    *prometheus.CounterVec

	memoriesCreated prometheus.Counter
	memoriesSwept   prometheus.Counter
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of chat requests",
		},
		[]string{"status"},
	)
	e.chatLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mate",
			Subsystem: "chat",
			Name:      "latency_seconds",
			Help:      "Chat request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
	)
	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"token_type"},
	)
	e.memoriesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: "memory",
			Name:      "created_total",
			Help:      "Total memories distilled and stored",
		},
	)
	e.memoriesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: "memory",
			Name:      "swept_total",
			Help:      "Total memories soft-deleted by the decay sweep",
		},
	)

	registry.MustRegister(
		e.chatRequests,
		e.chatLatency,
		e.llmTokens,
		e.memoriesCreated,
		e.memoriesSwept,
	)
	return e
}

// RecordChatRequest records one completed chat turn.
func (e *Exporter) RecordChatRequest(latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.chatRequests.WithLabelValues(status).Inc()
	e.chatLatency.Observe(latency.Seconds())
}

// RecordLLMTokens records token usage reported by the provider.
func (e *Exporter) RecordLLMTokens(promptTokens, completionTokens int) {
	e.llmTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	e.llmTokens.WithLabelValues("completion").Add(float64(completionTokens))
}

// RecordMemoryCreated records one persisted memory.
func (e *Exporter) RecordMemoryCreated() {
	e.memoriesCreated.Inc()
}

// RecordMemoriesSwept records a finished decay sweep.
func (e *Exporter) RecordMemoriesSwept(count int64) {
	e.memoriesSwept.Add(float64(count))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
