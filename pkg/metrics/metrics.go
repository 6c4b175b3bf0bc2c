// Package metrics provides Prometheus instrumentation for the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidsum"

var (
	// HTTPRequestsTotal counts HTTP requests by method/path/status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// SummarizeRequestsTotal counts Orchestrator outcomes by result state.
	SummarizeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "requests_total",
			Help:      "Total number of summarize requests by outcome",
		},
		[]string{"outcome"}, // done | nothing | subscribe | fatal
	)

	// CascadeTierTotal counts which Chapterizer tier resolved the run.
	CascadeTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chapterizer",
			Name:      "tier_total",
			Help:      "Total number of runs resolved at each cascade tier",
		},
		[]string{"tier"}, // hint | multishot_4k | multishot_16k | one_by_one
	)

	// LLMCallDuration observes LlmClient call latency by model tier.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM chat completion latency in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"model"},
	)

	// LLMCallTotal counts LLM calls by model and outcome.
	LLMCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_total",
			Help:      "Total number of LLM calls",
		},
		[]string{"model", "status"},
	)

	// RefineExceptionsTotal counts per-chapter refine failures.
	RefineExceptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refiner",
			Name:      "exceptions_total",
			Help:      "Total number of per-chapter refine exceptions",
		},
	)
)
