// Package metrics holds the Prometheus collectors of the summarization service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docsum"

var (
	// SummarizeRequests counts summarize requests.
	// Labels: outcome (success, client_error, server_error)
	SummarizeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarize_requests_total",
			Help:      "Total number of summarize requests by outcome",
		},
		[]string{"outcome"},
	)

	// StageDuration tracks how long each pipeline stage takes.
	// Labels: stage
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// StageFailures counts pipeline failures by the stage that failed.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Total number of pipeline failures by stage",
		},
		[]string{"stage"},
	)

	// ChunksIndexed observes the number of chunks embedded per request.
	ChunksIndexed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_indexed",
			Help:      "Number of chunks embedded per request",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// PromptTokens observes the token count of rendered prompts.
	PromptTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "prompt_tokens",
			Help:      "Token count of rendered prompts",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
	)
)

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Outcome maps an HTTP status to the outcome label.
func Outcome(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "success"
	}
}
