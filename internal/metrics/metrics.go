// Package metrics holds the Prometheus collectors for reference acquisition
// and collaborator calls. Collectors register with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_writer_fetches_total",
			Help: "Total number of reference fetches by outcome",
		},
		[]string{"outcome", "content_kind"},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_writer_fetch_failures_total",
			Help: "Total number of failed reference fetches by failure kind",
		},
		[]string{"kind"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paper_writer_fetch_duration_seconds",
			Help:    "Reference fetch duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"content_kind"},
	)

	NormalizedChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paper_writer_normalized_chars",
			Help:    "Length of normalized reference text in characters",
			Buckets: []float64{0, 100, 1000, 5000, 10000, 25000, 50000},
		},
	)

	// Collaborator metrics
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_writer_collaborator_calls_total",
			Help: "Total number of text generation and search calls",
		},
		[]string{"collaborator", "status"},
	)

	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paper_writer_collaborator_duration_seconds",
			Help:    "Collaborator call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collaborator"},
	)

	// Run metrics
	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_writer_runs_completed_total",
			Help: "Total number of document runs by status",
		},
		[]string{"status"},
	)
)

// RecordCollaborator counts one collaborator call and observes its duration.
func RecordCollaborator(name string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CollaboratorCalls.WithLabelValues(name, status).Inc()
	CollaboratorDuration.WithLabelValues(name).Observe(seconds)
}
