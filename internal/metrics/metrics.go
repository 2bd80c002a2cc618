package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis pass metrics
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_analysis_passes_total",
			Help: "Total number of analysis passes",
		},
		[]string{"source", "customer", "result"},
	)

	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilot_analysis_pass_duration_seconds",
			Help:    "Duration of a full analysis pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"source"},
	)

	EventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_events_fetched_total",
			Help: "Candidate events fetched from the event store",
		},
		[]string{"source", "customer"},
	)

	EventsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_events_excluded_total",
			Help: "Suspicious events suppressed by exclusion rules",
		},
		[]string{"source", "customer"},
	)

	// Case metrics
	CasesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_cases_created_total",
			Help: "Cases opened by the pipeline",
		},
		[]string{"source", "customer"},
	)

	CasesUpdated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_cases_updated_total",
			Help: "Existing cases updated with new assets",
		},
		[]string{"source", "customer"},
	)

	CaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_case_failures_total",
			Help: "Suspicious events that could not be turned into cases",
		},
		[]string{"source", "customer"},
	)

	// Marker metrics
	MarkerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copilot_marker_failures_total",
			Help: "Idempotency marker writes that did not land",
		},
	)
)
