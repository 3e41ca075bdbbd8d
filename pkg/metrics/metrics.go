// Package metrics holds the Prometheus collectors for the narrative engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SuggestionsServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_narrative_suggestions_total",
			Help: "Narrative suggestions returned, by template category",
		},
		[]string{"category"},
	)

	SuggestionScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspection_narrative_suggestion_score",
			Help:    "Scores of returned narrative suggestions",
			Buckets: []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	Applies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_narrative_applies_total",
			Help: "Narratives applied to findings, by apply mode",
		},
		[]string{"mode"},
	)

	UnresolvedRenders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inspection_narrative_unresolved_renders_total",
			Help: "Applied narratives that still contained unresolved placeholders",
		},
	)

	// HTTPRequestDuration is labelled by ServeMux pattern, not raw path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

// Register adds every collector to reg. main passes prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SuggestionsServed,
		SuggestionScore,
		Applies,
		UnresolvedRenders,
		HTTPRequestDuration,
		CacheHits,
		CacheMisses,
	)
}
