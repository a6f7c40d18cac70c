package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ability dispatch Prometheus metrics.
var (
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abilityd",
			Name:      "dispatch_total",
			Help:      "Total number of ability dispatches",
		},
		[]string{"ability", "outcome"}, // "ok" / "invalid" / "not_found" / "error"
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "abilityd",
			Name:      "dispatch_duration_seconds",
			Help:      "Ability execution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"ability"},
	)

	SearchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "abilityd",
			Name:      "search_retries_total",
			Help:      "Total number of search query retries",
		},
	)

	SearchFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abilityd",
			Name:      "search_fallbacks_total",
			Help:      "Total number of fallback recommendation queries",
		},
		[]string{"outcome"}, // "ok" / "exhausted"
	)
)

var abilityMetricsRegistered bool

// RegisterAbilityMetrics registers dispatch and search metrics. Must be
// called once from main.
func RegisterAbilityMetrics() {
	if abilityMetricsRegistered {
		return
	}
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(SearchRetriesTotal)
	prometheus.MustRegister(SearchFallbacksTotal)
	abilityMetricsRegistered = true
}
