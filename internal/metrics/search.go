package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search-layer Prometheus metrics.
var (
	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crmsearch",
			Name:      "cache_total",
			Help:      "Semantic cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	BackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crmsearch",
			Name:      "backend_errors_total",
			Help:      "Per-entity-type backend failures",
		},
		[]string{"entity_type"},
	)

	QueryExpansionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crmsearch",
			Name:      "query_expansions_total",
			Help:      "Additional query variants produced by expansion",
		},
	)

	GraphRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crmsearch",
			Name:      "graph_rebuild_duration_seconds",
			Help:      "Relationship graph rebuild duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)
)

// RegisterSearchMetrics registers the search-layer collectors explicitly
// (no init()) so the composition root controls registration order.
func RegisterSearchMetrics() {
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(BackendErrorsTotal)
	prometheus.MustRegister(QueryExpansionsTotal)
	prometheus.MustRegister(GraphRebuildDuration)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
}
