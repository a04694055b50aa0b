package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query results recorded by CatalogQueries.
const (
	ResultFound   = "found"
	ResultEmpty   = "empty"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	// CatalogQueries counts catalog operations by operation and result.
	CatalogQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Total number of catalog queries by operation and result",
		},
		[]string{"operation", "result"},
	)

	// CatalogQueryDuration observes how long each storage round-trip takes.
	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Duration of catalog storage queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// ResultFor classifies the outcome of a query.
func ResultFor(count int, err error) string {
	switch {
	case err != nil:
		return ResultError
	case count == 0:
		return ResultEmpty
	default:
		return ResultFound
	}
}
