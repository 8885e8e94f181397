// Package observability holds Prometheus collectors and OpenTelemetry setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogspace_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogspace_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostViews counts recorded views of published posts by outcome.
	PostViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogspace_post_views_total",
		Help: "Views recorded against published posts",
	}, []string{"result"})

	// LikeToggles counts like toggles by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogspace_like_toggles_total",
		Help: "Like toggles by resulting state (liked, unliked, raced)",
	}, []string{"result"})

	// LikeCounterDrift counts posts found with a like counter that disagreed with the ledger.
	LikeCounterDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogspace_like_counter_drift_total",
		Help: "Posts whose cached like counter disagreed with the like ledger",
	})

	// ReconcileRuns counts reconciliation passes by trigger.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogspace_reconcile_runs_total",
		Help: "Like counter reconciliation passes by trigger",
	}, []string{"trigger"})

	// CacheLookups counts cache-aside lookups by outcome.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogspace_cache_lookups_total",
		Help: "Cache-aside lookups by outcome (hit, miss)",
	}, []string{"outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
