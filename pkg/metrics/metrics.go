// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlhaven_queries_total",
			Help: "Total number of executed statements by dialect and outcome.",
		},
		[]string{"dialect", "status"},
	)

	queryDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlhaven_query_duration_ms",
			Help:    "Backend round-trip latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"dialect"},
	)

	schemaRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlhaven_schema_refresh_total",
			Help: "Total number of schema discovery round trips.",
		},
	)

	injectionRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlhaven_injection_rejections_total",
			Help: "Total number of requests rejected by the parameter injection screen.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationMs,
		schemaRefreshTotal,
		injectionRejectionsTotal,
	)
}

// ObserveQuery records one execution outcome.
func ObserveQuery(dialect string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	queriesTotal.WithLabelValues(dialect, status).Inc()
	queryDurationMs.WithLabelValues(dialect).Observe(float64(elapsed.Milliseconds()))
}

// IncrementSchemaRefresh records one discovery round trip.
func IncrementSchemaRefresh() {
	schemaRefreshTotal.Inc()
}

// IncrementInjectionRejection records a request blocked by the parameter
// screen.
func IncrementInjectionRejection() {
	injectionRejectionsTotal.Inc()
}
