// Package metrics exposes Prometheus collectors for the HTTP surface
// and the blob store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbis_http_requests_total",
			Help: "Total number of HTTP requests handled, by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks request latency in seconds by route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbis_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// BlobOperationsTotal counts blob store operations by kind and
	// outcome ("ok" or "error").
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbis_blobstore_operations_total",
			Help: "Total number of blob store operations, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)
