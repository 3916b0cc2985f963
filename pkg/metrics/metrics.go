package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClientRequests counts API calls issued by the client by method and outcome (2xx|4xx|5xx|network|parse).
	ClientRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankline_client_requests_total",
			Help: "Total number of API requests issued by the client",
		},
		[]string{"method", "outcome"},
	)

	// CacheLookups counts response cache lookups by result (hit|miss|bypass).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankline_client_cache_lookups_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"result"},
	)

	// CacheInvalidations counts entries removed by invalidation calls.
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankline_client_cache_invalidated_entries_total",
			Help: "Total number of cache entries removed by invalidation",
		},
	)

	// InFlight mirrors the loading counter.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bankline_client_requests_in_flight",
			Help: "Number of tracked requests currently in flight",
		},
	)

	// VersionChecks counts version-diff checks by result (changed|unchanged|failed_open).
	VersionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankline_client_version_checks_total",
			Help: "Total number of version-diff checks",
		},
		[]string{"result"},
	)

	// StubLatency measures stub backend request latencies.
	StubLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bankline_stub_http_latency_seconds",
			Help:    "Stub backend endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// StubStreamClients tracks connected change-stream subscribers on the stub backend.
	StubStreamClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bankline_stub_stream_clients",
			Help: "Number of connected change stream clients",
		},
		[]string{"transport"},
	)
)
