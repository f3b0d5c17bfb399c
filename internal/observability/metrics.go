package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skycam",
		Name:      "captures_total",
		Help:      "Total capture commands dispatched, by schedule and outcome",
	}, []string{"schedule", "status"})

	MeterFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skycam",
		Name:      "meter_failures_total",
		Help:      "Total meter requests that timed out or errored",
	})

	EdgeHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycam",
		Name:      "edge_healthy",
		Help:      "1 while the edge is below the consecutive-failure threshold",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skycam",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one orchestrator tick",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	ActiveSchedules = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycam",
		Name:      "active_schedules",
		Help:      "Number of schedules active at the last tick",
	})

	FusionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skycam",
		Name:      "fusion_duration_seconds",
		Help:      "Duration of one exposure-fusion job",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	FusionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skycam",
		Name:      "fusion_retries_total",
		Help:      "Total fusion merge attempts beyond the first",
	})

	FusionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skycam",
		Name:      "fusion_fallbacks_total",
		Help:      "Fusion jobs that gave up and kept the best single exposure",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycam",
		Name:      "fusion_queue_depth",
		Help:      "Number of pending fusion jobs in the queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skycam",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycam",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket clients",
	})
)
