// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Scheduler and pipeline metrics track the feed update engine's own work
var (
	// FeedsTotal tracks the number of configured feeds.
	FeedsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeds_total",
			Help: "Total number of configured feeds",
		},
	)

	// QueueDepth tracks the number of pending update jobs waiting on the
	// scheduler's bounded queue.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Number of update jobs waiting in the scheduler queue",
		},
	)

	// QueueDroppedTotal counts update jobs dropped because the queue was full
	// or a fire overlapped with a run already in flight for that feed.
	QueueDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_queue_dropped_total",
			Help: "Total number of update jobs dropped by the scheduler",
		},
		[]string{"reason"}, // reason: queue_full, overlapping_run
	)

	// FeedUpdateDuration measures the wall-clock time of a full feed update
	// pipeline run (fetch through publish).
	FeedUpdateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_update_duration_seconds",
			Help:    "Time taken to run the update pipeline for a feed",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"feed_id", "status"}, // status: success, error
	)

	// FeedUpdateStageErrors counts errors by pipeline stage.
	FeedUpdateStageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_update_stage_errors_total",
			Help: "Total number of pipeline stage errors",
		},
		[]string{"stage"}, // fetch, reconcile, filter, download, postprocess, publish
	)

	// EpisodesDiscoveredTotal counts episodes discovered during reconcile.
	EpisodesDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "episodes_discovered_total",
			Help: "Total number of new episodes discovered during reconcile",
		},
		[]string{"feed_id"},
	)

	// EpisodesPublishedTotal counts episodes that completed the pipeline.
	EpisodesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "episodes_published_total",
			Help: "Total number of episodes published to the feed",
		},
		[]string{"feed_id"},
	)
)

// Download driver metrics track subprocess download throughput
var (
	// DownloadsActive tracks downloads currently in flight.
	DownloadsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "downloads_active",
			Help: "Number of downloads currently in progress",
		},
	)

	// DownloadDuration measures the time a single episode download takes.
	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "download_duration_seconds",
			Help:    "Time taken to download a single episode",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"provider", "status"},
	)

	// DownloadBytesTotal counts total bytes downloaded.
	DownloadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_bytes_total",
			Help: "Total bytes downloaded",
		},
		[]string{"provider"},
	)

	// DownloadThroughputBytesPerSecond observes the instantaneous download
	// rate reported by the downloader's progress-line parser.
	DownloadThroughputBytesPerSecond = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "download_throughput_bytes_per_second",
			Help:    "Observed download throughput in bytes per second",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// DownloadRetriesTotal counts retry attempts by reason.
	DownloadRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_retries_total",
			Help: "Total number of download retry attempts",
		},
		[]string{"provider", "reason"}, // reason: too_many_requests, transient_error
	)

	// ProgressTrackerSize tracks the number of in-flight downloads currently
	// held by the in-process progress tracker.
	ProgressTrackerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_tracker_size",
			Help: "Number of downloads currently tracked by the progress tracker",
		},
	)

	// ProgressStreamClients tracks active SSE progress-stream subscribers.
	ProgressStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_stream_clients",
			Help: "Number of clients subscribed to the SSE progress stream",
		},
	)
)

// Database metrics track storage gateway performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named storage operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
