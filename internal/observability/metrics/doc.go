// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Scheduler and pipeline metrics (queue depth, job duration, stage errors)
//   - Download driver metrics (bytes/sec, active downloads, progress tracker size)
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "vodcast/internal/observability/metrics"
//
//	func updateFeed(feedID string) {
//	    start := time.Now()
//	    // ... run the update pipeline ...
//	    metrics.RecordFeedUpdate(feedID, time.Since(start), nil)
//	}
package metrics
