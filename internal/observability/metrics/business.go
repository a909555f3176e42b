package metrics

import "time"

// RecordFeedUpdate records the result of a single feed update pipeline run.
func RecordFeedUpdate(feedID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	FeedUpdateDuration.WithLabelValues(feedID, status).Observe(duration.Seconds())
}

// RecordStageError records a pipeline stage failure by stage name
// ("fetch", "reconcile", "filter", "download", "postprocess", "publish").
func RecordStageError(stage string) {
	FeedUpdateStageErrors.WithLabelValues(stage).Inc()
}

// RecordEpisodesDiscovered records the number of new episodes a reconcile
// pass found for a feed.
func RecordEpisodesDiscovered(feedID string, count int) {
	if count > 0 {
		EpisodesDiscoveredTotal.WithLabelValues(feedID).Add(float64(count))
	}
}

// RecordEpisodePublished records a single episode completing the pipeline
// and being written into the feed.
func RecordEpisodePublished(feedID string) {
	EpisodesPublishedTotal.WithLabelValues(feedID).Inc()
}

// RecordQueueDropped records a job the scheduler could not enqueue or run,
// tagged by reason ("queue_full" or "overlapping_run").
func RecordQueueDropped(reason string) {
	QueueDroppedTotal.WithLabelValues(reason).Inc()
}

// UpdateFeedsTotal updates the gauge tracking configured feed count.
func UpdateFeedsTotal(count int) {
	FeedsTotal.Set(float64(count))
}

// UpdateQueueDepth updates the gauge tracking pending scheduler jobs.
func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// RecordDownloadStart marks a download as started.
func RecordDownloadStart() {
	DownloadsActive.Inc()
}

// RecordDownloadComplete records the outcome of a single episode download.
func RecordDownloadComplete(provider string, duration time.Duration, bytes int64, err error) {
	DownloadsActive.Dec()
	status := "success"
	if err != nil {
		status = "error"
	}
	DownloadDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	if bytes > 0 {
		DownloadBytesTotal.WithLabelValues(provider).Add(float64(bytes))
	}
}

// RecordDownloadThroughput observes an instantaneous throughput sample
// parsed from the download driver's progress output.
func RecordDownloadThroughput(bytesPerSecond float64) {
	if bytesPerSecond > 0 {
		DownloadThroughputBytesPerSecond.Observe(bytesPerSecond)
	}
}

// RecordDownloadRetry records a retry attempt by provider and reason
// ("too_many_requests" or "transient_error").
func RecordDownloadRetry(provider, reason string) {
	DownloadRetriesTotal.WithLabelValues(provider, reason).Inc()
}

// UpdateProgressTrackerSize updates the gauge tracking how many downloads
// the in-process progress tracker currently holds.
func UpdateProgressTrackerSize(size int) {
	ProgressTrackerSize.Set(float64(size))
}

// UpdateProgressStreamClients updates the gauge tracking active SSE
// progress-stream subscribers.
func UpdateProgressStreamClients(count int) {
	ProgressStreamClients.Set(float64(count))
}

// RecordDBQuery records the duration of a storage gateway operation.
// Operation should describe the query type (e.g., "get_feed", "put_episode").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
