package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordFeedUpdate(t *testing.T) {
	tests := []struct {
		name     string
		feedID   string
		duration time.Duration
		err      error
	}{
		{name: "success", feedID: "feed-1", duration: 2 * time.Second, err: nil},
		{name: "error", feedID: "feed-2", duration: 500 * time.Millisecond, err: errors.New("fetch failed")},
		{name: "zero duration", feedID: "feed-3", duration: 0, err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedUpdate(tt.feedID, tt.duration, tt.err)
			})
		})
	}
}

func TestRecordStageError(t *testing.T) {
	for _, stage := range []string{"fetch", "reconcile", "filter", "download", "postprocess", "publish"} {
		t.Run(stage, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordStageError(stage)
			})
		})
	}
}

func TestRecordEpisodesDiscovered(t *testing.T) {
	tests := []struct {
		name   string
		feedID string
		count  int
	}{
		{name: "new episodes", feedID: "feed-1", count: 3},
		{name: "none discovered", feedID: "feed-2", count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordEpisodesDiscovered(tt.feedID, tt.count)
			})
		})
	}
}

func TestRecordEpisodePublished(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordEpisodePublished("feed-1")
	})
}

func TestRecordQueueDropped(t *testing.T) {
	for _, reason := range []string{"queue_full", "overlapping_run"} {
		t.Run(reason, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordQueueDropped(reason)
			})
		})
	}
}

func TestUpdateFeedsTotal(t *testing.T) {
	for _, count := range []int{0, 10, 1000} {
		assert.NotPanics(t, func() {
			UpdateFeedsTotal(count)
		})
	}
}

func TestUpdateQueueDepth(t *testing.T) {
	for _, depth := range []int{0, 5, 16} {
		assert.NotPanics(t, func() {
			UpdateQueueDepth(depth)
		})
	}
}

func TestRecordDownloadStartAndComplete(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		duration time.Duration
		bytes    int64
		err      error
	}{
		{name: "success", provider: "youtube", duration: 10 * time.Second, bytes: 1024 * 1024, err: nil},
		{name: "error", provider: "vimeo", duration: 3 * time.Second, bytes: 0, err: errors.New("429 too many requests")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDownloadStart()
				RecordDownloadComplete(tt.provider, tt.duration, tt.bytes, tt.err)
			})
		})
	}
}

func TestRecordDownloadThroughput(t *testing.T) {
	for _, bps := range []float64{0, 1024, 10485760} {
		assert.NotPanics(t, func() {
			RecordDownloadThroughput(bps)
		})
	}
}

func TestRecordDownloadRetry(t *testing.T) {
	tests := []struct {
		provider string
		reason   string
	}{
		{provider: "youtube", reason: "too_many_requests"},
		{provider: "soundcloud", reason: "transient_error"},
	}

	for _, tt := range tests {
		assert.NotPanics(t, func() {
			RecordDownloadRetry(tt.provider, tt.reason)
		})
	}
}

func TestUpdateProgressTrackerSize(t *testing.T) {
	for _, size := range []int{0, 1, 16} {
		assert.NotPanics(t, func() {
			UpdateProgressTrackerSize(size)
		})
	}
}

func TestUpdateProgressStreamClients(t *testing.T) {
	for _, count := range []int{0, 1, 5} {
		assert.NotPanics(t, func() {
			UpdateProgressStreamClients(count)
		})
	}
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
	}{
		{name: "get feed", operation: "get_feed", duration: 10 * time.Millisecond},
		{name: "put episode", operation: "put_episode", duration: 5 * time.Millisecond},
		{name: "slow scan", operation: "list_history", duration: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDBQuery(tt.operation, tt.duration)
			})
		})
	}
}

func TestUpdateDBConnectionStats(t *testing.T) {
	tests := []struct {
		name   string
		active int
		idle   int
	}{
		{name: "no connections", active: 0, idle: 0},
		{name: "some active", active: 5, idle: 10},
		{name: "all active", active: 25, idle: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				UpdateDBConnectionStats(tt.active, tt.idle)
			})
		})
	}
}

func TestMetricsFunctions_AllCallable(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordFeedUpdate("feed-1", time.Second, nil)
		RecordStageError("download")
		RecordEpisodesDiscovered("feed-1", 2)
		RecordEpisodePublished("feed-1")
		RecordQueueDropped("queue_full")
		UpdateFeedsTotal(10)
		UpdateQueueDepth(3)
		RecordDownloadStart()
		RecordDownloadComplete("youtube", 5*time.Second, 2048, nil)
		RecordDownloadThroughput(4096)
		RecordDownloadRetry("youtube", "too_many_requests")
		UpdateProgressTrackerSize(2)
		UpdateProgressStreamClients(1)
		RecordDBQuery("get_feed", 10*time.Millisecond)
		UpdateDBConnectionStats(5, 10)
	})
}
