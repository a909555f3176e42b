package domain

import "time"

// Stage is where an episode is within the download pipeline, used by the
// Progress Tracker and reported over the live event stream.
type Stage string

const (
	StageDownloading Stage = "downloading"
	StageEncoding    Stage = "encoding"
	StageSaving      Stage = "saving"
)

// EpisodeProgress is a volatile snapshot of one episode's download progress.
// It exists only while that episode is mid-pipeline (see spec.md §4.3).
type EpisodeProgress struct {
	FeedID          string    `json:"feed_id"`
	EpisodeID       string    `json:"episode_id"`
	Title           string    `json:"title"`
	Stage           Stage     `json:"stage"`
	Percent         float64   `json:"percent"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	TotalBytes      int64     `json:"total_bytes"`
	Speed           string    `json:"speed"`
	StartedAt       time.Time `json:"started_at"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}

// FeedProgress is a volatile snapshot of a feed-wide update run. It exists
// only while a feed_update job is running.
type FeedProgress struct {
	FeedID             string    `json:"feed_id"`
	TotalEpisodes      int       `json:"total_episodes"`
	CompletedCount     int       `json:"completed_count"`
	DownloadingCount   int       `json:"downloading_count"`
	QueuedCount        int       `json:"queued_count"`
	OverallPercent     float64   `json:"overall_percent"`
	StartedAt          time.Time `json:"started_at"`
}
