package domain

import "time"

// JobType enumerates the kinds of jobs the History Recorder logs.
type JobType string

const (
	JobFeedUpdate   JobType = "feed_update"
	JobEpisodeRetry JobType = "episode_retry"
	JobEpisodeDelete JobType = "episode_delete"
	JobEpisodeBlock JobType = "episode_block"
)

// JobStatus is the terminal (or running) outcome of a history entry.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
	JobPartial JobStatus = "partial"
)

// Trigger distinguishes a scheduler-initiated run from a user-initiated one.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// EpisodeDetail is a per-episode outcome snapshot captured at job end,
// attached to a feed_update history entry's Stats.Episodes.
type EpisodeDetail struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Status   EpisodeStatus `json:"status"`
	Error    string        `json:"error,omitempty"`
	Size     int64         `json:"size"`
	Duration int           `json:"duration"`
}

// Stats is the statistics block attached to a feed_update history entry.
type Stats struct {
	Queued         int             `json:"queued"`
	Downloaded     int             `json:"downloaded"`
	Failed         int             `json:"failed"`
	Ignored        int             `json:"ignored"`
	BytesDownloaded int64          `json:"bytes_downloaded"`
	Episodes       []EpisodeDetail `json:"episodes,omitempty"`
}

// HistoryEntry is an append-only record of one job run. Identity is an ID of
// form "<unix_seconds>-<uuid>" so lexicographic order equals chronological
// order (see spec.md §3).
type HistoryEntry struct {
	ID           string     `json:"id"`
	JobType      JobType    `json:"job_type"`
	FeedID       string     `json:"feed_id"`
	FeedTitle    string     `json:"feed_title"`
	EpisodeID    string     `json:"episode_id,omitempty"`
	EpisodeTitle string     `json:"episode_title,omitempty"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Duration     time.Duration `json:"duration"`
	Status       JobStatus  `json:"status"`
	Trigger      Trigger    `json:"trigger"`
	Stats        Stats      `json:"stats"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// IsTerminal reports whether the entry has reached a final status.
func (h *HistoryEntry) IsTerminal() bool {
	return h.Status == JobSuccess || h.Status == JobFailed || h.Status == JobPartial
}
