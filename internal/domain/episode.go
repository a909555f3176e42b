package domain

import (
	"fmt"
	"time"
)

// EpisodeStatus is the closed enumeration of episode lifecycle states (see
// spec.md §3 and §9 "state machine over dynamic status strings").
type EpisodeStatus string

const (
	StatusNew         EpisodeStatus = "new"
	StatusQueued      EpisodeStatus = "queued"
	StatusDownloading EpisodeStatus = "downloading"
	StatusDownloaded  EpisodeStatus = "downloaded"
	StatusError       EpisodeStatus = "error"
	StatusCleaned     EpisodeStatus = "cleaned"
	StatusBlocked     EpisodeStatus = "blocked"
	StatusIgnored     EpisodeStatus = "ignored"
)

// validTransitions enumerates the legal status transitions. A transition not
// listed here (e.g. cleaned -> new) is rejected unless it goes through
// RetryEpisode, which uses ResetForRetry rather than this table.
var validTransitions = map[EpisodeStatus]map[EpisodeStatus]bool{
	StatusNew:         {StatusQueued: true, StatusIgnored: true, StatusBlocked: true, StatusDownloaded: true},
	StatusQueued:      {StatusDownloading: true, StatusDownloaded: true, StatusBlocked: true},
	StatusDownloading: {StatusDownloaded: true, StatusError: true, StatusBlocked: true},
	StatusError:       {StatusQueued: true, StatusBlocked: true, StatusNew: true},
	StatusDownloaded:  {StatusCleaned: true, StatusBlocked: true},
	StatusCleaned:     {StatusBlocked: true},
	StatusBlocked:     {},
	StatusIgnored:     {StatusBlocked: true},
}

// CanTransition reports whether moving from "from" to "to" is a legal
// transition in the episode state machine.
func CanTransition(from, to EpisodeStatus) bool {
	if from == to {
		return true
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// Episode is a single media item belonging to a feed, identified by
// (FeedID, EpisodeID).
type Episode struct {
	FeedID        string        `json:"feed_id"`
	EpisodeID     string        `json:"episode_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Duration      int           `json:"duration"` // seconds
	PublishedAt   time.Time     `json:"published_at"`
	SourceURL     string        `json:"source_url"`
	ThumbnailURL  string        `json:"thumbnail_url,omitempty"`
	FileName      string        `json:"file_name,omitempty"`
	Size          int64         `json:"size,omitempty"` // bytes
	ErrorMessage  string        `json:"error_message,omitempty"`
	Status        EpisodeStatus `json:"status"`
}

// ArtifactPath returns the path under which this episode's media is stored
// in the Artifact Store, "<feed_id>/<episode_file_name>".
func (e *Episode) ArtifactPath() string {
	return fmt.Sprintf("%s/%s", e.FeedID, e.FileName)
}

// IsSticky reports whether the episode's status must be preserved across
// reconciliation with the upstream listing (spec.md glossary: "sticky status").
func (e *Episode) IsSticky() bool {
	return e.Status == StatusBlocked || e.Status == StatusCleaned
}

// ResetForRetry clears error state and returns the episode to "new", the one
// transition the ordinary table forbids (cleaned -> new is otherwise
// illegal; error -> new is already allowed) because RetryEpisode is an explicit, isolated entry point rather
// than a reconciliation side effect.
func (e *Episode) ResetForRetry() {
	e.Status = StatusNew
	e.ErrorMessage = ""
}
