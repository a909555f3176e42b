// Package domain holds the core types of the update engine: feeds, episodes,
// history entries, and the volatile progress snapshots, along with the
// sentinel errors every other package wraps and checks against.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kinds enumerated in spec.md §7. Callers use
// errors.Is/errors.As against these; every boundary that produces one wraps
// it with fmt.Errorf("...: %w", err) for context.
var (
	// ErrNotFound indicates a requested feed, episode, or history entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an insert-if-absent write was refused because
	// the record already exists. Internal to the Storage Gateway; never
	// surfaced as a user-facing error.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTooManyRequests is the rate-limit signal from the download driver.
	// It halts further downloads in the current run without failing the job.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrDownloadFailed covers any other download subprocess failure.
	ErrDownloadFailed = errors.New("download failed")

	// ErrStorageError covers a Storage Gateway transactional failure.
	ErrStorageError = errors.New("storage error")

	// ErrConfigError covers a configuration validation failure, fatal at
	// startup and a 4xx at the management API boundary.
	ErrConfigError = errors.New("config error")

	// ErrHookError covers a post-download hook that exited non-zero. Logged,
	// never fails the episode.
	ErrHookError = errors.New("hook error")

	// ErrCleanupError covers an artifact deletion failure during Stage 4
	// that isn't a NotExist. Accumulated, never aborts publication.
	ErrCleanupError = errors.New("cleanup error")
)

// ValidationError carries field-level detail for config and feed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// CleanupFailure is one artifact deletion failure accumulated by Stage 4.
type CleanupFailure struct {
	FeedID    string
	EpisodeID string
	Err       error
}

func (f *CleanupFailure) Error() string {
	return fmt.Sprintf("cleanup %s/%s: %v", f.FeedID, f.EpisodeID, f.Err)
}

func (f *CleanupFailure) Unwrap() error {
	return f.Err
}
