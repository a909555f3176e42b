// Package history implements the History Recorder (spec.md §4.4): the sole
// writer of job history entries, wrapping the Storage Gateway's history
// operations.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vodcast/internal/domain"
	"vodcast/internal/repository"
)

// Recorder is the single entry point for history writes. If Enabled is
// false every method is a no-op returning nil, per spec.md §4.4.
type Recorder struct {
	storage repository.Gateway
	enabled bool
}

// New returns a Recorder wrapping storage. enabled mirrors config.history.enabled.
func New(storage repository.Gateway, enabled bool) *Recorder {
	return &Recorder{storage: storage, enabled: enabled}
}

func newHistoryID() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.NewString())
}

// LogFeedUpdateStart writes an entry with status=running and start=now.
func (r *Recorder) LogFeedUpdateStart(ctx context.Context, feedID, feedTitle string, trigger domain.Trigger) (string, error) {
	if !r.enabled {
		return "", nil
	}
	id := newHistoryID()
	entry := &domain.HistoryEntry{
		ID:        id,
		JobType:   domain.JobFeedUpdate,
		FeedID:    feedID,
		FeedTitle: feedTitle,
		StartTime: time.Now(),
		Status:    domain.JobRunning,
		Trigger:   trigger,
	}
	if err := r.storage.PutHistory(ctx, entry); err != nil {
		return "", fmt.Errorf("log feed update start: %w", err)
	}
	return id, nil
}

// LogFeedUpdateEnd sets end=now, duration=end-start, overwrites
// status/stats/error. Mutation preserves identity.
func (r *Recorder) LogFeedUpdateEnd(ctx context.Context, historyID string, status domain.JobStatus, stats domain.Stats, errMsg string) error {
	if !r.enabled || historyID == "" {
		return nil
	}
	err := r.storage.UpdateHistory(ctx, historyID, func(e *domain.HistoryEntry) error {
		now := time.Now()
		e.EndTime = &now
		e.Duration = now.Sub(e.StartTime)
		e.Status = status
		e.Stats = stats
		e.ErrorMessage = errMsg
		return nil
	})
	if err != nil {
		return fmt.Errorf("log feed update end: %w", err)
	}
	return nil
}

// LogFeedUpdateEndWithEpisodes is LogFeedUpdateEnd but first fetches each
// listed episode and attaches {id, title, status, error, size, duration} to
// stats.Episodes. Missing episodes are skipped with a warning, not fatal.
func (r *Recorder) LogFeedUpdateEndWithEpisodes(ctx context.Context, historyID, feedID string, episodeIDs []string, status domain.JobStatus, stats domain.Stats, errMsg string) error {
	if !r.enabled || historyID == "" {
		return nil
	}
	for _, epID := range episodeIDs {
		ep, err := r.storage.GetEpisode(ctx, feedID, epID)
		if err != nil {
			// Missing episode (e.g. reconciled away mid-run): skip, not fatal.
			slog.Warn("history: episode not found, omitted from stats",
				slog.String("feed_id", feedID),
				slog.String("episode_id", epID),
				slog.Any("error", err))
			continue
		}
		stats.Episodes = append(stats.Episodes, domain.EpisodeDetail{
			ID:       ep.EpisodeID,
			Title:    ep.Title,
			Status:   ep.Status,
			Error:    ep.ErrorMessage,
			Size:     ep.Size,
			Duration: ep.Duration,
		})
	}
	return r.LogFeedUpdateEnd(ctx, historyID, status, stats, errMsg)
}

// logEpisodeEvent is the shared implementation of the single-shot
// episode-scoped terminal entries (retry/delete/block).
func (r *Recorder) logEpisodeEvent(ctx context.Context, jobType domain.JobType, feedID, feedTitle, episodeID, episodeTitle string, success bool, errMsg string) error {
	if !r.enabled {
		return nil
	}
	now := time.Now()
	status := domain.JobSuccess
	if !success {
		status = domain.JobFailed
	}
	entry := &domain.HistoryEntry{
		ID:           newHistoryID(),
		JobType:      jobType,
		FeedID:       feedID,
		FeedTitle:    feedTitle,
		EpisodeID:    episodeID,
		EpisodeTitle: episodeTitle,
		StartTime:    now,
		EndTime:      &now,
		Duration:     0,
		Status:       status,
		Trigger:      domain.TriggerManual,
		ErrorMessage: errMsg,
	}
	if err := r.storage.PutHistory(ctx, entry); err != nil {
		return fmt.Errorf("log %s: %w", jobType, err)
	}
	return nil
}

func (r *Recorder) LogEpisodeRetry(ctx context.Context, feedID, feedTitle, episodeID, episodeTitle string, success bool, errMsg string) error {
	return r.logEpisodeEvent(ctx, domain.JobEpisodeRetry, feedID, feedTitle, episodeID, episodeTitle, success, errMsg)
}

func (r *Recorder) LogEpisodeDelete(ctx context.Context, feedID, feedTitle, episodeID, episodeTitle string, success bool, errMsg string) error {
	return r.logEpisodeEvent(ctx, domain.JobEpisodeDelete, feedID, feedTitle, episodeID, episodeTitle, success, errMsg)
}

func (r *Recorder) LogEpisodeBlock(ctx context.Context, feedID, feedTitle, episodeID, episodeTitle string, success bool, errMsg string) error {
	return r.logEpisodeEvent(ctx, domain.JobEpisodeBlock, feedID, feedTitle, episodeID, episodeTitle, success, errMsg)
}

// CleanupOldEntries delegates to Storage.CleanupHistory.
func (r *Recorder) CleanupOldEntries(ctx context.Context, retentionDays, maxEntries int) (int, error) {
	if !r.enabled {
		return 0, nil
	}
	n, err := r.storage.CleanupHistory(ctx, retentionDays, maxEntries)
	if err != nil {
		return 0, fmt.Errorf("cleanup old entries: %w", err)
	}
	return n, nil
}

// List delegates to Storage.ListHistory.
func (r *Recorder) List(ctx context.Context, filters repository.HistoryFilters, page, pageSize int) ([]*domain.HistoryEntry, int, error) {
	return r.storage.ListHistory(ctx, filters, page, pageSize)
}

// Get delegates to Storage.GetHistory.
func (r *Recorder) Get(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	return r.storage.GetHistory(ctx, id)
}

// Delete delegates to Storage.DeleteHistory.
func (r *Recorder) Delete(ctx context.Context, id string) error {
	return r.storage.DeleteHistory(ctx, id)
}

// Stats returns the count of history entries and the oldest entry's start
// time, for GET /history/stats.
func (r *Recorder) Stats(ctx context.Context) (count int, oldest *time.Time, err error) {
	_, total, err := r.storage.ListHistory(ctx, repository.HistoryFilters{}, 1, 1)
	if err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, nil
	}
	// ListHistory is newest-first, so the oldest entry is the last page of
	// size 1: page index == total.
	page, _, err := r.storage.ListHistory(ctx, repository.HistoryFilters{}, total, 1)
	if err != nil {
		return 0, nil, err
	}
	if len(page) == 0 {
		return total, nil, nil
	}
	return total, &page[0].StartTime, nil
}
