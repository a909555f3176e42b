package feedupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vodcast/internal/domain"
	"vodcast/internal/observability/metrics"
)

// download is Stage 3: download every selected candidate in order, probing
// the artifact store first for idempotent re-entry, halting (without
// failing) on the first TooManyRequests signal (spec.md §4.6 Stage 3).
func (u *Updater) download(ctx context.Context, feed *domain.Feed, candidates []*domain.Episode) (domain.Stats, error) {
	ctx, end := u.startStage(ctx, feed.FeedID, "download")
	defer end()

	stats := domain.Stats{Queued: len(candidates)}
	if len(candidates) == 0 {
		return stats, nil
	}

	u.tracker.InitFeedProgress(feed.FeedID, len(candidates))
	defer u.tracker.ClearFeed(feed.FeedID)

	for _, ep := range candidates {
		if err := u.storage.UpdateEpisode(ctx, feed.FeedID, ep.EpisodeID, false, func(e *domain.Episode) error {
			e.Status = domain.StatusQueued
			return nil
		}); err != nil {
			return stats, fmt.Errorf("mark queued %s: %w", ep.EpisodeID, err)
		}
	}
	u.tracker.QueueEpisodes(feed.FeedID, len(candidates))

	for _, ep := range candidates {
		halted, err := u.downloadOne(ctx, feed, ep, &stats)
		if err != nil {
			return stats, err
		}
		if halted {
			break
		}
	}

	return stats, nil
}

// downloadOne runs the per-episode download subroutine shared by Stage 3
// and RetryEpisode. The returned bool reports whether a TooManyRequests
// signal means the caller should stop processing further candidates.
func (u *Updater) downloadOne(ctx context.Context, feed *domain.Feed, ep *domain.Episode, stats *domain.Stats) (bool, error) {
	// The idempotent pre-probe only matters when ep.FileName already
	// survives from a prior run (e.g. a re-entrant retry after a crash
	// between a successful write and the status update that follows it); a
	// brand-new episode has no file name yet, so it always falls through to
	// a real download.
	if ep.FileName != "" {
		if size, err := u.artifacts.Size(ep.ArtifactPath()); err == nil {
			if updErr := u.storage.UpdateEpisode(ctx, feed.FeedID, ep.EpisodeID, false, func(e *domain.Episode) error {
				e.Size = size
				e.Status = domain.StatusDownloaded
				return nil
			}); updErr != nil {
				return false, fmt.Errorf("mark already-downloaded %s: %w", ep.EpisodeID, updErr)
			}
			ep.Size = size
			ep.Status = domain.StatusDownloaded
			stats.Downloaded++
			return false, nil
		}
	}

	if err := u.storage.UpdateEpisode(ctx, feed.FeedID, ep.EpisodeID, false, func(e *domain.Episode) error {
		e.Status = domain.StatusDownloading
		return nil
	}); err != nil {
		return false, fmt.Errorf("mark downloading %s: %w", ep.EpisodeID, err)
	}
	u.tracker.StartEpisode(feed.FeedID, ep.EpisodeID, ep.Title)

	start := time.Now()
	cb := func(stage domain.Stage, percent float64, downloaded, total int64, speed string) {
		u.tracker.UpdateEpisode(feed.FeedID, ep.EpisodeID, stage, percent, downloaded, total, speed)
	}
	metrics.RecordDownloadStart()
	rc, dlErr := u.driver.Download(ctx, feed, ep, cb)
	metrics.RecordDownloadComplete(feed.Provider, time.Since(start), ep.Size, dlErr)

	if dlErr != nil {
		u.tracker.CompleteEpisode(feed.FeedID, ep.EpisodeID)
		if errors.Is(dlErr, domain.ErrTooManyRequests) {
			slog.Warn("download halted by rate limit", slog.String("feed_id", feed.FeedID), slog.String("episode_id", ep.EpisodeID))
			return true, nil
		}
		if updErr := u.storage.UpdateEpisode(ctx, feed.FeedID, ep.EpisodeID, false, func(e *domain.Episode) error {
			e.Status = domain.StatusError
			e.ErrorMessage = dlErr.Error()
			return nil
		}); updErr != nil {
			return false, fmt.Errorf("mark error %s: %w", ep.EpisodeID, updErr)
		}
		stats.Failed++
		return false, nil
	}
	defer rc.Close()

	// ep.FileName is set by the driver only once it knows the actual
	// downloaded extension, so the write path can only be built now.
	size, writeErr := u.artifacts.Create(ep.ArtifactPath(), rc)
	if writeErr != nil {
		u.tracker.CompleteEpisode(feed.FeedID, ep.EpisodeID)
		if updErr := u.storage.UpdateEpisode(ctx, feed.FeedID, ep.EpisodeID, false, func(e *domain.Episode) error {
			e.Status = domain.StatusError
			e.ErrorMessage = writeErr.Error()
			return nil
		}); updErr != nil {
			return false, fmt.Errorf("mark error %s: %w", ep.EpisodeID, updErr)
		}
		stats.Failed++
		return false, nil
	}

	u.hookRun.Run(ctx, feed.FeedID, ep)

	if err := u.storage.UpdateEpisode(ctx, feed.FeedID, ep.EpisodeID, false, func(e *domain.Episode) error {
		e.Status = domain.StatusDownloaded
		e.FileName = ep.FileName
		e.Size = size
		return nil
	}); err != nil {
		return false, fmt.Errorf("mark downloaded %s: %w", ep.EpisodeID, err)
	}
	ep.Status = domain.StatusDownloaded
	ep.Size = size
	u.tracker.CompleteEpisode(feed.FeedID, ep.EpisodeID)
	metrics.RecordEpisodePublished(feed.FeedID)
	stats.Downloaded++
	stats.BytesDownloaded += size
	return false, nil
}
