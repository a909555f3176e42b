package feedupdate

import (
	"context"
	"errors"
	"fmt"

	"vodcast/internal/artifact"
	"vodcast/internal/domain"
)

// DeleteEpisode removes an episode's artifact (if any) and its storage
// record, recording one terminal history entry (spec.md §4.6 "Episode-scoped
// operations").
func (u *Updater) DeleteEpisode(ctx context.Context, feedID, episodeID string) error {
	ep, err := u.storage.GetEpisode(ctx, feedID, episodeID)
	if err != nil {
		return fmt.Errorf("get episode: %w", err)
	}

	var opErr error
	if ep.FileName != "" {
		if delErr := u.artifacts.Delete(ep.ArtifactPath()); delErr != nil && !errors.Is(delErr, artifact.ErrNotExist) {
			opErr = fmt.Errorf("delete artifact: %w", delErr)
		}
	}
	if opErr == nil {
		if delErr := u.storage.DeleteEpisode(ctx, feedID, episodeID); delErr != nil {
			opErr = fmt.Errorf("delete episode record: %w", delErr)
		}
	}

	errMsg := ""
	if opErr != nil {
		errMsg = opErr.Error()
	}
	if logErr := u.history.LogEpisodeDelete(ctx, feedID, "", episodeID, ep.Title, opErr == nil, errMsg); logErr != nil {
		return logErr
	}
	return opErr
}

// BlockEpisode marks an episode permanently blocked. If the episode isn't
// yet known (e.g. blocking a future upload preemptively), a stub record is
// created so Stage 1 filters it out of the listing before its first
// download.
func (u *Updater) BlockEpisode(ctx context.Context, feedID, episodeID string) error {
	var title string
	err := u.storage.UpdateEpisode(ctx, feedID, episodeID, true, func(e *domain.Episode) error {
		if e.FeedID == "" {
			e.FeedID = feedID
			e.EpisodeID = episodeID
		}
		e.Status = domain.StatusBlocked
		title = e.Title
		return nil
	})

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if logErr := u.history.LogEpisodeBlock(ctx, feedID, "", episodeID, title, err == nil, errMsg); logErr != nil {
		return logErr
	}
	return err
}

// RetryEpisode resets an episode to status=new and re-runs the Stage 3
// download subroutine for it alone, then rebuilds the feed document
// (spec.md §4.6 "Episode-scoped operations").
func (u *Updater) RetryEpisode(ctx context.Context, feed *domain.Feed, episodeID string) error {
	ep, err := u.storage.GetEpisode(ctx, feed.FeedID, episodeID)
	if err != nil {
		return fmt.Errorf("get episode: %w", err)
	}
	ep.ResetForRetry()
	if err := u.storage.UpdateEpisode(ctx, feed.FeedID, episodeID, false, func(e *domain.Episode) error {
		e.ResetForRetry()
		return nil
	}); err != nil {
		return fmt.Errorf("reset episode for retry: %w", err)
	}

	var stats domain.Stats
	_, dlErr := u.downloadOne(ctx, feed, ep, &stats)

	errMsg := ""
	success := dlErr == nil && stats.Failed == 0
	if dlErr != nil {
		errMsg = dlErr.Error()
	} else if stats.Failed > 0 {
		errMsg = ep.ErrorMessage
	}
	if logErr := u.history.LogEpisodeRetry(ctx, feed.FeedID, feed.Title, episodeID, ep.Title, success, errMsg); logErr != nil {
		return logErr
	}
	if dlErr != nil {
		return dlErr
	}

	return u.publish(ctx, feed)
}
