package feedupdate

import (
	"context"
	"errors"
	"sort"

	"vodcast/internal/artifact"
	"vodcast/internal/domain"
)

// cleanup is Stage 4: enforce cleanup.keep_last by deleting the artifact and
// clearing metadata for every downloaded episode past the Nth most recent
// (spec.md §4.6 Stage 4). Per-episode failures are collected into a
// *domain.CleanupFailure chain rather than aborting the pass.
func (u *Updater) cleanup(ctx context.Context, feed *domain.Feed) error {
	if feed.Cleanup.KeepLast <= 0 {
		return nil
	}
	ctx, end := u.startStage(ctx, feed.FeedID, "postprocess")
	defer end()

	var downloaded []*domain.Episode
	err := u.storage.WalkEpisodes(ctx, feed.FeedID, func(ep *domain.Episode) error {
		if ep.Status == domain.StatusDownloaded {
			downloaded = append(downloaded, ep)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(downloaded) <= feed.Cleanup.KeepLast {
		return nil
	}

	sort.Slice(downloaded, func(i, j int) bool {
		return downloaded[i].PublishedAt.After(downloaded[j].PublishedAt)
	})

	var failures []error
	for _, ep := range downloaded[feed.Cleanup.KeepLast:] {
		if delErr := u.artifacts.Delete(ep.ArtifactPath()); delErr != nil && !errors.Is(delErr, artifact.ErrNotExist) {
			failures = append(failures, &domain.CleanupFailure{FeedID: feed.FeedID, EpisodeID: ep.EpisodeID, Err: delErr})
			continue
		}
		epID := ep.EpisodeID
		if updErr := u.storage.UpdateEpisode(ctx, feed.FeedID, epID, false, func(e *domain.Episode) error {
			e.Status = domain.StatusCleaned
			e.Title = ""
			e.Description = ""
			return nil
		}); updErr != nil {
			failures = append(failures, &domain.CleanupFailure{FeedID: feed.FeedID, EpisodeID: epID, Err: updErr})
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return errors.Join(failures...)
}
