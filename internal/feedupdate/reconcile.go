package feedupdate

import (
	"context"
	"fmt"

	"vodcast/internal/domain"
	"vodcast/internal/observability/metrics"
	"vodcast/internal/provider"
)

// reconcile is Stage 1: fetch the upstream listing, then reconcile it
// against the stored episode set (spec.md §4.6 Stage 1).
func (u *Updater) reconcile(ctx context.Context, feed *domain.Feed) error {
	ctx, end := u.startStage(ctx, feed.FeedID, "fetch")
	defer end()

	adapter, err := u.providers.Resolve(feed.Provider)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", feed.Provider, ErrUnknownProvider, err)
	}
	snapshot, err := adapter.Build(ctx, feed.SourceURL, feed.PageSize, feed.PlaylistSort)
	if err != nil {
		return fmt.Errorf("build listing: %w", err)
	}

	_, stored, err := u.storage.GetFeed(ctx, feed.FeedID)
	if err != nil && err != domain.ErrNotFound {
		return fmt.Errorf("get stored feed: %w", err)
	}

	blockedIDs := make(map[string]bool)
	pendingIDs := make(map[string]bool)
	existingIDs := make(map[string]bool, len(stored))
	for _, ep := range stored {
		existingIDs[ep.EpisodeID] = true
		switch {
		case ep.IsSticky():
			blockedIDs[ep.EpisodeID] = true
		case ep.Status == domain.StatusNew || ep.Status == domain.StatusError:
			pendingIDs[ep.EpisodeID] = true
		}
	}

	fetched := make([]*domain.Episode, 0, len(snapshot.Items))
	seenInListing := make(map[string]bool, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if blockedIDs[item.ID] {
			continue
		}
		seenInListing[item.ID] = true
		fetched = append(fetched, listingItemToEpisode(feed.FeedID, item))
	}

	if err := u.storage.AddFeed(ctx, feed.FeedID, feed, fetched); err != nil {
		return fmt.Errorf("add feed: %w", err)
	}

	for id := range pendingIDs {
		if seenInListing[id] {
			continue
		}
		// The upstream listing no longer contains this "new"/"error"
		// episode: garbage-collect the stale record.
		if err := u.storage.DeleteEpisode(ctx, feed.FeedID, id); err != nil && err != domain.ErrNotFound {
			return fmt.Errorf("delete stale episode %s: %w", id, err)
		}
	}

	discovered := 0
	for _, ep := range fetched {
		if !existingIDs[ep.EpisodeID] {
			discovered++
		}
	}
	metrics.RecordEpisodesDiscovered(feed.FeedID, discovered)

	return nil
}

func listingItemToEpisode(feedID string, item provider.ListingItem) *domain.Episode {
	return &domain.Episode{
		FeedID:       feedID,
		EpisodeID:    item.ID,
		Title:        item.Title,
		Description:  item.Description,
		Duration:     item.Duration,
		PublishedAt:  item.PublishedAt,
		SourceURL:    item.SourceURL,
		ThumbnailURL: item.ThumbnailURL,
		Status:       domain.StatusNew,
	}
}
