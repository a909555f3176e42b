package feedupdate

import (
	"bytes"
	"context"
	"fmt"

	"vodcast/internal/domain"
)

const opmlArtifactPath = "podsync.opml"

// publish is Stage 5: render the feed document from the stored feed plus
// its current episodes, and the combined OPML across every feed flagged
// for inclusion (spec.md §4.6 Stage 5).
func (u *Updater) publish(ctx context.Context, feed *domain.Feed) error {
	ctx, end := u.startStage(ctx, feed.FeedID, "publish")
	defer end()

	storedFeed, episodes, err := u.storage.GetFeed(ctx, feed.FeedID)
	if err != nil {
		return fmt.Errorf("get feed for publish: %w", err)
	}

	body, err := u.renderer.RenderFeed(storedFeed, episodes)
	if err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	if _, err := u.artifacts.Create(feed.FeedID+".xml", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("write feed document: %w", err)
	}

	return u.publishOPML(ctx)
}

// publishOPML rebuilds podsync.opml from every currently configured feed.
// Called after every feed's publish step rather than once globally, since
// the pipeline has no separate "all feeds" phase (spec.md §4.6 Stage 5).
func (u *Updater) publishOPML(ctx context.Context) error {
	var feeds []*domain.Feed
	err := u.storage.WalkFeeds(ctx, func(f *domain.Feed) error {
		feeds = append(feeds, f)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk feeds for opml: %w", err)
	}

	body, err := u.renderer.RenderOPML(feeds)
	if err != nil {
		return fmt.Errorf("render opml: %w", err)
	}
	if _, err := u.artifacts.Create(opmlArtifactPath, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("write opml document: %w", err)
	}
	return nil
}
