package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vodcast/internal/domain"
	"vodcast/internal/repository"
)

func openTestGateway(t *testing.T) *Gateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	g, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestAddFeedInsertIfAbsent(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	feed := &domain.Feed{FeedID: "f1", Title: "Feed One"}
	ep := &domain.Episode{FeedID: "f1", EpisodeID: "e1", Title: "first", Status: domain.StatusNew}
	require.NoError(t, g.AddFeed(ctx, "f1", feed, []*domain.Episode{ep}))

	// Re-add with a mutated episode title; insert-if-absent must not overwrite.
	epMutated := &domain.Episode{FeedID: "f1", EpisodeID: "e1", Title: "changed", Status: domain.StatusDownloaded}
	require.NoError(t, g.AddFeed(ctx, "f1", feed, []*domain.Episode{epMutated}))

	_, episodes, err := g.GetFeed(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "first", episodes[0].Title)
	assert.Equal(t, domain.StatusNew, episodes[0].Status)
}

func TestGetFeedNotFound(t *testing.T) {
	g := openTestGateway(t)
	_, _, err := g.GetFeed(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteFeedRemovesEpisodesKeepsNothingElse(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()
	require.NoError(t, g.AddFeed(ctx, "f1", &domain.Feed{FeedID: "f1"}, []*domain.Episode{
		{FeedID: "f1", EpisodeID: "e1"}, {FeedID: "f1", EpisodeID: "e2"},
	}))
	require.NoError(t, g.DeleteFeed(ctx, "f1"))
	_, _, err := g.GetFeed(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var count int
	require.NoError(t, g.WalkEpisodes(ctx, "f1", func(*domain.Episode) error {
		count++
		return nil
	}))
	assert.Zero(t, count)
}

func TestUpdateEpisodeRejectsIdentityChange(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()
	require.NoError(t, g.AddFeed(ctx, "f1", &domain.Feed{FeedID: "f1"}, []*domain.Episode{
		{FeedID: "f1", EpisodeID: "e1", Status: domain.StatusNew},
	}))
	err := g.UpdateEpisode(ctx, "f1", "e1", false, func(e *domain.Episode) error {
		e.EpisodeID = "e2"
		return nil
	})
	assert.Error(t, err)
}

func TestUpdateEpisodeCreateIfMissing(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()
	err := g.UpdateEpisode(ctx, "f1", "e1", true, func(e *domain.Episode) error {
		e.Status = domain.StatusBlocked
		return nil
	})
	require.NoError(t, err)
	ep, err := g.GetEpisode(ctx, "f1", "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, ep.Status)
}

func TestListHistoryNewestFirstWithPagination(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &domain.HistoryEntry{
			ID:        historyID(base.Add(time.Duration(i) * time.Hour)),
			FeedID:    "f1",
			StartTime: base.Add(time.Duration(i) * time.Hour),
			Status:    domain.JobSuccess,
		}
		require.NoError(t, g.PutHistory(ctx, entry))
	}
	page, total, err := g.ListHistory(ctx, repository.HistoryFilters{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	// newest first: the entry at i=4 sorts after i=0 lexicographically since
	// IDs embed the unix timestamp.
	assert.True(t, page[0].StartTime.After(page[1].StartTime))
}

func TestCleanupHistoryDeleteAll(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.PutHistory(ctx, &domain.HistoryEntry{
			ID:        historyID(time.Now().Add(time.Duration(i) * time.Second)),
			StartTime: time.Now(),
			Status:    domain.JobSuccess,
		}))
	}
	deleted, err := g.CleanupHistory(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	_, total, err := g.ListHistory(ctx, repository.HistoryFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func historyID(t time.Time) string {
	return t.Format("20060102150405.000000000")
}

// TestGetFeedRoundTripsEveryField guards against a silent field drop in the
// JSON encode/decode path (gateway.go marshals domain.Feed/domain.Episode
// straight to bbolt, so a struct-tag typo wouldn't fail any single-field
// assertion but would fail a full-struct diff), the same round-trip check
// the teacher's sqlite/postgres repo tests run with cmp.Diff.
func TestGetFeedRoundTripsEveryField(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	want := &domain.Feed{
		FeedID:       "f1",
		SourceURL:    "https://example.com/channel",
		Provider:     "youtube",
		Title:        "Feed One",
		Description:  "a test feed",
		CoverArtURL:  "https://example.com/art.png",
		Author:       "Example Author",
		Format:       domain.FormatAudio,
		Quality:      domain.QualityHigh,
		MaxHeight:    1080,
		PageSize:     50,
		PlaylistSort: domain.SortDescending,
	}
	wantEpisode := &domain.Episode{
		FeedID:       "f1",
		EpisodeID:    "e1",
		Title:        "first",
		Description:  "an episode",
		Duration:     600,
		PublishedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SourceURL:    "https://example.com/video/e1",
		ThumbnailURL: "https://example.com/thumb/e1.png",
		FileName:     "e1.mp3",
		Size:         12345,
		Status:       domain.StatusDownloaded,
	}
	require.NoError(t, g.AddFeed(ctx, "f1", want, []*domain.Episode{wantEpisode}))

	gotFeed, gotEpisodes, err := g.GetFeed(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, gotEpisodes, 1)

	if diff := cmp.Diff(want, gotFeed); diff != "" {
		t.Errorf("GetFeed() feed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantEpisode, gotEpisodes[0]); diff != "" {
		t.Errorf("GetFeed() episode mismatch (-want +got):\n%s", diff)
	}
}
