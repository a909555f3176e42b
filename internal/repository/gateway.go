// Package repository defines the Storage Gateway (spec.md §4.1): a typed
// wrapper over a durable key-value store with versioned keys, implemented by
// the bolt and postgres subpackages.
package repository

import (
	"context"

	"vodcast/internal/domain"
)

// keyPrefix is the versioned root every key lives under, so the on-disk
// format can evolve without a migration tool.
const keyPrefix = "podsync/v1/"

// Namespace key builders. Exported so backends and tests share one scheme.
func FeedKey(feedID string) string {
	return keyPrefix + "feed/" + feedID
}

func EpisodePrefix(feedID string) string {
	return keyPrefix + "episode/" + feedID + "/"
}

func EpisodeKey(feedID, episodeID string) string {
	return EpisodePrefix(feedID) + episodeID
}

func HistoryKey(historyID string) string {
	return keyPrefix + "history/" + historyID
}

func HistoryFeedIndexPrefix(feedID string) string {
	return keyPrefix + "history_feed/" + feedID + "/"
}

func HistoryFeedIndexKey(feedID, historyID string) string {
	return HistoryFeedIndexPrefix(feedID) + historyID
}

// HistoryFilters narrows ListHistory and is applied in-memory during the
// reverse scan except for FeedID, which selects the feed index.
type HistoryFilters struct {
	FeedID    string
	JobType   domain.JobType
	Status    domain.JobStatus
	Search    string
	StartDate *int64 // unix seconds, inclusive
	EndDate   *int64 // unix seconds, inclusive
}

// EpisodeMutator transforms an episode in place during UpdateEpisode's
// read-modify-write transaction. Returning an error aborts the write.
// Changing FeedID or EpisodeID is rejected by the caller.
type EpisodeMutator func(*domain.Episode) error

// WalkFeedsFunc and WalkEpisodesFunc are prefix-scan callbacks; a returned
// error aborts the scan and is propagated to the caller of Walk*.
type WalkFeedsFunc func(*domain.Feed) error
type WalkEpisodesFunc func(*domain.Episode) error

// Gateway is the Storage Gateway: a typed wrapper over an embedded key-value
// store, implemented by repository/bolt and repository/postgres against the
// same versioned-key scheme (see spec.md §4.1).
type Gateway interface {
	// AddFeed upserts the feed record and appends any supplied episodes
	// using insert-if-absent semantics: existing episode records are never
	// overwritten. Atomic per feed.
	AddFeed(ctx context.Context, feedID string, feed *domain.Feed, episodes []*domain.Episode) error

	// GetFeed returns the feed record plus its complete episode list via a
	// prefix scan. Returns domain.ErrNotFound if the feed does not exist.
	GetFeed(ctx context.Context, feedID string) (*domain.Feed, []*domain.Episode, error)

	// DeleteFeed deletes the feed record and every episode/<feedID>/* key in
	// one transaction. History entries are intentionally retained.
	DeleteFeed(ctx context.Context, feedID string) error

	// WalkFeeds delivers every feed record via a prefix scan.
	WalkFeeds(ctx context.Context, cb WalkFeedsFunc) error

	// WalkEpisodes delivers every episode record of feedID via a prefix scan.
	WalkEpisodes(ctx context.Context, feedID string, cb WalkEpisodesFunc) error

	// GetEpisode returns a single episode record.
	GetEpisode(ctx context.Context, feedID, episodeID string) (*domain.Episode, error)

	// UpdateEpisode performs a read-modify-write in one transaction, running
	// mutate against the current record. Rejects if mutate changes FeedID or
	// EpisodeID. Creates the record if createIfMissing is true and it
	// doesn't yet exist (used by BlockEpisode's stub-record case).
	UpdateEpisode(ctx context.Context, feedID, episodeID string, createIfMissing bool, mutate EpisodeMutator) error

	// DeleteEpisode removes a single episode record.
	DeleteEpisode(ctx context.Context, feedID, episodeID string) error

	// PutHistory inserts a history entry and its feed-scoped index value in
	// one transaction.
	PutHistory(ctx context.Context, entry *domain.HistoryEntry) error

	// GetHistory returns a single history entry.
	GetHistory(ctx context.Context, historyID string) (*domain.HistoryEntry, error)

	// UpdateHistory performs a read-modify-write on a history entry,
	// preserving its ID.
	UpdateHistory(ctx context.Context, historyID string, mutate func(*domain.HistoryEntry) error) error

	// DeleteHistory removes a single history entry and its feed index entry.
	DeleteHistory(ctx context.Context, historyID string) error

	// ListHistory performs a reverse prefix scan (newest first). If
	// filters.FeedID is set, scans the feed index instead of the full
	// history namespace. Returns the requested page plus the total count of
	// matching entries.
	ListHistory(ctx context.Context, filters HistoryFilters, page, pageSize int) ([]*domain.HistoryEntry, int, error)

	// CleanupHistory reverse-scans all history and deletes any entry older
	// than retentionDays, and — after that — any entry beyond the maxEntries
	// newest. (0, 0) deletes all. Returns the number of entries deleted.
	CleanupHistory(ctx context.Context, retentionDays, maxEntries int) (int, error)

	// Close releases the underlying store.
	Close() error
}
