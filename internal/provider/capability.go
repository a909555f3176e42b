// Package provider implements the listing adapters spec.md treats as a
// black-box "listing source": one HTTP-backed capability per upstream
// channel host (YouTube, Vimeo, SoundCloud, Twitch), sharing the
// {Build, PlaylistMetadata} capability set from spec.md §10
// ("Provider polymorphism").
package provider

import (
	"context"
	"time"

	"vodcast/internal/domain"
)

// ListingItem is one episode as reported by an upstream channel listing,
// translated into the engine's domain vocabulary ahead of Stage 2 filtering.
type ListingItem struct {
	ID           string
	Title        string
	Description  string
	Duration     int // seconds
	PublishedAt  time.Time
	SourceURL    string
	ThumbnailURL string
}

// FeedSnapshot is the result of resolving a feed's source URL against its
// provider: the channel-level metadata plus its current episode listing,
// bounded to the feed's configured page size.
type FeedSnapshot struct {
	Title       string
	Description string
	Author      string
	CoverArtURL string
	Items       []ListingItem
}

// PlaylistInfo is the lightweight metadata PlaylistMetadata returns for a
// bare URL, used by the management API to pre-fill a new feed's title and
// cover art before the first full Build.
type PlaylistInfo struct {
	Title       string
	Description string
	CoverArtURL string
}

// Capability is the shared interface every provider adapter satisfies. The
// update pipeline's Stage 1 (fetch) depends only on this interface, never on
// a concrete provider type.
type Capability interface {
	// Build resolves sourceURL's current listing, bounded to pageSize items
	// and ordered per sort.
	Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*FeedSnapshot, error)

	// PlaylistMetadata fetches just the channel-level metadata for url,
	// without paging through the episode listing.
	PlaylistMetadata(ctx context.Context, sourceURL string) (*PlaylistInfo, error)
}
