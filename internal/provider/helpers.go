package provider

import (
	"sort"
	"strings"

	"vodcast/internal/domain"
)

// defaultPageSize bounds a listing fetch when the feed config leaves
// PageSize unset or non-positive.
const defaultPageSize = 50

// maxPageSize is the hard ceiling regardless of what a feed config requests,
// protecting the upstream APIs (and our own rate limits) from a
// misconfigured feed asking for an unbounded listing.
const maxPageSize = 200

func clampPageSize(requested int) int {
	switch {
	case requested <= 0:
		return defaultPageSize
	case requested > maxPageSize:
		return maxPageSize
	default:
		return requested
	}
}

// splitPath splits a URL path into its non-empty segments.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// sortItems orders a listing in place per the feed's configured sort order.
// Providers already return items in roughly reverse-chronological order, but
// a feed can ask for the opposite.
func sortItems(items []ListingItem, order domain.SortOrder) {
	switch order {
	case domain.SortAscending:
		sort.Slice(items, func(i, j int) bool {
			return items[i].PublishedAt.Before(items[j].PublishedAt)
		})
	default: // domain.SortDescending and any unrecognized value
		sort.Slice(items, func(i, j int) bool {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		})
	}
}
