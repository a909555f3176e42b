package pathutil

import (
	"regexp"
	"strings"
)

// pathPattern pairs a matcher with the metrics-label template it collapses
// to, preventing per-feed/per-episode label cardinality explosion.
type pathPattern struct {
	pattern  *regexp.Regexp
	template string
}

var pathPatterns = []pathPattern{
	{regexp.MustCompile(`^/feeds/[^/]+/refresh$`), "/feeds/:id/refresh"},
	{regexp.MustCompile(`^/feeds/[^/]+$`), "/feeds/:id"},
	{regexp.MustCompile(`^/episodes/[^/]+/[^/]+/retry$`), "/episodes/:feed/:episode/retry"},
	{regexp.MustCompile(`^/episodes/[^/]+/[^/]+/block$`), "/episodes/:feed/:episode/block"},
	{regexp.MustCompile(`^/episodes/[^/]+/[^/]+$`), "/episodes/:feed/:episode"},
	{regexp.MustCompile(`^/history/[^/]+$`), "/history/:id"},
	{regexp.MustCompile(`^/config/[^/]+$`), "/config/:section"},
}

// NormalizePath collapses dynamic path segments to their metrics-label
// template, e.g. "/feeds/f1/refresh" -> "/feeds/:id/refresh".
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	for _, p := range pathPatterns {
		if p.pattern.MatchString(path) {
			return p.template
		}
	}
	return path
}
