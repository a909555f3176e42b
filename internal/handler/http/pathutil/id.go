// Package pathutil extracts path segments from the management API's REST
// routes. Feed and episode IDs are caller-chosen strings, not integers, so
// segment extraction here is string-based rather than the numeric-ID
// extraction a row-keyed CRUD API would use.
package pathutil

import (
	"errors"
	"strings"
)

// ErrInvalidSegment is returned when a required path segment is empty.
var ErrInvalidSegment = errors.New("invalid path segment")

// Segments splits path on "/", trimming the prefix and any trailing slash,
// discarding empty segments. "/episodes/f1/e1/retry" with prefix
// "/episodes/" yields ["f1", "e1", "retry"].
func Segments(path, prefix string) []string {
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ExtractID returns the first path segment after prefix, erroring if empty.
func ExtractID(path, prefix string) (string, error) {
	segs := Segments(path, prefix)
	if len(segs) == 0 || segs[0] == "" {
		return "", ErrInvalidSegment
	}
	return segs[0], nil
}
