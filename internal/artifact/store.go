// Package artifact implements the Artifact Store (spec.md §4.2): an object
// interface backed by a local filesystem or a remote object store.
package artifact

import (
	"errors"
	"io"
)

// ErrNotExist is returned by Delete and Size when the path doesn't exist;
// callers treat it as idempotent (deleting an already-gone artifact is not
// an error).
var ErrNotExist = errors.New("artifact does not exist")

// ReadCloser is a readable whose Close releases any scoped resource backing
// it (e.g. a temp file handle). Implementations must support being read to
// EOF or closed early.
type ReadCloser = io.ReadCloser

// Store is the Artifact Store abstraction. Paths are of the form
// "<feed_id>/<episode_file_name>" for media and "<feed_id>.xml" /
// "podsync.opml" for feed documents.
type Store interface {
	// Create streams reader to path and returns the number of bytes written.
	Create(path string, reader io.Reader) (int64, error)

	// Delete removes path. Returns ErrNotExist if it doesn't exist so
	// callers can ignore that case (spec.md §4.6 Stage 4).
	Delete(path string) error

	// Size returns the byte size of path, or ErrNotExist if it doesn't exist.
	Size(path string) (int64, error)

	// Open returns a readable over path. Remote backends that assume
	// external hosting may not support this.
	Open(path string) (ReadCloser, error)
}
