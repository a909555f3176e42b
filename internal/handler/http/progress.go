package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vodcast/internal/handler/http/respond"
	"vodcast/internal/progress"
)

// sseInterval is the frame cadence for GET /progress/stream (spec.md §6:
// "one data: <json>\n\n frame every 500 ms").
const sseInterval = 500 * time.Millisecond

var errStreamingUnsupported = errors.New("streaming unsupported by response writer")

// ProgressTracker is the subset of *progress.Tracker the progress handler
// depends on.
type ProgressTracker interface {
	Snapshot() progress.Snapshot
}

// ProgressHandler implements GET /progress and GET /progress/stream
// (spec.md §6), grounded on the single in-memory progress.Tracker: both
// endpoints read the same Snapshot, one as a single response body, the
// other as a repeating Server-Sent Events frame.
type ProgressHandler struct {
	Tracker ProgressTracker
}

func (h ProgressHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Tracker.Snapshot())
}

// Stream writes one SSE frame every 500ms until the client disconnects,
// detected via a failed write (spec.md §6).
func (h ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.Error(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(sseInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeSSEFrame(w, h.Tracker.Snapshot()); err != nil {
				slog.Debug("progress stream client disconnected", slog.Any("error", err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, snap progress.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = w.Write(append(append([]byte("data: "), body...), '\n', '\n'))
	return err
}

// RegisterProgressRoutes wires h's methods onto mux under /progress.
func RegisterProgressRoutes(mux *http.ServeMux, h ProgressHandler) {
	mux.HandleFunc("GET /progress", h.Snapshot)
	mux.HandleFunc("GET /progress/stream", h.Stream)
}
