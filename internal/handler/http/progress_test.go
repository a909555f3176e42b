package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vodcast/internal/progress"
)

func TestProgressHandler_Snapshot(t *testing.T) {
	tracker := progress.New()
	tracker.InitFeedProgress("f1", 3)

	h := ProgressHandler{Tracker: tracker}
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a non-empty JSON body")
	}
}

func TestProgressHandler_Stream_StopsOnContextCancel(t *testing.T) {
	tracker := progress.New()
	h := ProgressHandler{Tracker: tracker}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/progress/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(rec, req)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stream did not return after context cancellation")
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
}
