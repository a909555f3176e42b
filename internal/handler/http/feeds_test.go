package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vodcast/internal/domain"
)

type fakeFeedStorage struct {
	feeds map[string]*domain.Feed
}

func newFakeFeedStorage() *fakeFeedStorage {
	return &fakeFeedStorage{feeds: map[string]*domain.Feed{}}
}

func (s *fakeFeedStorage) AddFeed(ctx context.Context, feedID string, feed *domain.Feed, episodes []*domain.Episode) error {
	cp := *feed
	s.feeds[feedID] = &cp
	return nil
}

func (s *fakeFeedStorage) GetFeed(ctx context.Context, feedID string) (*domain.Feed, []*domain.Episode, error) {
	f, ok := s.feeds[feedID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return f, nil, nil
}

func (s *fakeFeedStorage) DeleteFeed(ctx context.Context, feedID string) error {
	if _, ok := s.feeds[feedID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.feeds, feedID)
	return nil
}

func (s *fakeFeedStorage) WalkFeeds(ctx context.Context, cb func(*domain.Feed) error) error {
	for _, f := range s.feeds {
		if err := cb(f); err != nil {
			return err
		}
	}
	return nil
}

type fakeFeedRefresher struct {
	triggered []string
	err       error
}

func (r *fakeFeedRefresher) TriggerNow(feedID string) error {
	r.triggered = append(r.triggered, feedID)
	return r.err
}

func newTestFeed(id string) *domain.Feed {
	return &domain.Feed{
		FeedID:       id,
		SourceURL:    "https://example.com/" + id,
		Provider:     "youtube",
		Title:        "Test Feed",
		Format:       domain.FormatAudio,
		UpdatePeriod: "1h",
	}
}

func TestFeedsHandler_CreateAndGet(t *testing.T) {
	storage := newFakeFeedStorage()
	h := FeedsHandler{Storage: storage, Scheduler: &fakeFeedRefresher{}}

	body, _ := json.Marshal(newTestFeed("abc"))
	req := httptest.NewRequest(http.MethodPost, "/feeds", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/feeds/abc", nil)
	getReq.SetPathValue("id", "abc")
	getRec := httptest.NewRecorder()
	h.Get(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("Get status = %d, want 200", getRec.Code)
	}
}

func TestFeedsHandler_Create_RejectsInvalidFeed(t *testing.T) {
	h := FeedsHandler{Storage: newFakeFeedStorage(), Scheduler: &fakeFeedRefresher{}}
	body, _ := json.Marshal(&domain.Feed{FeedID: "bad"})
	req := httptest.NewRequest(http.MethodPost, "/feeds", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFeedsHandler_Get_UnknownFeedReturns404(t *testing.T) {
	h := FeedsHandler{Storage: newFakeFeedStorage(), Scheduler: &fakeFeedRefresher{}}
	req := httptest.NewRequest(http.MethodGet, "/feeds/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFeedsHandler_Delete(t *testing.T) {
	storage := newFakeFeedStorage()
	storage.feeds["abc"] = newTestFeed("abc")
	h := FeedsHandler{Storage: storage, Scheduler: &fakeFeedRefresher{}}

	req := httptest.NewRequest(http.MethodDelete, "/feeds/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, ok := storage.feeds["abc"]; ok {
		t.Fatal("feed was not deleted")
	}
}

func TestFeedsHandler_Refresh_EnqueuesViaScheduler(t *testing.T) {
	refresher := &fakeFeedRefresher{}
	h := FeedsHandler{Storage: newFakeFeedStorage(), Scheduler: refresher}

	req := httptest.NewRequest(http.MethodPost, "/feeds/abc/refresh", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(refresher.triggered) != 1 || refresher.triggered[0] != "abc" {
		t.Fatalf("triggered = %v, want [abc]", refresher.triggered)
	}
}

func TestFeedsHandler_List(t *testing.T) {
	storage := newFakeFeedStorage()
	storage.feeds["a"] = newTestFeed("a")
	storage.feeds["b"] = newTestFeed("b")
	h := FeedsHandler{Storage: storage, Scheduler: &fakeFeedRefresher{}}

	req := httptest.NewRequest(http.MethodGet, "/feeds", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []*domain.Feed
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}
