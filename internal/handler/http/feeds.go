package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vodcast/internal/domain"
	"vodcast/internal/handler/http/respond"
)

// FeedStorage is the subset of repository.Gateway the feeds handler needs.
type FeedStorage interface {
	AddFeed(ctx context.Context, feedID string, feed *domain.Feed, episodes []*domain.Episode) error
	GetFeed(ctx context.Context, feedID string) (*domain.Feed, []*domain.Episode, error)
	DeleteFeed(ctx context.Context, feedID string) error
	WalkFeeds(ctx context.Context, cb func(*domain.Feed) error) error
}

// FeedRefresher is the subset of *scheduler.Scheduler the feeds handler
// depends on for the asynchronous refresh endpoint.
type FeedRefresher interface {
	TriggerNow(feedID string) error
}

// FeedsHandler implements GET/POST /feeds, GET|PUT|DELETE /feeds/{id}, and
// POST /feeds/{id}/refresh (spec.md §6), grounded on the teacher's
// internal/handler/http/source CRUD handlers (one ServeHTTP-shaped method
// per verb, respond.SafeError for client-facing errors), generalized from a
// numeric-ID single-service shape to vodcast's string-keyed Feed records
// read and written directly through the Storage Gateway.
type FeedsHandler struct {
	Storage   FeedStorage
	Scheduler FeedRefresher
}

func (h FeedsHandler) List(w http.ResponseWriter, r *http.Request) {
	var feeds []*domain.Feed
	err := h.Storage.WalkFeeds(r.Context(), func(f *domain.Feed) error {
		feeds = append(feeds, f)
		return nil
	})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, feeds)
}

func (h FeedsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var feed domain.Feed
	if err := json.NewDecoder(r.Body).Decode(&feed); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := feed.Validate(); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Storage.AddFeed(r.Context(), feed.FeedID, &feed, nil); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusCreated, &feed)
}

func (h FeedsHandler) Get(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("id")
	feed, episodes, err := h.Storage.GetFeed(r.Context(), feedID)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"feed": feed, "episodes": episodes})
}

func (h FeedsHandler) Update(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("id")
	existing, _, err := h.Storage.GetFeed(r.Context(), feedID)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	existing.FeedID = feedID
	if err := existing.Validate(); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Storage.AddFeed(r.Context(), feedID, existing, nil); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusOK, existing)
}

func (h FeedsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("id")
	if err := h.Storage.DeleteFeed(r.Context(), feedID); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh enqueues an immediate manual update for feedID (spec.md §6:
// "POST /feeds/{id}/refresh (asynchronous enqueue)").
func (h FeedsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("id")
	if err := h.Scheduler.TriggerNow(feedID); err != nil {
		respond.SafeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RegisterFeedRoutes wires h's methods onto mux under /feeds.
func RegisterFeedRoutes(mux *http.ServeMux, h FeedsHandler) {
	mux.HandleFunc("GET /feeds", h.List)
	mux.HandleFunc("POST /feeds", h.Create)
	mux.HandleFunc("GET /feeds/{id}", h.Get)
	mux.HandleFunc("PUT /feeds/{id}", h.Update)
	mux.HandleFunc("DELETE /feeds/{id}", h.Delete)
	mux.HandleFunc("POST /feeds/{id}/refresh", h.Refresh)
}

// statusFor maps a domain sentinel error to its HTTP status, falling back
// to 500 for anything else.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
