package http

import (
	"context"
	"net/http"
	"time"

	"vodcast/internal/common/pagination"
	"vodcast/internal/domain"
	"vodcast/internal/handler/http/respond"
	"vodcast/internal/repository"
)

// historyPaginationConfig mirrors the teacher's DefaultConfig (page 1, limit
// 20) with MaxLimit raised to 200, the same job history operators page
// through when auditing a long-running feed.
var historyPaginationConfig = pagination.Config{DefaultPage: 1, DefaultLimit: 20, MaxLimit: 200}

// HistoryStorage is the subset of *history.Recorder the history handler
// depends on.
type HistoryStorage interface {
	List(ctx context.Context, filters repository.HistoryFilters, page, pageSize int) ([]*domain.HistoryEntry, int, error)
	Get(ctx context.Context, id string) (*domain.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (count int, oldest *time.Time, err error)
	CleanupOldEntries(ctx context.Context, retentionDays, maxEntries int) (int, error)
}

// HistoryHandler implements GET /history, GET/DELETE /history/{id},
// DELETE /history, GET /history/stats, and POST /history/cleanup
// (spec.md §6), a thin HTTP skin over history.Recorder which already does
// all the filtering/pagination work.
type HistoryHandler struct {
	History HistoryStorage

	// RetentionDays and MaxEntries back POST /history/cleanup, mirroring
	// config.History's values.
	RetentionDays int
	MaxEntries    int
}

func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.HistoryFilters{
		FeedID:  q.Get("feed_id"),
		JobType: domain.JobType(q.Get("job_type")),
		Status:  domain.JobStatus(q.Get("status")),
		Search:  q.Get("search"),
	}
	if t, ok := parseDate(q.Get("start_date")); ok {
		u := t.Unix()
		filters.StartDate = &u
	}
	if t, ok := parseDate(q.Get("end_date")); ok {
		u := t.Unix()
		filters.EndDate = &u
	}

	page, err := pagination.ParseQueryParams(r, historyPaginationConfig)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	entries, total, err := h.History.List(r.Context(), filters, page.Page, page.Limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(entries, pagination.Metadata{
		Total:      int64(total),
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: pagination.CalculateTotalPages(int64(total), page.Limit),
	}))
}

func (h HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.History.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, entry)
}

func (h HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.History.Delete(r.Context(), r.PathValue("id")); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll implements DELETE /history by cleaning up with a zero retention
// window and zero max-entries, which repository.Gateway.CleanupHistory
// documents as "deletes all".
func (h HistoryHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if _, err := h.History.CleanupOldEntries(r.Context(), 0, 0); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	count, oldest, err := h.History.Stats(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"count": count, "oldest_entry": oldest})
}

func (h HistoryHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.History.CleanupOldEntries(r.Context(), h.RetentionDays, h.MaxEntries)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// RegisterHistoryRoutes wires h's methods onto mux under /history.
func RegisterHistoryRoutes(mux *http.ServeMux, h HistoryHandler) {
	mux.HandleFunc("GET /history", h.List)
	mux.HandleFunc("DELETE /history", h.DeleteAll)
	mux.HandleFunc("GET /history/stats", h.Stats)
	mux.HandleFunc("POST /history/cleanup", h.Cleanup)
	mux.HandleFunc("GET /history/{id}", h.Get)
	mux.HandleFunc("DELETE /history/{id}", h.Delete)
}
