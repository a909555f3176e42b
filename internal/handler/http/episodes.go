package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"vodcast/internal/common/pagination"
	"vodcast/internal/domain"
	"vodcast/internal/handler/http/respond"
)

// EpisodeStorage is the subset of repository.Gateway the episodes handler
// needs for its listing endpoint and for looking up a feed before a retry.
type EpisodeStorage interface {
	WalkFeeds(ctx context.Context, cb func(*domain.Feed) error) error
	WalkEpisodes(ctx context.Context, feedID string, cb func(*domain.Episode) error) error
	GetFeed(ctx context.Context, feedID string) (*domain.Feed, []*domain.Episode, error)
}

// EpisodeOps is the subset of *feedupdate.Updater backing the episode-scoped
// write operations.
type EpisodeOps interface {
	DeleteEpisode(ctx context.Context, feedID, episodeID string) error
	BlockEpisode(ctx context.Context, feedID, episodeID string) error
	RetryEpisode(ctx context.Context, feed *domain.Feed, episodeID string) error
}

// EpisodesHandler implements GET /episodes, DELETE /episodes/{feedID}/{id},
// and POST /episodes/{feedID}/{id}/{retry|block} (spec.md §6). Grounded on
// the teacher's internal/handler/http/source/list.go query-parameter
// filtering shape, generalized from a single SQL WHERE clause to an
// in-memory filter predicate over the Storage Gateway's episode walk, since
// the Gateway has no query language of its own (spec.md §4.1).
type EpisodesHandler struct {
	Storage EpisodeStorage
	Ops     EpisodeOps
}

// episodePaginationConfig keeps the teacher's DefaultConfig default page but
// raises DefaultLimit to 50 and MaxLimit to 200: an episode listing spans every
// provider across every feed, so a single page is expected to run larger
// than the teacher's article listings.
var episodePaginationConfig = pagination.Config{DefaultPage: 1, DefaultLimit: 50, MaxLimit: 200}

// episodeFilters mirrors spec.md §6's GET /episodes query parameters.
type episodeFilters struct {
	feedID      string
	status      domain.EpisodeStatus
	search      string
	showIgnored bool
	startDate   *time.Time
	endDate     *time.Time
	page        pagination.Params
}

func parseEpisodeFilters(r *http.Request) (episodeFilters, error) {
	q := r.URL.Query()
	page, err := pagination.ParseQueryParams(r, episodePaginationConfig)
	if err != nil {
		return episodeFilters{}, err
	}
	f := episodeFilters{
		feedID:      q.Get("feed_id"),
		status:      domain.EpisodeStatus(q.Get("status")),
		search:      strings.ToLower(q.Get("search")),
		showIgnored: q.Get("show_ignored") == "true",
		page:        page,
	}
	if t, ok := parseDate(q.Get("start_date")); ok {
		f.startDate = &t
	}
	if t, ok := parseDate(q.Get("end_date")); ok {
		f.endDate = &t
	}
	return f, nil
}

// parseDate accepts either full ISO-8601 or a bare YYYY-MM-DD date, per
// spec.md §6's "date ranges in ISO-8601 or YYYY-MM-DD" requirement.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (f episodeFilters) accepts(ep *domain.Episode) bool {
	if f.status != "" && ep.Status != f.status {
		return false
	}
	if !f.showIgnored && ep.Status == domain.StatusIgnored && f.status == "" {
		return false
	}
	if f.search != "" && !strings.Contains(strings.ToLower(ep.Title), f.search) {
		return false
	}
	if f.startDate != nil && ep.PublishedAt.Before(*f.startDate) {
		return false
	}
	if f.endDate != nil && ep.PublishedAt.After(*f.endDate) {
		return false
	}
	return true
}

func (h EpisodesHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseEpisodeFilters(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var feedIDs []string
	if f.feedID != "" {
		feedIDs = []string{f.feedID}
	} else {
		if err := h.Storage.WalkFeeds(r.Context(), func(feed *domain.Feed) error {
			feedIDs = append(feedIDs, feed.FeedID)
			return nil
		}); err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	var matched []*domain.Episode
	for _, id := range feedIDs {
		err := h.Storage.WalkEpisodes(r.Context(), id, func(ep *domain.Episode) error {
			if f.accepts(ep) {
				matched = append(matched, ep)
			}
			return nil
		})
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	total := len(matched)
	start := pagination.CalculateOffset(f.page.Page, f.page.Limit)
	if start > total {
		start = total
	}
	end := start + f.page.Limit
	if end > total {
		end = total
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(matched[start:end], pagination.Metadata{
		Total:      int64(total),
		Page:       f.page.Page,
		Limit:      f.page.Limit,
		TotalPages: pagination.CalculateTotalPages(int64(total), f.page.Limit),
	}))
}

func (h EpisodesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	feedID, episodeID := r.PathValue("feedID"), r.PathValue("episodeID")
	if err := h.Ops.DeleteEpisode(r.Context(), feedID, episodeID); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h EpisodesHandler) Retry(w http.ResponseWriter, r *http.Request) {
	feedID, episodeID := r.PathValue("feedID"), r.PathValue("episodeID")
	feed, _, err := h.Storage.GetFeed(r.Context(), feedID)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	if err := h.Ops.RetryEpisode(r.Context(), feed, episodeID); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h EpisodesHandler) Block(w http.ResponseWriter, r *http.Request) {
	feedID, episodeID := r.PathValue("feedID"), r.PathValue("episodeID")
	if err := h.Ops.BlockEpisode(r.Context(), feedID, episodeID); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterEpisodeRoutes wires h's methods onto mux under /episodes.
func RegisterEpisodeRoutes(mux *http.ServeMux, h EpisodesHandler) {
	mux.HandleFunc("GET /episodes", h.List)
	mux.HandleFunc("DELETE /episodes/{feedID}/{episodeID}", h.Delete)
	mux.HandleFunc("POST /episodes/{feedID}/{episodeID}/retry", h.Retry)
	mux.HandleFunc("POST /episodes/{feedID}/{episodeID}/block", h.Block)
}
