// Package progress implements the Progress Tracker (spec.md §4.3): a
// process-wide, concurrency-safe snapshot of feed-level and episode-level
// download progress, consumed by the live event stream.
package progress

import (
	"fmt"
	"sync"
	"time"

	"vodcast/internal/domain"
)

// Tracker holds the two progress maps behind a single RWMutex. Locking
// follows the same discipline the teacher uses for its in-memory rate-limit
// store (pkg/ratelimit/store_memory.go): a write lock for mutation, a read
// lock for the snapshot accessors so many concurrent SSE consumers don't
// contend with each other.
type Tracker struct {
	mu       sync.RWMutex
	feeds    map[string]*domain.FeedProgress
	episodes map[string]*domain.EpisodeProgress
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		feeds:    make(map[string]*domain.FeedProgress),
		episodes: make(map[string]*domain.EpisodeProgress),
	}
}

func episodeMapKey(feedID, episodeID string) string {
	return fmt.Sprintf("%s/%s", feedID, episodeID)
}

// InitFeedProgress creates a FeedProgress with start time now.
func (t *Tracker) InitFeedProgress(feedID string, totalEpisodes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feeds[feedID] = &domain.FeedProgress{
		FeedID:        feedID,
		TotalEpisodes: totalEpisodes,
		StartedAt:     time.Now(),
	}
}

// QueueEpisodes increments the queued counter.
func (t *Tracker) QueueEpisodes(feedID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp := t.feeds[feedID]
	if fp == nil {
		return
	}
	fp.QueuedCount += n
	t.recomputePercent(fp)
}

// StartEpisode inserts an EpisodeProgress (stage=downloading), decrements
// queued, increments downloading.
func (t *Tracker) StartEpisode(feedID, episodeID, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.episodes[episodeMapKey(feedID, episodeID)] = &domain.EpisodeProgress{
		FeedID:        feedID,
		EpisodeID:     episodeID,
		Title:         title,
		Stage:         domain.StageDownloading,
		StartedAt:     now,
		LastUpdatedAt: now,
	}
	fp := t.feeds[feedID]
	if fp == nil {
		return
	}
	if fp.QueuedCount > 0 {
		fp.QueuedCount--
	}
	fp.DownloadingCount++
	t.recomputePercent(fp)
}

// UpdateEpisode overwrites the instantaneous fields of an episode's
// progress, creating the record if it's missing (e.g. a stage transition
// arriving before StartEpisode in a racing scenario).
func (t *Tracker) UpdateEpisode(feedID, episodeID string, stage domain.Stage, percent float64, downloaded, total int64, speed string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := episodeMapKey(feedID, episodeID)
	ep := t.episodes[key]
	if ep == nil {
		ep = &domain.EpisodeProgress{FeedID: feedID, EpisodeID: episodeID, StartedAt: time.Now()}
		t.episodes[key] = ep
	}
	ep.Stage = stage
	ep.Percent = percent
	ep.DownloadedBytes = downloaded
	ep.TotalBytes = total
	ep.Speed = speed
	ep.LastUpdatedAt = time.Now()

	if fp := t.feeds[feedID]; fp != nil {
		t.recomputePercent(fp)
	}
}

// CompleteEpisode removes the episode record, decrements downloading,
// increments completed.
func (t *Tracker) CompleteEpisode(feedID, episodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.episodes, episodeMapKey(feedID, episodeID))
	fp := t.feeds[feedID]
	if fp == nil {
		return
	}
	if fp.DownloadingCount > 0 {
		fp.DownloadingCount--
	}
	fp.CompletedCount++
	t.recomputePercent(fp)
}

// ClearFeed removes the feed and all its episode records, used when the
// pipeline exits.
func (t *Tracker) ClearFeed(feedID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.feeds, feedID)
	prefix := feedID + "/"
	for k := range t.episodes {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(t.episodes, k)
		}
	}
}

// recomputePercent implements spec.md §4.3's overall_percent formula:
// (completed + Σ(active.percent/100)) / total × 100. Must be called with
// the write lock already held.
func (t *Tracker) recomputePercent(fp *domain.FeedProgress) {
	if fp.TotalEpisodes == 0 {
		fp.OverallPercent = 100
		return
	}
	var activeSum float64
	prefix := fp.FeedID + "/"
	for k, ep := range t.episodes {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			activeSum += ep.Percent / 100
		}
	}
	fp.OverallPercent = (float64(fp.CompletedCount) + activeSum) / float64(fp.TotalEpisodes) * 100
	if fp.OverallPercent > 100 {
		fp.OverallPercent = 100
	}
}

// GetFeedProgress returns a deep copy of one feed's progress, or nil if no
// update is running for it.
func (t *Tracker) GetFeedProgress(feedID string) *domain.FeedProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fp := t.feeds[feedID]
	if fp == nil {
		return nil
	}
	cp := *fp
	return &cp
}

// GetAllFeedProgress returns deep copies of every tracked feed's progress.
func (t *Tracker) GetAllFeedProgress() map[string]*domain.FeedProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]*domain.FeedProgress, len(t.feeds))
	for id, fp := range t.feeds {
		cp := *fp
		out[id] = &cp
	}
	return out
}

// GetEpisodesForFeed returns deep copies of every episode progress belonging
// to feedID.
func (t *Tracker) GetEpisodesForFeed(feedID string) []*domain.EpisodeProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	prefix := feedID + "/"
	var out []*domain.EpisodeProgress
	for k, ep := range t.episodes {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			cp := *ep
			out = append(out, &cp)
		}
	}
	return out
}

// GetAllEpisodeProgress returns deep copies of every tracked episode's
// progress, in no particular order.
func (t *Tracker) GetAllEpisodeProgress() []*domain.EpisodeProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*domain.EpisodeProgress, 0, len(t.episodes))
	for _, ep := range t.episodes {
		cp := *ep
		out = append(out, &cp)
	}
	return out
}

// Snapshot is the combined shape rendered by GET /progress and each SSE
// frame of GET /progress/stream.
type Snapshot struct {
	Feeds    map[string]*domain.FeedProgress `json:"feeds"`
	Episodes []*domain.EpisodeProgress       `json:"episodes"`
}

// Snapshot returns the combined feed/episode snapshot for the HTTP façade.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Feeds:    t.GetAllFeedProgress(),
		Episodes: t.GetAllEpisodeProgress(),
	}
}
