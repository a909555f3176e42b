package feedupdate

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"vodcast/internal/artifact"
	"vodcast/internal/domain"
	"vodcast/internal/downloader"
	"vodcast/internal/provider"
	"vodcast/internal/repository"
)

// fakeGateway is an in-memory repository.Gateway, just enough of one to
// exercise the pipeline's storage interactions without a real bolt/postgres
// backend.
type fakeGateway struct {
	mu       sync.Mutex
	feeds    map[string]*domain.Feed
	episodes map[string]map[string]*domain.Episode
	history  map[string]*domain.HistoryEntry
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		feeds:    make(map[string]*domain.Feed),
		episodes: make(map[string]map[string]*domain.Episode),
		history:  make(map[string]*domain.HistoryEntry),
	}
}

func (g *fakeGateway) AddFeed(ctx context.Context, feedID string, feed *domain.Feed, episodes []*domain.Episode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := *feed
	g.feeds[feedID] = &f
	if g.episodes[feedID] == nil {
		g.episodes[feedID] = make(map[string]*domain.Episode)
	}
	for _, ep := range episodes {
		if _, exists := g.episodes[feedID][ep.EpisodeID]; exists {
			continue
		}
		cp := *ep
		g.episodes[feedID][ep.EpisodeID] = &cp
	}
	return nil
}

func (g *fakeGateway) GetFeed(ctx context.Context, feedID string) (*domain.Feed, []*domain.Episode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.feeds[feedID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	fc := *f
	var eps []*domain.Episode
	ids := make([]string, 0, len(g.episodes[feedID]))
	for id := range g.episodes[feedID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cp := *g.episodes[feedID][id]
		eps = append(eps, &cp)
	}
	return &fc, eps, nil
}

func (g *fakeGateway) DeleteFeed(ctx context.Context, feedID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.feeds, feedID)
	delete(g.episodes, feedID)
	return nil
}

func (g *fakeGateway) WalkFeeds(ctx context.Context, cb repository.WalkFeedsFunc) error {
	g.mu.Lock()
	ids := make([]string, 0, len(g.feeds))
	for id := range g.feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	feeds := make([]*domain.Feed, 0, len(ids))
	for _, id := range ids {
		fc := *g.feeds[id]
		feeds = append(feeds, &fc)
	}
	g.mu.Unlock()
	for _, f := range feeds {
		if err := cb(f); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGateway) WalkEpisodes(ctx context.Context, feedID string, cb repository.WalkEpisodesFunc) error {
	g.mu.Lock()
	ids := make([]string, 0, len(g.episodes[feedID]))
	for id := range g.episodes[feedID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	eps := make([]*domain.Episode, 0, len(ids))
	for _, id := range ids {
		cp := *g.episodes[feedID][id]
		eps = append(eps, &cp)
	}
	g.mu.Unlock()
	for _, ep := range eps {
		if err := cb(ep); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGateway) GetEpisode(ctx context.Context, feedID, episodeID string) (*domain.Episode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ep, ok := g.episodes[feedID][episodeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ep
	return &cp, nil
}

func (g *fakeGateway) UpdateEpisode(ctx context.Context, feedID, episodeID string, createIfMissing bool, mutate repository.EpisodeMutator) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.episodes[feedID] == nil {
		g.episodes[feedID] = make(map[string]*domain.Episode)
	}
	ep, ok := g.episodes[feedID][episodeID]
	if !ok {
		if !createIfMissing {
			return domain.ErrNotFound
		}
		ep = &domain.Episode{FeedID: feedID, EpisodeID: episodeID}
	}
	cp := *ep
	if err := mutate(&cp); err != nil {
		return err
	}
	g.episodes[feedID][episodeID] = &cp
	return nil
}

func (g *fakeGateway) DeleteEpisode(ctx context.Context, feedID, episodeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.episodes[feedID] == nil {
		return domain.ErrNotFound
	}
	if _, ok := g.episodes[feedID][episodeID]; !ok {
		return domain.ErrNotFound
	}
	delete(g.episodes[feedID], episodeID)
	return nil
}

func (g *fakeGateway) PutHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *entry
	g.history[entry.ID] = &cp
	return nil
}

func (g *fakeGateway) GetHistory(ctx context.Context, historyID string) (*domain.HistoryEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.history[historyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (g *fakeGateway) UpdateHistory(ctx context.Context, historyID string, mutate func(*domain.HistoryEntry) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.history[historyID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *e
	if err := mutate(&cp); err != nil {
		return err
	}
	g.history[historyID] = &cp
	return nil
}

func (g *fakeGateway) DeleteHistory(ctx context.Context, historyID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.history, historyID)
	return nil
}

func (g *fakeGateway) ListHistory(ctx context.Context, filters repository.HistoryFilters, page, pageSize int) ([]*domain.HistoryEntry, int, error) {
	return nil, 0, nil
}

func (g *fakeGateway) CleanupHistory(ctx context.Context, retentionDays, maxEntries int) (int, error) {
	return 0, nil
}

func (g *fakeGateway) Close() error { return nil }

// fakeArtifactStore is an in-memory artifact.Store.
type fakeArtifactStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{data: make(map[string][]byte)}
}

func (s *fakeArtifactStore) Create(path string, reader io.Reader) (int64, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = b
	return int64(len(b)), nil
}

func (s *fakeArtifactStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[path]; !ok {
		return artifact.ErrNotExist
	}
	delete(s.data, path)
	return nil
}

func (s *fakeArtifactStore) Size(path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[path]
	if !ok {
		return 0, artifact.ErrNotExist
	}
	return int64(len(b)), nil
}

func (s *fakeArtifactStore) Open(path string) (artifact.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[path]
	if !ok {
		return nil, artifact.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// fakeCapability is a fixed provider.Capability for pipeline tests.
type fakeCapability struct {
	snapshot *provider.FeedSnapshot
	err      error
}

func (f *fakeCapability) Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*provider.FeedSnapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeCapability) PlaylistMetadata(ctx context.Context, sourceURL string) (*provider.PlaylistInfo, error) {
	return nil, nil
}

// fakeResolver always resolves to the same Capability, ignoring the tag.
type fakeResolver struct {
	cap provider.Capability
}

func (r *fakeResolver) Resolve(tag string) (provider.Capability, error) {
	return r.cap, nil
}

// fakeDriver is a scripted DownloadDriver: content[episodeID] supplies the
// body and errs[episodeID] the error to return.
type fakeDriver struct {
	content map[string]string
	errs    map[string]error
}

func (d *fakeDriver) Download(ctx context.Context, feed *domain.Feed, ep *domain.Episode, cb downloader.ProgressCallback) (downloader.ReadCloser, error) {
	if err, ok := d.errs[ep.EpisodeID]; ok {
		return nil, err
	}
	if cb != nil {
		cb(domain.StageDownloading, 100, 10, 10, "1MiB/s")
	}
	ep.FileName = ep.EpisodeID + ".mp3"
	body := d.content[ep.EpisodeID]
	return io.NopCloser(bytes.NewReader([]byte(body))), nil
}

// fakeHooks records every invocation without running a real subprocess.
type fakeHooks struct {
	mu    sync.Mutex
	calls []string
}

func (h *fakeHooks) Run(ctx context.Context, feedID string, episode *domain.Episode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, feedID+"/"+episode.EpisodeID)
}

// fakeRenderer returns fixed bytes, recording what it was asked to render.
type fakeRenderer struct {
	mu        sync.Mutex
	feedCalls int
	opmlCalls int
}

func (r *fakeRenderer) RenderFeed(feed *domain.Feed, episodes []*domain.Episode) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedCalls++
	return []byte("<rss></rss>"), nil
}

func (r *fakeRenderer) RenderOPML(feeds []*domain.Feed) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opmlCalls++
	return []byte("<opml></opml>"), nil
}
