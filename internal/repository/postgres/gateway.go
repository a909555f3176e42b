// Package postgres implements the Storage Gateway (repository.Gateway) over
// a single relational "kv" table, using github.com/jackc/pgx/v5 as the
// database/sql driver (the teacher's own pattern in internal/infra/db/open.go:
// sql.Open("pgx", dsn) against the pgx/v5/stdlib adapter, not pgxpool
// directly). The versioned-key scheme from spec.md §4.1 is unchanged; this
// backend just gives it a relational home instead of an embedded store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"vodcast/internal/domain"
	"vodcast/internal/repository"
	"vodcast/internal/resilience/circuitbreaker"
)

// Gateway is a repository.Gateway backed by Postgres. Reads that run
// outside a transaction go through cb so a struggling database trips the
// breaker and fails fast instead of piling up slow queries; writes run
// inside a *sql.Tx (db.BeginTx), which cb does not wrap, so they go
// straight to db.
type Gateway struct {
	db *sql.DB
	cb *circuitbreaker.DBCircuitBreaker
}

// Open opens a connection pool against dsn and ensures the kv table exists.
func Open(dsn string) (*Gateway, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", domain.ErrStorageError, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrStorageError, err)
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create kv table: %v", domain.ErrStorageError, err)
	}
	return &Gateway{db: db, cb: circuitbreaker.NewDBCircuitBreaker(db)}, nil
}

// NewWithDB wraps an already-opened *sql.DB, used by tests against sqlmock.
func NewWithDB(db *sql.DB) *Gateway {
	return &Gateway{db: db, cb: circuitbreaker.NewDBCircuitBreaker(db)}
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

func (g *Gateway) AddFeed(ctx context.Context, feedID string, feed *domain.Feed, episodes []*domain.Episode) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err)
	}
	defer tx.Rollback()

	feedBytes, err := json.Marshal(feed)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertSQL, repository.FeedKey(feedID), feedBytes); err != nil {
		return fmt.Errorf("%w: upsert feed: %v", domain.ErrStorageError, err)
	}
	for _, ep := range episodes {
		epBytes, err := json.Marshal(ep)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertIfAbsentSQL, repository.EpisodeKey(feedID, ep.EpisodeID), epBytes); err != nil {
			return fmt.Errorf("%w: insert episode: %v", domain.ErrStorageError, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageError, err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO kv (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

const insertIfAbsentSQL = `
INSERT INTO kv (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO NOTHING`

func (g *Gateway) GetFeed(ctx context.Context, feedID string) (*domain.Feed, []*domain.Episode, error) {
	var feed domain.Feed
	row := g.cb.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, repository.FeedKey(feedID))
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: get feed: %v", domain.ErrStorageError, err)
	}
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, nil, err
	}

	rows, err := g.cb.QueryContext(ctx, `SELECT value FROM kv WHERE key LIKE $1 ORDER BY key ASC`, repository.EpisodePrefix(feedID)+"%")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: scan episodes: %v", domain.ErrStorageError, err)
	}
	defer rows.Close()
	var episodes []*domain.Episode
	for rows.Next() {
		var epRaw []byte
		if err := rows.Scan(&epRaw); err != nil {
			return nil, nil, err
		}
		var ep domain.Episode
		if err := json.Unmarshal(epRaw, &ep); err != nil {
			return nil, nil, err
		}
		episodes = append(episodes, &ep)
	}
	return &feed, episodes, rows.Err()
}

func (g *Gateway) DeleteFeed(ctx context.Context, feedID string) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, repository.FeedKey(feedID)); err != nil {
		return fmt.Errorf("%w: delete feed: %v", domain.ErrStorageError, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key LIKE $1`, repository.EpisodePrefix(feedID)+"%"); err != nil {
		return fmt.Errorf("%w: delete episodes: %v", domain.ErrStorageError, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageError, err)
	}
	return nil
}

func (g *Gateway) WalkFeeds(ctx context.Context, cb repository.WalkFeedsFunc) error {
	rows, err := g.cb.QueryContext(ctx, `SELECT value FROM kv WHERE key LIKE $1 ORDER BY key ASC`, "podsync/v1/feed/%")
	if err != nil {
		return fmt.Errorf("%w: walk feeds: %v", domain.ErrStorageError, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		var f domain.Feed
		if err := json.Unmarshal(raw, &f); err != nil {
			return err
		}
		if err := cb(&f); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (g *Gateway) WalkEpisodes(ctx context.Context, feedID string, cb repository.WalkEpisodesFunc) error {
	rows, err := g.cb.QueryContext(ctx, `SELECT value FROM kv WHERE key LIKE $1 ORDER BY key ASC`, repository.EpisodePrefix(feedID)+"%")
	if err != nil {
		return fmt.Errorf("%w: walk episodes: %v", domain.ErrStorageError, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		var ep domain.Episode
		if err := json.Unmarshal(raw, &ep); err != nil {
			return err
		}
		if err := cb(&ep); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (g *Gateway) GetEpisode(ctx context.Context, feedID, episodeID string) (*domain.Episode, error) {
	var raw []byte
	err := g.cb.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, repository.EpisodeKey(feedID, episodeID)).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get episode: %v", domain.ErrStorageError, err)
	}
	var ep domain.Episode
	if err := json.Unmarshal(raw, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

func (g *Gateway) UpdateEpisode(ctx context.Context, feedID, episodeID string, createIfMissing bool, mutate repository.EpisodeMutator) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err)
	}
	defer tx.Rollback()

	key := repository.EpisodeKey(feedID, episodeID)
	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1 FOR UPDATE`, key).Scan(&raw)
	var ep domain.Episode
	switch {
	case err == sql.ErrNoRows:
		if !createIfMissing {
			return domain.ErrNotFound
		}
		ep = domain.Episode{FeedID: feedID, EpisodeID: episodeID}
	case err != nil:
		return fmt.Errorf("%w: read episode: %v", domain.ErrStorageError, err)
	default:
		if err := json.Unmarshal(raw, &ep); err != nil {
			return err
		}
	}
	origFeedID, origEpisodeID := ep.FeedID, ep.EpisodeID
	if err := mutate(&ep); err != nil {
		return err
	}
	if raw != nil && (ep.FeedID != origFeedID || ep.EpisodeID != origEpisodeID) {
		return fmt.Errorf("%w: mutator changed episode identity", domain.ErrStorageError)
	}
	out, err := json.Marshal(&ep)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertSQL, key, out); err != nil {
		return fmt.Errorf("%w: write episode: %v", domain.ErrStorageError, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageError, err)
	}
	return nil
}

func (g *Gateway) DeleteEpisode(ctx context.Context, feedID, episodeID string) error {
	_, err := g.cb.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, repository.EpisodeKey(feedID, episodeID))
	if err != nil {
		return fmt.Errorf("%w: delete episode: %v", domain.ErrStorageError, err)
	}
	return nil
}

func (g *Gateway) PutHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err)
	}
	defer tx.Rollback()
	out, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertSQL, repository.HistoryKey(entry.ID), out); err != nil {
		return fmt.Errorf("%w: put history: %v", domain.ErrStorageError, err)
	}
	if entry.FeedID != "" {
		if _, err := tx.ExecContext(ctx, upsertSQL, repository.HistoryFeedIndexKey(entry.FeedID, entry.ID), []byte(entry.ID)); err != nil {
			return fmt.Errorf("%w: put history index: %v", domain.ErrStorageError, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageError, err)
	}
	return nil
}

func (g *Gateway) GetHistory(ctx context.Context, historyID string) (*domain.HistoryEntry, error) {
	var raw []byte
	err := g.cb.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, repository.HistoryKey(historyID)).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get history: %v", domain.ErrStorageError, err)
	}
	var entry domain.HistoryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (g *Gateway) UpdateHistory(ctx context.Context, historyID string, mutate func(*domain.HistoryEntry) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err)
	}
	defer tx.Rollback()
	key := repository.HistoryKey(historyID)
	var raw []byte
	if err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1 FOR UPDATE`, key).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: read history: %v", domain.ErrStorageError, err)
	}
	var entry domain.HistoryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return err
	}
	id := entry.ID
	if err := mutate(&entry); err != nil {
		return err
	}
	entry.ID = id
	out, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertSQL, key, out); err != nil {
		return fmt.Errorf("%w: write history: %v", domain.ErrStorageError, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageError, err)
	}
	return nil
}

func (g *Gateway) DeleteHistory(ctx context.Context, historyID string) error {
	entry, err := g.GetHistory(ctx, historyID)
	if err != nil && err != domain.ErrNotFound {
		return err
	}
	tx, err2 := g.db.BeginTx(ctx, nil)
	if err2 != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err2)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, repository.HistoryKey(historyID)); err != nil {
		return fmt.Errorf("%w: delete history: %v", domain.ErrStorageError, err)
	}
	if entry != nil && entry.FeedID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, repository.HistoryFeedIndexKey(entry.FeedID, historyID)); err != nil {
			return fmt.Errorf("%w: delete history index: %v", domain.ErrStorageError, err)
		}
	}
	return tx.Commit()
}

// ListHistory performs a reverse scan via ORDER BY key DESC, which is
// equivalent to the bolt backend's seek-to-prefix||0xFF-then-fallback trick:
// because history keys embed a zero-padded unix timestamp prefix, descending
// key order is descending chronological order.
func (g *Gateway) ListHistory(ctx context.Context, filters repository.HistoryFilters, page, pageSize int) ([]*domain.HistoryEntry, int, error) {
	var rows *sql.Rows
	var err error
	if filters.FeedID != "" {
		rows, err = g.cb.QueryContext(ctx, `
SELECT h.value FROM kv idx
JOIN kv h ON h.key = 'podsync/v1/history/' || convert_from(idx.value, 'UTF8')
WHERE idx.key LIKE $1
ORDER BY idx.key DESC`, repository.HistoryFeedIndexPrefix(filters.FeedID)+"%")
	} else {
		rows, err = g.cb.QueryContext(ctx, `SELECT value FROM kv WHERE key LIKE $1 ORDER BY key DESC`, "podsync/v1/history/%")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list history: %v", domain.ErrStorageError, err)
	}
	defer rows.Close()

	var all []*domain.HistoryEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, err
		}
		var entry domain.HistoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, 0, err
		}
		if matchesFilters(&entry, filters) {
			all = append(all, &entry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total := len(all)
	start := (page - 1) * pageSize
	if start < 0 {
		start = 0
	}
	if start >= total {
		return []*domain.HistoryEntry{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func matchesFilters(e *domain.HistoryEntry, f repository.HistoryFilters) bool {
	if f.JobType != "" && e.JobType != f.JobType {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.FeedTitle), s) && !strings.Contains(strings.ToLower(e.EpisodeTitle), s) {
			return false
		}
	}
	if f.StartDate != nil && e.StartTime.Unix() < *f.StartDate {
		return false
	}
	if f.EndDate != nil && e.StartTime.Unix() > *f.EndDate {
		return false
	}
	return true
}

func (g *Gateway) CleanupHistory(ctx context.Context, retentionDays, maxEntries int) (int, error) {
	rows, err := g.cb.QueryContext(ctx, `SELECT key, value FROM kv WHERE key LIKE $1 ORDER BY key DESC`, "podsync/v1/history/%")
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup scan: %v", domain.ErrStorageError, err)
	}
	type row struct {
		key   string
		entry domain.HistoryEntry
	}
	var entries []row
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			rows.Close()
			return 0, err
		}
		var entry domain.HistoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			rows.Close()
			return 0, err
		}
		entries = append(entries, row{key: key, entry: entry})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx: %v", domain.ErrStorageError, err)
	}
	defer tx.Rollback()
	for i, r := range entries {
		tooOld := retentionDays > 0 && r.entry.StartTime.Before(cutoff)
		tooMany := maxEntries > 0 && i >= maxEntries
		deleteAll := retentionDays == 0 && maxEntries == 0
		if !(tooOld || tooMany || deleteAll) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, r.key); err != nil {
			return 0, fmt.Errorf("%w: delete history: %v", domain.ErrStorageError, err)
		}
		if r.entry.FeedID != "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, repository.HistoryFeedIndexKey(r.entry.FeedID, r.entry.ID)); err != nil {
				return 0, fmt.Errorf("%w: delete history index: %v", domain.ErrStorageError, err)
			}
		}
		deleted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrStorageError, err)
	}
	return deleted, nil
}
