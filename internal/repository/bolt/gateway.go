// Package bolt implements the Storage Gateway (repository.Gateway) over an
// embedded go.etcd.io/bbolt database: a single bucket keyed by the versioned
// key scheme from spec.md §4.1, values JSON-encoded.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"vodcast/internal/domain"
	"vodcast/internal/repository"
)

var bucketName = []byte("kv")

// Gateway is a repository.Gateway backed by bbolt.
type Gateway struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bbolt database at path and ensures
// the single "kv" bucket exists.
func Open(path string) (*Gateway, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %v", domain.ErrStorageError, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %v", domain.ErrStorageError, err)
	}
	return &Gateway{db: db}, nil
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

func (g *Gateway) AddFeed(_ context.Context, feedID string, feed *domain.Feed, episodes []*domain.Episode) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		feedBytes, err := json.Marshal(feed)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(repository.FeedKey(feedID)), feedBytes); err != nil {
			return err
		}
		for _, ep := range episodes {
			key := []byte(repository.EpisodeKey(feedID, ep.EpisodeID))
			if b.Get(key) != nil {
				continue // insert-if-absent: never overwrite an existing episode
			}
			epBytes, err := json.Marshal(ep)
			if err != nil {
				return err
			}
			if err := b.Put(key, epBytes); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gateway) GetFeed(_ context.Context, feedID string) (*domain.Feed, []*domain.Episode, error) {
	var feed domain.Feed
	var episodes []*domain.Episode
	err := g.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(repository.FeedKey(feedID)))
		if v == nil {
			return domain.ErrNotFound
		}
		if err := json.Unmarshal(v, &feed); err != nil {
			return err
		}
		prefix := []byte(repository.EpisodePrefix(feedID))
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var ep domain.Episode
			if err := json.Unmarshal(v, &ep); err != nil {
				return err
			}
			episodes = append(episodes, &ep)
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrapNotFound(err)
	}
	return &feed, episodes, nil
}

func (g *Gateway) DeleteFeed(_ context.Context, feedID string) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Delete([]byte(repository.FeedKey(feedID))); err != nil {
			return err
		}
		prefix := []byte(repository.EpisodePrefix(feedID))
		return deletePrefix(b, prefix)
	})
}

func (g *Gateway) WalkFeeds(_ context.Context, cb repository.WalkFeedsFunc) error {
	return g.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		prefix := []byte("podsync/v1/feed/")
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var f domain.Feed
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			if err := cb(&f); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gateway) WalkEpisodes(_ context.Context, feedID string, cb repository.WalkEpisodesFunc) error {
	return g.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		prefix := []byte(repository.EpisodePrefix(feedID))
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var ep domain.Episode
			if err := json.Unmarshal(v, &ep); err != nil {
				return err
			}
			if err := cb(&ep); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gateway) GetEpisode(_ context.Context, feedID, episodeID string) (*domain.Episode, error) {
	var ep domain.Episode
	err := g.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(repository.EpisodeKey(feedID, episodeID)))
		if v == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(v, &ep)
	})
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &ep, nil
}

func (g *Gateway) UpdateEpisode(_ context.Context, feedID, episodeID string, createIfMissing bool, mutate repository.EpisodeMutator) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		key := []byte(repository.EpisodeKey(feedID, episodeID))
		v := b.Get(key)
		var ep domain.Episode
		if v == nil {
			if !createIfMissing {
				return domain.ErrNotFound
			}
			ep = domain.Episode{FeedID: feedID, EpisodeID: episodeID}
		} else if err := json.Unmarshal(v, &ep); err != nil {
			return err
		}
		origFeedID, origEpisodeID := ep.FeedID, ep.EpisodeID
		if ep.FeedID == "" {
			ep.FeedID = feedID
		}
		if ep.EpisodeID == "" {
			ep.EpisodeID = episodeID
		}
		if err := mutate(&ep); err != nil {
			return err
		}
		if v != nil && (ep.FeedID != origFeedID || ep.EpisodeID != origEpisodeID) {
			return fmt.Errorf("%w: mutator changed episode identity", domain.ErrStorageError)
		}
		out, err := json.Marshal(&ep)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

func (g *Gateway) DeleteEpisode(_ context.Context, feedID, episodeID string) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(repository.EpisodeKey(feedID, episodeID)))
	})
}

func (g *Gateway) PutHistory(_ context.Context, entry *domain.HistoryEntry) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		out, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(repository.HistoryKey(entry.ID)), out); err != nil {
			return err
		}
		if entry.FeedID != "" {
			idxKey := []byte(repository.HistoryFeedIndexKey(entry.FeedID, entry.ID))
			if err := b.Put(idxKey, []byte(entry.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gateway) GetHistory(_ context.Context, historyID string) (*domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	err := g.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(repository.HistoryKey(historyID)))
		if v == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &entry, nil
}

func (g *Gateway) UpdateHistory(_ context.Context, historyID string, mutate func(*domain.HistoryEntry) error) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		key := []byte(repository.HistoryKey(historyID))
		v := b.Get(key)
		if v == nil {
			return domain.ErrNotFound
		}
		var entry domain.HistoryEntry
		if err := json.Unmarshal(v, &entry); err != nil {
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
		return b.Put(key, out)
	})
}

func (g *Gateway) DeleteHistory(_ context.Context, historyID string) error {
	return g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(repository.HistoryKey(historyID)))
		if v != nil {
			var entry domain.HistoryEntry
			if err := json.Unmarshal(v, &entry); err == nil && entry.FeedID != "" {
				_ = b.Delete([]byte(repository.HistoryFeedIndexKey(entry.FeedID, historyID)))
			}
		}
		return b.Delete([]byte(repository.HistoryKey(historyID)))
	})
}

func (g *Gateway) ListHistory(_ context.Context, filters repository.HistoryFilters, page, pageSize int) ([]*domain.HistoryEntry, int, error) {
	var all []*domain.HistoryEntry
	err := g.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if filters.FeedID != "" {
			prefix := []byte(repository.HistoryFeedIndexPrefix(filters.FeedID))
			ids := reversePrefixScan(b, prefix)
			for _, idBytes := range ids {
				v := b.Get([]byte(repository.HistoryKey(string(idBytes.value))))
				if v == nil {
					continue
				}
				var entry domain.HistoryEntry
				if err := json.Unmarshal(v, &entry); err != nil {
					return err
				}
				if matchesFilters(&entry, filters) {
					all = append(all, &entry)
				}
			}
			return nil
		}
		prefix := []byte("podsync/v1/history/")
		pairs := reversePrefixScan(b, prefix)
		for _, p := range pairs {
			var entry domain.HistoryEntry
			if err := json.Unmarshal(p.value, &entry); err != nil {
				return err
			}
			if matchesFilters(&entry, filters) {
				all = append(all, &entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list history: %v", domain.ErrStorageError, err)
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

func (g *Gateway) CleanupHistory(_ context.Context, retentionDays, maxEntries int) (int, error) {
	deleted := 0
	err := g.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		prefix := []byte("podsync/v1/history/")
		pairs := reversePrefixScan(b, prefix) // newest first
		var entries []*domain.HistoryEntry
		for _, p := range pairs {
			var entry domain.HistoryEntry
			if err := json.Unmarshal(p.value, &entry); err != nil {
				return err
			}
			entries = append(entries, &entry)
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		for i, entry := range entries {
			tooOld := retentionDays > 0 && entry.StartTime.Before(cutoff)
			tooMany := maxEntries > 0 && i >= maxEntries
			deleteAll := retentionDays == 0 && maxEntries == 0
			if tooOld || tooMany || deleteAll {
				if err := b.Delete([]byte(repository.HistoryKey(entry.ID))); err != nil {
					return err
				}
				if entry.FeedID != "" {
					if err := b.Delete([]byte(repository.HistoryFeedIndexKey(entry.FeedID, entry.ID))); err != nil {
						return err
					}
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup history: %v", domain.ErrStorageError, err)
	}
	return deleted, nil
}

func matchesFilters(e *domain.HistoryEntry, f repository.HistoryFilters) bool {
	if f.JobType != "" && e.JobType != f.JobType {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.FeedTitle), strings.ToLower(f.Search)) &&
		!strings.Contains(strings.ToLower(e.EpisodeTitle), strings.ToLower(f.Search)) {
		return false
	}
	if f.StartDate != nil && e.StartTime.Unix() < *f.StartDate {
		return false
	}
	if f.EndDate != nil && e.StartTime.Unix() > *f.EndDate {
		return false
	}
	return true
}

type kv struct {
	key   []byte
	value []byte
}

// reversePrefixScan returns every key/value under prefix, newest (lexically
// greatest key) first. It seeks to prefix||0xFF and falls back to the last
// valid key within the prefix range, per spec.md §4.1.
func reversePrefixScan(b *bbolt.Bucket, prefix []byte) []kv {
	upper := append(append([]byte{}, prefix...), 0xFF)
	c := b.Cursor()
	k, v := c.Seek(upper)
	if k == nil || !bytes.HasPrefix(k, prefix) {
		k, v = c.Last()
		for k != nil && !bytes.HasPrefix(k, prefix) {
			k, v = c.Prev()
		}
	}
	var out []kv
	for k != nil && bytes.HasPrefix(k, prefix) {
		out = append(out, kv{key: append([]byte{}, k...), value: append([]byte{}, v...)})
		k, v = c.Prev()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].key, out[j].key) > 0
	})
	return out
}

func deletePrefix(b *bbolt.Bucket, prefix []byte) error {
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte{}, k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func wrapNotFound(err error) error {
	if err == domain.ErrNotFound {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageError, err)
}
