// Package scheduler owns the process-wide cron registry and the bounded
// in-process update queue described in spec.md §4.7. Grounded on the
// teacher's cmd/worker/main.go startCronWorker/runCrawlJob shape (a
// robfig/cron/v3 engine driving a single crawl job), generalized from one
// global cron entry to one entry per configured feed, each able to fire on
// its own schedule and to be dropped individually while its previous run is
// still executing.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"vodcast/internal/domain"
)

// queueCapacity is the bounded update queue's capacity (spec.md §4.7: "a
// bounded in-process job queue (capacity ≈ 16)").
const queueCapacity = 16

// FeedUpdater is the subset of *feedupdate.Updater the scheduler depends on.
type FeedUpdater interface {
	Update(ctx context.Context, feed *domain.Feed, trigger domain.Trigger) error
}

// queueItem is one pending feed update, carrying the trigger that caused it
// (a cron fire or a manual refresh request).
type queueItem struct {
	feed    *domain.Feed
	trigger domain.Trigger
}

// entry tracks one feed's cron registration and whether a run for it is
// currently queued or in flight, so a scheduled fire can be dropped instead
// of piling up behind a still-running update (spec.md §4.7: "drop (not
// overlap) a scheduled fire if the previous run for that entry is still
// executing").
type entry struct {
	feed    *domain.Feed
	cronID  cron.EntryID
	pending atomic.Bool
}

// Scheduler drives every configured feed's periodic update via a single
// serializing worker (spec.md §5: "exactly one consumer thread servicing
// the update queue").
type Scheduler struct {
	cronEngine *cron.Cron
	updater    FeedUpdater
	queue      chan queueItem

	mu      sync.Mutex
	entries map[string]*entry

	done chan struct{}
}

// New returns a Scheduler that will run updater.Update for each feed in
// feeds according to its cron expression or update period.
func New(updater FeedUpdater, feeds map[string]domain.Feed) *Scheduler {
	s := &Scheduler{
		cronEngine: cron.New(cron.WithLogger(slogCronLogger{})),
		updater:    updater,
		queue:      make(chan queueItem, queueCapacity),
		entries:    make(map[string]*entry, len(feeds)),
		done:       make(chan struct{}),
	}

	// Stable iteration order keeps the boot-time kick log sequence
	// deterministic across runs, which matters for reading worker logs.
	feedIDs := make([]string, 0, len(feeds))
	for id := range feeds {
		feedIDs = append(feedIDs, id)
	}
	sort.Strings(feedIDs)

	for _, id := range feedIDs {
		feed := feeds[id]
		s.register(&feed)
	}
	return s
}

// register adds one feed's cron entry (spec.md §4.7 steps 1-2) and returns
// whether it should also receive the boot-time kick (step 3).
func (s *Scheduler) register(feed *domain.Feed) {
	expr, hasExplicit := effectiveCronExpr(feed)
	e := &entry{feed: feed}

	id, err := s.cronEngine.AddFunc(expr, func() { s.enqueue(feed.FeedID, domain.TriggerScheduled) })
	if err != nil {
		slog.Error("scheduler: invalid cron expression, feed not scheduled",
			slog.String("feed_id", feed.FeedID), slog.String("expr", expr), slog.Any("error", err))
		return
	}
	e.cronID = id

	s.mu.Lock()
	s.entries[feed.FeedID] = e
	s.mu.Unlock()

	if !hasExplicit {
		s.enqueue(feed.FeedID, domain.TriggerScheduled)
	}
}

// effectiveCronExpr determines the cron expression to register for feed
// (spec.md §4.7 step 1): the feed's own expression if it has one, otherwise
// a synthesised "@every <update_period>".
func effectiveCronExpr(feed *domain.Feed) (expr string, hasExplicit bool) {
	if feed.HasExplicitCronSchedule() {
		return feed.CronExpression, true
	}
	return "@every " + feed.UpdatePeriod, false
}

// Start launches the cron engine and the single worker loop. It returns
// immediately; the worker and cron engine run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cronEngine.Start()
	go s.workerLoop(ctx)
}

// TriggerNow enqueues an immediate manual update for feedID (e.g. a
// management-API refresh request), subject to the same per-feed drop rule
// as a cron fire: if a run for this feed is already pending, the request is
// dropped and reported as such.
func (s *Scheduler) TriggerNow(feedID string) error {
	s.mu.Lock()
	_, ok := s.entries[feedID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown feed %q", feedID)
	}
	if !s.enqueue(feedID, domain.TriggerManual) {
		return fmt.Errorf("scheduler: update for feed %q already in progress", feedID)
	}
	return nil
}

// NextRun reports the next scheduled fire time for feedID, as tracked by
// the cron engine (spec.md §4.7 step 2: "Record its entry ID so the
// scheduler can report the next-fire time after each run").
func (s *Scheduler) NextRun(feedID string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[feedID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cronEngine.Entry(e.cronID).Next, true
}

// enqueue pushes feedID's update onto the bounded queue, unless a run for
// it is already pending (queued or in flight) or the queue is full; both
// cases are dropped rather than blocked, per spec.md §4.7. It reports
// whether the item was actually enqueued.
func (s *Scheduler) enqueue(feedID string, trigger domain.Trigger) bool {
	s.mu.Lock()
	e, ok := s.entries[feedID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	if !e.pending.CompareAndSwap(false, true) {
		slog.Warn("scheduler: dropped fire, previous run still executing", slog.String("feed_id", feedID))
		return false
	}

	select {
	case s.queue <- queueItem{feed: e.feed, trigger: trigger}:
		return true
	default:
		e.pending.Store(false)
		slog.Warn("scheduler: dropped fire, update queue is full", slog.String("feed_id", feedID))
		return false
	}
}

// workerLoop is the single serializing consumer (spec.md §5). It exits when
// ctx is cancelled, stopping the cron engine and draining the queue before
// returning.
func (s *Scheduler) workerLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			<-s.cronEngine.Stop().Done()
			s.drainQueue()
			return
		case item := <-s.queue:
			s.process(ctx, item)
		}
	}
}

// process runs one feed's update and clears its pending flag, whether or
// not the update succeeded, so the feed becomes eligible for its next fire.
func (s *Scheduler) process(ctx context.Context, item queueItem) {
	s.mu.Lock()
	e := s.entries[item.feed.FeedID]
	s.mu.Unlock()
	if e != nil {
		defer e.pending.Store(false)
	}

	if err := s.updater.Update(ctx, item.feed, item.trigger); err != nil {
		slog.Error("scheduler: feed update failed",
			slog.String("feed_id", item.feed.FeedID), slog.String("trigger", string(item.trigger)), slog.Any("error", err))
	}
}

func (s *Scheduler) drainQueue() {
	for {
		select {
		case item := <-s.queue:
			s.mu.Lock()
			e := s.entries[item.feed.FeedID]
			s.mu.Unlock()
			if e != nil {
				e.pending.Store(false)
			}
		default:
			return
		}
	}
}

// Done returns a channel closed once the worker loop has exited, for
// callers that need to wait out a graceful shutdown.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// slogCronLogger adapts cron.Logger onto log/slog, matching the teacher's
// structured-logging convention everywhere else in the process.
type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Info("cron: "+msg, keysAndValues...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
