// Package feedupdate implements the Feed Updater (spec.md §4.6): the
// fetch/reconcile → filter/select → download → cleanup → publish → history
// close-out pipeline, plus the episode-scoped delete/block/retry operations.
// Grounded on the teacher's internal/usecase/fetch.Service
// (CrawlAllSources/processSingleSource/processFeedItems: list → per-item
// work → stats aggregation, logged start-to-finish with slog), generalized
// from "crawl every RSS source" to "run one channel's provider → downloader
// → hook → publish chain," and from internal/usecase/fetch/errors.go's
// sentinel-error style (collected in this package's errors.go).
package feedupdate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vodcast/internal/artifact"
	"vodcast/internal/domain"
	"vodcast/internal/downloader"
	"vodcast/internal/history"
	"vodcast/internal/hooks"
	"vodcast/internal/observability/metrics"
	"vodcast/internal/observability/tracing"
	"vodcast/internal/progress"
	"vodcast/internal/provider"
	"vodcast/internal/repository"
)

// DownloadDriver is the subset of *downloader.Driver the pipeline depends
// on, kept as a local interface (rather than importing the concrete type
// directly into every call site) so tests can inject a fake without
// spinning up a real subprocess-backed Driver.
type DownloadDriver interface {
	Download(ctx context.Context, feed *domain.Feed, episode *domain.Episode, cb downloader.ProgressCallback) (downloader.ReadCloser, error)
}

// HookRunner is the subset of *hooks.Runner the pipeline depends on.
type HookRunner interface {
	Run(ctx context.Context, feedID string, episode *domain.Episode)
}

// FeedRenderer is the subset of *feedxml.Renderer the pipeline depends on.
type FeedRenderer interface {
	RenderFeed(feed *domain.Feed, episodes []*domain.Episode) ([]byte, error)
	RenderOPML(feeds []*domain.Feed) ([]byte, error)
}

// ProviderResolver is the subset of *provider.Registry the pipeline depends
// on.
type ProviderResolver interface {
	Resolve(tag string) (provider.Capability, error)
}

// Updater runs the six-stage pipeline for one feed at a time. Safe for
// concurrent use across distinct feeds; spec.md §5 requires the scheduler to
// serialize calls for the same process, which Updater itself does not
// enforce.
type Updater struct {
	storage   repository.Gateway
	artifacts artifact.Store
	providers ProviderResolver
	driver    DownloadDriver
	hookRun   HookRunner
	tracker   *progress.Tracker
	history   *history.Recorder
	renderer  FeedRenderer
}

// New returns an Updater wired to its collaborators.
func New(
	storage repository.Gateway,
	artifacts artifact.Store,
	providers ProviderResolver,
	driver DownloadDriver,
	hookRun HookRunner,
	tracker *progress.Tracker,
	historyRecorder *history.Recorder,
	renderer FeedRenderer,
) *Updater {
	return &Updater{
		storage:   storage,
		artifacts: artifacts,
		providers: providers,
		driver:    driver,
		hookRun:   hookRun,
		tracker:   tracker,
		history:   historyRecorder,
		renderer:  renderer,
	}
}

// Update runs the full pipeline for feed, recording one history entry for
// the run. trigger distinguishes a scheduler-initiated run from a manual
// management-API refresh.
func (u *Updater) Update(ctx context.Context, feed *domain.Feed, trigger domain.Trigger) error {
	start := time.Now()
	historyID, err := u.history.LogFeedUpdateStart(ctx, feed.FeedID, feed.Title, trigger)
	if err != nil {
		slog.Warn("failed to log feed update start", slog.String("feed_id", feed.FeedID), slog.Any("error", err))
	}

	candidateIDs, stats, err := u.run(ctx, feed)
	metrics.RecordFeedUpdate(feed.FeedID, time.Since(start), err)

	if err != nil {
		if logErr := u.history.LogFeedUpdateEnd(ctx, historyID, domain.JobFailed, stats, err.Error()); logErr != nil {
			slog.Warn("failed to log feed update end", slog.String("feed_id", feed.FeedID), slog.Any("error", logErr))
		}
		return err
	}

	status := domain.JobSuccess
	switch {
	case stats.Failed > 0 && stats.Downloaded == 0:
		status = domain.JobFailed
	case stats.Failed > 0:
		status = domain.JobPartial
	}
	if logErr := u.history.LogFeedUpdateEndWithEpisodes(ctx, historyID, feed.FeedID, candidateIDs, status, stats, ""); logErr != nil {
		slog.Warn("failed to log feed update end", slog.String("feed_id", feed.FeedID), slog.Any("error", logErr))
	}
	return nil
}

// run executes Stages 1-5 and returns the Stage 2 candidate episode IDs
// (for the history episode snapshot) plus the Stage 6 stats. Any stage
// error short-circuits the remaining stages.
func (u *Updater) run(ctx context.Context, feed *domain.Feed) ([]string, domain.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Stats{}, fmt.Errorf("%w: %v", ErrPipelineAborted, err)
	}

	if err := u.reconcile(ctx, feed); err != nil {
		metrics.RecordStageError("reconcile")
		return nil, domain.Stats{}, fmt.Errorf("reconcile: %w", err)
	}

	candidates, err := u.selectCandidates(ctx, feed)
	if err != nil {
		metrics.RecordStageError("filter")
		return nil, domain.Stats{}, fmt.Errorf("filter: %w", err)
	}
	candidateIDs := make([]string, len(candidates))
	for i, ep := range candidates {
		candidateIDs[i] = ep.EpisodeID
	}

	stats, err := u.download(ctx, feed, candidates)
	if err != nil {
		metrics.RecordStageError("download")
		return candidateIDs, stats, fmt.Errorf("download: %w", err)
	}

	if err := u.cleanup(ctx, feed); err != nil {
		// Cleanup failures are accumulated and logged, never fatal to the run
		// (spec.md §4.6 Stage 4); still recorded as a stage error metric.
		metrics.RecordStageError("cleanup")
		slog.Warn("stage 4 cleanup had failures", slog.String("feed_id", feed.FeedID), slog.Any("error", err))
	}

	if err := u.publish(ctx, feed); err != nil {
		metrics.RecordStageError("publish")
		return candidateIDs, stats, fmt.Errorf("publish: %w", err)
	}

	return candidateIDs, stats, nil
}

func (u *Updater) startStage(ctx context.Context, feedID, stage string) (context.Context, func()) {
	ctx, span := tracing.StartStage(ctx, feedID, stage)
	return ctx, func() { span.End() }
}
