// Package downloader implements the Download Driver (spec.md §4.5): a thin
// wrapper over an external media-downloader binary, responsible for binary
// discovery, argument construction, subprocess invocation, progress-line
// parsing, and periodic self-update.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"vodcast/internal/config"
	"vodcast/internal/domain"
	"vodcast/internal/resilience/circuitbreaker"
	"vodcast/internal/resilience/retry"
)

// defaultBinary is the name resolved via PATH when no custom_binary is
// configured.
const defaultBinary = "yt-dlp"

// transcoders are probed in order; the first one found on PATH satisfies
// the "a transcoder binary exists" discovery requirement.
var transcoders = []string{"ffmpeg", "avconv"}

// ProgressCallback receives one update per parsed progress line. A single
// callback is bound at a time; Driver.Download rebinds it for the duration
// of one invocation.
type ProgressCallback func(stage domain.Stage, percent float64, downloaded, total int64, speed string)

// Driver wraps the downloader binary. Safe for concurrent use: self-update
// and Download both take updateLock, so a download and an in-place binary
// replacement never race.
type Driver struct {
	binaryPath     string
	transcoder     string
	timeout        time.Duration
	selfUpdate     bool
	updateChannel  config.UpdateChannel
	updateVersion  string
	breaker        *circuitbreaker.CircuitBreaker
	execCommand    func(ctx context.Context, name string, args ...string) *exec.Cmd
	updateLock     sync.Mutex
	stopSelfUpdate chan struct{}
}

// New discovers the binary and transcoder, failing startup if either is
// missing, per spec.md §4.5 discovery step.
func New(ctx context.Context, cfg config.Downloader) (*Driver, error) {
	binary := cfg.CustomBinary
	if binary == "" {
		binary = defaultBinary
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNoBinary, binary, err)
	}

	versionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(versionCtx, resolved, "--version").Run(); err != nil {
		return nil, fmt.Errorf("downloader: %q --version failed: %w", resolved, err)
	}

	transcoder := ""
	for _, t := range transcoders {
		if path, err := exec.LookPath(t); err == nil {
			transcoder = path
			break
		}
	}
	if transcoder == "" {
		return nil, fmt.Errorf("%w: no transcoder found (tried %v)", ErrNoBinary, transcoders)
	}

	timeout := time.Duration(cfg.TimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	d := &Driver{
		binaryPath:     resolved,
		transcoder:     transcoder,
		timeout:        timeout,
		selfUpdate:     cfg.SelfUpdate,
		updateChannel:  cfg.UpdateChannel,
		updateVersion:  cfg.UpdateVersion,
		breaker:        circuitbreaker.New(circuitbreaker.DownloaderConfig()),
		stopSelfUpdate: make(chan struct{}),
	}
	d.execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, name, args...)
	}
	return d, nil
}

// StartSelfUpdateLoop runs the self-update subcommand once immediately, then
// every 24 hours, until ctx is cancelled or Stop is called. No-op if
// self-update is disabled in configuration.
func (d *Driver) StartSelfUpdateLoop(ctx context.Context) {
	if !d.selfUpdate {
		return
	}
	go func() {
		if err := d.selfUpdateOnce(ctx); err != nil {
			slog.Warn("downloader self-update failed", slog.Any("error", err))
		}
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stopSelfUpdate:
				return
			case <-ticker.C:
				if err := d.selfUpdateOnce(ctx); err != nil {
					slog.Warn("downloader self-update failed", slog.Any("error", err))
				}
			}
		}
	}()
}

// Stop halts the self-update loop.
func (d *Driver) Stop() {
	close(d.stopSelfUpdate)
}

func (d *Driver) selfUpdateOnce(ctx context.Context) error {
	d.updateLock.Lock()
	defer d.updateLock.Unlock()

	target := string(d.updateChannel)
	if d.updateVersion != "" {
		target = fmt.Sprintf("%s@%s", d.updateChannel, d.updateVersion)
	}
	slog.Info("running downloader self-update", slog.String("target", target))

	updateCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	cmd := d.execCommand(updateCtx, d.binaryPath, "--update-to", target)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("downloader: self-update failed: %w (%s)", err, out)
	}
	return nil
}

// PlaylistMetadata fetches just the channel-level metadata for url using a
// JSON-dump invocation with playlist-items=0.
func (d *Driver) PlaylistMetadata(ctx context.Context, url string) (*Metadata, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		var meta *Metadata
		err := retry.WithBackoff(ctx, retry.ListingFetchConfig(), func() error {
			m, rerr := d.fetchMetadata(ctx, url)
			if rerr != nil {
				return rerr
			}
			meta = m
			return nil
		})
		return meta, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*Metadata), nil
}

func (d *Driver) fetchMetadata(ctx context.Context, url string) (*Metadata, error) {
	cmd := d.execCommand(ctx, d.binaryPath, "--dump-single-json", "--playlist-items", "0", url)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("downloader: metadata fetch failed: %w", err)
	}
	return parseMetadata(out)
}

// Download invokes the subprocess for one episode, streaming progress to cb
// and returning a reader over the finished file. The caller must Close the
// returned reader (this removes the temp directory); on any error the temp
// directory is removed immediately.
func (d *Driver) Download(ctx context.Context, feed *domain.Feed, episode *domain.Episode, cb ProgressCallback) (ReadCloser, error) {
	d.updateLock.Lock()
	defer d.updateLock.Unlock()

	tmpDir, err := os.MkdirTemp("", "vodcast-dl-*")
	if err != nil {
		return nil, fmt.Errorf("downloader: mkdir temp: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	downloadCtx, cancel := context.WithTimeout(ctx, d.timeout)
	args := buildArgs(feed, episode, tmpDir)
	cmd := d.execCommand(downloadCtx, d.binaryPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		cleanup()
		return nil, fmt.Errorf("downloader: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		cleanup()
		return nil, fmt.Errorf("downloader: start: %w", err)
	}

	sawTooManyRequests := false
	scanProgress(stderr, cb, &sawTooManyRequests)

	// Rate-limit signals don't indicate an unhealthy downloader, so they
	// don't count as a circuit-breaker failure; any other subprocess
	// failure does.
	_, execErr := d.breaker.Execute(func() (interface{}, error) {
		waitErr := cmd.Wait()
		if sawTooManyRequests {
			return nil, nil
		}
		return nil, waitErr
	})
	cancel()
	if sawTooManyRequests {
		cleanup()
		return nil, domain.ErrTooManyRequests
	}
	if execErr != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, execErr)
	}

	path, err := finishedFilePath(tmpDir, episode.EpisodeID)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	episode.FileName = fmt.Sprintf("%s%s", episode.EpisodeID, filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("downloader: open downloaded file: %w", err)
	}
	return &tempFileReader{File: f, tmpDir: tmpDir}, nil
}

// ReadCloser is the streamed result of a successful download; closing it
// both closes the underlying file and removes its temp directory.
type ReadCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

type tempFileReader struct {
	*os.File
	tmpDir string
}

func (r *tempFileReader) Close() error {
	err := r.File.Close()
	os.RemoveAll(r.tmpDir)
	return err
}

// ErrNoBinary is returned by New indirectly via a wrapped error when the
// binary or transcoder cannot be located; kept here as the package's
// documented sentinel for callers that want to errors.Is against discovery
// failures specifically (rather than the wrapped exec error).
var ErrNoBinary = errors.New("downloader: required binary not found")
