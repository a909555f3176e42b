// Package hooks runs the post-download hook scripts spec.md §4.6 Stage 3.5
// invokes after each episode is committed to the artifact store. Adapted
// from the teacher's internal/usecase/notify multi-channel dispatch: each
// configured hook is a "channel" here, but instead of an HTTP webhook it's
// an os/exec invocation, and a failing hook is logged, never propagated.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"vodcast/internal/domain"
)

// defaultTimeout bounds a single hook invocation so a hung script can't
// stall Stage 3 indefinitely.
const defaultTimeout = 30 * time.Second

// Runner executes a fixed list of hook commands after every successful
// episode download.
type Runner struct {
	commands []string
	timeout  time.Duration
}

// New returns a Runner over commands (each a path to an executable hook
// script, spec.md §9's "Post-download hooks ... out of scope beyond the
// env-var contract" Open Question resolved as: configured as a flat list of
// executables, no shell, no templating).
func New(commands []string) *Runner {
	return &Runner{commands: commands, timeout: defaultTimeout}
}

// Run invokes every configured hook in order with EPISODE_FILE, FEED_NAME,
// and EPISODE_TITLE set in its environment, per spec.md §4.6 Stage 3 step 5.
// A hook's failure is wrapped in domain.ErrHookError and logged, and the
// remaining hooks still run. Run has no return value, so a failure is never
// passed to the caller; this log line is the only place it surfaces.
func (r *Runner) Run(ctx context.Context, feedID string, episode *domain.Episode) {
	if len(r.commands) == 0 {
		return
	}
	env := []string{
		"EPISODE_FILE=" + episode.ArtifactPath(),
		"FEED_NAME=" + feedID,
		"EPISODE_TITLE=" + episode.Title,
	}
	for _, cmd := range r.commands {
		if err := r.runOne(ctx, cmd, env); err != nil {
			slog.Warn("post-download hook failed",
				slog.String("feed_id", feedID),
				slog.String("episode_id", episode.EpisodeID),
				slog.String("hook", cmd),
				slog.Any("error", err))
		}
	}
}

func (r *Runner) runOne(ctx context.Context, command string, env []string) error {
	hookCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(hookCtx, command)
	cmd.Env = append(os.Environ(), env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v (%s)", domain.ErrHookError, command, err, stderr.String())
	}
	return nil
}
