package feedupdate

import "errors"

// Sentinel errors for pipeline-stage failures, in the style of the
// teacher's internal/usecase/fetch/errors.go. Stage failures are normally
// wrapped domain.Err* values returned by a collaborator; these two cover
// failures specific to orchestration rather than any one collaborator.
var (
	// ErrUnknownProvider indicates a feed names a provider tag the registry
	// has no adapter for.
	ErrUnknownProvider = errors.New("feedupdate: unknown provider")

	// ErrPipelineAborted indicates the pipeline context was cancelled
	// mid-run (e.g. process shutdown), distinct from any single stage's
	// own failure.
	ErrPipelineAborted = errors.New("feedupdate: pipeline aborted")
)
