package feedupdate

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"vodcast/internal/domain"
)

// compiledFilters holds the per-run compiled regexes for a feed's filter
// config, so selectCandidates doesn't recompile a pattern per episode.
type compiledFilters struct {
	title          *regexp.Regexp
	notTitle       *regexp.Regexp
	description    *regexp.Regexp
	notDescription *regexp.Regexp
	minDuration    int
	maxDuration    int
	minAge         int
	maxAge         int
}

func compileFilters(f domain.Filters) (*compiledFilters, error) {
	cf := &compiledFilters{
		minDuration: f.MinDuration,
		maxDuration: f.MaxDuration,
		minAge:      f.MinAge,
		maxAge:      f.MaxAge,
	}
	var err error
	if f.Title != "" {
		if cf.title, err = regexp.Compile(f.Title); err != nil {
			return nil, fmt.Errorf("compile title filter: %w", err)
		}
	}
	if f.NotTitle != "" {
		if cf.notTitle, err = regexp.Compile(f.NotTitle); err != nil {
			return nil, fmt.Errorf("compile not_title filter: %w", err)
		}
	}
	if f.Description != "" {
		if cf.description, err = regexp.Compile(f.Description); err != nil {
			return nil, fmt.Errorf("compile description filter: %w", err)
		}
	}
	if f.NotDescription != "" {
		if cf.notDescription, err = regexp.Compile(f.NotDescription); err != nil {
			return nil, fmt.Errorf("compile not_description filter: %w", err)
		}
	}
	return cf, nil
}

// accepts applies all configured predicates; an empty pattern or a zero
// threshold always passes (spec.md §4.6 Stage 2).
func (cf *compiledFilters) accepts(ep *domain.Episode) bool {
	if cf.title != nil && !cf.title.MatchString(ep.Title) {
		return false
	}
	if cf.notTitle != nil && cf.notTitle.MatchString(ep.Title) {
		return false
	}
	if cf.description != nil && !cf.description.MatchString(ep.Description) {
		return false
	}
	if cf.notDescription != nil && cf.notDescription.MatchString(ep.Description) {
		return false
	}
	if cf.minDuration > 0 && ep.Duration < cf.minDuration {
		return false
	}
	if cf.maxDuration > 0 && ep.Duration > cf.maxDuration {
		return false
	}
	if !ep.PublishedAt.IsZero() {
		ageDays := int(time.Since(ep.PublishedAt).Hours() / 24)
		if cf.minAge > 0 && ageDays < cf.minAge {
			return false
		}
		if cf.maxAge > 0 && ageDays > cf.maxAge {
			return false
		}
	}
	return true
}

// selectCandidates is Stage 2: walk stored episodes in storage order,
// skipping blocked/non-candidate episodes, applying filters, and persisting
// status=ignored for a new episode the filters reject so it isn't
// re-evaluated on every subsequent run.
func (u *Updater) selectCandidates(ctx context.Context, feed *domain.Feed) ([]*domain.Episode, error) {
	ctx, end := u.startStage(ctx, feed.FeedID, "filter")
	defer end()

	cf, err := compileFilters(feed.Filters)
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Episode
	walkErr := u.storage.WalkEpisodes(ctx, feed.FeedID, func(ep *domain.Episode) error {
		if len(candidates) >= feed.PageSize && feed.PageSize > 0 {
			return nil
		}
		if ep.IsSticky() {
			return nil
		}
		if ep.Status != domain.StatusNew && ep.Status != domain.StatusError {
			return nil
		}
		if !cf.accepts(ep) {
			if ep.Status == domain.StatusNew {
				epID := ep.EpisodeID
				if updErr := u.storage.UpdateEpisode(ctx, feed.FeedID, epID, false, func(e *domain.Episode) error {
					e.Status = domain.StatusIgnored
					return nil
				}); updErr != nil {
					return fmt.Errorf("mark ignored %s: %w", epID, updErr)
				}
			}
			return nil
		}
		candidates = append(candidates, ep)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk episodes: %w", walkErr)
	}

	return candidates, nil
}
