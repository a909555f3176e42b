package domain

import "fmt"

// Format is the media format a feed downloads episodes as.
type Format string

const (
	FormatVideo  Format = "video"
	FormatAudio  Format = "audio"
	FormatCustom Format = "custom"
)

// Quality selects the format-selector tier the download driver requests.
type Quality string

const (
	QualityHigh Quality = "high"
	QualityLow  Quality = "low"
)

// SortOrder controls the order episodes are selected in during Stage 2.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Filters are the per-feed episode selection predicates applied in Stage 2.
// An empty pattern means "accept"; zero durations/ages mean "ignored".
type Filters struct {
	Title          string `json:"title,omitempty" toml:"title,omitempty"`
	NotTitle       string `json:"not_title,omitempty" toml:"not_title,omitempty"`
	Description    string `json:"description,omitempty" toml:"description,omitempty"`
	NotDescription string `json:"not_description,omitempty" toml:"not_description,omitempty"`
	MinDuration    int    `json:"min_duration,omitempty" toml:"min_duration,omitempty"`
	MaxDuration    int    `json:"max_duration,omitempty" toml:"max_duration,omitempty"`
	MinAge         int    `json:"min_age,omitempty" toml:"min_age,omitempty"`
	MaxAge         int    `json:"max_age,omitempty" toml:"max_age,omitempty"`
}

// CleanupPolicy bounds how many downloaded episodes are retained on disk.
type CleanupPolicy struct {
	KeepLast int `json:"keep_last" toml:"keep_last"`
}

// Metadata is the custom iTunes-facing metadata block rendered into the feed
// document; every field is optional and overrides a value otherwise derived
// from the upstream channel.
type Metadata struct {
	Category            string   `json:"category,omitempty" toml:"category,omitempty"`
	Subcategories       []string `json:"subcategories,omitempty" toml:"subcategories,omitempty"`
	Language            string   `json:"language,omitempty" toml:"language,omitempty"`
	Explicit            bool     `json:"explicit,omitempty" toml:"explicit,omitempty"`
	Owner               string   `json:"owner,omitempty" toml:"owner,omitempty"`
	Link                string   `json:"link,omitempty" toml:"link,omitempty"`
	OverrideTitle       string   `json:"override_title,omitempty" toml:"override_title,omitempty"`
	OverrideDescription string   `json:"override_description,omitempty" toml:"override_description,omitempty"`
	IncludeInOPML       bool     `json:"include_in_opml,omitempty" toml:"include_in_opml,omitempty"`
}

// Feed is a configured subscription mapping a remote channel URL to a
// locally hosted podcast document. Identity is FeedID, unique across the
// system.
type Feed struct {
	FeedID          string        `json:"feed_id" toml:"feed_id"`
	SourceURL       string        `json:"source_url" toml:"source_url"`
	Provider        string        `json:"provider" toml:"provider"`
	Title           string        `json:"title" toml:"title"`
	Description     string        `json:"description,omitempty" toml:"description,omitempty"`
	CoverArtURL     string        `json:"cover_art_url,omitempty" toml:"cover_art_url,omitempty"`
	Author          string        `json:"author,omitempty" toml:"author,omitempty"`
	Format          Format        `json:"format" toml:"format"`
	Quality         Quality       `json:"quality" toml:"quality"`
	MaxHeight       int           `json:"max_height,omitempty" toml:"max_height,omitempty"`
	UpdatePeriod    string        `json:"update_period,omitempty" toml:"update_period,omitempty"`
	CronExpression  string        `json:"cron_expression,omitempty" toml:"cron_expression,omitempty"`
	PageSize        int           `json:"page_size" toml:"page_size"`
	PlaylistSort    SortOrder     `json:"playlist_sort" toml:"playlist_sort"`
	Filters         Filters       `json:"filters" toml:"filters"`
	Cleanup         CleanupPolicy `json:"cleanup" toml:"cleanup"`
	CustomExtension string        `json:"custom_extension,omitempty" toml:"custom_extension,omitempty"`
	CustomSelector  string        `json:"custom_selector,omitempty" toml:"custom_selector,omitempty"`
	ExtraArgs       []string      `json:"extra_args,omitempty" toml:"extra_args,omitempty"`
	Metadata        Metadata      `json:"metadata" toml:"metadata"`
}

// HasExplicitCronSchedule reports whether the feed names a cron expression.
// A feed with only UpdatePeriod is scheduled via a synthesised "@every"
// expression and gets a boot-time kick; a feed with an explicit expression
// defers its first run to the next tick (see spec.md §4.7).
func (f *Feed) HasExplicitCronSchedule() bool {
	return f.CronExpression != ""
}

// Validate checks the feed invariants from spec.md §3: either interval or
// cron expression must be set.
func (f *Feed) Validate() error {
	if f.FeedID == "" {
		return &ValidationError{Field: "feed_id", Message: "is required"}
	}
	if f.SourceURL == "" {
		return &ValidationError{Field: "source_url", Message: "is required"}
	}
	if f.UpdatePeriod == "" && f.CronExpression == "" {
		return &ValidationError{Field: "update_period", Message: "either update_period or cron_expression must be set"}
	}
	switch f.Format {
	case FormatVideo, FormatAudio, FormatCustom:
	default:
		return &ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", f.Format)}
	}
	switch f.Quality {
	case QualityHigh, QualityLow, "":
	default:
		return &ValidationError{Field: "quality", Message: fmt.Sprintf("unknown quality %q", f.Quality)}
	}
	if f.Format == FormatCustom && f.CustomExtension == "" {
		return &ValidationError{Field: "custom_extension", Message: "is required for format=custom"}
	}
	return nil
}
