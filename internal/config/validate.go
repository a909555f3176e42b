package config

import (
	"errors"
	"fmt"

	"vodcast/internal/domain"
)

// ErrConfig is the sentinel wrapped by every config-layer failure, matching
// domain.ErrConfigError at the boundary between this package and callers
// that only want to test "was this a config problem".
var ErrConfig = domain.ErrConfigError

// Validate aggregates every structural validation failure into one
// domain.CleanupFailure-style error, matching the teacher's Validate()
// aggregation idiom. Structural fields (storage type, database directory,
// downloader binary path) are fatal at startup; per-field tunables are
// instead repaired by ApplyEnvOverrides before Validate ever sees them.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Storage.Type {
	case StorageTypeLocal:
		if cfg.Storage.DataDir == "" {
			errs = append(errs, &domain.ValidationError{Field: "storage.data_dir", Message: "is required for storage.type=local"})
		}
	case StorageTypeRemoteObject:
		if cfg.Storage.Bucket == "" {
			errs = append(errs, &domain.ValidationError{Field: "storage.bucket", Message: "is required for storage.type=remote_object"})
		}
	default:
		errs = append(errs, &domain.ValidationError{Field: "storage.type", Message: fmt.Sprintf("unknown storage type %q", cfg.Storage.Type)})
	}

	if cfg.Database.Dir == "" {
		errs = append(errs, &domain.ValidationError{Field: "database.dir", Message: "is required"})
	}

	switch cfg.Downloader.UpdateChannel {
	case ChannelStable, ChannelNightly, ChannelMaster, "":
	default:
		errs = append(errs, &domain.ValidationError{Field: "downloader.update_channel", Message: fmt.Sprintf("unknown channel %q", cfg.Downloader.UpdateChannel)})
	}
	if cfg.Downloader.TimeoutMinutes <= 0 {
		errs = append(errs, &domain.ValidationError{Field: "downloader.timeout", Message: "must be a positive number of minutes"})
	}

	for id, feed := range cfg.Feeds {
		feed := feed
		if feed.FeedID == "" {
			feed.FeedID = id
		}
		if err := feed.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("feeds.%s: %w", id, err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfig, errors.Join(errs...))
}
