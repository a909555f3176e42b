package downloader

import (
	"fmt"
	"path/filepath"

	"vodcast/internal/domain"
)

// formatSelector builds the format-selector argument pair for a feed's
// configured format/quality/max_height, per spec.md §4.5's argument table.
func formatSelector(feed *domain.Feed) []string {
	switch feed.Format {
	case domain.FormatAudio:
		return []string{"--extract-audio", "--audio-format", "mp3", "--format", qualityTier(feed.Quality) + "audio"}
	case domain.FormatCustom:
		ext := feed.CustomExtension
		selector := feed.CustomSelector
		if selector == "" {
			selector = qualityTier(feed.Quality) + "audio"
		}
		return []string{"--audio-format", ext, "--format", selector}
	default: // domain.FormatVideo
		return []string{"--format", videoFormatSelector(feed.Quality, feed.MaxHeight)}
	}
}

func qualityTier(q domain.Quality) string {
	if q == domain.QualityLow {
		return "worst"
	}
	return "best"
}

func videoFormatSelector(quality domain.Quality, maxHeight int) string {
	tier := qualityTier(quality)
	heightClause := ""
	if maxHeight > 0 {
		heightClause = fmt.Sprintf("[height<=%d]", maxHeight)
	}
	return fmt.Sprintf(
		"%svideo[ext=mp4][vcodec^=avc1]%s+%saudio[ext=m4a]/%s[ext=mp4]%s",
		tier, heightClause, tier, tier, heightClause,
	)
}

// buildArgs assembles the full subprocess argument list for one episode
// download: format selector, feed-specific extra args, then the shared
// progress/output flags.
func buildArgs(feed *domain.Feed, episode *domain.Episode, tmpDir string) []string {
	args := formatSelector(feed)
	args = append(args, feed.ExtraArgs...)
	args = append(args,
		"--progress",
		"--newline",
		"--output", filepath.Join(tmpDir, episode.EpisodeID+".%(ext)s"),
		episode.SourceURL,
	)
	return args
}

// finishedFilePath finds the single file the subprocess produced under
// tmpDir matching "<episodeID>.*" — yt-dlp-family tools resolve the actual
// extension themselves, so the name isn't known ahead of time.
func finishedFilePath(tmpDir, episodeID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(tmpDir, episodeID+".*"))
	if err != nil {
		return "", fmt.Errorf("glob temp dir: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no output file produced for episode %q", episodeID)
	}
	return matches[0], nil
}
