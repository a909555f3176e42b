package downloader

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"vodcast/internal/domain"
)

// progressLineRe matches lines like:
//   [download]  42.0% of 123.45MiB at 1.23MiB/s
// Percent, size, and unit are captured; the rate clause is optional (it's
// absent once a download completes).
var progressLineRe = regexp.MustCompile(
	`\[download\]\s+(\d+(?:\.\d+)?)% of\s+(\d+(?:\.\d+)?)(B|KiB|MiB|GiB)(?:\s+at\s+([\d.]+(?:B|KiB|MiB|GiB))/s)?`,
)

var tooManyRequestsRe = regexp.MustCompile(`HTTP Error 429`)

var encodingPrefixes = []string{"[ffmpeg]", "[ExtractAudio]", "[VideoConvertor]"}

func unitToBytes(value float64, unit string) int64 {
	switch unit {
	case "KiB":
		return int64(value * 1024)
	case "MiB":
		return int64(value * 1024 * 1024)
	case "GiB":
		return int64(value * 1024 * 1024 * 1024)
	default:
		return int64(value)
	}
}

// scanProgress reads r line by line, translating matching lines into cb
// calls, and sets *sawTooManyRequests if the subprocess reported a 429.
func scanProgress(r io.Reader, cb ProgressCallback, sawTooManyRequests *bool) {
	scanner := bufio.NewScanner(r)
	// yt-dlp-family tools can rewrite the current line with carriage returns;
	// bufio.Scanner's default line splitter treats those as part of the
	// line, so progress lines still arrive newline-terminated via --newline.
	for scanner.Scan() {
		line := scanner.Text()

		if tooManyRequestsRe.MatchString(line) {
			*sawTooManyRequests = true
			continue
		}

		if isEncodingLine(line) {
			if cb != nil {
				cb(domain.StageEncoding, 0, 0, 0, "")
			}
			continue
		}

		m := progressLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		percent, _ := strconv.ParseFloat(m[1], 64)
		totalValue, _ := strconv.ParseFloat(m[2], 64)
		total := unitToBytes(totalValue, m[3])
		downloaded := int64(float64(total) * percent / 100)
		speed := m[4]
		if cb != nil {
			cb(domain.StageDownloading, percent, downloaded, total, speed)
		}
	}
}

func isEncodingLine(line string) bool {
	for _, prefix := range encodingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
