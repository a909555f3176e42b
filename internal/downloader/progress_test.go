package downloader

import (
	"strings"
	"testing"

	"vodcast/internal/domain"
)

func TestScanProgress_ParsesDownloadLine(t *testing.T) {
	input := "[download]  42.0% of 123.45MiB at 1.23MiB/s\n"

	var gotStage domain.Stage
	var gotPercent float64
	var gotDownloaded, gotTotal int64
	var gotSpeed string
	cb := func(stage domain.Stage, percent float64, downloaded, total int64, speed string) {
		gotStage, gotPercent, gotDownloaded, gotTotal, gotSpeed = stage, percent, downloaded, total, speed
	}

	var sawTMR bool
	scanProgress(strings.NewReader(input), cb, &sawTMR)

	if gotStage != domain.StageDownloading {
		t.Errorf("stage = %q, want %q", gotStage, domain.StageDownloading)
	}
	if gotPercent != 42.0 {
		t.Errorf("percent = %v, want 42.0", gotPercent)
	}
	wantTotal := int64(123.45 * 1024 * 1024)
	if gotTotal != wantTotal {
		t.Errorf("total = %d, want %d", gotTotal, wantTotal)
	}
	if gotDownloaded == 0 {
		t.Error("downloaded = 0, want a nonzero derived byte count")
	}
	if gotSpeed != "1.23MiB" {
		t.Errorf("speed = %q, want %q", gotSpeed, "1.23MiB")
	}
	if sawTMR {
		t.Error("sawTooManyRequests = true, want false")
	}
}

func TestScanProgress_EncodingLineTransitionsStage(t *testing.T) {
	input := "[ffmpeg] Destination: /tmp/ep1.mp3\n"

	var gotStage domain.Stage
	cb := func(stage domain.Stage, percent float64, downloaded, total int64, speed string) {
		gotStage = stage
	}
	var sawTMR bool
	scanProgress(strings.NewReader(input), cb, &sawTMR)

	if gotStage != domain.StageEncoding {
		t.Errorf("stage = %q, want %q", gotStage, domain.StageEncoding)
	}
}

func TestScanProgress_DetectsTooManyRequests(t *testing.T) {
	input := "ERROR: unable to download video data: HTTP Error 429: Too Many Requests\n"

	var sawTMR bool
	scanProgress(strings.NewReader(input), nil, &sawTMR)

	if !sawTMR {
		t.Error("sawTooManyRequests = false, want true")
	}
}

func TestScanProgress_IgnoresUnrecognizedLines(t *testing.T) {
	input := "some unrelated log line\n[youtube] Extracting URL\n"

	called := false
	cb := func(domain.Stage, float64, int64, int64, string) { called = true }
	var sawTMR bool
	scanProgress(strings.NewReader(input), cb, &sawTMR)

	if called {
		t.Error("callback invoked for a non-progress, non-encoding line")
	}
}

func TestUnitToBytes(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  int64
	}{
		{1, "B", 1},
		{1, "KiB", 1024},
		{1, "MiB", 1024 * 1024},
		{1, "GiB", 1024 * 1024 * 1024},
	}
	for _, tt := range tests {
		if got := unitToBytes(tt.value, tt.unit); got != tt.want {
			t.Errorf("unitToBytes(%v, %q) = %d, want %d", tt.value, tt.unit, got, tt.want)
		}
	}
}
