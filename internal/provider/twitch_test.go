package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vodcast/internal/domain"
)

func TestTwitchAdapter_Build_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users"):
			w.Write([]byte(`{"data":[{"id":"99","display_name":"Test Streamer","description":"desc","profile_image_url":"https://img/cover.jpg"}]}`))
		case strings.HasSuffix(r.URL.Path, "/videos"):
			w.Write([]byte(`{"data":[{"id":"v1","title":"Stream 1","description":"d1","url":"https://twitch.tv/videos/v1","thumbnail_url":"https://img/1.jpg","created_at":"2024-01-01T00:00:00Z","duration":"1h2m3s"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := &twitchAdapter{client: server.Client(), keys: NewKeyRotator([]string{"client-id:token"}), baseURL: server.URL}

	snap, err := adapter.Build(context.Background(), "https://www.twitch.tv/teststreamer", 10, domain.SortDescending)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if snap.Title != "Test Streamer" {
		t.Errorf("Title = %q, want %q", snap.Title, "Test Streamer")
	}
	if len(snap.Items) != 1 || snap.Items[0].ID != "v1" {
		t.Fatalf("Items = %+v, want one item with ID v1", snap.Items)
	}
	if snap.Items[0].Duration != 3723 {
		t.Errorf("Duration = %d, want 3723 (1h2m3s)", snap.Items[0].Duration)
	}
}

func TestSplitClientIDAndToken(t *testing.T) {
	id, token := splitClientIDAndToken("abc:xyz")
	if id != "abc" || token != "xyz" {
		t.Errorf("splitClientIDAndToken() = (%q, %q), want (%q, %q)", id, token, "abc", "xyz")
	}

	id, token = splitClientIDAndToken("justid")
	if id != "justid" || token != "" {
		t.Errorf("splitClientIDAndToken() = (%q, %q), want (%q, %q)", id, token, "justid", "")
	}
}

func TestParseTwitchDuration(t *testing.T) {
	tests := map[string]int{
		"1h2m3s": 3723,
		"45m":    2700,
		"30s":    30,
		"2h":     7200,
		"":       0,
	}
	for input, want := range tests {
		if got := parseTwitchDuration(input); got != want {
			t.Errorf("parseTwitchDuration(%q) = %d, want %d", input, got, want)
		}
	}
}
