package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vodcast/internal/domain"
)

func TestYouTubeAdapter_Build_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/channels"):
			w.Write([]byte(`{"items":[{"snippet":{"title":"Test Channel","description":"A channel","thumbnails":{"high":{"url":"https://img/cover.jpg"}}},"contentDetails":{"relatedPlaylists":{"uploads":"UU123"}}}]}`))
		case strings.Contains(r.URL.Path, "/playlistItems"):
			w.Write([]byte(`{"items":[{"snippet":{"title":"Episode 1","description":"First","publishedAt":"2024-01-01T00:00:00Z","thumbnails":{"high":{"url":"https://img/1.jpg"}},"resourceId":{"videoId":"v1"}},"contentDetails":{"videoId":"v1"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := &youtubeAdapter{client: server.Client(), keys: NewKeyRotator([]string{"test-key"}), baseURL: server.URL}

	snap, err := adapter.Build(context.Background(), "https://www.youtube.com/channel/UCabc123", 10, domain.SortDescending)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if snap.Title != "Test Channel" {
		t.Errorf("Title = %q, want %q", snap.Title, "Test Channel")
	}
	if len(snap.Items) != 1 || snap.Items[0].ID != "v1" {
		t.Fatalf("Items = %+v, want one item with ID v1", snap.Items)
	}
	wantPublished, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	if !snap.Items[0].PublishedAt.Equal(wantPublished) {
		t.Errorf("PublishedAt = %v, want %v", snap.Items[0].PublishedAt, wantPublished)
	}
}

func TestYouTubeAdapter_Build_QuotaErrorRotatesKey(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	rotator := NewKeyRotator([]string{"key-a", "key-b"})
	adapter := &youtubeAdapter{client: server.Client(), keys: rotator, baseURL: server.URL}

	_, err := adapter.Build(context.Background(), "https://www.youtube.com/channel/UCabc123", 10, domain.SortDescending)
	if err == nil {
		t.Fatal("Build() error = nil, want a quota error")
	}

	next, nextErr := rotator.Next()
	if nextErr != nil {
		t.Fatalf("Next() error = %v", nextErr)
	}
	if next != "key-b" {
		t.Errorf("Next() = %q after quota error, want %q (rotator should have advanced)", next, "key-b")
	}
}

func TestYouTubeAdapter_Build_ChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	adapter := &youtubeAdapter{client: server.Client(), keys: NewKeyRotator([]string{"k"}), baseURL: server.URL}

	_, err := adapter.Build(context.Background(), "https://www.youtube.com/channel/UCabc123", 10, domain.SortDescending)
	if err == nil {
		t.Fatal("Build() error = nil, want an error for an empty channel list")
	}
}

func TestExtractYouTubeChannelID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantID  string
		wantErr bool
	}{
		{"channel url", "https://www.youtube.com/channel/UCabc123", "UCabc123", false},
		{"channel url with trailing segment", "https://www.youtube.com/channel/UCabc123/videos", "UCabc123", false},
		{"no channel segment", "https://www.youtube.com/watch?v=xyz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := extractYouTubeChannelID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("extractYouTubeChannelID(%q) error = nil, want error", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractYouTubeChannelID(%q) error = %v", tt.url, err)
			}
			if id != tt.wantID {
				t.Errorf("extractYouTubeChannelID(%q) = %q, want %q", tt.url, id, tt.wantID)
			}
		})
	}
}
