package downloader

import "testing"

func TestParseMetadata_FlattensThumbnails(t *testing.T) {
	raw := []byte(`{
		"id": "UC123",
		"title": "Test Channel",
		"description": "desc",
		"thumbnails": [{"url": "https://img/1.jpg"}, {"url": "https://img/2.jpg"}],
		"channel": "Test Channel",
		"channel_id": "UC123",
		"channel_url": "https://www.youtube.com/channel/UC123",
		"webpage_url": "https://www.youtube.com/channel/UC123"
	}`)

	meta, err := parseMetadata(raw)
	if err != nil {
		t.Fatalf("parseMetadata() error = %v", err)
	}
	if meta.Title != "Test Channel" {
		t.Errorf("Title = %q, want %q", meta.Title, "Test Channel")
	}
	if len(meta.Thumbnails) != 2 {
		t.Fatalf("Thumbnails = %v, want 2 entries", meta.Thumbnails)
	}
	if meta.Thumbnails[0] != "https://img/1.jpg" {
		t.Errorf("Thumbnails[0] = %q, want %q", meta.Thumbnails[0], "https://img/1.jpg")
	}
}

func TestParseMetadata_InvalidJSON(t *testing.T) {
	_, err := parseMetadata([]byte("not json"))
	if err == nil {
		t.Fatal("parseMetadata() error = nil, want an error for invalid JSON")
	}
}
