package feedxml

import (
	"encoding/xml"
	"testing"

	"vodcast/internal/domain"
)

func TestRenderer_RenderOPML_FiltersByIncludeInOPML(t *testing.T) {
	r := New("https://pod.example.com")
	feeds := []*domain.Feed{
		{FeedID: "a", Title: "Feed A", Metadata: domain.Metadata{IncludeInOPML: true}},
		{FeedID: "b", Title: "Feed B", Metadata: domain.Metadata{IncludeInOPML: false}},
	}

	out, err := r.RenderOPML(feeds)
	if err != nil {
		t.Fatalf("RenderOPML() error = %v", err)
	}

	var doc opml
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal rendered opml: %v", err)
	}
	if len(doc.Body.Outlines) != 1 {
		t.Fatalf("Body.Outlines = %d, want 1", len(doc.Body.Outlines))
	}
	if doc.Body.Outlines[0].XMLURL != "https://pod.example.com/a.xml" {
		t.Errorf("XMLURL = %q, want %q", doc.Body.Outlines[0].XMLURL, "https://pod.example.com/a.xml")
	}
}

func TestRenderer_RenderOPML_EmptyWhenNoneIncluded(t *testing.T) {
	r := New("https://pod.example.com")
	out, err := r.RenderOPML(nil)
	if err != nil {
		t.Fatalf("RenderOPML() error = %v", err)
	}

	var doc opml
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal rendered opml: %v", err)
	}
	if len(doc.Body.Outlines) != 0 {
		t.Errorf("Body.Outlines = %d, want 0", len(doc.Body.Outlines))
	}
}
