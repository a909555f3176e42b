package feedxml

import (
	"encoding/xml"
	"fmt"

	"vodcast/internal/domain"
)

// opml is the combined subscription list written to podsync.opml, covering
// every feed whose metadata.include_in_opml is set (spec.md §4.6 Stage 5).
type opml struct {
	XMLName xml.Name  `xml:"opml"`
	Version string    `xml:"version,attr"`
	Head    opmlHead  `xml:"head"`
	Body    opmlBody  `xml:"body"`
}

type opmlHead struct {
	Title string `xml:"title"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text   string `xml:"text,attr"`
	Title  string `xml:"title,attr"`
	Type   string `xml:"type,attr"`
	XMLURL string `xml:"xmlUrl,attr"`
}

// RenderOPML renders feeds into one OPML document listing each feed's
// published XML URL; feeds without metadata.include_in_opml are skipped here.
func (r *Renderer) RenderOPML(feeds []*domain.Feed) ([]byte, error) {
	doc := opml{
		Version: "2.0",
		Head:    opmlHead{Title: "vodcast subscriptions"},
	}
	for _, feed := range feeds {
		if !feed.Metadata.IncludeInOPML {
			continue
		}
		doc.Body.Outlines = append(doc.Body.Outlines, opmlOutline{
			Text:   feed.Title,
			Title:  feed.Title,
			Type:   "rss",
			XMLURL: fmt.Sprintf("%s/%s.xml", r.BaseURL, feed.FeedID),
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feedxml: marshal opml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
