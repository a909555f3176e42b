// Package feedxml renders the stored feed and episode records into the
// iTunes-compatible podcast RSS document and the combined OPML subscription
// list (spec.md §4.6 Stage 5). Adapted from the teacher's
// internal/podcast/rss.go struct-tagged encoding/xml shape, generalized from
// one hardcoded channel to an arbitrary domain.Feed plus its episode list.
package feedxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"vodcast/internal/domain"
)

const itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"

// rss is the RSS 2.0 root element, tagged with the iTunes namespace the
// teacher's RSS struct also declares.
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Xmlns   string   `xml:"xmlns:itunes,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string     `xml:"title"`
	Description   string     `xml:"description,omitempty"`
	Link          string     `xml:"link,omitempty"`
	Language      string     `xml:"language,omitempty"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Author        string     `xml:"itunes:author,omitempty"`
	Summary       string     `xml:"itunes:summary,omitempty"`
	Owner         *owner     `xml:"itunes:owner,omitempty"`
	Image         *itunesImg `xml:"itunes:image,omitempty"`
	Category      *category  `xml:"itunes:category,omitempty"`
	Explicit      string     `xml:"itunes:explicit,omitempty"`
	Items         []item     `xml:"item"`
}

type owner struct {
	Email string `xml:"itunes:email,omitempty"`
}

type itunesImg struct {
	Href string `xml:"href,attr"`
}

type category struct {
	Text          string        `xml:"text,attr"`
	Subcategories []subcategory `xml:"itunes:category"`
}

type subcategory struct {
	Text string `xml:"text,attr"`
}

type item struct {
	Title       string     `xml:"title"`
	Description string     `xml:"description,omitempty"`
	GUID        guid       `xml:"guid"`
	PubDate     string     `xml:"pubDate"`
	Duration    string     `xml:"itunes:duration,omitempty"`
	Image       *itunesImg `xml:"itunes:image,omitempty"`
	Enclosure   enclosure  `xml:"enclosure"`
}

type guid struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

// mimeType maps a feed's format to the enclosure MIME type. format=custom
// uses the feed's configured custom_extension to guess a reasonable type,
// falling back to a generic octet stream.
func mimeType(feed *domain.Feed) string {
	switch feed.Format {
	case domain.FormatAudio:
		return "audio/mpeg"
	case domain.FormatVideo:
		return "video/mp4"
	default:
		switch feed.CustomExtension {
		case "mp3":
			return "audio/mpeg"
		case "mp4", "m4v":
			return "video/mp4"
		case "m4a":
			return "audio/mp4"
		default:
			return "application/octet-stream"
		}
	}
}

// Renderer renders feed documents, satisfying internal/feedupdate's
// publish-stage dependency.
type Renderer struct {
	// BaseURL is prefixed to every episode's artifact path to build its
	// publicly reachable enclosure URL, e.g. "https://pod.example.com".
	BaseURL string
}

// New returns a Renderer that serves episode enclosures relative to baseURL.
func New(baseURL string) *Renderer {
	return &Renderer{BaseURL: baseURL}
}

// RenderFeed renders feed and its episodes into the iTunes-compatible RSS
// document; only episodes with status=downloaded become items, the rest are
// skipped here.
func (r *Renderer) RenderFeed(feed *domain.Feed, episodes []*domain.Episode) ([]byte, error) {
	ch := channel{
		Title:         firstNonEmpty(feed.Metadata.OverrideTitle, feed.Title),
		Description:   firstNonEmpty(feed.Metadata.OverrideDescription, feed.Description),
		Link:          feed.Metadata.Link,
		Language:      firstNonEmpty(feed.Metadata.Language, "en"),
		LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
		Author:        feed.Author,
		Summary:       feed.Description,
		Explicit:      strconv.FormatBool(feed.Metadata.Explicit),
	}
	if feed.CoverArtURL != "" {
		ch.Image = &itunesImg{Href: feed.CoverArtURL}
	}
	if feed.Metadata.Owner != "" {
		ch.Owner = &owner{Email: feed.Metadata.Owner}
	}
	if feed.Metadata.Category != "" {
		cat := &category{Text: feed.Metadata.Category}
		for _, sub := range feed.Metadata.Subcategories {
			cat.Subcategories = append(cat.Subcategories, subcategory{Text: sub})
		}
		ch.Category = cat
	}

	mime := mimeType(feed)
	for _, ep := range episodes {
		if ep.Status != domain.StatusDownloaded {
			continue
		}
		it := item{
			Title:       ep.Title,
			Description: ep.Description,
			GUID:        guid{IsPermaLink: "false", Value: ep.EpisodeID},
			PubDate:     ep.PublishedAt.UTC().Format(time.RFC1123Z),
			Duration:    strconv.Itoa(ep.Duration),
			Enclosure: enclosure{
				URL:    r.enclosureURL(feed.FeedID, ep.FileName),
				Type:   mime,
				Length: strconv.FormatInt(ep.Size, 10),
			},
		}
		if ep.ThumbnailURL != "" {
			it.Image = &itunesImg{Href: ep.ThumbnailURL}
		}
		ch.Items = append(ch.Items, it)
	}

	doc := rss{Version: "2.0", Xmlns: itunesNS, Channel: ch}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feedxml: marshal rss: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func (r *Renderer) enclosureURL(feedID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", r.BaseURL, feedID, fileName)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
