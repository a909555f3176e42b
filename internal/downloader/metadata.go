package downloader

import "encoding/json"

// Metadata is the playlist-level information returned by PlaylistMetadata,
// mirroring the subset of a JSON-dump invocation's output spec.md §4.5 names.
type Metadata struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Thumbnails  []string `json:"-"`
	Channel     string   `json:"channel"`
	ChannelID   string   `json:"channel_id"`
	ChannelURL  string   `json:"channel_url"`
	WebpageURL  string   `json:"webpage_url"`
}

// rawMetadata mirrors the subprocess's actual JSON shape, where thumbnails
// is a list of objects rather than Metadata's flattened URL list.
type rawMetadata struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnails  []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
	Channel    string `json:"channel"`
	ChannelID  string `json:"channel_id"`
	ChannelURL string `json:"channel_url"`
	WebpageURL string `json:"webpage_url"`
}

func parseMetadata(raw []byte) (*Metadata, error) {
	var r rawMetadata
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	thumbs := make([]string, 0, len(r.Thumbnails))
	for _, t := range r.Thumbnails {
		thumbs = append(thumbs, t.URL)
	}
	return &Metadata{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Thumbnails:  thumbs,
		Channel:     r.Channel,
		ChannelID:   r.ChannelID,
		ChannelURL:  r.ChannelURL,
		WebpageURL:  r.WebpageURL,
	}, nil
}
