package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vodcast/internal/domain"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// youtubeAdapter lists a channel's uploads via the YouTube Data API v3,
// rotating across configured API keys on quota errors (HTTP 403 or 429).
// Only channel URLs ("/channel/<id>") are accepted; playlist URLs are not.
type youtubeAdapter struct {
	client  *http.Client
	keys    *KeyRotator
	baseURL string // overridable in tests; defaults to youtubeAPIBase
}

func newYouTubeAdapter(client *http.Client, keys *KeyRotator) *youtubeAdapter {
	return &youtubeAdapter{client: client, keys: keys, baseURL: youtubeAPIBase}
}

type youtubePlaylistItemsResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
			ResourceID struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubeChannelsResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (a *youtubeAdapter) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	key, err := a.keys.Next()
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	query.Set("key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		a.keys.RotateOnQuotaError()
		return nil, fmt.Errorf("youtube: quota exceeded (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Build resolves the channel's uploads playlist, then lists up to pageSize
// items from it.
func (a *youtubeAdapter) Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*FeedSnapshot, error) {
	channelID, err := extractYouTubeChannelID(sourceURL)
	if err != nil {
		return nil, err
	}

	chBody, err := a.get(ctx, "/channels", url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {channelID},
	})
	if err != nil {
		return nil, err
	}
	var chResp youtubeChannelsResponse
	if err := json.Unmarshal(chBody, &chResp); err != nil {
		return nil, fmt.Errorf("youtube: decode channel response: %w", err)
	}
	if len(chResp.Items) == 0 {
		return nil, fmt.Errorf("youtube: channel %q not found", channelID)
	}
	channel := chResp.Items[0]

	itemsBody, err := a.get(ctx, "/playlistItems", url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {channel.ContentDetails.RelatedPlaylists.Uploads},
		"maxResults": {fmt.Sprintf("%d", clampPageSize(pageSize))},
	})
	if err != nil {
		return nil, err
	}
	var itemsResp youtubePlaylistItemsResponse
	if err := json.Unmarshal(itemsBody, &itemsResp); err != nil {
		return nil, fmt.Errorf("youtube: decode playlist items: %w", err)
	}

	items := make([]ListingItem, 0, len(itemsResp.Items))
	for _, it := range itemsResp.Items {
		published, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		videoID := it.ContentDetails.VideoID
		if videoID == "" {
			videoID = it.Snippet.ResourceID.VideoID
		}
		items = append(items, ListingItem{
			ID:           videoID,
			Title:        it.Snippet.Title,
			Description:  it.Snippet.Description,
			PublishedAt:  published,
			SourceURL:    "https://www.youtube.com/watch?v=" + videoID,
			ThumbnailURL: it.Snippet.Thumbnails.High.URL,
		})
	}
	sortItems(items, sort)

	return &FeedSnapshot{
		Title:       channel.Snippet.Title,
		Description: channel.Snippet.Description,
		Author:      channel.Snippet.Title,
		CoverArtURL: channel.Snippet.Thumbnails.High.URL,
		Items:       items,
	}, nil
}

// PlaylistMetadata fetches the channel's title/description/thumbnail only.
func (a *youtubeAdapter) PlaylistMetadata(ctx context.Context, sourceURL string) (*PlaylistInfo, error) {
	channelID, err := extractYouTubeChannelID(sourceURL)
	if err != nil {
		return nil, err
	}
	body, err := a.get(ctx, "/channels", url.Values{
		"part": {"snippet"},
		"id":   {channelID},
	})
	if err != nil {
		return nil, err
	}
	var resp youtubeChannelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("youtube: decode channel response: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube: channel %q not found", channelID)
	}
	ch := resp.Items[0]
	return &PlaylistInfo{
		Title:       ch.Snippet.Title,
		Description: ch.Snippet.Description,
		CoverArtURL: ch.Snippet.Thumbnails.High.URL,
	}, nil
}

// extractYouTubeChannelID pulls the channel ID segment out of a channel URL
// of the form "https://www.youtube.com/channel/<id>".
func extractYouTubeChannelID(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("youtube: invalid url %q: %w", sourceURL, err)
	}
	segs := splitPath(u.Path)
	for i, seg := range segs {
		if seg == "channel" && i+1 < len(segs) {
			return segs[i+1], nil
		}
	}
	return "", fmt.Errorf("youtube: could not extract channel id from %q", sourceURL)
}
