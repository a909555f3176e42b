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

const soundcloudAPIBase = "https://api-v2.soundcloud.com"

// soundcloudAdapter lists a user's tracks via SoundCloud's (undocumented but
// widely relied upon) v2 API, authenticating with a client_id query param in
// the same rotation style as the YouTube adapter.
type soundcloudAdapter struct {
	client  *http.Client
	keys    *KeyRotator
	baseURL string // overridable in tests; defaults to soundcloudAPIBase
}

func newSoundCloudAdapter(client *http.Client, keys *KeyRotator) *soundcloudAdapter {
	return &soundcloudAdapter{client: client, keys: keys, baseURL: soundcloudAPIBase}
}

type soundcloudUserResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
}

type soundcloudTracksResponse struct {
	Collection []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Duration    int    `json:"duration"` // milliseconds
		CreatedAt   string `json:"created_at"`
		PermalinkURL string `json:"permalink_url"`
		ArtworkURL  string `json:"artwork_url"`
	} `json:"collection"`
}

func (a *soundcloudAdapter) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	clientID, err := a.keys.Next()
	if err != nil {
		return nil, fmt.Errorf("soundcloud: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("client_id", clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soundcloud: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusTooManyRequests {
		a.keys.RotateOnQuotaError()
		return nil, fmt.Errorf("soundcloud: client_id rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("soundcloud: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *soundcloudAdapter) resolveUser(ctx context.Context, sourceURL string) (*soundcloudUserResponse, error) {
	body, err := a.get(ctx, "/resolve", url.Values{"url": {sourceURL}})
	if err != nil {
		return nil, err
	}
	var user soundcloudUserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("soundcloud: decode resolve response: %w", err)
	}
	return &user, nil
}

// Build resolves sourceURL to a user then lists their public tracks.
func (a *soundcloudAdapter) Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*FeedSnapshot, error) {
	user, err := a.resolveUser(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	tracksBody, err := a.get(ctx, fmt.Sprintf("/users/%d/tracks", user.ID), url.Values{
		"limit": {fmt.Sprintf("%d", clampPageSize(pageSize))},
	})
	if err != nil {
		return nil, err
	}
	var tracks soundcloudTracksResponse
	if err := json.Unmarshal(tracksBody, &tracks); err != nil {
		return nil, fmt.Errorf("soundcloud: decode tracks response: %w", err)
	}

	items := make([]ListingItem, 0, len(tracks.Collection))
	for _, t := range tracks.Collection {
		published, _ := time.Parse("2006/01/02 15:04:05 +0000", t.CreatedAt)
		items = append(items, ListingItem{
			ID:           fmt.Sprintf("%d", t.ID),
			Title:        t.Title,
			Description:  t.Description,
			Duration:     t.Duration / 1000,
			PublishedAt:  published,
			SourceURL:    t.PermalinkURL,
			ThumbnailURL: t.ArtworkURL,
		})
	}
	sortItems(items, sort)

	return &FeedSnapshot{
		Title:       user.Username,
		Description: user.Description,
		Author:      user.Username,
		CoverArtURL: user.AvatarURL,
		Items:       items,
	}, nil
}

// PlaylistMetadata resolves just the user profile.
func (a *soundcloudAdapter) PlaylistMetadata(ctx context.Context, sourceURL string) (*PlaylistInfo, error) {
	user, err := a.resolveUser(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return &PlaylistInfo{
		Title:       user.Username,
		Description: user.Description,
		CoverArtURL: user.AvatarURL,
	}, nil
}
