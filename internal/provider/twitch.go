package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vodcast/internal/domain"
)

const twitchAPIBase = "https://api.twitch.tv/helix"

// twitchAdapter lists a channel's past broadcasts (VODs) via the Twitch
// Helix API. Helix requires both a client ID and an app access token; this
// adapter keeps the rotator over client IDs and expects the matching bearer
// token to already be embedded as "<clientID>:<token>" by configuration,
// mirroring how the other adapters treat a rotator entry as "the one secret
// this request needs."
type twitchAdapter struct {
	client  *http.Client
	keys    *KeyRotator
	baseURL string // overridable in tests; defaults to twitchAPIBase
}

func newTwitchAdapter(client *http.Client, keys *KeyRotator) *twitchAdapter {
	return &twitchAdapter{client: client, keys: keys, baseURL: twitchAPIBase}
}

type twitchUsersResponse struct {
	Data []struct {
		ID              string `json:"id"`
		DisplayName     string `json:"display_name"`
		Description     string `json:"description"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

type twitchVideosResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		URL           string `json:"url"`
		ThumbnailURL  string `json:"thumbnail_url"`
		CreatedAt     string `json:"created_at"`
		Duration      string `json:"duration"` // e.g. "1h2m3s"
	} `json:"data"`
}

func splitClientIDAndToken(credential string) (clientID, token string) {
	for i := 0; i < len(credential); i++ {
		if credential[i] == ':' {
			return credential[:i], credential[i+1:]
		}
	}
	return credential, ""
}

func (a *twitchAdapter) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	credential, err := a.keys.Next()
	if err != nil {
		return nil, fmt.Errorf("twitch: %w", err)
	}
	clientID, token := splitClientIDAndToken(credential)

	full := a.baseURL + endpoint
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusTooManyRequests {
		a.keys.RotateOnQuotaError()
		return nil, fmt.Errorf("twitch: credential rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *twitchAdapter) resolveUser(ctx context.Context, sourceURL string) (*twitchUsersResponse, error) {
	login, err := extractTwitchLogin(sourceURL)
	if err != nil {
		return nil, err
	}
	body, err := a.get(ctx, "/users", url.Values{"login": {login}})
	if err != nil {
		return nil, err
	}
	var users twitchUsersResponse
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("twitch: decode users response: %w", err)
	}
	if len(users.Data) == 0 {
		return nil, fmt.Errorf("twitch: user %q not found", login)
	}
	return &users, nil
}

// Build lists a channel's archived VODs.
func (a *twitchAdapter) Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*FeedSnapshot, error) {
	users, err := a.resolveUser(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	user := users.Data[0]

	videosBody, err := a.get(ctx, "/videos", url.Values{
		"user_id": {user.ID},
		"type":    {"archive"},
		"first":   {strconv.Itoa(clampPageSize(pageSize))},
	})
	if err != nil {
		return nil, err
	}
	var videos twitchVideosResponse
	if err := json.Unmarshal(videosBody, &videos); err != nil {
		return nil, fmt.Errorf("twitch: decode videos response: %w", err)
	}

	items := make([]ListingItem, 0, len(videos.Data))
	for _, v := range videos.Data {
		published, _ := time.Parse(time.RFC3339, v.CreatedAt)
		items = append(items, ListingItem{
			ID:           v.ID,
			Title:        v.Title,
			Description:  v.Description,
			Duration:     parseTwitchDuration(v.Duration),
			PublishedAt:  published,
			SourceURL:    v.URL,
			ThumbnailURL: v.ThumbnailURL,
		})
	}
	sortItems(items, sort)

	return &FeedSnapshot{
		Title:       user.DisplayName,
		Description: user.Description,
		Author:      user.DisplayName,
		CoverArtURL: user.ProfileImageURL,
		Items:       items,
	}, nil
}

// PlaylistMetadata fetches just the channel's profile.
func (a *twitchAdapter) PlaylistMetadata(ctx context.Context, sourceURL string) (*PlaylistInfo, error) {
	users, err := a.resolveUser(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	user := users.Data[0]
	return &PlaylistInfo{
		Title:       user.DisplayName,
		Description: user.Description,
		CoverArtURL: user.ProfileImageURL,
	}, nil
}

// extractTwitchLogin turns "https://www.twitch.tv/<login>" into "<login>".
func extractTwitchLogin(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("twitch: invalid url %q: %w", sourceURL, err)
	}
	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return "", fmt.Errorf("twitch: could not extract login from %q", sourceURL)
	}
	return segs[0], nil
}

// parseTwitchDuration parses Twitch's compact duration format ("1h2m3s") into
// whole seconds. Any unparseable segment is skipped rather than failing the
// whole listing over one malformed field.
func parseTwitchDuration(d string) int {
	var total, num int
	for _, r := range d {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
		case r == 'h':
			total += num * 3600
			num = 0
		case r == 'm':
			total += num * 60
			num = 0
		case r == 's':
			total += num
			num = 0
		default:
			num = 0
		}
	}
	return total
}
