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

const vimeoAPIBase = "https://api.vimeo.com"

// vimeoAdapter lists a user's videos via the Vimeo API, using a bearer
// access token rather than YouTube's query-string key. The first path
// segment of the source URL is taken as the user; showcase URLs are not
// recognised.
type vimeoAdapter struct {
	client  *http.Client
	keys    *KeyRotator
	baseURL string // overridable in tests; defaults to vimeoAPIBase
}

func newVimeoAdapter(client *http.Client, keys *KeyRotator) *vimeoAdapter {
	return &vimeoAdapter{client: client, keys: keys, baseURL: vimeoAPIBase}
}

type vimeoUserResponse struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
	Pictures struct {
		SizesList []struct {
			Link string `json:"link"`
		} `json:"sizes"`
	} `json:"pictures"`
}

type vimeoVideosResponse struct {
	Data []struct {
		URI         string `json:"uri"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Duration    int    `json:"duration"`
		ReleaseTime string `json:"release_time"`
		Link        string `json:"link"`
		Pictures    struct {
			SizesList []struct {
				Link string `json:"link"`
			} `json:"sizes"`
		} `json:"pictures"`
	} `json:"data"`
}

func (a *vimeoAdapter) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	token, err := a.keys.Next()
	if err != nil {
		return nil, fmt.Errorf("vimeo: %w", err)
	}

	full := a.baseURL + endpoint
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vimeo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		a.keys.RotateOnQuotaError()
		return nil, fmt.Errorf("vimeo: rate limited (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vimeo: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Build lists the videos belonging to the user identified in sourceURL.
func (a *vimeoAdapter) Build(ctx context.Context, sourceURL string, pageSize int, sort domain.SortOrder) (*FeedSnapshot, error) {
	userPath, err := extractVimeoUserPath(sourceURL)
	if err != nil {
		return nil, err
	}

	userBody, err := a.get(ctx, "/"+userPath, nil)
	if err != nil {
		return nil, err
	}
	var user vimeoUserResponse
	if err := json.Unmarshal(userBody, &user); err != nil {
		return nil, fmt.Errorf("vimeo: decode user response: %w", err)
	}

	videosBody, err := a.get(ctx, "/"+userPath+"/videos", url.Values{
		"per_page": {fmt.Sprintf("%d", clampPageSize(pageSize))},
		"sort":     {"date"},
	})
	if err != nil {
		return nil, err
	}
	var videos vimeoVideosResponse
	if err := json.Unmarshal(videosBody, &videos); err != nil {
		return nil, fmt.Errorf("vimeo: decode videos response: %w", err)
	}

	items := make([]ListingItem, 0, len(videos.Data))
	for _, v := range videos.Data {
		published, _ := time.Parse(time.RFC3339, v.ReleaseTime)
		thumb := ""
		if len(v.Pictures.SizesList) > 0 {
			thumb = v.Pictures.SizesList[len(v.Pictures.SizesList)-1].Link
		}
		items = append(items, ListingItem{
			ID:           lastPathSegment(v.URI),
			Title:        v.Name,
			Description:  v.Description,
			Duration:     v.Duration,
			PublishedAt:  published,
			SourceURL:    v.Link,
			ThumbnailURL: thumb,
		})
	}
	sortItems(items, sort)

	cover := ""
	if len(user.Pictures.SizesList) > 0 {
		cover = user.Pictures.SizesList[len(user.Pictures.SizesList)-1].Link
	}

	return &FeedSnapshot{
		Title:       user.Name,
		Description: user.Bio,
		Author:      user.Name,
		CoverArtURL: cover,
		Items:       items,
	}, nil
}

// PlaylistMetadata fetches just the user's profile.
func (a *vimeoAdapter) PlaylistMetadata(ctx context.Context, sourceURL string) (*PlaylistInfo, error) {
	userPath, err := extractVimeoUserPath(sourceURL)
	if err != nil {
		return nil, err
	}
	body, err := a.get(ctx, "/"+userPath, nil)
	if err != nil {
		return nil, err
	}
	var user vimeoUserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("vimeo: decode user response: %w", err)
	}
	cover := ""
	if len(user.Pictures.SizesList) > 0 {
		cover = user.Pictures.SizesList[len(user.Pictures.SizesList)-1].Link
	}
	return &PlaylistInfo{
		Title:       user.Name,
		Description: user.Bio,
		CoverArtURL: cover,
	}, nil
}

// extractVimeoUserPath turns "https://vimeo.com/<user>" into "users/<user>".
func extractVimeoUserPath(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("vimeo: invalid url %q: %w", sourceURL, err)
	}
	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return "", fmt.Errorf("vimeo: could not extract user from %q", sourceURL)
	}
	return "users/" + segs[0], nil
}

func lastPathSegment(uri string) string {
	segs := splitPath(uri)
	if len(segs) == 0 {
		return uri
	}
	return segs[len(segs)-1]
}
