package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blindify/backend/internal/domain"
	"golang.org/x/oauth2"
)

// SavedTracksPageSize is the largest page the library endpoint serves
const SavedTracksPageSize = 50

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Name returns the display name, or "Unknown" for accounts without one
func (p *Profile) Name() string {
	if strings.TrimSpace(p.DisplayName) == "" {
		return "Unknown"
	}
	return p.DisplayName
}

// LikedTrack is the flattened shape of a saved track
type LikedTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	PreviewURL string `json:"preview_url"`
	AlbumCover string `json:"album_cover"`
}

type savedTracksPage struct {
	Items []struct {
		Track struct {
			ID         string  `json:"id"`
			Name       string  `json:"name"`
			PreviewURL *string `json:"preview_url"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"track"`
	} `json:"items"`
	Next  *string `json:"next"`
	Total int     `json:"total"`
}

// Client talks to the provider Web API on behalf of a user access token
type Client struct {
	BaseURL string
	// HTTPClient is the transport under the oauth2 wrapper, nil means default
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) httpClient(ctx context.Context, accessToken string) *http.Client {
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}

	resp, err := c.httpClient(ctx, accessToken).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", domain.ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", domain.ErrUpstream, path, err)
	}
	return nil
}

// GetMe fetches the profile of the token owner
func (c *Client) GetMe(ctx context.Context, accessToken string) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, accessToken, "/me", nil, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", domain.ErrUpstream)
	}
	return &p, nil
}

// SavedTracks pages through the user's liked tracks until the library is
// exhausted or max tracks were collected. max <= 0 means no cap.
func (c *Client) SavedTracks(ctx context.Context, accessToken string, max int) ([]LikedTrack, error) {
	tracks := make([]LikedTrack, 0, SavedTracksPageSize)
	offset := 0

	for {
		var page savedTracksPage
		query := url.Values{}
		query.Set("limit", strconv.Itoa(SavedTracksPageSize))
		query.Set("offset", strconv.Itoa(offset))
		if err := c.get(ctx, accessToken, "/me/tracks", query, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			t := item.Track
			if t.ID == "" {
				continue
			}
			artists := make([]string, 0, len(t.Artists))
			for _, a := range t.Artists {
				artists = append(artists, a.Name)
			}
			lt := LikedTrack{
				ID:     t.ID,
				Name:   t.Name,
				Artist: strings.Join(artists, ", "),
			}
			if t.PreviewURL != nil {
				lt.PreviewURL = *t.PreviewURL
			}
			if len(t.Album.Images) > 0 {
				lt.AlbumCover = t.Album.Images[0].URL
			}
			tracks = append(tracks, lt)
		}

		offset += len(page.Items)
		if max > 0 && len(tracks) >= max {
			return tracks[:max], nil
		}
		if page.Next == nil {
			break
		}
	}
	return tracks, nil
}

// ToDomain maps a liked track into a catalog row for userID
func (t LikedTrack) ToDomain(userID int64) domain.Track {
	return domain.Track{
		SpotifyTrackID: t.ID,
		Title:          t.Name,
		Artist:         t.Artist,
		PreviewURL:     t.PreviewURL,
		AlbumCover:     t.AlbumCover,
		UserID:         userID,
	}
}
