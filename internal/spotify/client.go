package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/party-queue-client/pkg/models"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

// TokenSource returns a current access token for the host's account.
type TokenSource func(ctx context.Context) (string, error)

type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

type Track struct {
	ID       string   `json:"id"`
	URI      string   `json:"uri"`
	Name     string   `json:"name"`
	Artists  []Artist `json:"artists"`
	Duration int64    `json:"duration_ms"`
	Album    Album    `json:"album"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// DisplayName renders the track the way the queue stores it.
func (t Track) DisplayName() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return t.Name + " - " + t.Artists[0].Name
}

// Ref converts the catalogue track into a queue track reference.
func (t Track) Ref() models.Track {
	uri := t.URI
	if uri == "" && t.ID != "" {
		uri = "spotify:track:" + t.ID
	}
	return models.Track{URI: uri, Name: t.DisplayName()}
}

type SearchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

type playerResponse struct {
	Device struct {
		ID string `json:"id"`
	} `json:"device"`
	ProgressMs int64  `json:"progress_ms"`
	IsPlaying  bool   `json:"is_playing"`
	Item       *Track `json:"item"`
}

// StatusError is returned for any non-success response.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify: %s request failed with status %d", e.Op, e.Status)
}

func NewClient(baseURL string, token TokenSource, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Play(ctx context.Context, deviceID, trackURI string) error {
	payload := map[string]interface{}{
		"uris": []string{trackURI},
	}
	return c.do(ctx, "play track", http.MethodPut, "/me/player/play", deviceQuery(deviceID), payload, nil)
}

func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.do(ctx, "pause", http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
}

func (c *Client) Resume(ctx context.Context, deviceID string) error {
	return c.do(ctx, "resume", http.MethodPut, "/me/player/play", deviceQuery(deviceID), nil, nil)
}

func (c *Client) Seek(ctx context.Context, deviceID string, positionMs int64) error {
	params := deviceQuery(deviceID)
	params.Set("position_ms", strconv.FormatInt(positionMs, 10))
	return c.do(ctx, "seek", http.MethodPut, "/me/player/seek", params, nil, nil)
}

func (c *Client) SetVolume(ctx context.Context, deviceID string, percent int) error {
	params := deviceQuery(deviceID)
	params.Set("volume_percent", strconv.Itoa(percent))
	return c.do(ctx, "volume", http.MethodPut, "/me/player/volume", params, nil, nil)
}

func (c *Client) Transfer(ctx context.Context, deviceID string, play bool) error {
	payload := map[string]interface{}{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return c.do(ctx, "transfer", http.MethodPut, "/me/player", nil, payload, nil)
}

// CurrentState reports false when the account has no active device.
func (c *Client) CurrentState(ctx context.Context) (models.PlaybackState, bool, error) {
	var resp playerResponse
	found := false
	err := c.do(ctx, "player state", http.MethodGet, "/me/player", nil, nil, func(body io.Reader) error {
		found = true
		return json.NewDecoder(body).Decode(&resp)
	})
	if err != nil || !found {
		return models.PlaybackState{}, false, err
	}

	state := models.PlaybackState{
		IsPlaying:  resp.IsPlaying,
		PositionMs: resp.ProgressMs,
	}
	if resp.Item != nil {
		state.Track = resp.Item.Ref()
		state.DurationMs = resp.Item.Duration
	}
	return state, true, nil
}

func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("type", "track")
	params.Add("limit", fmt.Sprintf("%d", limit))

	var searchResp SearchResponse
	err := c.do(ctx, "search", http.MethodGet, "/search", params, nil, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&searchResp)
	})
	if err != nil {
		return nil, err
	}
	return searchResp.Tracks.Items, nil
}

func deviceQuery(deviceID string) url.Values {
	params := url.Values{}
	if deviceID != "" {
		params.Set("device_id", deviceID)
	}
	return params
}

// do sends one request. decode is only called for responses with a body.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, payload interface{}, decode func(io.Reader) error) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	accessToken, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("spotify: access token: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: %s: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decode == nil {
			return nil
		}
		return decode(resp.Body)
	default:
		return &StatusError{Op: op, Status: resp.StatusCode}
	}
}
