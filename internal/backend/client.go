package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/pkg/models"
)

// Client talks to the session backend's HTTP endpoints on behalf of one
// session. Every failure comes back classified by kind.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NextTrack is the head of the server-side queue.
type NextTrack struct {
	models.Track
	NetScore int `json:"net_score"`
}

type AutoPlayResult struct {
	Status  string    `json:"status"`
	Track   NextTrack `json:"track"`
	Message string    `json:"message"`
}

type ClearResult struct {
	Message      string `json:"message"`
	ItemsRemoved int    `json:"items_removed"`
}

type PlaybackToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewClient(baseURL, sessionToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      sessionToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that authenticates as another session.
func (c *Client) WithToken(sessionToken string) *Client {
	cp := *c
	cp.token = sessionToken
	return &cp
}

func (c *Client) Queue(ctx context.Context) (models.QueueSnapshot, error) {
	var snap models.QueueSnapshot
	err := c.do(ctx, "queue", http.MethodGet, "/queue", nil, nil, &snap)
	return snap, err
}

func (c *Client) Vote(ctx context.Context, trackURI string, vote realtime.VoteDirection) error {
	body := map[string]string{"track_uri": trackURI, "vote_type": string(vote)}
	return c.do(ctx, "vote", http.MethodPost, "/vote", nil, body, nil)
}

func (c *Client) AddToQueue(ctx context.Context, track models.Track) error {
	return c.do(ctx, "add to queue", http.MethodPost, "/queue/add", nil, track, nil)
}

func (c *Client) RemoveFromQueue(ctx context.Context, trackURI string) error {
	return c.do(ctx, "remove from queue", http.MethodPost, "/queue/remove/"+url.PathEscape(trackURI), nil, nil, nil)
}

func (c *Client) ClearQueue(ctx context.Context) (ClearResult, error) {
	var res ClearResult
	err := c.do(ctx, "clear queue", http.MethodPost, "/queue/clear", nil, nil, &res)
	return res, err
}

func (c *Client) NextTrack(ctx context.Context) (NextTrack, error) {
	var next NextTrack
	err := c.do(ctx, "next track", http.MethodGet, "/queue/next-track", nil, nil, &next)
	return next, err
}

// AutoPlay asks the backend to start the top-voted track on deviceID and
// drop it from the queue. An empty queue is a domain error.
func (c *Client) AutoPlay(ctx context.Context, deviceID string) (AutoPlayResult, error) {
	var res AutoPlayResult
	body := map[string]string{"device_id": deviceID}
	err := c.do(ctx, "auto play", http.MethodPost, "/queue/auto-play", nil, body, &res)
	return res, err
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.InvalidInput("search", "search query is required")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Tracks []models.SearchResult `json:"tracks"`
	}
	if err := c.do(ctx, "search", http.MethodGet, "/search/tracks", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

func (c *Client) Recommendations(ctx context.Context, trackURI string) ([]models.Recommendation, error) {
	var resp struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	err := c.do(ctx, "recommendations", http.MethodGet, "/recommend/"+url.PathEscape(trackURI), nil, nil, &resp)
	return resp.Recommendations, err
}

func (c *Client) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var lists []models.Playlist
	err := c.do(ctx, "playlists", http.MethodGet, "/playlists/", nil, nil, &lists)
	return lists, err
}

func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SearchResult, error) {
	var tracks []models.SearchResult
	err := c.do(ctx, "playlist tracks", http.MethodGet, "/playlists/"+url.PathEscape(playlistID)+"/tracks", nil, nil, &tracks)
	return tracks, err
}

func (c *Client) CustomPlaylists(ctx context.Context) ([]models.CustomPlaylist, error) {
	var resp struct {
		Playlists []models.CustomPlaylist `json:"playlists"`
	}
	err := c.do(ctx, "custom playlists", http.MethodGet, "/custom_playlists/", nil, nil, &resp)
	return resp.Playlists, err
}

func (c *Client) CustomPlaylist(ctx context.Context, id int64) (models.CustomPlaylist, error) {
	var resp struct {
		Playlist models.CustomPlaylist `json:"playlist"`
		Tracks   []models.PlaylistTrack `json:"tracks"`
	}
	if err := c.do(ctx, "custom playlist", http.MethodGet, customPath(id), nil, nil, &resp); err != nil {
		return models.CustomPlaylist{}, err
	}
	pl := resp.Playlist
	pl.Tracks = resp.Tracks
	pl.TrackCount = len(resp.Tracks)
	return pl, nil
}

func (c *Client) CreateCustomPlaylist(ctx context.Context, name, description string) (models.CustomPlaylist, error) {
	if strings.TrimSpace(name) == "" {
		return models.CustomPlaylist{}, apperrors.InvalidInput("create custom playlist", "playlist name is required")
	}
	var resp struct {
		Playlist models.CustomPlaylist `json:"playlist"`
	}
	body := map[string]string{"name": name, "description": description}
	err := c.do(ctx, "create custom playlist", http.MethodPost, "/custom_playlists/", nil, body, &resp)
	return resp.Playlist, err
}

func (c *Client) UpdateCustomPlaylist(ctx context.Context, id int64, name, description string) error {
	body := map[string]string{"name": name, "description": description}
	return c.do(ctx, "update custom playlist", http.MethodPut, customPath(id), nil, body, nil)
}

func (c *Client) DeleteCustomPlaylist(ctx context.Context, id int64) error {
	return c.do(ctx, "delete custom playlist", http.MethodDelete, customPath(id), nil, nil, nil)
}

func (c *Client) AddToCustomPlaylist(ctx context.Context, id int64, track models.PlaylistTrack) error {
	return c.do(ctx, "add to custom playlist", http.MethodPost, customPath(id)+"/tracks", nil, track, nil)
}

func (c *Client) RemoveFromCustomPlaylist(ctx context.Context, id, trackID int64) error {
	path := fmt.Sprintf("%s/tracks/%d", customPath(id), trackID)
	return c.do(ctx, "remove from custom playlist", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) SessionInfo(ctx context.Context) (models.SessionInfo, error) {
	var info models.SessionInfo
	err := c.do(ctx, "session info", http.MethodGet, "/session-info", nil, nil, &info)
	return info, err
}

// PlaybackToken fetches the host's access token for the playback SDK.
func (c *Client) PlaybackToken(ctx context.Context) (PlaybackToken, error) {
	var tok PlaybackToken
	if err := c.do(ctx, "playback token", http.MethodGet, "/playback/token", nil, nil, &tok); err != nil {
		return PlaybackToken{}, err
	}
	if tok.AccessToken == "" {
		return PlaybackToken{}, apperrors.Authorization("playback token", "no access token")
	}
	return tok, nil
}

func (c *Client) TransferPlayback(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return apperrors.InvalidInput("transfer playback", "device ID is required")
	}
	body := map[string]string{"device_id": deviceID}
	return c.do(ctx, "transfer playback", http.MethodPost, "/playback/transfer", nil, body, nil)
}

func (c *Client) RestartSession(ctx context.Context) error {
	return c.do(ctx, "restart session", http.MethodPost, "/restart-session", nil, nil, nil)
}

func customPath(id int64) string {
	return "/custom_playlists/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, payload, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperrors.Internal(op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apperrors.Internal(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Connectivity(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Connectivity(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Error
		if msg == "" {
			msg = eb.Message
		}
		return apperrors.FromStatus(op, resp.StatusCode, msg)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Wrap(err, apperrors.KindConnectivity, op, "malformed response")
	}
	return nil
}
