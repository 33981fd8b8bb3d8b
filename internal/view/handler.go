package view

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/party-queue-client/internal/auth"
	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/internal/notify"
	"github.com/party-queue-client/internal/queue"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/models"
)

const (
	defaultSearchLimit  = 20
	defaultHistoryLimit = 20
)

// Session is the controller surface the view drives.
type Session interface {
	Identity() role.Identity
	Visibility() role.Visibility
	ContinueAsGuest() role.Identity
	Rows() []queue.Row
	NowPlaying() models.NowPlaying
	Chat() []models.ChatMessage
	Notifications() *notify.Center
	History(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Refresh(ctx context.Context) error

	CastVote(ctx context.Context, trackURI string, vote realtime.VoteDirection) error
	QueueTrack(ctx context.Context, track models.Track) error
	ClearQueue(ctx context.Context) error
	PlayTrack(ctx context.Context, trackURI string) error
	RestartSession(ctx context.Context) error
}

// Catalog is the read side of the backend used for browsing.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	Recommendations(ctx context.Context, trackURI string) ([]models.Recommendation, error)
	Playlists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.SearchResult, error)

	CustomPlaylists(ctx context.Context) ([]models.CustomPlaylist, error)
	CustomPlaylist(ctx context.Context, id int64) (models.CustomPlaylist, error)
	CreateCustomPlaylist(ctx context.Context, name, description string) (models.CustomPlaylist, error)
	UpdateCustomPlaylist(ctx context.Context, id int64, name, description string) error
	DeleteCustomPlaylist(ctx context.Context, id int64) error
	AddToCustomPlaylist(ctx context.Context, id int64, track models.PlaylistTrack) error
	RemoveFromCustomPlaylist(ctx context.Context, id, trackID int64) error
}

type Handler struct {
	session Session
	catalog Catalog
	hub     *Hub
	log     logger.Logger
}

func NewHandler(session Session, catalog Catalog, hub *Hub, log logger.Logger) *Handler {
	return &Handler{session: session, catalog: catalog, hub: hub, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/visibility", h.visibility)
	r.POST("/guest", h.guest)
	r.GET("/queue", h.getQueue)
	r.POST("/queue", h.addToQueue)
	r.POST("/vote", h.vote)
	r.GET("/now-playing", h.nowPlaying)
	r.GET("/chat", h.chat)
	r.GET("/notifications", h.notifications)
	r.DELETE("/notifications/:id", h.dismiss)
	r.GET("/history", h.history)
	r.GET("/ws", h.ws)

	r.POST("/queue/clear", h.gate(showQueueClear), h.clearQueue)
	r.POST("/queue/:uri/play", h.gate(showTransport), h.playTrack)
	r.POST("/session/restart", h.gate(showRestart), h.restartSession)

	browse := r.Group("/", h.gate(showSearch))
	{
		browse.GET("/search", h.search)
		browse.GET("/recommendations", h.recommendations)
	}

	lists := r.Group("/", h.gate(showPlaylists))
	{
		lists.GET("/playlists", h.playlists)
		lists.GET("/playlists/:id/tracks", h.playlistTracks)
		lists.GET("/custom-playlists", h.customPlaylists)
		lists.POST("/custom-playlists", h.createCustomPlaylist)
		lists.GET("/custom-playlists/:id", h.customPlaylist)
		lists.PUT("/custom-playlists/:id", h.updateCustomPlaylist)
		lists.DELETE("/custom-playlists/:id", h.deleteCustomPlaylist)
		lists.POST("/custom-playlists/:id/tracks", h.addToCustomPlaylist)
		lists.DELETE("/custom-playlists/:id/tracks/:trackId", h.removeFromCustomPlaylist)
	}
}

type region struct {
	name    string
	visible func(role.Visibility) bool
}

var (
	showQueueClear = region{"queue clear", func(v role.Visibility) bool { return v.ShowQueueClear }}
	showTransport  = region{"playback transport", func(v role.Visibility) bool { return v.ShowPlaybackTransport }}
	showRestart    = region{"restart control", func(v role.Visibility) bool { return v.ShowRestartControl }}
	showSearch     = region{"search", func(v role.Visibility) bool { return v.ShowSearch }}
	showPlaylists  = region{"playlist browser", func(v role.Visibility) bool { return v.ShowPlaylistBrowser }}
)

// gate re-checks the role table before a hidden region's route runs.
func (h *Handler) gate(rg region) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := h.session.Identity()
		if !id.Role.Valid() {
			h.abort(c, apperrors.Session(rg.name, "no role selected"))
			return
		}
		if !rg.visible(role.VisibilityFor(id.Role)) {
			h.abort(c, apperrors.Authorization(rg.name, rg.name+" is not available for role "+id.Role.String()))
			return
		}
		c.Next()
	}
}

func (h *Handler) abort(c *gin.Context, err error) {
	body := gin.H{"error": apperrors.MessageOf(err)}
	if apperrors.NeedsRoleSelection(err) {
		body["redirect"] = auth.SessionLostURL
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), body)
}

func (h *Handler) visibility(c *gin.Context) {
	id := h.session.Identity()
	c.JSON(http.StatusOK, gin.H{"identity": id, "visibility": h.session.Visibility()})
}

func (h *Handler) guest(c *gin.Context) {
	id := h.session.ContinueAsGuest()
	if err := h.session.Refresh(c.Request.Context()); err != nil {
		h.log.Warn("Failed to load queue for guest", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"identity": id, "visibility": role.VisibilityFor(id.Role)})
}

func (h *Handler) getQueue(c *gin.Context) {
	rows := h.session.Rows()
	c.JSON(http.StatusOK, gin.H{"queue": rows, "count": len(rows)})
}

type AddToQueueRequest struct {
	TrackURI  string `json:"track_uri" binding:"required"`
	TrackName string `json:"track_name"`
}

func (h *Handler) addToQueue(c *gin.Context) {
	var req AddToQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	track := models.Track{URI: req.TrackURI, Name: req.TrackName}
	if err := h.session.QueueTrack(c.Request.Context(), track); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusAccepted, track)
}

type VoteRequest struct {
	TrackURI string `json:"track_uri" binding:"required"`
	VoteType string `json:"vote_type" binding:"required"`
}

func (h *Handler) vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir, err := realtime.ParseVote(req.VoteType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.CastVote(c.Request.Context(), req.TrackURI, dir); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) clearQueue(c *gin.Context) {
	if err := h.session.ClearQueue(c.Request.Context()); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) playTrack(c *gin.Context) {
	if err := h.session.PlayTrack(c.Request.Context(), c.Param("uri")); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.NowPlaying())
}

func (h *Handler) restartSession(c *gin.Context) {
	if err := h.session.RestartSession(c.Request.Context()); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) nowPlaying(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.NowPlaying())
}

func (h *Handler) chat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.session.Chat()})
}

func (h *Handler) notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.session.Notifications().List()})
}

func (h *Handler) dismiss(c *gin.Context) {
	if !h.session.Notifications().Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) history(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	entries, err := h.session.History(c.Request.Context(), limit)
	if err != nil {
		h.abort(c, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// ws pushes the current render and now-playing to a new page, then every
// update after that.
func (h *Handler) ws(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request,
		Message{Type: "render", Data: h.session.Rows()},
		Message{Type: "now_playing", Data: h.session.NowPlaying()},
	)
}

func (h *Handler) search(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultSearchLimit)
	if !ok {
		return
	}
	tracks, err := h.catalog.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (h *Handler) recommendations(c *gin.Context) {
	uri := c.Query("track_uri")
	if uri == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track_uri is required"})
		return
	}
	recs, err := h.catalog.Recommendations(c.Request.Context(), uri)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (h *Handler) playlists(c *gin.Context) {
	lists, err := h.catalog.Playlists(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": lists})
}

func (h *Handler) playlistTracks(c *gin.Context) {
	tracks, err := h.catalog.PlaylistTracks(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (h *Handler) customPlaylists(c *gin.Context) {
	lists, err := h.catalog.CustomPlaylists(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": lists})
}

func (h *Handler) customPlaylist(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	list, err := h.catalog.CustomPlaylist(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type PlaylistRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) createCustomPlaylist(c *gin.Context) {
	var req PlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := h.catalog.CreateCustomPlaylist(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) updateCustomPlaylist(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalog.UpdateCustomPlaylist(c.Request.Context(), id, req.Name, req.Description); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteCustomPlaylist(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCustomPlaylist(c.Request.Context(), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addToCustomPlaylist(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var track models.PlaylistTrack
	if err := c.ShouldBindJSON(&track); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if track.TrackURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track_uri is required"})
		return
	}
	if err := h.catalog.AddToCustomPlaylist(c.Request.Context(), id, track); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) removeFromCustomPlaylist(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	trackID, ok := idParam(c, "trackId")
	if !ok {
		return
	}
	if err := h.catalog.RemoveFromCustomPlaylist(c.Request.Context(), id, trackID); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}
