package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/party-queue-client/internal/backend"
	"github.com/party-queue-client/internal/config"
	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/internal/notify"
	"github.com/party-queue-client/internal/queue"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/cache"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

const maxChat = 100

// Message types pushed to the view.
const (
	MsgRender           = "render"
	MsgNowPlaying       = "now_playing"
	MsgNotification     = "notification"
	MsgChat             = "chat"
	MsgSessionRestarted = "session_restarted"
)

// Backend is the subset of the session backend the controller drives.
type Backend interface {
	Queue(ctx context.Context) (models.QueueSnapshot, error)
	Vote(ctx context.Context, trackURI string, vote realtime.VoteDirection) error
	AddToQueue(ctx context.Context, track models.Track) error
	RemoveFromQueue(ctx context.Context, trackURI string) error
	ClearQueue(ctx context.Context) (backend.ClearResult, error)
	AutoPlay(ctx context.Context, deviceID string) (backend.AutoPlayResult, error)
	RestartSession(ctx context.Context) error
}

// IdentityResolver turns the configured session into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context) (role.Identity, error)
}

// Player is the host's playback device.
type Player interface {
	Play(ctx context.Context, trackURI string) error
	DeviceID() string
	// Watch follows the device until the track that was just started ends.
	Watch()
}

type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snap cache.Snapshot) error
	Load(ctx context.Context, sessionID string) (cache.Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
}

type HistoryStore interface {
	RecordPlay(ctx context.Context, sessionID string, track models.Track, reason string, at time.Time) (*models.HistoryEntry, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]models.HistoryEntry, error)
}

// Broadcaster pushes messages to connected views.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{})
}

// Deps are the controller's collaborators. Backend, Identity and Log are
// required; the rest may be nil.
type Deps struct {
	Backend   Backend
	Identity  IdentityResolver
	Sender    realtime.Sender
	Player    Player
	Snapshots SnapshotStore
	History   HistoryStore
	Events    events.Publisher
	Notify    *notify.Center
	View      Broadcaster
	Log       logger.Logger
}

// Controller owns one session's client state and is the single place it
// changes.
type Controller struct {
	sessionID string
	cfg       config.Playback
	deps      Deps
	log       logger.Logger

	state *queue.State

	mu         sync.Mutex
	identity   role.Identity
	nowPlaying models.NowPlaying
	chat       []models.ChatMessage
	rows       []queue.Row

	renderMu sync.Mutex

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(sessionID string, cfg config.Playback, deps Deps) *Controller {
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Notify == nil {
		deps.Notify = notify.NewCenter(notify.DefaultMax)
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	return &Controller{
		sessionID: sessionID,
		cfg:       cfg,
		deps:      deps,
		log:       deps.Log.With("session_id", sessionID),
		state:     queue.NewState(),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetSender attaches the realtime channel once it is connected. A nil sender
// makes intents fall back to HTTP.
func (c *Controller) SetSender(s realtime.Sender) {
	c.mu.Lock()
	c.deps.Sender = s
	c.mu.Unlock()
}

func (c *Controller) sender() realtime.Sender {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deps.Sender
}

// Start resolves who this client is, warms the view from the snapshot cache
// and then loads the authoritative queue.
func (c *Controller) Start(ctx context.Context) error {
	id, err := c.deps.Identity.Resolve(ctx)
	if err == nil && !id.Role.Valid() {
		err = apperrors.Session("start", "session has no valid role")
	}
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindAuthorization {
			err = apperrors.Wrap(err, apperrors.KindSession, "start", "session lost")
		}
		c.report(err)
		return err
	}

	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	c.log.Info("Session started", "user_id", id.UserID, "role", id.Role.String())

	c.warmStart(ctx)
	return c.Refresh(ctx)
}

func (c *Controller) warmStart(ctx context.Context) {
	if c.deps.Snapshots == nil {
		return
	}
	snap, err := c.deps.Snapshots.Load(ctx, c.sessionID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.log.Warn("Failed to load cached snapshot", "error", err)
		}
		return
	}

	c.state.ApplySnapshot(0, snap.Queue)
	if snap.NowPlaying != nil {
		c.mu.Lock()
		c.nowPlaying = *snap.NowPlaying
		c.mu.Unlock()
	}
	c.log.Debug("Warm start from cache", "items", len(snap.Queue))

	c.renderMu.Lock()
	c.publishRows(c.state.Render())
	c.renderMu.Unlock()
}

// Refresh fetches the authoritative queue and renders it. A response that
// arrives after a newer one has been applied is dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	seq := c.state.NextSequence()
	snap, err := c.deps.Backend.Queue(ctx)
	if err != nil {
		c.report(err)
		return err
	}
	if !c.state.ApplySnapshot(seq, snap.Queue) {
		c.log.Debug("Dropped stale queue snapshot", "seq", seq)
		return nil
	}
	c.render(ctx)
	return nil
}

// render orders the queue and pushes it to every output.
func (c *Controller) render(ctx context.Context) {
	c.renderMu.Lock()
	rows := c.state.Render()
	c.publishRows(rows)
	c.renderMu.Unlock()

	if c.deps.Snapshots != nil {
		np := c.NowPlaying()
		snap := cache.Snapshot{Queue: c.state.Items(), NowPlaying: &np, SavedAt: c.now().UTC()}
		if err := c.deps.Snapshots.Save(ctx, c.sessionID, snap); err != nil {
			c.log.Warn("Failed to cache snapshot", "error", err)
		}
	}

	payload := events.QueueRenderedPayload{Count: len(rows)}
	if len(rows) > 0 {
		payload.Head = rows[0].Track.URI
	}
	c.publish(ctx, events.ActivityQueueRendered, payload)
}

func (c *Controller) publishRows(rows []queue.Row) {
	c.mu.Lock()
	c.rows = rows
	c.mu.Unlock()
	c.broadcast(MsgRender, rows)
}

func (c *Controller) broadcast(msgType string, payload interface{}) {
	if c.deps.View != nil {
		c.deps.View.Broadcast(msgType, payload)
	}
}

func (c *Controller) publish(ctx context.Context, typ events.ActivityType, payload interface{}) {
	a, err := events.NewActivity(typ, c.sessionID, c.Identity().UserID, payload)
	if err != nil {
		c.log.Warn("Failed to build activity", "type", typ, "error", err)
		return
	}
	if err := c.deps.Events.Publish(ctx, a); err != nil {
		c.log.Warn("Failed to publish activity", "type", typ, "error", err)
	}
}

// report surfaces err to the user according to its kind.
func (c *Controller) report(err error) {
	if n, ok := c.deps.Notify.FromError(err); ok {
		c.broadcast(MsgNotification, n)
	}
	if apperrors.IsSilent(err) {
		c.log.Debug("Silent failure", "error", err)
		return
	}
	c.log.Warn("Operation failed", "kind", apperrors.KindOf(err).String(), "error", err)
}

func (c *Controller) notify(level notify.Level, msg string) {
	n := c.deps.Notify.Push(level, msg, false)
	c.broadcast(MsgNotification, n)
}

func (c *Controller) Identity() role.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Controller) Visibility() role.Visibility {
	return role.VisibilityFor(c.Identity().Role)
}

// ContinueAsGuest switches an unauthenticated client to a local guest
// identity. An already established identity is returned unchanged.
func (c *Controller) ContinueAsGuest() role.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.identity.Role.Valid() {
		c.identity = role.ContinueAsGuest()
	}
	return c.identity
}

// Rows returns the most recent render.
func (c *Controller) Rows() []queue.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]queue.Row, len(c.rows))
	copy(out, c.rows)
	return out
}

func (c *Controller) NowPlaying() models.NowPlaying {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowPlaying
}

func (c *Controller) Chat() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.chat))
	copy(out, c.chat)
	return out
}

func (c *Controller) Notifications() *notify.Center {
	return c.deps.Notify
}

// History returns recently started tracks, or nothing when no store is wired.
func (c *Controller) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if c.deps.History == nil {
		return nil, nil
	}
	entries, err := c.deps.History.Recent(ctx, c.sessionID, limit)
	if err != nil {
		return nil, apperrors.Internal("history", err)
	}
	return entries, nil
}
