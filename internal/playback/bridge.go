package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/party-queue-client/internal/config"
	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/pkg/models"
)

// Player is the third-party playback boundary.
type Player interface {
	Play(ctx context.Context, deviceID, trackURI string) error
	Pause(ctx context.Context, deviceID string) error
	Resume(ctx context.Context, deviceID string) error
	Seek(ctx context.Context, deviceID string, positionMs int64) error
	SetVolume(ctx context.Context, deviceID string, percent int) error
	Transfer(ctx context.Context, deviceID string, play bool) error
	// CurrentState returns false when no device is active.
	CurrentState(ctx context.Context) (models.PlaybackState, bool, error)
}

// Advancer starts the next queued track.
type Advancer interface {
	Advance(ctx context.Context) error
}

// watchGrace is how many non-playing polls a watched device gets before the
// poller gives up, so a track that is about to start is not missed.
const watchGrace = 3

// Options are the bridge's optional collaborators. A bridge without an
// Advancer never auto-advances. The Advancer decides whether this session
// may advance at all.
type Options struct {
	Advancer       Advancer
	OnState        func(models.PlaybackState)
	OnTrackChanged func(ctx context.Context, finished models.Track)
}

type Bridge struct {
	player Player
	log    logger.Logger
	opts   Options

	mu       sync.Mutex
	detector *Detector
	deviceID string
	grace    int

	debounce *Debouncer
	poller   *Poller
	pollCtx  context.Context
}

func NewBridge(player Player, cfg config.Playback, log logger.Logger, opts Options) *Bridge {
	b := &Bridge{
		player:   player,
		log:      log,
		opts:     opts,
		detector: NewDetector(cfg.TrackEndWindow),
		debounce: NewDebouncer(cfg.AdvanceDebounce),
		pollCtx:  context.Background(),
	}
	b.poller = NewPoller(cfg.PollInterval, b.poll)
	return b
}

// Bind sets the context the position poller runs under.
func (b *Bridge) Bind(ctx context.Context) {
	b.mu.Lock()
	b.pollCtx = ctx
	b.mu.Unlock()
}

// Ready records the SDK device and moves playback onto it.
func (b *Bridge) Ready(ctx context.Context, deviceID string) error {
	b.mu.Lock()
	b.deviceID = deviceID
	b.mu.Unlock()

	if err := b.player.Transfer(ctx, deviceID, false); err != nil {
		return fmt.Errorf("playback: transfer to %s: %w", deviceID, err)
	}
	b.log.Info("Playback device ready", "device_id", deviceID)
	return nil
}

func (b *Bridge) DeviceID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceID
}

func (b *Bridge) Play(ctx context.Context, trackURI string) error {
	if err := b.player.Play(ctx, b.DeviceID(), trackURI); err != nil {
		return fmt.Errorf("playback: play %s: %w", trackURI, err)
	}
	b.Watch()
	return nil
}

func (b *Bridge) Pause(ctx context.Context) error {
	return b.player.Pause(ctx, b.DeviceID())
}

func (b *Bridge) Resume(ctx context.Context) error {
	if err := b.player.Resume(ctx, b.DeviceID()); err != nil {
		return err
	}
	b.Watch()
	return nil
}

// Watch starts polling the device because playback is expected to begin,
// for example after another client or the backend started a track.
func (b *Bridge) Watch() {
	b.mu.Lock()
	b.grace = watchGrace
	ctx := b.pollCtx
	b.mu.Unlock()

	if !b.poller.Running() {
		b.poller.Start(ctx)
	}
}

func (b *Bridge) Seek(ctx context.Context, positionMs int64) error {
	if positionMs < 0 {
		positionMs = 0
	}
	return b.player.Seek(ctx, b.DeviceID(), positionMs)
}

func (b *Bridge) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return b.player.SetVolume(ctx, b.DeviceID(), percent)
}

// HandleState consumes one state-change notification from the SDK.
func (b *Bridge) HandleState(ctx context.Context, state models.PlaybackState) {
	b.mu.Lock()
	prev, hadPrev := b.detector.Previous()
	ended, changed := b.detector.Observe(state)
	pollCtx := b.pollCtx
	hold := false
	if state.IsPlaying {
		b.grace = 0
	} else if b.grace > 0 {
		b.grace--
		hold = true
	}
	b.mu.Unlock()

	if b.opts.OnState != nil {
		b.opts.OnState(state)
	}

	if changed && hadPrev && prev.Track.URI != "" && b.opts.OnTrackChanged != nil {
		b.opts.OnTrackChanged(ctx, prev.Track)
	}

	switch {
	case state.IsPlaying && (changed || !b.poller.Running()):
		b.poller.Start(pollCtx)
	case !state.IsPlaying && !hold:
		b.poller.Stop()
	}

	if !ended || b.opts.Advancer == nil {
		return
	}
	if !b.debounce.Allow() {
		b.log.Debug("Auto-advance suppressed by debounce", "track", state.Track.URI)
		return
	}

	b.log.Info("Track ended, advancing", "track", state.Track.URI, "position_ms", state.PositionMs)
	if err := b.opts.Advancer.Advance(ctx); err != nil {
		b.log.Warn("Auto-advance failed", "error", err)
		return
	}
	b.Watch()
}

func (b *Bridge) poll(ctx context.Context) {
	state, active, err := b.player.CurrentState(ctx)
	if err != nil {
		b.log.Debug("Playback poll failed", "error", err)
		return
	}
	if !active {
		return
	}

	// HandleState may stop this task, which cancels ctx; the advance it
	// triggers has to outlive that.
	b.mu.Lock()
	base := b.pollCtx
	b.mu.Unlock()
	b.HandleState(base, state)
}

// Polling reports whether the position poller is running.
func (b *Bridge) Polling() bool {
	return b.poller.Running()
}

// Close stops polling and waits for the poller to exit.
func (b *Bridge) Close() {
	b.poller.Close()
}
