package app

import (
	"context"
	"time"

	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/database"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

// Advance starts the highest-voted queued track. It is called by the
// playback bridge when the current track ends.
//
// Connectivity failures are retried with linear backoff. An empty queue is a
// silent no-op.
func (c *Controller) Advance(ctx context.Context) error {
	const op = "auto advance"
	if c.Identity().Role != role.Host {
		return nil
	}

	attempts := c.cfg.AdvanceRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := c.deps.Backend.AutoPlay(ctx, c.deviceID())
		if err == nil {
			c.advanced(ctx, res.Track.Track, res.Track.NetScore, attempt)
			return nil
		}
		if apperrors.IsSilent(err) {
			c.log.Debug("Nothing to advance to", "reason", apperrors.MessageOf(err))
			return nil
		}
		if apperrors.KindOf(err) != apperrors.KindConnectivity {
			c.report(err)
			return err
		}

		lastErr = err
		c.log.Warn("Auto-advance attempt failed", "attempt", attempt, "max_attempts", attempts, "error", err)
		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, time.Duration(attempt)*c.cfg.AdvanceBackoff); err != nil {
			return err
		}
	}

	err := apperrors.Wrap(lastErr, apperrors.KindConnectivity, op, "could not start the next track")
	c.report(err)
	return err
}

func (c *Controller) advanced(ctx context.Context, track models.Track, score, attempts int) {
	c.log.Info("Advanced to next track", "track", track.URI, "score", score, "attempts", attempts)
	c.startedTrack(ctx, track, database.ReasonAutoAdvance)
	c.publish(ctx, events.ActivityAutoAdvanced, events.AutoAdvancedPayload{
		TrackURI:  track.URI,
		TrackName: track.Name,
		NetScore:  score,
		Attempts:  attempts,
	})
	_ = c.Refresh(ctx)
}

// TrackFinished drops a finished track from the shared queue. Host only.
func (c *Controller) TrackFinished(ctx context.Context, finished models.Track) {
	if c.Identity().Role != role.Host || finished.URI == "" {
		return
	}
	err := c.deps.Backend.RemoveFromQueue(ctx, finished.URI)
	if err != nil && !apperrors.IsSilent(err) {
		c.log.Warn("Failed to remove finished track", "track", finished.URI, "error", err)
	}
}

// PlaybackState mirrors the device's state into now-playing.
func (c *Controller) PlaybackState(state models.PlaybackState) {
	prev := c.NowPlaying()
	next := prev
	if state.Track.URI != "" && (state.Track.URI != prev.Track.URI || prev.Track.Name == "") {
		next.Track = state.Track
	}
	next.IsPlaying = state.IsPlaying
	if next.Track == prev.Track && next.IsPlaying == prev.IsPlaying {
		return
	}
	next.DeviceID = c.deviceID()
	c.setNowPlaying(next)
}
