package app

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/notify"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/database"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

// requireRole fails without a round trip when the identity lacks the role.
// A client with no role at all gets a session error instead.
func (c *Controller) requireRole(op string, allowed ...role.Role) error {
	id := c.Identity()
	if !id.Role.Valid() {
		return apperrors.Session(op, "no role selected")
	}
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return apperrors.Authorization(op, fmt.Sprintf("%s is not allowed for role %s", op, id.Role))
}

// CastVote sends a vote intent. The tally only changes when the backend
// answers with vote_updated.
func (c *Controller) CastVote(ctx context.Context, trackURI string, vote realtime.VoteDirection) error {
	const op = "vote"
	if err := c.requireRole(op, role.Host, role.Listener, role.Guest); err != nil {
		c.report(err)
		return err
	}
	if strings.TrimSpace(trackURI) == "" {
		return apperrors.InvalidInput(op, "track_uri is required")
	}

	var err error
	if s := c.sender(); s != nil {
		if err = s.Send(realtime.VoteAdd{TrackURI: trackURI, Vote: vote}); err != nil {
			err = apperrors.Connectivity(op, err)
		}
	} else {
		err = c.deps.Backend.Vote(ctx, trackURI, vote)
	}
	if err != nil {
		c.report(err)
		return err
	}

	c.publish(ctx, events.ActivityVoteCast, events.VoteCastPayload{TrackURI: trackURI, Vote: string(vote)})
	return nil
}

// QueueTrack asks the backend to enqueue track.
func (c *Controller) QueueTrack(ctx context.Context, track models.Track) error {
	const op = "queue track"
	if err := c.requireRole(op, role.Host, role.Listener, role.Guest); err != nil {
		c.report(err)
		return err
	}
	if strings.TrimSpace(track.URI) == "" {
		return apperrors.InvalidInput(op, "track_uri is required")
	}
	if track.Name == "" {
		track.Name = track.URI
	}

	var err error
	if s := c.sender(); s != nil {
		if err = s.Send(realtime.QueueAdd{TrackURI: track.URI, TrackName: track.Name}); err != nil {
			err = apperrors.Connectivity(op, err)
		}
	} else {
		err = c.deps.Backend.AddToQueue(ctx, track)
	}
	if err != nil {
		c.report(err)
		return err
	}

	c.notify(notify.LevelSuccess, fmt.Sprintf("Added %q to queue", track.Name))
	c.publish(ctx, events.ActivityTrackQueued, events.TrackQueuedPayload{TrackURI: track.URI, TrackName: track.Name})
	return nil
}

// ClearQueue empties the shared queue. Only the host may do this; the local
// state is cleared when the backend broadcasts queue_cleared.
func (c *Controller) ClearQueue(ctx context.Context) error {
	const op = "clear queue"
	if err := c.requireRole(op, role.Host); err != nil {
		c.report(err)
		return err
	}

	res, err := c.deps.Backend.ClearQueue(ctx)
	if err != nil {
		c.report(err)
		return err
	}

	msg := res.Message
	if msg == "" {
		msg = "Queue cleared"
	}
	c.notify(notify.LevelSuccess, msg)
	return nil
}

// PlayTrack starts trackURI on the host's device and drops it from the queue.
func (c *Controller) PlayTrack(ctx context.Context, trackURI string) error {
	const op = "play track"
	if err := c.requireRole(op, role.Host); err != nil {
		c.report(err)
		return err
	}
	if c.deps.Player == nil {
		err := apperrors.Domain(op, "no playback device")
		c.report(err)
		return err
	}

	track := models.Track{URI: trackURI}
	for _, row := range c.Rows() {
		if row.Track.URI == trackURI {
			track = row.Track
			break
		}
	}

	if err := c.deps.Player.Play(ctx, trackURI); err != nil {
		err = apperrors.Connectivity(op, err)
		c.report(err)
		return err
	}
	c.startedTrack(ctx, track, database.ReasonManual)

	if err := c.deps.Backend.RemoveFromQueue(ctx, trackURI); err != nil && !apperrors.IsSilent(err) {
		c.report(err)
	}
	return nil
}

// RestartSession resets the shared session for everyone. Host only.
func (c *Controller) RestartSession(ctx context.Context) error {
	const op = "restart session"
	if err := c.requireRole(op, role.Host); err != nil {
		c.report(err)
		return err
	}
	if err := c.deps.Backend.RestartSession(ctx); err != nil {
		c.report(err)
		return err
	}
	return nil
}

// startedTrack records that track began playing on the host device.
func (c *Controller) startedTrack(ctx context.Context, track models.Track, reason string) {
	c.setNowPlaying(models.NowPlaying{Track: track, IsPlaying: true, DeviceID: c.deviceID()})

	if c.deps.History != nil {
		if _, err := c.deps.History.RecordPlay(ctx, c.sessionID, track, reason, c.now()); err != nil {
			c.log.Warn("Failed to record play", "track", track.URI, "error", err)
		}
	}
}

func (c *Controller) deviceID() string {
	if c.deps.Player == nil {
		return ""
	}
	return c.deps.Player.DeviceID()
}
