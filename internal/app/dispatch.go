package app

import (
	"context"

	"github.com/party-queue-client/internal/auth"
	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/notify"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

// Dispatch applies one inbound realtime event. It is the only consumer of the
// channel's event stream.
func (c *Controller) Dispatch(ctx context.Context, ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.QueueChanged:
		c.log.Debug("Queue changed", "reason", e.Reason, "track", e.TrackURI)
		_ = c.Refresh(ctx)

	case realtime.VoteUpdated:
		c.state.ApplyVote(e.TrackURI, e.UpVotes, e.DownVotes)
		c.render(ctx)

	case realtime.QueueCleared:
		c.clearLocal(ctx)
		c.render(ctx)

	case realtime.PlaybackStarted:
		c.setNowPlaying(models.NowPlaying{
			Track:     models.Track{URI: e.TrackURI, Name: e.TrackName},
			IsPlaying: true,
			DeviceID:  e.DeviceID,
		})
		if c.deps.Player != nil && c.Identity().Role == role.Host {
			c.deps.Player.Watch()
		}

	case realtime.PlaybackPaused:
		c.setPlaying(e.TrackURI, false)

	case realtime.PlaybackResumed:
		c.setPlaying(e.TrackURI, true)

	case realtime.ChatMessage:
		c.mu.Lock()
		c.chat = append(c.chat, e.ChatMessage)
		if over := len(c.chat) - maxChat; over > 0 {
			c.chat = append(c.chat[:0:0], c.chat[over:]...)
		}
		c.mu.Unlock()
		c.broadcast(MsgChat, e.ChatMessage)

	case realtime.ChatHistory:
		msgs := e.Messages
		if over := len(msgs) - maxChat; over > 0 {
			msgs = msgs[over:]
		}
		c.mu.Lock()
		c.chat = append([]models.ChatMessage(nil), msgs...)
		c.mu.Unlock()

	case realtime.SessionRestarted:
		c.clearLocal(ctx)
		c.mu.Lock()
		c.identity = role.Identity{}
		c.nowPlaying = models.NowPlaying{}
		c.chat = nil
		c.mu.Unlock()
		c.render(ctx)

		msg := e.Message
		if msg == "" {
			msg = "The host restarted the session."
		}
		c.notify(notify.LevelInfo, msg)
		c.report(apperrors.Session("session restarted", msg))
		c.broadcast(MsgSessionRestarted, map[string]string{"redirect": auth.SessionLostURL})

	case realtime.ChannelError:
		c.report(apperrors.Wrap(nil, apperrors.KindConnectivity, "realtime", e.Message))

	default:
		c.log.Warn("Unhandled realtime event", "event", ev.Name())
	}
}

func (c *Controller) clearLocal(ctx context.Context) {
	c.state.Clear()
	if c.deps.Snapshots != nil {
		if err := c.deps.Snapshots.Clear(ctx, c.sessionID); err != nil {
			c.log.Warn("Failed to clear cached snapshot", "error", err)
		}
	}
	c.publish(ctx, events.ActivityQueueCleared, nil)
}

func (c *Controller) setNowPlaying(np models.NowPlaying) {
	np.UpdatedAt = c.now().UTC()
	c.mu.Lock()
	c.nowPlaying = np
	c.mu.Unlock()
	c.broadcast(MsgNowPlaying, np)
}

func (c *Controller) setPlaying(trackURI string, playing bool) {
	c.mu.Lock()
	np := c.nowPlaying
	c.mu.Unlock()

	if trackURI != "" && trackURI != np.Track.URI {
		np.Track = models.Track{URI: trackURI}
	}
	np.IsPlaying = playing
	c.setNowPlaying(np)
}
