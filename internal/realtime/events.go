package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/party-queue-client/pkg/models"
)

// Envelope is the wire shape of every channel message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is the closed set of inbound channel events.
type Event interface {
	Name() string
	isEvent()
}

const (
	EventQueueUpdated     = "queue_updated"
	EventTrackAdded       = "track_added"
	EventTrackRemoved     = "track_removed"
	EventQueueReordered   = "queue_reordered"
	EventVoteUpdated      = "vote_updated"
	EventQueueCleared     = "queue_cleared"
	EventVotesCleared     = "votes_cleared"
	EventPlaybackStarted  = "playback_started"
	EventPlaybackPaused   = "playback_paused"
	EventPlaybackResumed  = "playback_resumed"
	EventChatMessage      = "chat_message"
	EventChatHistory      = "chat_history"
	EventSessionRestarted = "session_restarted"
	EventError            = "error"
)

// QueueChanged covers every event whose only correct handling is a full
// re-fetch of the queue.
type QueueChanged struct {
	Reason   string `json:"-"`
	TrackURI string `json:"track_uri,omitempty"`
}

type VoteUpdated struct {
	TrackURI  string `json:"track_uri"`
	UpVotes   int    `json:"up_votes"`
	DownVotes int    `json:"down_votes"`
}

type QueueCleared struct{}

type PlaybackStarted struct {
	TrackURI  string `json:"track_uri"`
	TrackName string `json:"track_name"`
	DeviceID  string `json:"device_id,omitempty"`
}

type PlaybackPaused struct {
	TrackURI string `json:"track_uri,omitempty"`
}

type PlaybackResumed struct {
	TrackURI string `json:"track_uri,omitempty"`
}

type ChatMessage struct {
	models.ChatMessage
}

type ChatHistory struct {
	Messages []models.ChatMessage `json:"messages"`
}

type SessionRestarted struct {
	Message string `json:"message"`
}

type ChannelError struct {
	Message string `json:"message"`
}

func (e QueueChanged) Name() string { return e.Reason }
func (VoteUpdated) Name() string { return EventVoteUpdated }
func (QueueCleared) Name() string { return EventQueueCleared }
func (PlaybackStarted) Name() string { return EventPlaybackStarted }
func (PlaybackPaused) Name() string { return EventPlaybackPaused }
func (PlaybackResumed) Name() string { return EventPlaybackResumed }
func (ChatMessage) Name() string { return EventChatMessage }
func (ChatHistory) Name() string { return EventChatHistory }
func (SessionRestarted) Name() string { return EventSessionRestarted }
func (ChannelError) Name() string { return EventError }
func (QueueChanged) isEvent() {}
func (VoteUpdated) isEvent() {}
func (QueueCleared) isEvent() {}
func (PlaybackStarted) isEvent() {}
func (PlaybackPaused) isEvent() {}
func (PlaybackResumed) isEvent() {}
func (ChatMessage) isEvent() {}
func (ChatHistory) isEvent() {}
func (SessionRestarted) isEvent() {}
func (ChannelError) isEvent() {}

// Decode parses one inbound message.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("realtime: invalid envelope: %w", err)
	}

	switch env.Event {
	case EventQueueUpdated, EventTrackAdded, EventTrackRemoved, EventQueueReordered:
		ev := QueueChanged{Reason: env.Event}
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventVoteUpdated:
		var ev VoteUpdated
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if ev.TrackURI == "" {
			return nil, fmt.Errorf("realtime: %s without track_uri", env.Event)
		}
		return ev, nil
	case EventQueueCleared, EventVotesCleared:
		return QueueCleared{}, nil
	case EventPlaybackStarted:
		var ev PlaybackStarted
		return decodeInto(env, &ev)
	case EventPlaybackPaused:
		var ev PlaybackPaused
		return decodeInto(env, &ev)
	case EventPlaybackResumed:
		var ev PlaybackResumed
		return decodeInto(env, &ev)
	case EventChatMessage:
		var ev ChatMessage
		return decodeInto(env, &ev)
	case EventChatHistory:
		var ev ChatHistory
		return decodeInto(env, &ev)
	case EventSessionRestarted:
		var ev SessionRestarted
		return decodeInto(env, &ev)
	case EventError:
		var ev ChannelError
		return decodeInto(env, &ev)
	default:
		return nil, fmt.Errorf("realtime: unknown event %q", env.Event)
	}
}

func decodeInto[T Event](env Envelope, ev *T) (Event, error) {
	if err := decodeData(env, ev); err != nil {
		return nil, err
	}
	return *ev, nil
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("realtime: invalid %s payload: %w", env.Event, err)
	}
	return nil
}
