package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Intent is an outbound, fire-and-forget request. The resulting state always
// comes back as inbound events.
type Intent interface {
	IntentName() string
}

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func ParseVote(raw string) (VoteDirection, error) {
	switch VoteDirection(strings.ToLower(strings.TrimSpace(raw))) {
	case VoteUp:
		return VoteUp, nil
	case VoteDown:
		return VoteDown, nil
	default:
		return "", fmt.Errorf("realtime: invalid vote %q", raw)
	}
}

type VoteAdd struct {
	TrackURI string        `json:"track_uri"`
	Vote     VoteDirection `json:"vote"`
}

type QueueAdd struct {
	TrackURI  string `json:"track_uri"`
	TrackName string `json:"track_name"`
}

func (VoteAdd) IntentName() string { return "vote_add" }
func (QueueAdd) IntentName() string { return "queue_add" }

// Encode wraps an intent in the channel envelope.
func Encode(in Intent) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("realtime: marshal %s: %w", in.IntentName(), err)
	}
	return json.Marshal(Envelope{Event: in.IntentName(), Data: data})
}
