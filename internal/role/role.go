package role

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	Host            Role = "host"
	Listener        Role = "listener"
	Guest           Role = "guest"
	Unauthenticated Role = ""
)

// Parse maps a raw role value to a Role. Anything that is not a known role,
// including "undefined" and "null" leaking from templates, is Unauthenticated.
func Parse(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case Host:
		return Host
	case Listener:
		return Listener
	case Guest:
		return Guest
	default:
		return Unauthenticated
	}
}

func (r Role) Valid() bool {
	return r == Host || r == Listener || r == Guest
}

func (r Role) CanControlPlayback() bool {
	return r == Host
}

func (r Role) String() string {
	if r == Unauthenticated {
		return "unauthenticated"
	}
	return string(r)
}

// Visibility lists which UI regions a role may see.
type Visibility struct {
	ShowQueueClear        bool `json:"show_queue_clear"`
	ShowPlaylistBrowser   bool `json:"show_playlist_browser"`
	ShowSearch            bool `json:"show_search"`
	ShowPlaybackTransport bool `json:"show_playback_transport"`
	ShowRestartControl    bool `json:"show_restart_control"`
}

// VisibilityFor is pure and total over every Role value.
func VisibilityFor(r Role) Visibility {
	switch r {
	case Host:
		return Visibility{
			ShowQueueClear:        true,
			ShowPlaylistBrowser:   true,
			ShowSearch:            true,
			ShowPlaybackTransport: true,
			ShowRestartControl:    true,
		}
	case Listener, Guest:
		return Visibility{ShowSearch: true}
	default:
		return Visibility{}
	}
}

// Identity is who the client acts as within a session.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// ContinueAsGuest builds a guest identity locally, before any server round trip.
func ContinueAsGuest() Identity {
	id := "guest_" + uuid.NewString()
	return Identity{UserID: id, DisplayName: "Guest", Role: Guest}
}
