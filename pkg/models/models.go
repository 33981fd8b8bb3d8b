package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Track is a playable item. URI is the unique key; Name is display only.
type Track struct {
	URI  string `json:"track_uri"`
	Name string `json:"track_name"`
}

// QueueItem is one row of the backend's queue snapshot.
type QueueItem struct {
	TrackURI  string    `json:"track_uri"`
	TrackName string    `json:"track_name"`
	UpVotes   int       `json:"upvotes"`
	DownVotes int       `json:"downvotes"`
	VoteScore int       `json:"vote_score"`
	Timestamp time.Time `json:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as the zone-less ISO
// form the backend emits, which is read as UTC. A null or unparsable
// timestamp leaves Timestamp zero.
func (q *QueueItem) UnmarshalJSON(data []byte) error {
	type plain QueueItem
	var aux struct {
		plain
		Timestamp *string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*q = QueueItem(aux.plain)
	q.Timestamp = time.Time{}
	if aux.Timestamp == nil {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, *aux.Timestamp); err == nil {
			q.Timestamp = ts
			break
		}
	}
	return nil
}

func (q QueueItem) Track() Track {
	return Track{URI: q.TrackURI, Name: q.TrackName}
}

// QueueSnapshot is the authoritative queue as returned by the backend.
type QueueSnapshot struct {
	Queue []QueueItem `json:"queue"`
	Count int         `json:"count"`
}

// PlaybackState is the coarse state reported by the playback SDK.
type PlaybackState struct {
	Track      Track `json:"track"`
	IsPlaying  bool  `json:"is_playing"`
	PositionMs int64 `json:"position_ms"`
	DurationMs int64 `json:"duration_ms"`
}

// NowPlaying is what the view shows in its "now playing" indicator.
type NowPlaying struct {
	Track     Track     `json:"track"`
	IsPlaying bool      `json:"is_playing"`
	DeviceID  string    `json:"device_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SearchResult struct {
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
	ImageURL   string `json:"image_url,omitempty"`
}

// CustomPlaylist is a user-owned list kept by the backend. Timestamps are
// passed through as the backend formats them.
type CustomPlaylist struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	TrackCount  int             `json:"track_count"`
	Tracks      []PlaylistTrack `json:"tracks,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

type PlaylistTrack struct {
	ID         int64  `json:"id,omitempty"`
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	Artist     string `json:"track_artist,omitempty"`
	Album      string `json:"track_album,omitempty"`
	DurationMs int    `json:"track_duration,omitempty"`
	Position   int    `json:"position,omitempty"`
}

// Recommendation is a similar track suggested for a queued one.
type Recommendation struct {
	Name   string  `json:"name"`
	Artist string  `json:"artist"`
	URL    string  `json:"url,omitempty"`
	Match  float64 `json:"match,omitempty"`
}

// SessionInfo is the role/identity descriptor the backend hands out.
type SessionInfo struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	HasSpotify  bool   `json:"has_spotify"`
}

type ChatMessage struct {
	User    string    `json:"user"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"timestamp"`
}

// HistoryEntry records one track the host started.
type HistoryEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"index;size:64"`
	TrackURI  string    `json:"track_uri" gorm:"size:255"`
	TrackName string    `json:"track_name" gorm:"size:512"`
	Reason    string    `json:"reason" gorm:"size:32"`
	PlayedAt  time.Time `json:"played_at" gorm:"index"`
}

const UnknownArtist = "Unknown Artist"

var nameSeparators = []string{" - ", " — ", ": "}

// SplitDisplayName splits "Artist - Title" style names on the first separator
// found, trying " - ", then " — ", then ": ".
func SplitDisplayName(name string) (artist, title string, ok bool) {
	for _, sep := range nameSeparators {
		if i := strings.Index(name, sep); i >= 0 {
			return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+len(sep):]), true
		}
	}
	return "", strings.TrimSpace(name), false
}

// ArtistOf returns the artist part of a display name, or UnknownArtist.
func ArtistOf(name string) string {
	if artist, _, ok := SplitDisplayName(name); ok && artist != "" {
		return artist
	}
	return UnknownArtist
}
