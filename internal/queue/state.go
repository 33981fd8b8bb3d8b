package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/party-queue-client/internal/tally"
	"github.com/party-queue-client/pkg/models"
)

// Row is one rendered line of the queue view.
type Row struct {
	Position   int          `json:"position"`
	Track      models.Track `json:"track"`
	Artist     string       `json:"artist"`
	Up         int          `json:"up"`
	Down       int          `json:"down"`
	Score      int          `json:"score"`
	ScoreLabel string       `json:"score_label"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
	Movement   Movement     `json:"movement,omitempty"`
	UpNext     bool         `json:"up_next"`
}

// State is the session's shared queue document. It is only ever changed by
// applying authoritative data from the backend.
type State struct {
	mu sync.Mutex

	votes   *tally.Tally
	entries []Entry

	// sequence numbers of snapshot requests
	issued  uint64
	applied uint64
	// votedAt holds the request sequence current when a vote update arrived.
	votedAt map[string]uint64

	lastOrder []string
	now       func() time.Time
}

func NewState() *State {
	return &State{
		votes:   tally.New(),
		votedAt: make(map[string]uint64),
		now:     time.Now,
	}
}

// Votes exposes the tally for read access.
func (s *State) Votes() *tally.Tally {
	return s.votes
}

// NextSequence stamps a snapshot request. Responses are applied with the
// stamp they were requested under.
func (s *State) NextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// ApplySnapshot replaces the queue with items. It returns false and leaves the
// state untouched when seq is older than the last applied snapshot. Counts for
// a track whose vote update arrived after the request was issued are kept.
func (s *State) ApplySnapshot(seq uint64, items []models.QueueItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied {
		return false
	}
	s.applied = seq

	received := s.now()
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		if it.TrackURI == "" {
			continue
		}
		at := it.Timestamp
		if at.IsZero() {
			at = received
		}
		entries = append(entries, Entry{Track: it.Track(), EnqueuedAt: at})
		if voted, ok := s.votedAt[it.TrackURI]; ok && voted >= seq {
			continue
		}
		s.votes.Apply(it.TrackURI, it.UpVotes, it.DownVotes)
	}
	s.entries = entries

	for uri, voted := range s.votedAt {
		if voted < seq {
			delete(s.votedAt, uri)
		}
	}
	return true
}

// ApplyVote stores the backend's tally for one track. Snapshots requested
// before this call do not overwrite it.
func (s *State) ApplyVote(trackID string, up, down int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votedAt[trackID] = s.issued
	s.votes.Apply(trackID, up, down)
}

// Clear empties the queue and the tally. Snapshots requested before the
// clear are stale afterwards.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.applied = s.issued
	s.entries = nil
	s.lastOrder = nil
	s.votedAt = make(map[string]uint64)
	s.votes.Reset()
}

func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *State) Contains(trackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Track.URI == trackID {
			return true
		}
	}
	return false
}

// Ordered returns the current queue in play order.
func (s *State) Ordered() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Order(s.entries, s.votes)
}

// Head returns the entry that plays next.
func (s *State) Head() (Entry, bool) {
	ordered := s.Ordered()
	if len(ordered) == 0 {
		return Entry{}, false
	}
	return ordered[0], true
}

// Render orders the queue and tags each row relative to the previous render.
func (s *State) Render() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := Order(s.entries, s.votes)
	uris := make([]string, len(ordered))
	for i, e := range ordered {
		uris[i] = e.Track.URI
	}
	moves := Movements(s.lastOrder, uris)
	s.lastOrder = uris

	rows := make([]Row, len(ordered))
	for i, e := range ordered {
		v := s.votes.Entry(e.Track.URI)
		rows[i] = Row{
			Position:   i + 1,
			Track:      e.Track,
			Artist:     models.ArtistOf(e.Track.Name),
			Up:         v.Up,
			Down:       v.Down,
			Score:      v.Net(),
			ScoreLabel: fmt.Sprintf("Score: %d", v.Net()),
			EnqueuedAt: e.EnqueuedAt,
			Movement:   moves[e.Track.URI],
			UpNext:     i == 0,
		}
	}
	return rows
}

// Items exports the queue as backend snapshot rows, in play order.
func (s *State) Items() []models.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := Order(s.entries, s.votes)
	items := make([]models.QueueItem, len(ordered))
	for i, e := range ordered {
		v := s.votes.Entry(e.Track.URI)
		items[i] = models.QueueItem{
			TrackURI:  e.Track.URI,
			TrackName: e.Track.Name,
			UpVotes:   v.Up,
			DownVotes: v.Down,
			VoteScore: v.Net(),
			Timestamp: e.EnqueuedAt,
		}
	}
	return items
}
