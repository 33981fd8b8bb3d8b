package queue

import (
	"sort"
	"time"

	"github.com/party-queue-client/pkg/models"
)

// Entry is one queued track. Its votes live in the tally, keyed by URI.
type Entry struct {
	Track      models.Track
	EnqueuedAt time.Time
}

// Scorer resolves a track's net score. Unknown tracks score zero.
type Scorer interface {
	NetScore(trackID string) int
}

// Order returns a new slice sorted by net score descending, then by
// EnqueuedAt ascending. Entries equal on both keys keep their input order.
func Order(entries []Entry, scores Scorer) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	if len(out) < 2 {
		return out
	}

	net := make(map[string]int, len(out))
	for _, e := range out {
		net[e.Track.URI] = scores.NetScore(e.Track.URI)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := net[out[i].Track.URI], net[out[j].Track.URI]
		if si != sj {
			return si > sj
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// Movement is the presentational tag for an entry whose position changed.
type Movement string

const (
	MovementNone Movement = ""
	MovementUp   Movement = "up"
	MovementDown Movement = "down"
)

// Movements compares two orderings of track URIs. Entries that are new in
// next, or kept their index, get no tag.
func Movements(prev, next []string) map[string]Movement {
	before := make(map[string]int, len(prev))
	for i, uri := range prev {
		before[uri] = i
	}

	out := make(map[string]Movement, len(next))
	for i, uri := range next {
		old, ok := before[uri]
		switch {
		case !ok || old == i:
			out[uri] = MovementNone
		case i < old:
			out[uri] = MovementUp
		default:
			out[uri] = MovementDown
		}
	}
	return out
}
