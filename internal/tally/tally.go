// Package tally keeps the per-track vote counts pushed by the backend.
//
// Counts are always replaced with the authoritative values from the server and
// never incremented locally, so replaying the same update is harmless.
package tally

import "sync"

// Entry is the up/down count for one track.
type Entry struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Net returns up minus down. It may be negative.
func (e Entry) Net() int {
	return e.Up - e.Down
}

type Tally struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func New() *Tally {
	return &Tally{entries: make(map[string]Entry)}
}

// Apply replaces the stored counts for trackID. Negative counts are clamped to zero.
func (t *Tally) Apply(trackID string, up, down int) {
	if up < 0 {
		up = 0
	}
	if down < 0 {
		down = 0
	}

	t.mu.Lock()
	t.entries[trackID] = Entry{Up: up, Down: down}
	t.mu.Unlock()
}

// Ensure creates a zero entry for trackID if none exists yet.
func (t *Tally) Ensure(trackID string) {
	t.mu.Lock()
	if _, ok := t.entries[trackID]; !ok {
		t.entries[trackID] = Entry{}
	}
	t.mu.Unlock()
}

// Entry returns the counts for trackID, or a zero entry for unknown tracks.
func (t *Tally) Entry(trackID string) Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[trackID]
}

func (t *Tally) NetScore(trackID string) int {
	return t.Entry(trackID).Net()
}

func (t *Tally) Has(trackID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[trackID]
	return ok
}

func (t *Tally) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reset drops every entry. Used on queue clear and session restart.
func (t *Tally) Reset() {
	t.mu.Lock()
	t.entries = make(map[string]Entry)
	t.mu.Unlock()
}

// Snapshot returns a copy of all entries.
func (t *Tally) Snapshot() map[string]Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Entry, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}
