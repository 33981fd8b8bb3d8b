package playback

import (
	"sync"
	"time"

	"github.com/party-queue-client/pkg/models"
)

// Detector decides from consecutive SDK states whether a track just ended.
type Detector struct {
	window time.Duration

	prev models.PlaybackState
	seen bool
}

func NewDetector(window time.Duration) *Detector {
	return &Detector{window: window}
}

// Observe records cur and reports whether the track ended and whether the
// track differs from the previous observation.
//
// A track ended when playback went from playing to paused and either snapped
// back to position 0 on the same track, or stopped within the trailing window
// of its duration.
func (d *Detector) Observe(cur models.PlaybackState) (ended, trackChanged bool) {
	prev, seen := d.prev, d.seen
	d.prev, d.seen = cur, true

	if !seen {
		return false, cur.Track.URI != ""
	}

	trackChanged = cur.Track.URI != prev.Track.URI
	stopped := prev.IsPlaying && !cur.IsPlaying
	if !stopped {
		return false, trackChanged
	}

	rewound := prev.PositionMs > 0 && cur.PositionMs == 0 && !trackChanged
	nearEnd := cur.DurationMs > 0 && cur.PositionMs > 0 &&
		cur.PositionMs > cur.DurationMs-d.window.Milliseconds()

	return rewound || nearEnd, trackChanged
}

// Previous returns the last observed state.
func (d *Detector) Previous() (models.PlaybackState, bool) {
	return d.prev, d.seen
}

func (d *Detector) Reset() {
	d.prev, d.seen = models.PlaybackState{}, false
}

// Debouncer lets one signal through per cool-down window.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
	now    func() time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window, now: time.Now}
}

// Allow reports whether a signal may pass and, if so, starts a new window.
func (d *Debouncer) Allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.last.IsZero() && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	return true
}
