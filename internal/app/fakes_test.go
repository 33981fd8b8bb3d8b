package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/party-queue-client/internal/backend"
	"github.com/party-queue-client/internal/config"
	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/internal/notify"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

var epoch = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func qi(uri string, up, down, at int) models.QueueItem {
	return models.QueueItem{
		TrackURI:  uri,
		TrackName: "Artist " + uri + " - Song " + uri,
		UpVotes:   up,
		DownVotes: down,
		Timestamp: epoch.Add(time.Duration(at) * time.Second),
	}
}

type fakeBackend struct {
	mu sync.Mutex

	queue    func(call int) (models.QueueSnapshot, error)
	autoPlay func(call int) (backend.AutoPlayResult, error)
	clearErr error
	voteErr  error

	queueCalls    int
	autoPlayCalls int
	clearCalls    int
	restartCalls  int
	votes         []string
	added         []models.Track
	removed       []string
}

func (b *fakeBackend) Queue(context.Context) (models.QueueSnapshot, error) {
	b.mu.Lock()
	b.queueCalls++
	call, fn := b.queueCalls, b.queue
	b.mu.Unlock()
	if fn == nil {
		return models.QueueSnapshot{}, nil
	}
	return fn(call)
}

func (b *fakeBackend) Vote(_ context.Context, uri string, vote realtime.VoteDirection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.votes = append(b.votes, uri+":"+string(vote))
	return b.voteErr
}

func (b *fakeBackend) AddToQueue(_ context.Context, track models.Track) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, track)
	return nil
}

func (b *fakeBackend) RemoveFromQueue(_ context.Context, uri string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, uri)
	return nil
}

func (b *fakeBackend) ClearQueue(context.Context) (backend.ClearResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearCalls++
	if b.clearErr != nil {
		return backend.ClearResult{}, b.clearErr
	}
	return backend.ClearResult{Message: "Queue cleared successfully. Removed 3 items.", ItemsRemoved: 3}, nil
}

func (b *fakeBackend) AutoPlay(context.Context, string) (backend.AutoPlayResult, error) {
	b.mu.Lock()
	b.autoPlayCalls++
	call, fn := b.autoPlayCalls, b.autoPlay
	b.mu.Unlock()
	if fn == nil {
		return backend.AutoPlayResult{}, errors.New("no auto play configured")
	}
	return fn(call)
}

func (b *fakeBackend) RestartSession(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restartCalls++
	return nil
}

type staticIdentity struct {
	id  role.Identity
	err error
}

func (s staticIdentity) Resolve(context.Context) (role.Identity, error) {
	return s.id, s.err
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []realtime.Intent
	sendErr error
}

func (s *fakeSender) Send(in realtime.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, in)
	return nil
}

type fakePlayer struct {
	played  []string
	watched int
	err     error
}

func (p *fakePlayer) Play(_ context.Context, uri string) error {
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, uri)
	return nil
}

func (p *fakePlayer) DeviceID() string { return "dev1" }

func (p *fakePlayer) Watch() { p.watched++ }

type viewMessage struct {
	Type    string
	Payload interface{}
}

type recordingView struct {
	mu   sync.Mutex
	msgs []viewMessage
}

func (v *recordingView) Broadcast(msgType string, payload interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.msgs = append(v.msgs, viewMessage{Type: msgType, Payload: payload})
}

func (v *recordingView) ofType(msgType string) []interface{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []interface{}
	for _, m := range v.msgs {
		if m.Type == msgType {
			out = append(out, m.Payload)
		}
	}
	return out
}

type recordingPublisher struct {
	mu         sync.Mutex
	activities []events.Activity
}

func (p *recordingPublisher) Publish(_ context.Context, a events.Activity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activities = append(p.activities, a)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.ActivityType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.ActivityType, len(p.activities))
	for i, a := range p.activities {
		out[i] = a.Type
	}
	return out
}

type harness struct {
	ctrl    *Controller
	backend *fakeBackend
	view    *recordingView
	events  *recordingPublisher
	notify  *notify.Center
	sleeps  []time.Duration
}

func newHarness(t *testing.T, r role.Role, deps Deps) *harness {
	t.Helper()
	h := &harness{
		backend: &fakeBackend{},
		view:    &recordingView{},
		events:  &recordingPublisher{},
		notify:  notify.NewCenter(0),
	}
	if deps.Backend == nil {
		deps.Backend = h.backend
	}
	if deps.Identity == nil {
		deps.Identity = staticIdentity{id: role.Identity{UserID: "u1", DisplayName: "Tester", Role: r}}
	}
	deps.View = h.view
	deps.Events = h.events
	deps.Notify = h.notify
	deps.Log = logger.NewNop()

	h.ctrl = NewController("s1", config.DefaultPlayback(), deps)
	h.ctrl.now = func() time.Time { return epoch.Add(time.Hour) }
	h.ctrl.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func (h *harness) uris() []string {
	rows := h.ctrl.Rows()
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Track.URI
	}
	return out
}
