package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/party-queue-client/internal/errors"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	DefaultMax = 20

	SessionLostMessage = "Your session was lost. Please select a role again."
	ConnectivityPrefix = "Connection problem: "
)

// Notification is a toast (transient, dismissable) or a blocking message the
// user has to acknowledge.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Blocking  bool      `json:"blocking"`
	CreatedAt time.Time `json:"created_at"`
}

// Center keeps the most recent notifications and fans new ones out to
// subscribers.
type Center struct {
	mu    sync.Mutex
	max   int
	items []Notification
	subs  map[chan Notification]struct{}
	now   func() time.Time
}

func NewCenter(max int) *Center {
	if max <= 0 {
		max = DefaultMax
	}
	return &Center{
		max:  max,
		subs: make(map[chan Notification]struct{}),
		now:  time.Now,
	}
}

func (c *Center) Push(level Level, msg string, blocking bool) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   msg,
		Blocking:  blocking,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, n)
	if over := len(c.items) - c.max; over > 0 {
		c.items = append(c.items[:0:0], c.items[over:]...)
	}
	for ch := range c.subs {
		select {
		case ch <- n:
		default:
			// slow subscriber
		}
	}
	return n
}

func (c *Center) Info(msg string) Notification { return c.Push(LevelInfo, msg, false) }
func (c *Center) Success(msg string) Notification { return c.Push(LevelSuccess, msg, false) }

// Dismiss removes a notification. It reports whether id was present.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the retained notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Center) Subscribe() (ch chan Notification, cancel func()) {
	ch = make(chan Notification, 16)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel = func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// FromError surfaces err according to its kind. Domain errors are silent and
// yield false.
func (c *Center) FromError(err error) (Notification, bool) {
	if err == nil || apperrors.IsSilent(err) {
		return Notification{}, false
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindSession:
		return c.Push(LevelError, SessionLostMessage, true), true
	case apperrors.KindAuthorization:
		return c.Push(LevelError, apperrors.MessageOf(err), true), true
	case apperrors.KindConnectivity:
		return c.Push(LevelError, ConnectivityPrefix+apperrors.MessageOf(err), false), true
	case apperrors.KindInvalidInput:
		return c.Push(LevelWarning, apperrors.MessageOf(err), false), true
	default:
		return c.Push(LevelError, err.Error(), false), true
	}
}
