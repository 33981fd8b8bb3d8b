package realtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/party-queue-client/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Sender delivers outbound intents.
type Sender interface {
	Send(in Intent) error
}

// Channel is the client side of the session's realtime websocket.
type Channel struct {
	conn *websocket.Conn
	log  logger.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the realtime channel at url.
func Dial(ctx context.Context, url string, header http.Header, log logger.Logger) (*Channel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("realtime: dial %s: %w", url, err)
	}
	return NewChannel(conn, log), nil
}

// NewChannel wraps an established connection.
func NewChannel(conn *websocket.Conn, log logger.Logger) *Channel {
	return &Channel{conn: conn, log: log}
}

// Run reads events until the connection drops or ctx is cancelled. Messages
// that fail to decode are logged and skipped.
func (c *Channel) Run(ctx context.Context, handle func(Event)) error {
	done := make(chan struct{})
	defer close(done)

	go c.keepAlive(ctx, done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("realtime: read: %w", err)
		}

		ev, err := Decode(message)
		if err != nil {
			c.log.Warn("Dropping channel message", "error", err)
			continue
		}
		handle(ev)
	}
}

func (c *Channel) keepAlive(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			c.Close()
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.log.Debug("Channel ping failed", "error", err)
				return
			}
		}
	}
}

// Send writes one intent. Safe for concurrent use.
func (c *Channel) Send(in Intent) error {
	msg, err := Encode(in)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("realtime: send %s: %w", in.IntentName(), err)
	}
	return nil
}

// Close sends a close frame and tears down the connection.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
