package notify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/party-queue-client/internal/errors"
)

func TestCenterPushListDismiss(t *testing.T) {
	c := NewCenter(5)

	a := c.Info("Added \"Song\" to queue")
	b := c.Push(LevelError, "boom", true)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.True(t, list[1].Blocking)

	assert.True(t, c.Dismiss(a.ID))
	assert.False(t, c.Dismiss(a.ID))
	require.Len(t, c.List(), 1)
	assert.Equal(t, b.ID, c.List()[0].ID)
}

func TestCenterDropsOldest(t *testing.T) {
	c := NewCenter(3)
	for i := 0; i < 5; i++ {
		c.Info(fmt.Sprintf("n%d", i))
	}

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "n2", list[0].Message)
	assert.Equal(t, "n4", list[2].Message)
}

func TestCenterSubscribe(t *testing.T) {
	c := NewCenter(0)
	ch, cancel := c.Subscribe()

	c.Success("saved")
	select {
	case n := <-ch:
		assert.Equal(t, "saved", n.Message)
		assert.Equal(t, LevelSuccess, n.Level)
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	c.Info("after cancel")
}

func TestCenterFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     bool
		level    Level
		blocking bool
		message  string
	}{
		{"nil", nil, false, "", false, ""},
		{"domain is silent", apperrors.Domain("auto play", "Queue is empty"), false, "", false, ""},
		{"wrapped domain is silent", fmt.Errorf("advance: %w", apperrors.Domain("auto play", "Queue is empty")), false, "", false, ""},
		{"authorization blocks", apperrors.Authorization("clear queue", "Only hosts can clear the queue"), true, LevelError, true, "Only hosts can clear the queue"},
		{"session blocks", apperrors.Session("start", "missing role"), true, LevelError, true, SessionLostMessage},
		{"connectivity is transient", apperrors.Connectivity("vote", errors.New("dial tcp")), true, LevelError, false, ConnectivityPrefix + "connection failed"},
		{"invalid input warns", apperrors.InvalidInput("search", "search query is required"), true, LevelWarning, false, "search query is required"},
		{"plain error", errors.New("boom"), true, LevelError, false, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCenter(0)
			n, ok := c.FromError(tt.err)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.Empty(t, c.List())
				return
			}
			assert.Equal(t, tt.level, n.Level)
			assert.Equal(t, tt.blocking, n.Blocking)
			assert.Equal(t, tt.message, n.Message)
		})
	}
}
