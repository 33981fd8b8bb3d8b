package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/party-queue-client/internal/backend"
	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

func played(uri string, score int) backend.AutoPlayResult {
	return backend.AutoPlayResult{
		Status: "playing",
		Track:  backend.NextTrack{Track: models.Track{URI: uri, Name: "Band - " + uri}, NetScore: score},
	}
}

func TestAdvanceRetriesConnectivityWithBackoff(t *testing.T) {
	h := newHarness(t, role.Host, Deps{Player: &fakePlayer{}})
	h.backend.autoPlay = func(call int) (backend.AutoPlayResult, error) {
		if call < 3 {
			return backend.AutoPlayResult{}, apperrors.Connectivity("auto play", errors.New("timeout"))
		}
		return played("C", 5), nil
	}
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx))

	require.NoError(t, h.ctrl.Advance(ctx))
	assert.Equal(t, 3, h.backend.autoPlayCalls)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 500 * time.Millisecond}, h.sleeps)

	np := h.ctrl.NowPlaying()
	assert.Equal(t, "C", np.Track.URI)
	assert.True(t, np.IsPlaying)
	assert.Equal(t, "dev1", np.DeviceID)
	assert.Contains(t, h.events.types(), events.ActivityAutoAdvanced)
	assert.Equal(t, 2, h.backend.queueCalls, "queue is re-fetched after advancing")
	assert.Empty(t, h.notify.List())
}

func TestAdvanceGivesUpAfterRetries(t *testing.T) {
	h := newHarness(t, role.Host, Deps{})
	h.backend.autoPlay = func(int) (backend.AutoPlayResult, error) {
		return backend.AutoPlayResult{}, apperrors.FromStatus("auto play", 503, "Service Unavailable")
	}
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx))

	err := h.ctrl.Advance(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnectivity, apperrors.KindOf(err))
	assert.Equal(t, 3, h.backend.autoPlayCalls)
	assert.Len(t, h.sleeps, 2)

	list := h.notify.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].Blocking)
	assert.Contains(t, list[0].Message, "could not start the next track")
}

func TestAdvanceEmptyQueueIsSilent(t *testing.T) {
	h := newHarness(t, role.Host, Deps{})
	h.backend.autoPlay = func(int) (backend.AutoPlayResult, error) {
		return backend.AutoPlayResult{}, apperrors.FromStatus("auto play", 404, "Queue is empty")
	}
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx))

	assert.NoError(t, h.ctrl.Advance(ctx))
	assert.Equal(t, 1, h.backend.autoPlayCalls)
	assert.Empty(t, h.sleeps)
	assert.Empty(t, h.notify.List())
	assert.Empty(t, h.view.ofType(MsgNotification))
}

func TestAdvanceAuthorizationIsNotRetried(t *testing.T) {
	h := newHarness(t, role.Host, Deps{})
	h.backend.autoPlay = func(int) (backend.AutoPlayResult, error) {
		return backend.AutoPlayResult{}, apperrors.FromStatus("auto play", 403, "Only hosts can control playback")
	}
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx))

	err := h.ctrl.Advance(ctx)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
	assert.Equal(t, 1, h.backend.autoPlayCalls)
	require.Len(t, h.notify.List(), 1)
	assert.True(t, h.notify.List()[0].Blocking)
}

func TestAdvanceOnlyForHost(t *testing.T) {
	h := newHarness(t, role.Listener, Deps{})
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx))

	assert.NoError(t, h.ctrl.Advance(ctx))
	assert.Zero(t, h.backend.autoPlayCalls)
}

func TestAdvanceStopsWhenCancelled(t *testing.T) {
	h := newHarness(t, role.Host, Deps{})
	h.backend.autoPlay = func(int) (backend.AutoPlayResult, error) {
		return backend.AutoPlayResult{}, apperrors.Connectivity("auto play", errors.New("refused"))
	}
	require.NoError(t, h.ctrl.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.ctrl.sleep = sleepCtx

	err := h.ctrl.Advance(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.backend.autoPlayCalls)
}

func TestTrackFinishedRemovesFromQueue(t *testing.T) {
	host := newHarness(t, role.Host, Deps{})
	ctx := context.Background()
	require.NoError(t, host.ctrl.Start(ctx))
	host.ctrl.TrackFinished(ctx, models.Track{URI: "A"})
	host.ctrl.TrackFinished(ctx, models.Track{})
	assert.Equal(t, []string{"A"}, host.backend.removed)

	guest := newHarness(t, role.Guest, Deps{})
	require.NoError(t, guest.ctrl.Start(ctx))
	guest.ctrl.TrackFinished(ctx, models.Track{URI: "A"})
	assert.Empty(t, guest.backend.removed)
}
