package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	t.Run("with op and cause", func(t *testing.T) {
		err := Connectivity("queue.fetch", stderrors.New("dial tcp: refused"))
		assert.Equal(t, "queue.fetch: connection failed: dial tcp: refused", err.Error())
	})

	t.Run("message only", func(t *testing.T) {
		err := &Error{Kind: KindDomain, Message: "queue is empty"}
		assert.Equal(t, "queue is empty", err.Error())
	})
}

func TestKindOf_WalksWrappedChain(t *testing.T) {
	base := Authorization("queue.clear", "only hosts can clear the queue")
	wrapped := fmt.Errorf("controller: %w", base)

	assert.Equal(t, KindAuthorization, KindOf(wrapped))
	assert.Equal(t, "only hosts can clear the queue", MessageOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
	assert.Equal(t, "plain", MessageOf(stderrors.New("plain")))
	assert.Equal(t, "", MessageOf(nil))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := Wrap(cause, KindConnectivity, "op", "failed")
	assert.True(t, stderrors.Is(err, cause))
}

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuthorization},
		{http.StatusForbidden, KindAuthorization},
		{http.StatusNotFound, KindDomain},
		{http.StatusConflict, KindDomain},
		{http.StatusTooManyRequests, KindDomain},
		{http.StatusBadRequest, KindInvalidInput},
		{http.StatusInternalServerError, KindConnectivity},
		{http.StatusBadGateway, KindConnectivity},
	}
	for _, c := range cases {
		err := FromStatus("op", c.status, "")
		assert.Equal(t, c.want, err.Kind, "status %d", c.status)
		assert.NotEmpty(t, err.Message)
	}
}

func TestPolicyHelpers(t *testing.T) {
	assert.True(t, IsSilent(Domain("autoplay", "Queue is empty")))
	assert.False(t, IsSilent(nil))
	assert.True(t, IsBlocking(Authorization("clear", "host only")))
	assert.True(t, IsBlocking(Session("start", "no role")))
	assert.False(t, IsBlocking(Connectivity("fetch", nil)))
	assert.True(t, NeedsRoleSelection(Session("start", "no role")))
	assert.False(t, NeedsRoleSelection(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Authorization("", "")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Session("", "")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(Domain("", "")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("", "")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(Connectivity("", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("x")))
}
