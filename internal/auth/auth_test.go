package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/internal/role"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier(testSecret)
	id := role.Identity{UserID: "u1", DisplayName: "DJ", Role: role.Host}

	token, err := v.Issue(id, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifierRejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	v := NewVerifier(testSecret)
	v.now = func() time.Time { return now }

	expired, err := IssueToken(testSecret, role.Identity{UserID: "u1", Role: role.Listener}, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), role.Identity{UserID: "u1", Role: role.Listener}, time.Hour, now)
	require.NoError(t, err)
	noRole, err := IssueToken(testSecret, role.Identity{UserID: "u1"}, time.Hour, now)
	require.NoError(t, err)
	undefinedRole, err := IssueToken(testSecret, role.Identity{UserID: "u1", Role: role.Role("undefined")}, time.Hour, now)
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", Role: "host"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"expired":        expired,
		"wrong secret":   foreign,
		"missing role":   noRole,
		"undefined role": undefinedRole,
		"alg none":       unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(raw)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindSession, apperrors.KindOf(err))
			assert.True(t, apperrors.NeedsRoleSelection(err))
		})
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *Verifier) {
	t.Helper()
	v := NewVerifier(testSecret)
	r := gin.New()
	NewHandler(v, logger.NewNop(), time.Hour, false).RegisterRoutes(r.Group(""))

	hostOnly := r.Group("/host", Middleware(v), RequireRole(role.Host))
	hostOnly.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r, v
}

func TestMiddlewareTokenSources(t *testing.T) {
	r, v := newTestRouter(t)
	token, err := v.Issue(role.Identity{UserID: "u1", DisplayName: "DJ", Role: role.Host}, time.Hour)
	require.NoError(t, err)

	requests := map[string]func(*http.Request){
		"cookie": func(req *http.Request) { req.AddCookie(&http.Cookie{Name: CookieName, Value: token}) },
		"bearer": func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) },
		"query":  func(req *http.Request) { req.URL.RawQuery = "token=" + token },
	}
	for name, apply := range requests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
			apply(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body struct {
				Identity   role.Identity   `json:"identity"`
				Visibility role.Visibility `json:"visibility"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "u1", body.Identity.UserID)
			assert.Equal(t, role.VisibilityFor(role.Host), body.Visibility)
		})
	}
}

func TestMiddlewareRedirectsToRoleSelection(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/auth/select-role?error=session_lost"`)
}

func TestRequireRole(t *testing.T) {
	r, v := newTestRouter(t)

	for _, tc := range []struct {
		role role.Role
		code int
	}{
		{role.Host, http.StatusOK},
		{role.Listener, http.StatusForbidden},
		{role.Guest, http.StatusForbidden},
	} {
		token, err := v.Issue(role.Identity{UserID: "u", Role: tc.role}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/host/ping", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.code, w.Code, tc.role.String())
	}
}

func TestGuestRoute(t *testing.T) {
	r, v := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/guest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	id, err := v.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, role.Guest, id.Role)
	assert.True(t, strings.HasPrefix(id.UserID, "guest_"))
	assert.Contains(t, w.Body.String(), `"show_search":true`)
	assert.Contains(t, w.Body.String(), `"show_queue_clear":false`)
}

func TestSelectRoleRoute(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, SessionLostURL, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"error":"session_lost","roles":["host","listener","guest"]}`, w.Body.String())
}
