package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/role"
)

const (
	CookieName = "session_token"

	identityKey = "identity"

	SelectRolePath = "/auth/select-role"
	SessionLostURL = SelectRolePath + "?error=session_lost"
)

// Middleware resolves the caller's identity from the session cookie, a bearer
// header or a token query parameter (for websockets). Requests without a
// valid session are sent to role selection.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c)
		id, err := v.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    apperrors.MessageOf(err),
				"redirect": SessionLostURL,
			})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in allowed.
func RequireRole(allowed ...role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		for _, r := range allowed {
			if id.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":         "insufficient role",
			"required_role": allowed,
			"current_role":  id.Role.String(),
		})
	}
}

func IdentityFrom(c *gin.Context) (role.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return role.Identity{}, false
	}
	id, ok := v.(role.Identity)
	return id, ok
}

func tokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}
