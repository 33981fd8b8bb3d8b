package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/internal/role"
)

type Handler struct {
	verifier *Verifier
	log      logger.Logger
	ttl      time.Duration
	secure   bool
}

func NewHandler(verifier *Verifier, log logger.Logger, ttl time.Duration, secure bool) *Handler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Handler{verifier: verifier, log: log, ttl: ttl, secure: secure}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		// Public routes
		auth.POST("/guest", h.guest)
		auth.GET("/select-role", h.selectRole)

		// Protected routes
		protected := auth.Group("", Middleware(h.verifier))
		protected.GET("/session", h.session)
	}
}

func (h *Handler) session(c *gin.Context) {
	id, _ := IdentityFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"identity":   id,
		"visibility": role.VisibilityFor(id.Role),
	})
}

// guest applies the continue-as-guest transition locally and hands out a
// session cookie for it.
func (h *Handler) guest(c *gin.Context) {
	id := role.ContinueAsGuest()
	token, err := h.verifier.Issue(id, h.ttl)
	if err != nil {
		h.log.Error("Failed to issue guest token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})

	h.log.Info("Guest joined", "user_id", id.UserID)
	c.JSON(http.StatusOK, gin.H{
		"identity":   id,
		"token":      token,
		"visibility": role.VisibilityFor(id.Role),
	})
}

func (h *Handler) selectRole(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"error": c.Query("error"),
		"roles": []role.Role{role.Host, role.Listener, role.Guest},
	})
}
