package view

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/party-queue-client/internal/auth"
	"github.com/party-queue-client/internal/logger"
)

type Options struct {
	AllowedOrigins []string

	// Auth, when set, serves the role selection routes. Verifier, when set,
	// requires a session token on every /api route.
	Auth     *auth.Handler
	Verifier *auth.Verifier
}

// NewRouter builds the local view server.
func NewRouter(opts Options, h *Handler, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	corsCfg := cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = []string{"http://localhost:5173"}
	}
	router.Use(cors.New(corsCfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": h.hub.Len(),
		})
	})

	if opts.Auth != nil {
		opts.Auth.RegisterRoutes(&router.RouterGroup)
	}

	api := router.Group("/api")
	if opts.Verifier != nil {
		api.Use(auth.Middleware(opts.Verifier))
	}
	h.RegisterRoutes(api)

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("View request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
