// Package http wires the REST surface, the session boundary, and the
// WebSocket entry point.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/adapters/ws"
	"github.com/bokoth/chatrelay/internal/app"
	"github.com/bokoth/chatrelay/internal/config"
	"github.com/bokoth/chatrelay/internal/domain"
	"github.com/bokoth/chatrelay/internal/store"
)

const (
	sessionUserKey = "user_id"
	sessionNameKey = "username"
)

// IdentityMiddleware copies the session-bound identity into the gin
// context. The session is written only by the auth boundary; handlers
// downstream treat the identity as already authenticated.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		if uid, ok := s.Get(sessionUserKey).(string); ok {
			c.Set("user_id", uid)
		}
		if name, ok := s.Get(sessionNameKey).(string); ok {
			c.Set("username", name)
		}
		c.Next()
	}
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_id") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay, directory store.UserDirectory) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ChatSessions", sessionStore))
	r.Use(IdentityMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := ws.NewController(relay, cfg)

	api := r.Group("/api")

	// The account system is not part of this service; this endpoint is
	// where it hands us an authenticated identity for the session.
	api.POST("/session", func(c *gin.Context) {
		var req struct {
			UserID   string `json:"user_id" binding:"required"`
			Username string `json:"username" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing user_id or username"})
			return
		}
		if err := directory.Upsert(c.Request.Context(), domain.UserID(req.UserID), req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s := sessions.Default(c)
		s.Set(sessionUserKey, req.UserID)
		s.Set(sessionNameKey, req.Username)
		if err := s.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": req.UserID, "username": req.Username})
	})

	api.DELETE("/session", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Clear()
		if err := s.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.GET("/users/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"online": relay.Registry.OnlineSet()})
	})

	api.POST("/upload", AuthRequired(), uploadHandler(cfg.UploadDir))

	api.GET("/ws/chat", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("user", c.GetString("user_id")).Msg("ws chat endpoint hit")
		ctl.HandleChat(ctx, c)
	})

	return r
}
