package server

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codesync/codesync/internal/config"
)

// ClientTokenMiddleware gives every browser-like client a stable token
// cookie; the ws controller uses it as the connection's session id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, store *Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CodeSyncSessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	api := &API{Store: store}
	r.POST("/users/validate", api.handleValidate)
	r.POST("/login", api.handleLogin)
	r.POST("/register", api.handleRegister)

	wsCtl := &WSController{
		Registry:  NewRegistry(),
		ReadLimit: cfg.ReadLimit,
	}
	r.GET("/ws", func(c *gin.Context) {
		wsCtl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "server").Msg("router setup")
	return r
}
