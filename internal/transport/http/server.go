package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/studybuddy/studybuddy-server/internal/auth"
	"github.com/studybuddy/studybuddy-server/internal/config"
	"github.com/studybuddy/studybuddy-server/internal/core"
	"github.com/studybuddy/studybuddy-server/internal/service/match"
	"github.com/studybuddy/studybuddy-server/internal/store"
)

// NewServer builds the HTTP server with REST and WebSocket routes.
func NewServer(
	hub *core.Hub,
	st store.Store,
	authService *auth.Service,
	matchService *match.Service,
	cfg config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, st, logger)
	userHandlers := NewUserHandlers(st, logger)
	matchHandlers := NewMatchHandlers(matchService, logger)
	chatHandlers := NewChatHandlers(st, matchService, logger)

	router.GET("/health", healthHandler)

	api := router.Group("/api")
	{
		api.POST("/auth/register", apiHandlers.Register)
		api.POST("/auth/login", apiHandlers.Login)

		authorized := api.Group("")
		authorized.Use(AuthMiddleware(authService, logger))
		{
			authorized.GET("/auth/me", apiHandlers.Me)

			authorized.PUT("/users/profile", userHandlers.UpdateProfile)
			authorized.GET("/users/discover", userHandlers.Discover)
			authorized.GET("/users/recommended", userHandlers.Recommended)

			authorized.POST("/matches/swipe", matchHandlers.Swipe)
			authorized.GET("/matches", matchHandlers.ListMatches)
			authorized.GET("/matches/pending", matchHandlers.ListPending)

			authorized.GET("/chat/:matchID", chatHandlers.History)
		}
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
