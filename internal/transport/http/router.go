package http

import (
	"github.com/blindify/backend/internal/service/ratelimit"
	"github.com/blindify/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts
type Handlers struct {
	OAuth     *OAuthHandler
	Auth      *AuthHandler
	Tracks    *TrackHandler
	Games     *GameHandler
	Rooms     *RoomHandler
	Health    *HealthHandler
	WebSocket gin.HandlerFunc
}

// NewRouter builds the gin engine. limiter may be nil to disable rate limits.
func NewRouter(h Handlers, authenticator middleware.Authenticator, limiter *ratelimit.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware())

	router.GET("/health", h.Health.Health)
	if h.WebSocket != nil {
		router.GET("/ws", h.WebSocket)
	}

	limited := router.Group("/")
	if limiter != nil {
		limited.Use(middleware.RateLimitMiddleware(limiter))
	}

	// OAuth Routes (public)
	authGroup := limited.Group("/auth")
	{
		authGroup.GET("/login", h.OAuth.Login)
		authGroup.GET("/callback", h.OAuth.Callback)
		authGroup.GET("/refresh", h.OAuth.Refresh)
		authGroup.GET("/refresh_token", h.OAuth.Refresh)
		authGroup.POST("/logout", h.OAuth.Logout)
	}

	api := limited.Group("/api")
	requireAuth := middleware.RequireAuth(authenticator)
	optionalAuth := middleware.OptionalAuth(authenticator)

	api.GET("/auth/check", h.Auth.Check)
	api.GET("/tracks/liked20", middleware.RequireToken(), h.Tracks.Liked20)

	// Rooms work for guests too; starting needs a catalog to draw from
	api.POST("/rooms/create", optionalAuth, h.Rooms.Create)
	api.POST("/rooms/join", optionalAuth, h.Rooms.Join)
	api.GET("/rooms/:id", h.Rooms.Get)
	api.POST("/rooms/:id/leave", optionalAuth, h.Rooms.Leave)

	protected := api.Group("/")
	protected.Use(requireAuth)
	{
		protected.GET("/auth/me", h.Auth.Me)
		protected.GET("/user/profile", h.Auth.Profile)
		protected.GET("/user/badges", h.Games.Badges)

		protected.GET("/user/tracks", h.Tracks.Import)
		protected.POST("/user/tracks/played", h.Tracks.MarkPlayed)

		protected.POST("/games/solo/start", h.Games.StartSolo)
		protected.POST("/games/:id/finish", h.Games.Finish)
		protected.GET("/games/history", h.Games.History)
		protected.GET("/stats/detailed", h.Games.Stats)

		protected.POST("/rooms/:id/start", h.Rooms.Start)
	}

	return router
}
