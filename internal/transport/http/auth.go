package http

import (
	"context"
	"net/http"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/game"
	"github.com/blindify/backend/internal/service/spotify"
	"github.com/blindify/backend/internal/transport/http/middleware"
	"github.com/blindify/backend/pkg/httputil"
	"github.com/gin-gonic/gin"
)

type TokenChecker interface {
	Check(ctx context.Context, accessToken string) (*spotify.Profile, bool)
}

type ProfileService interface {
	Profile(ctx context.Context, user *domain.User) (*game.Profile, error)
}

type AuthHandler struct {
	Checker  TokenChecker
	Profiles ProfileService
}

func NewAuthHandler(checker TokenChecker, profiles ProfileService) *AuthHandler {
	return &AuthHandler{Checker: checker, Profiles: profiles}
}

// Check probes the token against the provider
func (h *AuthHandler) Check(c *gin.Context) {
	token, err := httputil.GetTokenFromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	profile, ok := h.Checker.Check(c.Request.Context(), token)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": profile})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Profile returns the user with stats and badges
func (h *AuthHandler) Profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token"})
		return
	}

	profile, err := h.Profiles.Profile(c.Request.Context(), user)
	if err != nil {
		respondError(c, "AUTH", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
