package http

import (
	"context"
	"net/http"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/catalog"
	"github.com/blindify/backend/internal/service/spotify"
	"github.com/blindify/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type CatalogService interface {
	Import(ctx context.Context, user *domain.User) (*catalog.ImportResult, error)
	RandomLiked(ctx context.Context, accessToken string) ([]spotify.LikedTrack, error)
	MarkPlayed(ctx context.Context, userID int64, trackIDs []int64) (int64, error)
}

type TrackHandler struct {
	Catalog CatalogService
}

func NewTrackHandler(catalogSvc CatalogService) *TrackHandler {
	return &TrackHandler{Catalog: catalogSvc}
}

// Import pulls the signed-in user's liked tracks into the catalog
func (h *TrackHandler) Import(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	result, err := h.Catalog.Import(c.Request.Context(), user)
	if err != nil {
		respondError(c, "CATALOG", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Liked20 returns a random sample of liked tracks straight from the provider
func (h *TrackHandler) Liked20(c *gin.Context) {
	tracks, err := h.Catalog.RandomLiked(c.Request.Context(), middleware.AccessToken(c))
	if err != nil {
		respondError(c, "CATALOG", err)
		return
	}
	c.JSON(http.StatusOK, tracks)
}

func (h *TrackHandler) MarkPlayed(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req struct {
		TrackIDs []int64 `json:"trackIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updated, err := h.Catalog.MarkPlayed(c.Request.Context(), user.ID, req.TrackIDs)
	if err != nil {
		respondError(c, "CATALOG", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
