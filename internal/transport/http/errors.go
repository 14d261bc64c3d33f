package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/blindify/backend/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error onto its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrPlayerNotInRoom),
		errors.Is(err, domain.ErrNoLikedTracks):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrNotRoomHost):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal failures are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, tag string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] %s %s failed: %v", tag, c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	if status == http.StatusBadGateway {
		log.Printf("[%s] Upstream failure on %s: %v", tag, c.FullPath(), err)
		c.JSON(status, gin.H{"error": domain.ErrUpstream.Error()})
		return
	}

	var domainErr domain.Error
	if errors.As(err, &domainErr) {
		c.JSON(status, gin.H{"error": domainErr.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
