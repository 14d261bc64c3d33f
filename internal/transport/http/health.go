package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	DB           Pinger
	RedisEnabled func() bool
}

func NewHealthHandler(db Pinger, redisEnabled func() bool) *HealthHandler {
	return &HealthHandler{DB: db, RedisEnabled: redisEnabled}
}

// Health reports liveness. A failed database ping turns the status to 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "up"
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "down"
		}
	}

	redisStatus := "disabled"
	if h.RedisEnabled != nil && h.RedisEnabled() {
		redisStatus = "up"
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"database": dbStatus,
		"redis":    redisStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
