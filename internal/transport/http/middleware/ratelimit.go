package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/blindify/backend/internal/service/ratelimit"
	"github.com/blindify/backend/pkg/useragent"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware applies the per-IP window. Past the slow-down threshold
// each request waits a little longer; past the limit it is refused.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := useragent.ExtractIPAddress(c.Request)
		d := limiter.Hit(c.Request.Context(), ip)

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(d.Reset.Round(time.Second).Seconds())))

		if !d.Allowed {
			log.Printf("[RATELIMIT] %s exceeded %d requests per minute", ip, d.Limit)
			c.Header("Retry-After", strconv.Itoa(int(d.Reset.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}

		if d.Delay > 0 {
			timer := time.NewTimer(d.Delay)
			select {
			case <-timer.C:
			case <-c.Request.Context().Done():
				timer.Stop()
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
