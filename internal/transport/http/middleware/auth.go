package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/pkg/httputil"
	"github.com/gin-gonic/gin"
)

const (
	userKey  = "user"
	tokenKey = "access_token"
)

// Authenticator resolves a provider access token to its stored user
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// RequireToken only checks a token is present. Used by routes that call the
// provider directly without needing a stored user.
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := httputil.GetTokenFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token"})
			return
		}
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireAuth resolves the bearer token (or session cookie) to a user row
func RequireAuth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := httputil.GetTokenFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token"})
			return
		}

		user, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUserNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			case errors.Is(err, domain.ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token"})
			default:
				log.Printf("[AUTH] Token lookup failed: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
			}
			return
		}

		c.Set(tokenKey, token)
		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when the token resolves and carries on
// anonymously otherwise.
func OptionalAuth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := httputil.GetTokenFromRequest(c.Request)
		if err == nil {
			c.Set(tokenKey, token)
			if user, err := authenticator.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth or OptionalAuth
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// AccessToken returns the raw token of the request, if any
func AccessToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
