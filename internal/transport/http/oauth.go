package http

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blindify/backend/internal/config"
	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/pkg/auth"
	"github.com/blindify/backend/pkg/httputil"
	"github.com/blindify/backend/pkg/useragent"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const defaultReturnPath = "/menu"

type LoginService interface {
	LoginURL(returnTo string) (string, error)
	CompleteLogin(ctx context.Context, code string) (*domain.User, *oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Logout(ctx context.Context, accessToken string)
}

type OAuthHandler struct {
	Auth LoginService
}

func NewOAuthHandler(authSvc LoginService) *OAuthHandler {
	return &OAuthHandler{Auth: authSvc}
}

// safeReturnPath keeps post-login redirects on the frontend
func safeReturnPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return defaultReturnPath
	}
	return p
}

func (h *OAuthHandler) frontendError(c *gin.Context, code string) {
	c.Redirect(http.StatusTemporaryRedirect, config.AppConfig.FrontendURL+"/?error="+url.QueryEscape(code))
}

// Login redirects the user to the provider consent screen
func (h *OAuthHandler) Login(c *gin.Context) {
	authorizeURL, err := h.Auth.LoginURL(safeReturnPath(c.DefaultQuery("return_to", defaultReturnPath)))
	if err != nil {
		log.Printf("[OAUTH] Failed to build authorize URL: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, authorizeURL)
}

// Callback finishes the authorization-code grant and hands the token pair to
// the frontend in the URL fragment.
func (h *OAuthHandler) Callback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		log.Printf("[OAUTH] Provider returned error: %s", providerErr)
		h.frontendError(c, providerErr)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	claims, err := auth.ValidateStateToken(c.Query("state"))
	if err != nil {
		log.Printf("[OAUTH] Invalid state: %v", err)
		h.frontendError(c, "invalid_state")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	user, token, err := h.Auth.CompleteLogin(ctx, code)
	if err != nil {
		log.Printf("[OAUTH] Login failed: %v", err)
		h.frontendError(c, "auth_failed")
		return
	}

	log.Printf("[OAUTH] %s signed in from %s (%s)", user.Username,
		useragent.ExtractDeviceInfo(c.Request), useragent.ExtractIPAddress(c.Request))

	httputil.SetAuthCookie(c.Writer, token.AccessToken)

	fragment := url.Values{}
	fragment.Set("access_token", token.AccessToken)
	fragment.Set("refresh_token", token.RefreshToken)
	if !token.Expiry.IsZero() {
		fragment.Set("expires_in", strconv.Itoa(int(time.Until(token.Expiry).Seconds())))
	}
	c.Redirect(http.StatusTemporaryRedirect,
		config.AppConfig.FrontendURL+safeReturnPath(claims.ReturnTo)+"#"+fragment.Encode())
}

// Refresh trades ?refresh_token= for a new access token
func (h *OAuthHandler) Refresh(c *gin.Context) {
	refreshToken := c.Query("refresh_token")
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing refresh_token"})
		return
	}

	token, err := h.Auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, "OAUTH", err)
		return
	}

	httputil.SetAuthCookie(c.Writer, token.AccessToken)
	resp := gin.H{"access_token": token.AccessToken}
	if !token.Expiry.IsZero() {
		resp["expires_in"] = int(time.Until(token.Expiry).Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OAuthHandler) Logout(c *gin.Context) {
	if token, err := httputil.GetTokenFromRequest(c.Request); err == nil {
		h.Auth.Logout(c.Request.Context(), token)
	}
	httputil.ClearAuthCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
