package httputil

import (
	"errors"
	"net/http"
	"strings"

	"github.com/blindify/backend/internal/config"
)

const AuthCookieName = "blindify_session"

const sessionMaxAge = 24 * 60 * 60

// SetAuthCookie stores the provider access token for browsers that cannot
// attach an Authorization header (websocket upgrades, image fetches).
func SetAuthCookie(w http.ResponseWriter, token string) {
	isProduction := config.AppConfig != nil && config.AppConfig.IsProduction()

	cookie := &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}

	// Cross-site frontend needs SameSite=None, which requires Secure
	if isProduction {
		cookie.SameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, cookie)
}

func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// GetBearerToken extracts the token from an "Authorization: Bearer" header
func GetBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("authorization header missing")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errors.New("authorization header is not a bearer token")
	}
	return strings.TrimSpace(token), nil
}

// GetTokenFromRequest prefers the Authorization header and falls back to the
// session cookie.
func GetTokenFromRequest(r *http.Request) (string, error) {
	if token, err := GetBearerToken(r); err == nil {
		return token, nil
	}

	cookie, err := r.Cookie(AuthCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", errors.New("no auth token found in header or cookie")
}
