package config

import (
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
)

const defaultSpotifyAPIURL = "https://api.spotify.com/v1"

// SpotifyScopes are requested on every login. user-library-read is the one
// the catalog import depends on.
var SpotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-read",
	"user-top-read",
}

type OAuthConfig struct {
	SpotifyLoginConfig *oauth2.Config
	// APIURL is the provider Web API base, overridable for tests and proxies
	APIURL string
}

func LoadOAuthConfig() *OAuthConfig {
	return &OAuthConfig{
		SpotifyLoginConfig: &oauth2.Config{
			ClientID:     GetEnv("SPOTIFY_CLIENT_ID", ""),
			ClientSecret: GetEnv("SPOTIFY_CLIENT_SECRET", ""),
			RedirectURL:  GetEnv("SPOTIFY_REDIRECT_URI", ""),
			Scopes:       SpotifyScopes,
			Endpoint:     spotify.Endpoint,
		},
		APIURL: strings.TrimRight(GetEnv("SPOTIFY_API_URL", defaultSpotifyAPIURL), "/"),
	}
}
