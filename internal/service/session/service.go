package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/spotify"
	"github.com/blindify/backend/pkg/auth"
	"golang.org/x/oauth2"
)

const tokenKeyPrefix = "token_user:"
const tokenCacheTTL = 5 * time.Minute

type UserRepository interface {
	UpsertUser(ctx context.Context, spotifyID, username, accessToken, refreshToken string) (*domain.User, error)
	GetUserByAccessToken(ctx context.Context, accessToken string) (*domain.User, error)
	GetUserByRefreshToken(ctx context.Context, refreshToken string) (*domain.User, error)
	UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error
}

type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// ProfileFetcher resolves the provider identity behind an access token
type ProfileFetcher interface {
	GetMe(ctx context.Context, accessToken string) (*spotify.Profile, error)
}

// AuthService is the credential store: it maps provider tokens to users
type AuthService struct {
	repo     UserRepository
	cache    CacheRepository // Optional, can be nil
	oauth    *oauth2.Config
	profiles ProfileFetcher
}

func NewAuthService(repo UserRepository, cache CacheRepository, oauth *oauth2.Config, profiles ProfileFetcher) *AuthService {
	return &AuthService{
		repo:     repo,
		cache:    cache,
		oauth:    oauth,
		profiles: profiles,
	}
}

// LoginURL builds the provider authorize URL carrying a signed state
func (s *AuthService) LoginURL(returnTo string) (string, error) {
	state, err := auth.GenerateStateToken(returnTo)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %v", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// CompleteLogin exchanges the authorization code, fetches the profile and
// upserts the credential row.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*domain.User, *oauth2.Token, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to exchange code: %v", domain.ErrUpstream, err)
	}

	profile, err := s.profiles.GetMe(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.repo.UpsertUser(ctx, profile.ID, profile.Name(), token.AccessToken, token.RefreshToken)
	if err != nil {
		return nil, nil, err
	}
	s.cacheUser(ctx, token.AccessToken, user)

	log.Printf("[OAUTH] User logged in: %s (%s)", user.Username, user.SpotifyID)
	return user, token, nil
}

// Refresh trades a refresh token for a new access token and persists the pair
// when the refresh token belongs to a known user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, domain.ErrUnauthenticated
	}

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := s.oauth.TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to refresh token: %v", domain.ErrUpstream, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	user, err := s.repo.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Printf("[OAUTH] Refreshed a token with no stored owner")
		return token, nil
	}

	if err := s.repo.UpdateTokens(ctx, user.ID, token.AccessToken, token.RefreshToken); err != nil {
		return nil, err
	}
	s.forget(ctx, user.AccessToken)
	user.AccessToken = token.AccessToken
	user.RefreshToken = token.RefreshToken
	s.cacheUser(ctx, token.AccessToken, user)
	return token, nil
}

// Authenticate resolves a bearer token to its user. Unknown tokens yield
// ErrUserNotFound.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.ErrUnauthenticated
	}

	if user := s.cachedUser(ctx, accessToken); user != nil {
		return user, nil
	}

	user, err := s.repo.GetUserByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	s.cacheUser(ctx, accessToken, user)
	return user, nil
}

// Check reports whether the token still works against the provider, which
// catches expired tokens the database cannot know about.
func (s *AuthService) Check(ctx context.Context, accessToken string) (*spotify.Profile, bool) {
	if accessToken == "" {
		return nil, false
	}
	profile, err := s.profiles.GetMe(ctx, accessToken)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthenticated) {
			log.Printf("[OAUTH] Auth check failed: %v", err)
		}
		return nil, false
	}
	return profile, true
}

// Logout drops the cached token mapping. The stored pair is kept so a later
// refresh still works.
func (s *AuthService) Logout(ctx context.Context, accessToken string) {
	s.forget(ctx, accessToken)
}

func (s *AuthService) cachedUser(ctx context.Context, accessToken string) *domain.User {
	if s.cache == nil {
		return nil
	}
	val, err := s.cache.Get(ctx, tokenKeyPrefix+auth.HashToken(accessToken))
	if err != nil || val == "" {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(val), &user); err != nil || user.ID == 0 {
		return nil
	}
	user.AccessToken = accessToken
	return &user
}

func (s *AuthService) cacheUser(ctx context.Context, accessToken string, user *domain.User) {
	if s.cache == nil || accessToken == "" || user == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	key := tokenKeyPrefix + auth.HashToken(accessToken)
	if err := s.cache.Set(ctx, key, data, tokenCacheTTL); err != nil {
		log.Printf("[SESSION] Warning: Failed to cache token owner: %v", err)
	}
}

func (s *AuthService) forget(ctx context.Context, accessToken string) {
	if s.cache == nil || accessToken == "" {
		return
	}
	if err := s.cache.Del(ctx, tokenKeyPrefix+auth.HashToken(accessToken)); err != nil {
		log.Printf("[SESSION] Warning: Failed to drop cached token: %v", err)
	}
}
