package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/blindify/backend/internal/config"
	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/service/catalog"
	"github.com/blindify/backend/internal/service/game"
	"github.com/blindify/backend/internal/service/room"
	"github.com/blindify/backend/internal/service/spotify"
	"github.com/blindify/backend/pkg/auth"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

var alice = &domain.User{ID: 1, SpotifyID: "sp-1", Username: "alice", AccessToken: "good"}

type fakeAuth struct {
	loggedOut []string
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == alice.AccessToken {
		return alice, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeAuth) LoginURL(returnTo string) (string, error) {
	state, err := auth.GenerateStateToken(returnTo)
	if err != nil {
		return "", err
	}
	return "https://accounts.spotify.com/authorize?state=" + state, nil
}

func (f *fakeAuth) CompleteLogin(ctx context.Context, code string) (*domain.User, *oauth2.Token, error) {
	if code != "good-code" {
		return nil, nil, domain.ErrUpstream
	}
	return alice, &oauth2.Token{AccessToken: "good", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken != "refresh" {
		return nil, fmt.Errorf("%w: invalid_grant", domain.ErrUpstream)
	}
	return &oauth2.Token{AccessToken: "fresh"}, nil
}

func (f *fakeAuth) Logout(ctx context.Context, token string) {
	f.loggedOut = append(f.loggedOut, token)
}

func (f *fakeAuth) Check(ctx context.Context, token string) (*spotify.Profile, bool) {
	if token != "good" {
		return nil, false
	}
	return &spotify.Profile{ID: "sp-1", DisplayName: "alice"}, true
}

type fakeGames struct {
	finished []game.FinishRequest
}

func (f *fakeGames) StartSolo(ctx context.Context, user *domain.User, difficulty string) (*game.Session, error) {
	d, err := domain.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	return &game.Session{GameID: "g-1", Mode: domain.ModeSolo, Difficulty: d, TimeLimit: d.Seconds(), Tracks: []game.SessionTrack{}}, nil
}

func (f *fakeGames) StartMultiplayer(ctx context.Context, hostID int64, difficulty string) (*game.Session, error) {
	return &game.Session{GameID: "g-2", Mode: domain.ModeMultiplayer, Difficulty: domain.DifficultyNormal, TimeLimit: 10}, nil
}

func (f *fakeGames) Finish(ctx context.Context, userID int64, gameID string, req game.FinishRequest) error {
	if gameID != "g-1" {
		return domain.ErrGameNotFound
	}
	f.finished = append(f.finished, req)
	return nil
}

func (f *fakeGames) History(ctx context.Context, userID int64) ([]domain.HistoryEntry, error) {
	return []domain.HistoryEntry{}, nil
}

func (f *fakeGames) Stats(ctx context.Context, userID int64) (domain.DetailedStats, error) {
	return domain.DetailedStats{TotalGames: 3}, nil
}

func (f *fakeGames) Badges(ctx context.Context, userID int64) ([]domain.Badge, error) {
	return domain.EvaluateBadges(domain.DetailedStats{TotalGames: 1}), nil
}

func (f *fakeGames) Profile(ctx context.Context, user *domain.User) (*game.Profile, error) {
	return &game.Profile{User: user}, nil
}

type fakeCatalog struct {
	liked []spotify.LikedTrack
}

func (f *fakeCatalog) Import(ctx context.Context, user *domain.User) (*catalog.ImportResult, error) {
	return &catalog.ImportResult{Fetched: 2, Imported: 2}, nil
}

func (f *fakeCatalog) RandomLiked(ctx context.Context, token string) ([]spotify.LikedTrack, error) {
	if len(f.liked) == 0 {
		return nil, domain.ErrNoLikedTracks
	}
	return f.liked, nil
}

func (f *fakeCatalog) MarkPlayed(ctx context.Context, userID int64, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) PingContext(ctx context.Context) error { return p(ctx) }

type testEnv struct {
	router  *gin.Engine
	auth    *fakeAuth
	games   *fakeGames
	catalog *fakeCatalog
	rooms   *room.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{
		FrontendURL:    "http://localhost:3000",
		AllowedOrigins: []string{"http://localhost:3000"},
		SessionSecret:  "test-secret",
	}

	env := &testEnv{auth: &fakeAuth{}, games: &fakeGames{}, catalog: &fakeCatalog{}}
	env.rooms = room.NewRegistry(nil, env.games)
	env.router = NewRouter(Handlers{
		OAuth:  NewOAuthHandler(env.auth),
		Auth:   NewAuthHandler(env.auth, env.games),
		Tracks: NewTrackHandler(env.catalog),
		Games:  NewGameHandler(env.games),
		Rooms:  NewRoomHandler(env.rooms),
		Health: NewHealthHandler(pingFunc(func(context.Context) error { return nil }), func() bool { return false }),
	}, env.auth, nil)
	return env
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

func TestStartSoloEndpoint(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		token  string
		body   interface{}
		status int
		errMsg string
	}{
		{"missing token", "", map[string]string{"difficulty": "hard"}, http.StatusUnauthorized, "No token"},
		{"unknown user", "stranger", map[string]string{"difficulty": "hard"}, http.StatusNotFound, "User not found"},
		{"invalid difficulty", "good", map[string]string{"difficulty": "extreme"}, http.StatusBadRequest, "invalid difficulty"},
		{"hard", "good", map[string]string{"difficulty": "hard"}, http.StatusOK, ""},
		{"empty body", "good", nil, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/games/solo/start", tt.token, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.errMsg != "" {
				var resp map[string]string
				decode(t, w, &resp)
				if resp["error"] != tt.errMsg {
					t.Errorf("error = %q, want %q", resp["error"], tt.errMsg)
				}
			}
		})
	}

	w := env.do(http.MethodPost, "/api/games/solo/start", "good", map[string]string{"difficulty": "hard"})
	var session map[string]interface{}
	decode(t, w, &session)
	if session["game_id"] != "g-1" || session["time_limit"] != float64(5) {
		t.Errorf("unexpected session %v", session)
	}
}

func TestFinishEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/games/g-1/finish", "good", game.FinishRequest{Score: 7, CorrectAnswers: 7, TotalQuestions: 10})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(env.games.finished) != 1 || env.games.finished[0].Score != 7 {
		t.Errorf("finish not recorded: %+v", env.games.finished)
	}

	if w := env.do(http.MethodPost, "/api/games/other/finish", "good", game.FinishRequest{}); w.Code != http.StatusNotFound {
		t.Errorf("unknown game status = %d, want 404", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/games/g-1/finish", "good", game.FinishRequest{CorrectAnswers: 5, TotalQuestions: 3}); w.Code != http.StatusBadRequest {
		t.Errorf("impossible result status = %d, want 400", w.Code)
	}
}

func TestRoomEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/rooms/create", "", map[string]interface{}{"name": "Quiz night"})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"players":[]`) {
		t.Errorf("new room should list no players, got %s", w.Body.String())
	}
	var createResp struct {
		Code string      `json:"code"`
		Room domain.Room `json:"room"`
	}
	decode(t, w, &createResp)
	created := createResp.Room
	if createResp.Code == "" || createResp.Code != created.ID {
		t.Fatalf("create code = %q, room id = %q", createResp.Code, created.ID)
	}

	for i := 0; i < domain.MaxRoomPlayers; i++ {
		w := env.do(http.MethodPost, "/api/rooms/join", "", map[string]string{"code": created.ID, "username": fmt.Sprintf("p%d", i)})
		if w.Code != http.StatusOK {
			t.Fatalf("join %d status = %d", i, w.Code)
		}
		var joinResp struct {
			Room *domain.Room `json:"room"`
		}
		decode(t, w, &joinResp)
		if joinResp.Room == nil || len(joinResp.Room.Players) != i+1 {
			t.Fatalf("join %d response = %s", i, w.Body.String())
		}
	}

	w = env.do(http.MethodPost, "/api/rooms/join", "", map[string]string{"code": created.ID, "username": "late"})
	if w.Code != http.StatusForbidden {
		t.Errorf("9th join status = %d, want 403", w.Code)
	}

	w = env.do(http.MethodPost, "/api/rooms/join", "", map[string]string{"code": "ZZZZZZ", "username": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want 404", w.Code)
	}

	w = env.do(http.MethodGet, "/api/rooms/"+created.ID, "", nil)
	var got domain.Room
	decode(t, w, &got)
	if len(got.Players) != domain.MaxRoomPlayers {
		t.Errorf("players = %d, want %d", len(got.Players), domain.MaxRoomPlayers)
	}

	w = env.do(http.MethodPost, "/api/rooms/"+created.ID+"/leave", "", map[string]string{"username": "p0"})
	if w.Code != http.StatusOK {
		t.Errorf("leave status = %d", w.Code)
	}

	if w := env.do(http.MethodPost, "/api/rooms/"+created.ID+"/start", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous start status = %d, want 401", w.Code)
	}
	w = env.do(http.MethodPost, "/api/rooms/"+created.ID+"/start", "good", map[string]string{"difficulty": "normal"})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var started struct {
		Room domain.Room  `json:"room"`
		Game game.Session `json:"game"`
	}
	decode(t, w, &started)
	if started.Room.Status != domain.RoomPlaying || started.Game.GameID != "g-2" {
		t.Errorf("unexpected start response %+v", started)
	}
}

func TestJoinUsesSignedInName(t *testing.T) {
	env := newTestEnv(t)
	created := env.rooms.Create(room.CreateRequest{})

	w := env.do(http.MethodPost, "/api/rooms/join", "good", map[string]string{"code": created.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Room domain.Room `json:"room"`
	}
	decode(t, w, &resp)
	joined := resp.Room
	if len(joined.Players) != 1 || joined.Players[0] != "alice" {
		t.Errorf("players = %v, want [alice]", joined.Players)
	}

	w = env.do(http.MethodPost, "/api/rooms/join", "", map[string]string{"code": created.ID})
	if w.Code != http.StatusBadRequest {
		t.Errorf("nameless guest status = %d, want 400", w.Code)
	}
}

func TestLiked20Endpoint(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/tracks/liked20", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/tracks/liked20", "any", nil); w.Code != http.StatusNotFound {
		t.Errorf("empty library status = %d, want 404", w.Code)
	}

	env.catalog.liked = []spotify.LikedTrack{{ID: "t1", Name: "Song"}}
	w := env.do(http.MethodGet, "/api/tracks/liked20", "any", nil)
	var tracks []spotify.LikedTrack
	decode(t, w, &tracks)
	if len(tracks) != 1 || tracks[0].Name != "Song" {
		t.Errorf("unexpected tracks %v", tracks)
	}
}

func TestOAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	t.Run("login redirects with a signed state", func(t *testing.T) {
		w := env.do(http.MethodGet, "/auth/login", "", nil)
		if w.Code != http.StatusTemporaryRedirect {
			t.Fatalf("status = %d", w.Code)
		}
		loc, _ := url.Parse(w.Header().Get("Location"))
		if _, err := auth.ValidateStateToken(loc.Query().Get("state")); err != nil {
			t.Errorf("state does not validate: %v", err)
		}
	})

	t.Run("callback hands tokens to the frontend", func(t *testing.T) {
		state, _ := auth.GenerateStateToken("/menu")
		w := env.do(http.MethodGet, "/auth/callback?code=good-code&state="+url.QueryEscape(state), "", nil)
		if w.Code != http.StatusTemporaryRedirect {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		loc, _ := url.Parse(w.Header().Get("Location"))
		if loc.Path != "/menu" {
			t.Errorf("redirected to %s, want /menu", loc.Path)
		}
		fragment, _ := url.ParseQuery(loc.Fragment)
		if fragment.Get("access_token") != "good" || fragment.Get("refresh_token") != "refresh" {
			t.Errorf("fragment = %q", loc.Fragment)
		}
		if !strings.Contains(w.Header().Get("Set-Cookie"), "blindify_session=good") {
			t.Errorf("session cookie missing: %q", w.Header().Get("Set-Cookie"))
		}
	})

	t.Run("callback rejects a forged state", func(t *testing.T) {
		w := env.do(http.MethodGet, "/auth/callback?code=good-code&state=forged", "", nil)
		if !strings.Contains(w.Header().Get("Location"), "error=invalid_state") {
			t.Errorf("Location = %q", w.Header().Get("Location"))
		}
	})

	t.Run("callback without code", func(t *testing.T) {
		if w := env.do(http.MethodGet, "/auth/callback", "", nil); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("refresh", func(t *testing.T) {
		if w := env.do(http.MethodGet, "/auth/refresh", "", nil); w.Code != http.StatusBadRequest {
			t.Errorf("missing token status = %d, want 400", w.Code)
		}
		if w := env.do(http.MethodGet, "/auth/refresh?refresh_token=bad", "", nil); w.Code != http.StatusBadGateway {
			t.Errorf("rejected token status = %d, want 502", w.Code)
		}
		w := env.do(http.MethodGet, "/auth/refresh?refresh_token=refresh", "", nil)
		var resp map[string]interface{}
		decode(t, w, &resp)
		if resp["access_token"] != "fresh" {
			t.Errorf("unexpected refresh response %v", resp)
		}
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		w := env.do(http.MethodPost, "/auth/logout", "good", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if len(env.auth.loggedOut) != 1 || env.auth.loggedOut[0] != "good" {
			t.Errorf("logged out tokens = %v", env.auth.loggedOut)
		}
		if !strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") {
			t.Errorf("cookie not cleared: %q", w.Header().Get("Set-Cookie"))
		}
	})
}

func TestAuthCheck(t *testing.T) {
	env := newTestEnv(t)

	var resp map[string]interface{}
	decode(t, env.do(http.MethodGet, "/api/auth/check", "", nil), &resp)
	if resp["authenticated"] != false {
		t.Errorf("anonymous check = %v", resp)
	}

	resp = nil
	decode(t, env.do(http.MethodGet, "/api/auth/check", "good", nil), &resp)
	if resp["authenticated"] != true || resp["user"] == nil {
		t.Errorf("valid check = %v", resp)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}

	env.router = NewRouter(Handlers{
		OAuth:  NewOAuthHandler(env.auth),
		Auth:   NewAuthHandler(env.auth, env.games),
		Tracks: NewTrackHandler(env.catalog),
		Games:  NewGameHandler(env.games),
		Rooms:  NewRoomHandler(env.rooms),
		Health: NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("down") }), nil),
	}, env.auth, nil)
	if w := env.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status with a dead database = %d, want 503", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrRoomNotFound, http.StatusNotFound},
		{domain.ErrRoomFull, http.StatusForbidden},
		{domain.ErrInvalidDifficulty, http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", domain.ErrUpstream), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestSignedInReads(t *testing.T) {
	env := newTestEnv(t)

	protected := []string{"/api/auth/me", "/api/user/profile", "/api/games/history", "/api/stats/detailed", "/api/user/badges", "/api/user/tracks"}
	for _, path := range protected {
		t.Run(path, func(t *testing.T) {
			if w := env.do(http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
				t.Errorf("no token: status %d, want 401", w.Code)
			}
			if w := env.do(http.MethodGet, path, "stranger", nil); w.Code != http.StatusNotFound {
				t.Errorf("unknown token: status %d, want 404", w.Code)
			}
			if w := env.do(http.MethodGet, path, "good", nil); w.Code != http.StatusOK {
				t.Errorf("status %d: %s", w.Code, w.Body.String())
			}
		})
	}

	var me domain.User
	decode(t, env.do(http.MethodGet, "/api/auth/me", "good", nil), &me)
	if me.Username != "alice" {
		t.Errorf("me = %+v", me)
	}
	if strings.Contains(env.do(http.MethodGet, "/api/auth/me", "good", nil).Body.String(), "access_token") {
		t.Error("tokens must not be serialised")
	}

	var stats domain.DetailedStats
	decode(t, env.do(http.MethodGet, "/api/stats/detailed", "good", nil), &stats)
	if stats.TotalGames != 3 {
		t.Errorf("totalGames = %d, want 3", stats.TotalGames)
	}

	var badges []domain.Badge
	decode(t, env.do(http.MethodGet, "/api/user/badges", "good", nil), &badges)
	if len(badges) != len(domain.BadgeCatalog) {
		t.Errorf("got %d badges, want %d", len(badges), len(domain.BadgeCatalog))
	}

	var profile struct {
		User *domain.User `json:"user"`
	}
	decode(t, env.do(http.MethodGet, "/api/user/profile", "good", nil), &profile)
	if profile.User == nil || profile.User.ID != alice.ID {
		t.Errorf("profile user = %+v", profile.User)
	}
}

func TestMarkPlayedEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/user/tracks/played", "good", map[string][]int64{"trackIds": {4, 5, 6}})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Updated int64 `json:"updated"`
	}
	decode(t, w, &resp)
	if resp.Updated != 3 {
		t.Errorf("updated = %d, want 3", resp.Updated)
	}

	if w := env.do(http.MethodPost, "/api/user/tracks/played", "good", "not an object"); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: status %d, want 400", w.Code)
	}
}
