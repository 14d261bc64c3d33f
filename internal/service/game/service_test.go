package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/pkg/uid"
)

type fakeGameRepo struct {
	games   map[string]*domain.Game
	tracks  map[string][]domain.GameTrack
	results []domain.GameResult
	stats   domain.DetailedStats
	catalog map[int64]domain.Track
}

func newFakeGameRepo(catalog []domain.Track) *fakeGameRepo {
	r := &fakeGameRepo{
		games:   make(map[string]*domain.Game),
		tracks:  make(map[string][]domain.GameTrack),
		catalog: make(map[int64]domain.Track),
	}
	for _, t := range catalog {
		r.catalog[t.ID] = t
	}
	return r
}

func (r *fakeGameRepo) CreateGame(ctx context.Context, g *domain.Game) error {
	g.CreatedAt = time.Now()
	c := *g
	r.games[g.ID] = &c
	return nil
}

func (r *fakeGameRepo) AddGameTrack(ctx context.Context, gameID string, trackID int64, order int) error {
	r.tracks[gameID] = append(r.tracks[gameID], domain.GameTrack{GameID: gameID, TrackID: trackID, Order: order})
	return nil
}

func (r *fakeGameRepo) GetGame(ctx context.Context, gameID string) (*domain.Game, error) {
	return r.games[gameID], nil
}

func (r *fakeGameRepo) GetGameTracks(ctx context.Context, gameID string) ([]domain.Track, error) {
	out := make([]domain.Track, 0)
	for _, gt := range r.tracks[gameID] {
		out = append(out, r.catalog[gt.TrackID])
	}
	return out, nil
}

func (r *fakeGameRepo) SaveResult(ctx context.Context, res domain.GameResult) error {
	r.results = append(r.results, res)
	return nil
}

func (r *fakeGameRepo) GetUserHistory(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error) {
	return nil, nil
}

func (r *fakeGameRepo) GetDetailedStats(ctx context.Context, userID int64) (domain.DetailedStats, error) {
	return r.stats, nil
}

type fakeTrackRepo struct {
	tracks []domain.Track
	marked []int64
}

func (r *fakeTrackRepo) PickSessionTracks(ctx context.Context, userID int64, limit int) ([]domain.Track, error) {
	out := make([]domain.Track, 0, limit)
	for _, t := range r.tracks {
		if t.HasPreview() && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTrackRepo) MarkPlayed(ctx context.Context, userID int64, ids []int64) (int64, error) {
	r.marked = append(r.marked, ids...)
	return int64(len(ids)), nil
}

func catalogTracks(n int) []domain.Track {
	out := make([]domain.Track, n)
	for i := range out {
		out[i] = domain.Track{
			ID:         int64(i + 1),
			Title:      fmt.Sprintf("Song %d", i+1),
			Artist:     "Band",
			PreviewURL: fmt.Sprintf("https://p.scdn.co/%d", i+1),
			UserID:     1,
		}
	}
	return out
}

func newTestService(catalog []domain.Track) (*Service, *fakeGameRepo, *fakeTrackRepo) {
	games := newFakeGameRepo(catalog)
	tracks := &fakeTrackRepo{tracks: catalog}
	return NewService(games, tracks).WithRand(rand.New(rand.NewSource(42))), games, tracks
}

func TestStartSolo(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: 1}

	t.Run("hard with a full catalog", func(t *testing.T) {
		svc, games, _ := newTestService(catalogTracks(12))
		session, err := svc.StartSolo(ctx, user, "hard")
		if err != nil {
			t.Fatalf("StartSolo failed: %v", err)
		}
		if !uid.IsGameID(session.GameID) {
			t.Errorf("game id %q is not a UUID", session.GameID)
		}
		if session.TimeLimit != 5 {
			t.Errorf("TimeLimit = %d, want 5", session.TimeLimit)
		}
		if len(session.Tracks) != domain.SessionTrackCount {
			t.Fatalf("got %d tracks, want %d", len(session.Tracks), domain.SessionTrackCount)
		}
		for i, gt := range games.tracks[session.GameID] {
			if gt.Order != i+1 {
				t.Errorf("track %d stored with order %d", i, gt.Order)
			}
			if gt.TrackID != session.Tracks[i].ID {
				t.Errorf("order %d holds track %d, response has %d", gt.Order, gt.TrackID, session.Tracks[i].ID)
			}
		}
		for _, st := range session.Tracks {
			if len(st.Options) != domain.OptionCount {
				t.Errorf("track %d has %d options", st.ID, len(st.Options))
			}
			hits := 0
			for _, o := range st.Options {
				if o == st.Title {
					hits++
				}
			}
			if hits != 1 {
				t.Errorf("track %d: correct title appears %d times", st.ID, hits)
			}
		}
		if games.games[session.GameID].Mode != domain.ModeSolo {
			t.Errorf("mode = %s, want solo", games.games[session.GameID].Mode)
		}
	})

	t.Run("empty difficulty defaults to normal", func(t *testing.T) {
		svc, _, _ := newTestService(catalogTracks(4))
		session, err := svc.StartSolo(ctx, user, "")
		if err != nil {
			t.Fatalf("StartSolo failed: %v", err)
		}
		if session.Difficulty != domain.DifficultyNormal || session.TimeLimit != 10 {
			t.Errorf("got %s/%d, want normal/10", session.Difficulty, session.TimeLimit)
		}
	})

	t.Run("invalid difficulty", func(t *testing.T) {
		svc, _, _ := newTestService(catalogTracks(4))
		if _, err := svc.StartSolo(ctx, user, "extreme"); !errors.Is(err, domain.ErrInvalidDifficulty) {
			t.Errorf("err = %v, want ErrInvalidDifficulty", err)
		}
	})

	t.Run("no eligible tracks still yields a game", func(t *testing.T) {
		svc, games, _ := newTestService(nil)
		session, err := svc.StartSolo(ctx, user, "easy")
		if err != nil {
			t.Fatalf("StartSolo failed: %v", err)
		}
		if session.GameID == "" || len(session.Tracks) != 0 {
			t.Errorf("want a game id and no tracks, got %q and %d", session.GameID, len(session.Tracks))
		}
		if _, ok := games.games[session.GameID]; !ok {
			t.Error("game row was not created")
		}
	})
}

func TestPlayedSessionScores(t *testing.T) {
	ctx := context.Background()
	svc, games, tracks := newTestService(catalogTracks(10))

	session, err := svc.StartSolo(ctx, &domain.User{ID: 1}, "hard")
	if err != nil {
		t.Fatalf("StartSolo failed: %v", err)
	}

	played := make([]domain.Track, len(session.Tracks))
	for i, st := range session.Tracks {
		played[i] = domain.Track{ID: st.ID, Title: st.Title, PreviewURL: st.PreviewURL}
	}

	quiz := domain.NewQuiz(rand.New(rand.NewSource(1)))
	if err := quiz.ChooseDifficulty(session.Difficulty); err != nil {
		t.Fatalf("ChooseDifficulty failed: %v", err)
	}
	quiz.Load(played)

	var ids []int64
	for i := 0; i < len(played); i++ {
		current, _ := quiz.Current()
		answer := current.Title
		if i >= 7 {
			answer = "wrong"
		}
		if _, err := quiz.Select(answer); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if ids, err = quiz.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if quiz.State() != domain.StateGameOver {
		t.Fatalf("state = %s, want game over", quiz.State())
	}

	res := quiz.Result()
	err = svc.Finish(ctx, 1, session.GameID, FinishRequest{
		Score:          res.Score,
		CorrectAnswers: res.CorrectAnswers,
		TotalQuestions: res.TotalQuestions,
		BestStreak:     res.BestStreak,
		TrackIDs:       ids,
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	saved := games.results[0]
	if saved.Score != 7 || saved.TotalQuestions != 10 || saved.BestStreak != 7 {
		t.Errorf("unexpected saved result %+v", saved)
	}
	if len(tracks.marked) != 10 {
		t.Errorf("marked %d tracks, want 10", len(tracks.marked))
	}
}

func TestFinish(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown game", func(t *testing.T) {
		svc, _, _ := newTestService(catalogTracks(4))
		if err := svc.Finish(ctx, 1, uid.GenerateGameID(), FinishRequest{}); !errors.Is(err, domain.ErrGameNotFound) {
			t.Errorf("err = %v, want ErrGameNotFound", err)
		}
		if err := svc.Finish(ctx, 1, "not-a-uuid", FinishRequest{}); !errors.Is(err, domain.ErrGameNotFound) {
			t.Errorf("err = %v, want ErrGameNotFound", err)
		}
	})

	t.Run("track ids fall back to the game", func(t *testing.T) {
		svc, games, tracks := newTestService(catalogTracks(4))
		session, err := svc.StartSolo(ctx, &domain.User{ID: 1}, "normal")
		if err != nil {
			t.Fatalf("StartSolo failed: %v", err)
		}
		if err := svc.Finish(ctx, 1, session.GameID, FinishRequest{Score: 2, CorrectAnswers: 2}); err != nil {
			t.Fatalf("Finish failed: %v", err)
		}
		if len(tracks.marked) != 4 {
			t.Errorf("marked %d tracks, want 4", len(tracks.marked))
		}
		if games.results[0].TotalQuestions != 4 {
			t.Errorf("TotalQuestions = %d, want 4", games.results[0].TotalQuestions)
		}
	})
}

func TestBadges(t *testing.T) {
	svc, games, _ := newTestService(nil)
	games.stats = domain.DetailedStats{TotalGames: 12, BestStreak: 6}

	badges, err := svc.Badges(context.Background(), 1)
	if err != nil {
		t.Fatalf("Badges failed: %v", err)
	}
	unlocked := map[string]bool{}
	for _, b := range badges {
		unlocked[b.ID] = b.Unlocked
	}
	for _, id := range []string{"first_win", "ten_games", "streak_five"} {
		if !unlocked[id] {
			t.Errorf("badge %s should be unlocked", id)
		}
	}
	if unlocked["fifty_games"] {
		t.Error("fifty_games should stay locked")
	}
}

// gatedGameRepo parks every build on its first track insert until released.
type gatedGameRepo struct {
	*fakeGameRepo
	mu      sync.Mutex
	entered chan string
	release chan struct{}
}

func (r *gatedGameRepo) CreateGame(ctx context.Context, g *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fakeGameRepo.CreateGame(ctx, g)
}

func (r *gatedGameRepo) AddGameTrack(ctx context.Context, gameID string, trackID int64, order int) error {
	if order == 1 {
		r.entered <- gameID
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fakeGameRepo.AddGameTrack(ctx, gameID, trackID, order)
}

func TestConcurrentBuildsInsertInParallel(t *testing.T) {
	catalog := catalogTracks(10)
	games := &gatedGameRepo{
		fakeGameRepo: newFakeGameRepo(catalog),
		entered:      make(chan string, 2),
		release:      make(chan struct{}),
	}
	svc := NewService(games, &fakeTrackRepo{tracks: catalog}).WithRand(rand.New(rand.NewSource(3)))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.StartSolo(context.Background(), &domain.User{ID: 1}, "normal")
			errs <- err
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-games.entered:
		case <-time.After(2 * time.Second):
			close(games.release)
			t.Fatalf("only %d of 2 builds reached the track inserts; builds are serialised", i)
		}
	}
	close(games.release)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("StartSolo failed: %v", err)
		}
	}
	if len(games.tracks) != 2 {
		t.Errorf("games with tracks = %d, want 2", len(games.tracks))
	}
	for id, rows := range games.tracks {
		if len(rows) != 10 {
			t.Errorf("game %s has %d tracks, want 10", id, len(rows))
		}
	}
}
