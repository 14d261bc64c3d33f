package game

import (
	"context"
	"log"
	"math/rand"
	"sync"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/pkg/uid"
)

const historyLimit = 50

type GameRepository interface {
	CreateGame(ctx context.Context, game *domain.Game) error
	AddGameTrack(ctx context.Context, gameID string, trackID int64, order int) error
	GetGame(ctx context.Context, gameID string) (*domain.Game, error)
	GetGameTracks(ctx context.Context, gameID string) ([]domain.Track, error)
	SaveResult(ctx context.Context, res domain.GameResult) error
	GetUserHistory(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error)
	GetDetailedStats(ctx context.Context, userID int64) (domain.DetailedStats, error)
}

type TrackRepository interface {
	PickSessionTracks(ctx context.Context, userID int64, limit int) ([]domain.Track, error)
	MarkPlayed(ctx context.Context, userID int64, trackIDs []int64) (int64, error)
}

// SessionTrack is one question as the client receives it
type SessionTrack struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	PreviewURL string   `json:"preview_url"`
	AlbumCover string   `json:"album_cover"`
	Options    []string `json:"options"`
}

// Session is a freshly built game ready to be played
type Session struct {
	GameID     string            `json:"game_id"`
	Mode       domain.GameMode   `json:"mode"`
	Difficulty domain.Difficulty `json:"difficulty"`
	TimeLimit  int               `json:"time_limit"`
	Tracks     []SessionTrack    `json:"tracks"`
}

// FinishRequest is the self-reported result of one player
type FinishRequest struct {
	Score           int     `json:"score"`
	CorrectAnswers  int     `json:"correct_answers"`
	TotalQuestions  int     `json:"total_questions"`
	BestStreak      int     `json:"best_streak"`
	DurationSeconds int     `json:"duration_seconds"`
	TrackIDs        []int64 `json:"track_ids"`
}

type Profile struct {
	User   *domain.User         `json:"user"`
	Stats  domain.DetailedStats `json:"stats"`
	Badges []domain.Badge       `json:"badges"`
}

type Service struct {
	games  GameRepository
	tracks TrackRepository

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(games GameRepository, tracks TrackRepository) *Service {
	return &Service{games: games, tracks: tracks}
}

// WithRand pins option shuffling, for tests
func (s *Service) WithRand(rng *rand.Rand) *Service {
	s.rng = rng
	return s
}

// StartSolo builds a solo session for the user
func (s *Service) StartSolo(ctx context.Context, user *domain.User, difficulty string) (*Session, error) {
	d, err := domain.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, user.ID, domain.ModeSolo, d)
}

// StartMultiplayer builds a session from the host's catalog
func (s *Service) StartMultiplayer(ctx context.Context, hostID int64, difficulty string) (*Session, error) {
	d, err := domain.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, hostID, domain.ModeMultiplayer, d)
}

// build persists the game and its ordered tracks. Rows go in one by one, so
// a failure part way leaves a partial game behind.
func (s *Service) build(ctx context.Context, hostID int64, mode domain.GameMode, d domain.Difficulty) (*Session, error) {
	tracks, err := s.tracks.PickSessionTracks(ctx, hostID, domain.SessionTrackCount)
	if err != nil {
		return nil, err
	}

	game := &domain.Game{
		ID:         uid.GenerateGameID(),
		HostID:     hostID,
		Mode:       mode,
		Difficulty: d,
	}
	if err := s.games.CreateGame(ctx, game); err != nil {
		return nil, err
	}

	session := &Session{
		GameID:     game.ID,
		Mode:       mode,
		Difficulty: d,
		TimeLimit:  d.Seconds(),
		Tracks:     make([]SessionTrack, 0, len(tracks)),
	}

	options := s.generateOptions(tracks)
	for i, t := range tracks {
		if err := s.games.AddGameTrack(ctx, game.ID, t.ID, i+1); err != nil {
			return nil, err
		}
		session.Tracks = append(session.Tracks, SessionTrack{
			ID:         t.ID,
			Title:      t.Title,
			Artist:     t.Artist,
			PreviewURL: t.PreviewURL,
			AlbumCover: t.AlbumCover,
			Options:    options[i],
		})
	}

	log.Printf("[GAME] Built %s game %s for user %d: %d tracks, %s", mode, game.ID, hostID, len(tracks), d)
	return session, nil
}

// generateOptions holds rngMu only while drawing, never across inserts.
func (s *Service) generateOptions(tracks []domain.Track) [][]string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	options := make([][]string, len(tracks))
	for i := range tracks {
		options[i] = domain.GenerateOptions(tracks, i, s.rng)
	}
	return options
}

// Finish records a player's result, closes the game and marks the played
// tracks. Missing track ids fall back to the game's own tracks.
func (s *Service) Finish(ctx context.Context, userID int64, gameID string, req FinishRequest) error {
	if !uid.IsGameID(gameID) {
		return domain.ErrGameNotFound
	}
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return domain.ErrGameNotFound
	}

	trackIDs := req.TrackIDs
	if len(trackIDs) == 0 {
		tracks, err := s.games.GetGameTracks(ctx, gameID)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			trackIDs = append(trackIDs, t.ID)
		}
	}
	total := req.TotalQuestions
	if total == 0 {
		total = len(trackIDs)
	}

	result := domain.GameResult{
		GameID:          gameID,
		UserID:          userID,
		Score:           req.Score,
		CorrectAnswers:  req.CorrectAnswers,
		TotalQuestions:  total,
		BestStreak:      req.BestStreak,
		DurationSeconds: req.DurationSeconds,
	}
	if err := s.games.SaveResult(ctx, result); err != nil {
		return err
	}

	marked, err := s.tracks.MarkPlayed(ctx, userID, trackIDs)
	if err != nil {
		return err
	}
	log.Printf("[GAME] User %d finished game %s: score %d/%d, %d tracks marked played", userID, gameID, req.Score, total, marked)
	return nil
}

func (s *Service) History(ctx context.Context, userID int64) ([]domain.HistoryEntry, error) {
	return s.games.GetUserHistory(ctx, userID, historyLimit)
}

func (s *Service) Stats(ctx context.Context, userID int64) (domain.DetailedStats, error) {
	return s.games.GetDetailedStats(ctx, userID)
}

func (s *Service) Badges(ctx context.Context, userID int64) ([]domain.Badge, error) {
	stats, err := s.games.GetDetailedStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.EvaluateBadges(stats), nil
}

func (s *Service) Profile(ctx context.Context, user *domain.User) (*Profile, error) {
	stats, err := s.games.GetDetailedStats(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Stats: stats, Badges: domain.EvaluateBadges(stats)}, nil
}
