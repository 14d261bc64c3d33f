package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blindify/backend/internal/domain"
	"github.com/lib/pq"
)

type GameRepo struct {
	DB *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{DB: db}
}

func (r *GameRepo) CreateGame(ctx context.Context, game *domain.Game) error {
	query := `
	INSERT INTO games (id, host_id, mode, difficulty)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at;
	`
	err := r.DB.QueryRowContext(ctx, query, game.ID, game.HostID, game.Mode, game.Difficulty).Scan(&game.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %v", err)
	}
	return nil
}

// AddGameTrack inserts one ordered entry. Callers insert row by row, so a
// failure part way leaves a partially built game behind.
func (r *GameRepo) AddGameTrack(ctx context.Context, gameID string, trackID int64, order int) error {
	query := `INSERT INTO game_tracks (game_id, track_id, "order") VALUES ($1, $2, $3);`
	if _, err := r.DB.ExecContext(ctx, query, gameID, trackID, order); err != nil {
		return fmt.Errorf("failed to add track %d to game %s: %v", trackID, gameID, err)
	}
	return nil
}

// GetGame returns nil, nil when the game does not exist
func (r *GameRepo) GetGame(ctx context.Context, gameID string) (*domain.Game, error) {
	query := `SELECT id, host_id, mode, difficulty, created_at, finished_at FROM games WHERE id = $1;`

	var g domain.Game
	var finishedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, gameID).Scan(&g.ID, &g.HostID, &g.Mode, &g.Difficulty, &g.CreatedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by ID: %v", err)
	}
	if finishedAt.Valid {
		g.FinishedAt = &finishedAt.Time
	}
	return &g, nil
}

// GetGameTracks returns the tracks of a game in play order
func (r *GameRepo) GetGameTracks(ctx context.Context, gameID string) ([]domain.Track, error) {
	query := `
	SELECT t.id, t.spotify_track_id, t.title, t.artist, COALESCE(t.preview_url, ''), COALESCE(t.album_cover, ''), t.user_id, t.played
	FROM game_tracks gt
	JOIN tracks t ON t.id = gt.track_id
	WHERE gt.game_id = $1
	ORDER BY gt."order" ASC;
	`
	rows, err := r.DB.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game tracks: %v", err)
	}
	return scanTracks(rows)
}

// SaveResult records a player's self-reported score and closes the game
func (r *GameRepo) SaveResult(ctx context.Context, res domain.GameResult) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO game_players (game_id, user_id, score, correct_answers, total_questions, best_streak, duration_seconds)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (game_id, user_id) DO UPDATE SET
		score = EXCLUDED.score,
		correct_answers = EXCLUDED.correct_answers,
		total_questions = EXCLUDED.total_questions,
		best_streak = EXCLUDED.best_streak,
		duration_seconds = EXCLUDED.duration_seconds;
	`
	_, err = tx.ExecContext(ctx, query, res.GameID, res.UserID, res.Score, res.CorrectAnswers, res.TotalQuestions, res.BestStreak, res.DurationSeconds)
	if err != nil {
		return fmt.Errorf("failed to upsert game player: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE games SET finished_at = COALESCE(finished_at, NOW()) WHERE id = $1;`, res.GameID); err != nil {
		return fmt.Errorf("failed to finish game: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// GetUserHistory lists the games a user reported a score for, newest first
func (r *GameRepo) GetUserHistory(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error) {
	query := `
	SELECT s.id, s.mode, s.difficulty, s.score, s.correct_answers, s.total_questions,
	       s.created_at, s.duration_seconds,
	       ARRAY(SELECT o.player_name FROM game_summary o WHERE o.id = s.id ORDER BY o.score DESC) AS players
	FROM game_summary s
	WHERE s.user_id = $1
	ORDER BY s.created_at DESC
	LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query game history: %v", err)
	}
	defer rows.Close()

	history := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var h domain.HistoryEntry
		var players []string
		if err := rows.Scan(&h.ID, &h.Mode, &h.Difficulty, &h.Score, &h.CorrectAnswers, &h.TotalQuestions,
			&h.Date, &h.Duration, pq.Array(&players)); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %v", err)
		}
		if h.Mode == domain.ModeMultiplayer {
			h.Players = players
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %v", err)
	}
	return history, nil
}

// GetDetailedStats aggregates every reported result of a user
func (r *GameRepo) GetDetailedStats(ctx context.Context, userID int64) (domain.DetailedStats, error) {
	query := `
	SELECT COUNT(*),
	       COALESCE(SUM(correct_answers), 0),
	       COALESCE(SUM(total_questions), 0),
	       COALESCE(MAX(best_streak), 0),
	       COALESCE(AVG(score), 0),
	       COALESCE(MAX(score), 0),
	       COUNT(*) FILTER (WHERE mode = 'solo'),
	       COUNT(*) FILTER (WHERE mode = 'multiplayer'),
	       COUNT(*) FILTER (WHERE difficulty = 'hard' AND total_questions > 0 AND correct_answers * 2 > total_questions),
	       COUNT(*) FILTER (WHERE total_questions > 0 AND correct_answers = total_questions),
	       COALESCE(BOOL_OR(EXTRACT(HOUR FROM created_at) < 5), FALSE)
	FROM game_summary
	WHERE user_id = $1;
	`
	var s domain.DetailedStats
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&s.TotalGames,
		&s.TotalCorrect,
		&s.TotalQuestions,
		&s.BestStreak,
		&s.AverageScore,
		&s.BestScore,
		&s.SoloGames,
		&s.MultiGames,
		&s.HardModeWins,
		&s.PerfectGames,
		&s.PlayedAtNight,
	)
	if err != nil {
		return domain.DetailedStats{}, fmt.Errorf("failed to query detailed stats: %v", err)
	}
	if s.TotalQuestions > 0 {
		s.SuccessRate = float64(s.TotalCorrect) / float64(s.TotalQuestions)
	}

	history, err := r.scoreHistory(ctx, userID, 50)
	if err != nil {
		return domain.DetailedStats{}, err
	}
	s.ScoreHistory = history
	return s, nil
}

func (r *GameRepo) scoreHistory(ctx context.Context, userID int64, limit int) ([]domain.ScorePoint, error) {
	query := `
	SELECT created_at, score FROM (
		SELECT created_at, score FROM game_summary
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	) recent
	ORDER BY created_at ASC;
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %v", err)
	}
	defer rows.Close()

	points := make([]domain.ScorePoint, 0)
	for rows.Next() {
		var p domain.ScorePoint
		if err := rows.Scan(&p.Date, &p.Score); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %v", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeleteEmptyGames removes games older than the given age that never received
// a track. Games with a recorded result are kept even without tracks.
func (r *GameRepo) DeleteEmptyGames(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
	DELETE FROM games g
	WHERE g.created_at < NOW() - make_interval(secs => $1)
	AND NOT EXISTS (SELECT 1 FROM game_tracks gt WHERE gt.game_id = g.id)
	AND NOT EXISTS (SELECT 1 FROM game_players gp WHERE gp.game_id = g.id);
	`
	result, err := r.DB.ExecContext(ctx, query, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete empty games: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %v", err)
	}
	return rowsAffected, nil
}
