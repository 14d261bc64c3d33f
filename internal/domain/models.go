package domain

import "time"

type User struct {
	ID           int64     `json:"id"`
	SpotifyID    string    `json:"spotify_id"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Track is a liked track imported into a user's catalog.
type Track struct {
	ID             int64  `json:"id"`
	SpotifyTrackID string `json:"spotify_track_id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	PreviewURL     string `json:"preview_url"`
	AlbumCover     string `json:"album_cover"`
	UserID         int64  `json:"-"`
	Played         bool   `json:"played"`
}

// HasPreview reports whether the track can be used as a question.
func (t Track) HasPreview() bool {
	return t.PreviewURL != ""
}

type Game struct {
	ID         string     `json:"id"`
	HostID     int64      `json:"host_id"`
	Mode       GameMode   `json:"mode"`
	Difficulty Difficulty `json:"difficulty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type GameTrack struct {
	GameID  string `json:"game_id"`
	TrackID int64  `json:"track_id"`
	Order   int    `json:"order"`
}

// GameResult is the self-reported outcome of one player in one game.
type GameResult struct {
	GameID          string    `json:"game_id"`
	UserID          int64     `json:"user_id"`
	Score           int       `json:"score"`
	CorrectAnswers  int       `json:"correct_answers"`
	TotalQuestions  int       `json:"total_questions"`
	BestStreak      int       `json:"best_streak"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

type HistoryEntry struct {
	ID             string     `json:"id"`
	Mode           GameMode   `json:"mode"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          int        `json:"score"`
	CorrectAnswers int        `json:"correctAnswers"`
	TotalQuestions int        `json:"totalQuestions"`
	Date           time.Time  `json:"date"`
	Duration       int        `json:"duration"`
	Players        []string   `json:"players,omitempty"`
}

type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

type DetailedStats struct {
	TotalGames     int          `json:"totalGames"`
	TotalCorrect   int          `json:"totalCorrect"`
	TotalQuestions int          `json:"totalQuestions"`
	SuccessRate    float64      `json:"successRate"`
	BestStreak     int          `json:"bestStreak"`
	AverageScore   float64      `json:"averageScore"`
	BestScore      int          `json:"bestScore"`
	SoloGames      int          `json:"soloGames"`
	MultiGames     int          `json:"multiGames"`
	HardModeWins   int          `json:"hardModeWins"`
	PerfectGames   int          `json:"perfectGames"`
	PlayedAtNight  bool         `json:"playedAtNight"`
	ScoreHistory   []ScorePoint `json:"scoreHistory"`
}
