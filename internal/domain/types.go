package domain

import "time"

// Difficulty only changes the answer window, never which tracks are picked.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

var difficultyBudgets = map[Difficulty]int{
	DifficultyEasy:   15,
	DifficultyNormal: 10,
	DifficultyHard:   5,
}

// ParseDifficulty falls back to normal for an empty value.
func ParseDifficulty(s string) (Difficulty, error) {
	if s == "" {
		return DifficultyNormal, nil
	}
	d := Difficulty(s)
	if _, ok := difficultyBudgets[d]; !ok {
		return "", ErrInvalidDifficulty
	}
	return d, nil
}

// Seconds returns the per-question time budget.
func (d Difficulty) Seconds() int {
	if s, ok := difficultyBudgets[d]; ok {
		return s
	}
	return difficultyBudgets[DifficultyNormal]
}

func (d Difficulty) Duration() time.Duration {
	return time.Duration(d.Seconds()) * time.Second
}

type GameMode string

const (
	ModeSolo        GameMode = "solo"
	ModeMultiplayer GameMode = "multiplayer"
)

const (
	// SessionTrackCount is the number of questions in a built session
	SessionTrackCount = 10
	// OptionCount is the size of a full multiple-choice set
	OptionCount = 4
	// MaxRoomPlayers is the hard ceiling on room membership
	MaxRoomPlayers = 8
	RoomCodeLength = 6
)

// basic errors that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrUnauthenticated   Error = "missing or invalid token"
	ErrUserNotFound      Error = "user not found"
	ErrGameNotFound      Error = "game not found"
	ErrRoomNotFound      Error = "room not found"
	ErrRoomFull          Error = "room full"
	ErrNotRoomHost       Error = "only the host can start the game"
	ErrPlayerNotInRoom   Error = "player not in room"
	ErrInvalidDifficulty Error = "invalid difficulty"
	ErrInvalidUsername   Error = "username is required"
	ErrUpstream          Error = "music provider request failed"
	ErrNoLikedTracks     Error = "no liked tracks found"
	ErrRoundNotActive    Error = "no question in progress"
	ErrAlreadyAnswered   Error = "question already answered"
	ErrRoundUnanswered   Error = "question not answered yet"
)
