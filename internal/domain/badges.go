package domain

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
}

var BadgeCatalog = []Badge{
	{ID: "first_win", Name: "First win", Description: "Finish your first game", Icon: "🎵"},
	{ID: "perfect_score", Name: "Perfect score", Description: "Answer every question of a game correctly", Icon: "⭐"},
	{ID: "speed_demon", Name: "Speed demon", Description: "Win a game in hard mode", Icon: "⚡"},
	{ID: "ten_games", Name: "Regular", Description: "Play 10 games", Icon: "🎮"},
	{ID: "fifty_games", Name: "Veteran", Description: "Play 50 games", Icon: "🏆"},
	{ID: "streak_five", Name: "On fire", Description: "Answer 5 questions in a row correctly", Icon: "🔥"},
	{ID: "music_master", Name: "Music master", Description: "Reach an 80% success rate over 20 games", Icon: "🎼"},
	{ID: "night_owl", Name: "Night owl", Description: "Play a game after midnight", Icon: "🦉"},
}

func IsBadgeUnlocked(id string, stats DetailedStats) bool {
	switch id {
	case "first_win":
		return stats.TotalGames >= 1
	case "perfect_score":
		return stats.PerfectGames >= 1
	case "speed_demon":
		return stats.HardModeWins >= 1
	case "ten_games":
		return stats.TotalGames >= 10
	case "fifty_games":
		return stats.TotalGames >= 50
	case "streak_five":
		return stats.BestStreak >= 5
	case "music_master":
		return stats.TotalGames >= 20 && stats.SuccessRate >= 0.8
	case "night_owl":
		return stats.PlayedAtNight
	default:
		return false
	}
}

// EvaluateBadges returns the full catalog with unlock flags set.
func EvaluateBadges(stats DetailedStats) []Badge {
	badges := make([]Badge, len(BadgeCatalog))
	for i, b := range BadgeCatalog {
		b.Unlocked = IsBadgeUnlocked(b.ID, stats)
		badges[i] = b
	}
	return badges
}
