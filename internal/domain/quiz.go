package domain

import "math/rand"

type QuizState string

const (
	StateChoosingDifficulty QuizState = "choosing_difficulty"
	StateLoading            QuizState = "loading"
	StatePlaying            QuizState = "playing"
	StateGameOver           QuizState = "game_over"
)

// Answer is one resolved question. Selected is nil when the timer ran out.
type Answer struct {
	TrackID  int64
	Selected *string
	Correct  bool
}

// Quiz drives a single player through a session, one question at a time.
// It is not safe for concurrent use; the caller owns the one-second tick.
type Quiz struct {
	state      QuizState
	difficulty Difficulty
	tracks     []Track
	index      int
	timeLeft   int
	selected   *string
	showResult bool
	options    []string
	answers    []Answer
	score      int
	streak     int
	bestStreak int
	rng        *rand.Rand
}

// NewQuiz starts in the difficulty picker. A nil rng uses the global source.
func NewQuiz(rng *rand.Rand) *Quiz {
	return &Quiz{state: StateChoosingDifficulty, difficulty: DifficultyNormal, rng: rng}
}

func (q *Quiz) ChooseDifficulty(d Difficulty) error {
	if _, ok := difficultyBudgets[d]; !ok {
		return ErrInvalidDifficulty
	}
	q.difficulty = d
	q.state = StateLoading
	return nil
}

// Load installs the session tracks and opens the first question. An empty
// session goes straight to game over.
func (q *Quiz) Load(tracks []Track) {
	q.tracks = tracks
	q.answers = make([]Answer, 0, len(tracks))
	if len(tracks) == 0 {
		q.state = StateGameOver
		return
	}
	q.state = StatePlaying
	q.openQuestion(0)
}

func (q *Quiz) openQuestion(i int) {
	q.index = i
	q.timeLeft = q.difficulty.Seconds()
	q.selected = nil
	q.showResult = false
	q.options = GenerateOptions(q.tracks, i, q.rng)
}

// Tick advances the countdown by one second. It returns true when this tick
// expired the question, which records an incorrect null answer.
func (q *Quiz) Tick() bool {
	if q.state != StatePlaying || q.showResult {
		return false
	}
	if q.timeLeft > 0 {
		q.timeLeft--
	}
	if q.timeLeft == 0 {
		q.resolve(nil)
		return true
	}
	return false
}

// Select answers the current question. Matching is exact on the title.
func (q *Quiz) Select(title string) (bool, error) {
	if q.state != StatePlaying {
		return false, ErrRoundNotActive
	}
	if q.showResult {
		return false, ErrAlreadyAnswered
	}
	return q.resolve(&title), nil
}

func (q *Quiz) resolve(selected *string) bool {
	current := q.tracks[q.index]
	correct := selected != nil && *selected == current.Title

	q.selected = selected
	q.showResult = true
	q.answers = append(q.answers, Answer{TrackID: current.ID, Selected: selected, Correct: correct})

	if correct {
		q.score++
		q.streak++
		if q.streak > q.bestStreak {
			q.bestStreak = q.streak
		}
	} else {
		q.streak = 0
	}
	return correct
}

// Next moves past a resolved question. After the last one the quiz is over
// and the ids of every played track are returned for reporting.
func (q *Quiz) Next() ([]int64, error) {
	if q.state != StatePlaying {
		return nil, ErrRoundNotActive
	}
	if !q.showResult {
		return nil, ErrRoundUnanswered
	}

	n := q.index + 1
	if n >= len(q.tracks) {
		q.state = StateGameOver
		ids := make([]int64, len(q.tracks))
		for i, t := range q.tracks {
			ids[i] = t.ID
		}
		return ids, nil
	}
	q.openQuestion(n)
	return nil, nil
}

func (q *Quiz) State() QuizState       { return q.state }
func (q *Quiz) Difficulty() Difficulty { return q.difficulty }
func (q *Quiz) TimeLeft() int          { return q.timeLeft }
func (q *Quiz) Score() int             { return q.score }
func (q *Quiz) BestStreak() int        { return q.bestStreak }
func (q *Quiz) ShowResult() bool       { return q.showResult }
func (q *Quiz) Index() int             { return q.index }
func (q *Quiz) Answers() []Answer      { return q.answers }

func (q *Quiz) Options() []string {
	return append([]string(nil), q.options...)
}

func (q *Quiz) Selected() (string, bool) {
	if q.selected == nil {
		return "", false
	}
	return *q.selected, true
}

// Current returns the track being asked, if any.
func (q *Quiz) Current() (Track, bool) {
	if q.state != StatePlaying {
		return Track{}, false
	}
	return q.tracks[q.index], true
}

// Result summarises the quiz in the shape the finish endpoint expects.
func (q *Quiz) Result() GameResult {
	correct := 0
	for _, a := range q.answers {
		if a.Correct {
			correct++
		}
	}
	return GameResult{
		Score:          q.score,
		CorrectAnswers: correct,
		TotalQuestions: len(q.tracks),
		BestStreak:     q.bestStreak,
	}
}
