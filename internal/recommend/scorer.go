// Package recommend ranks tasks for a learner.
//
// Scorer is the client-side heuristic used by the task list when the
// "recommended" view is active. AffinityRanker is the server-side ranking
// used by the local progress backend for the recommended-tasks endpoint.
package recommend

import (
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// Scoring weights
const (
	NotAttemptedBonus  = 50.0
	MistakePenalty     = -5.0
	AttemptPenalty     = -2.0
	IdealDifficulty    = 25.0
	AdjacentDifficulty = 10.0
	XPWeight           = 0.1

	// JitterAmplitude bounds the tie-breaking noise. It stays well below
	// the smallest deterministic step.
	JitterAmplitude = 0.05
)

// JitterFunc returns the tie-breaking noise for a task
type JitterFunc func(taskID int64) float64

// NoJitter disables tie-breaking noise
func NoJitter(int64) float64 { return 0 }

// SeededJitter returns uniform noise in [-JitterAmplitude, JitterAmplitude)
// derived from seed and the task id, so repeated scoring passes with the
// same seed produce the same ranking.
func SeededJitter(seed uint64) JitterFunc {
	return func(taskID int64) float64 {
		r := rand.New(rand.NewPCG(seed, uint64(taskID)))
		return (r.Float64()*2 - 1) * JitterAmplitude
	}
}

// Scored is a task annotated with its recommendation score
type Scored struct {
	Task  domain.Task
	Score float64
}

// Scorer ranks uncompleted tasks in a user's target difficulty band
type Scorer struct {
	jitter JitterFunc
}

// NewScorer creates a scorer. A nil jitter disables noise.
func NewScorer(jitter JitterFunc) *Scorer {
	if jitter == nil {
		jitter = NoJitter
	}
	return &Scorer{jitter: jitter}
}

// Score returns the eligible tasks sorted by descending score. Completed
// tasks and tasks outside the target band are dropped. Inputs are not
// modified.
func (s *Scorer) Score(tasks []domain.Task, user *domain.User) []Scored {
	level := 0
	if user != nil {
		level = user.Level
	}
	ideal := IdealFor(level)

	scored := make([]Scored, 0, len(tasks))
	for _, t := range tasks {
		if !Eligible(t, level) {
			continue
		}
		scored = append(scored, Scored{Task: t, Score: s.score(&t, ideal)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Recommend is Score without the annotations
func (s *Scorer) Recommend(tasks []domain.Task, user *domain.User) []domain.Task {
	scored := s.Score(tasks, user)
	out := make([]domain.Task, len(scored))
	for i, st := range scored {
		out[i] = st.Task
	}
	return out
}

func (s *Scorer) score(t *domain.Task, ideal domain.Difficulty) float64 {
	score := 0.0

	if t.NotAttempted() {
		score += NotAttemptedBonus
	} else {
		p := t.Progress
		score += float64(p.Mistakes) * MistakePenalty
		score += float64(max(0, p.Attempts-1)) * AttemptPenalty
	}

	switch distance(t.Difficulty, ideal) {
	case 0:
		score += IdealDifficulty
	case 1:
		score += AdjacentDifficulty
	}

	score += float64(t.XP) * XPWeight
	score += s.jitter(t.ID)
	return score
}

// TargetBand returns the difficulties eligible for recommendation at level.
// Levels of zero or below get the lowest band.
func TargetBand(level int) []domain.Difficulty {
	switch {
	case level <= 2:
		return []domain.Difficulty{domain.DifficultyEasy}
	case level <= 4:
		return []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium}
	default:
		return []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}
	}
}

// InBand reports whether d is in the target band for level
func InBand(level int, d domain.Difficulty) bool {
	return slices.Contains(TargetBand(level), d)
}

// Eligible reports whether t may be recommended at level: it is not
// completed and its difficulty is in the target band.
func Eligible(t domain.Task, level int) bool {
	return !t.IsCompleted() && InBand(level, t.Difficulty)
}

// IdealFor returns the single most level-appropriate difficulty
func IdealFor(level int) domain.Difficulty {
	switch {
	case level <= 2:
		return domain.DifficultyEasy
	case level <= 4:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// distance is the ordinal distance between two difficulties, -1 if either is unknown
func distance(a, b domain.Difficulty) int {
	oa, ob := a.Ordinal(), b.Ordinal()
	if oa < 0 || ob < 0 {
		return -1
	}
	if oa > ob {
		return oa - ob
	}
	return ob - oa
}
