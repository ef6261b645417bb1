package recommend

import (
	"sort"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// Affinity weights
const (
	WeightDifficulty = 0.4
	WeightAffinity   = 0.3
	WeightStreak     = 0.2
	WeightVariety    = 0.1

	// unseenAffinity is used for languages the user has not completed yet
	unseenAffinity = 0.2
)

// HistoryEntry is one task the user has worked on, oldest first
type HistoryEntry struct {
	Language  string
	Type      domain.TaskType
	Completed bool
}

// AffinityRanker orders unfinished tasks by difficulty fit, language
// affinity, streak momentum and variety.
type AffinityRanker struct{}

// NewAffinityRanker creates a ranker
func NewAffinityRanker() *AffinityRanker {
	return &AffinityRanker{}
}

// Rank returns the candidates eligible at the user's level sorted by
// descending score
func (r *AffinityRanker) Rank(candidates []domain.Task, user domain.User, history []HistoryEntry) []domain.Task {
	affinity := languageAffinity(history)
	var lastType domain.TaskType
	if len(history) > 0 {
		lastType = history[len(history)-1].Type
	}

	scored := make([]Scored, 0, len(candidates))
	for _, t := range candidates {
		if !Eligible(t, user.Level) {
			continue
		}
		score := difficultyFit(user.Level, t.Difficulty) * WeightDifficulty
		score += affinityFor(affinity, t.Language) * WeightAffinity
		score += streakModifier(user.StreakCount, t.Difficulty) * WeightStreak
		if t.Type != lastType {
			score += WeightVariety
		}
		scored = append(scored, Scored{Task: t, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	out := make([]domain.Task, len(scored))
	for i, st := range scored {
		out[i] = st.Task
	}
	return out
}

// languageAffinity is the share of completed tasks per language
func languageAffinity(history []HistoryEntry) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, h := range history {
		if h.Completed {
			counts[h.Language]++
			total++
		}
	}

	affinity := make(map[string]float64, len(counts))
	for lang, n := range counts {
		affinity[lang] = float64(n) / float64(total)
	}
	return affinity
}

func affinityFor(affinity map[string]float64, lang string) float64 {
	if v, ok := affinity[lang]; ok {
		return v
	}
	return unseenAffinity
}

func difficultyFit(level int, d domain.Difficulty) float64 {
	ord := d.Ordinal()
	if ord < 0 {
		ord = 0
	}
	switch distance(domain.Difficulties[ord], IdealFor(level)) {
	case 0:
		return 1.0
	case 1:
		return 0.5
	default:
		return 0.1
	}
}

// streakModifier favours hard tasks on long streaks and easy ones on short streaks
func streakModifier(streak int, d domain.Difficulty) float64 {
	switch {
	case streak > 5:
		switch d {
		case domain.DifficultyHard:
			return 1.0
		case domain.DifficultyMedium:
			return 0.7
		default:
			return 0.3
		}
	case streak < 3:
		switch d {
		case domain.DifficultyEasy:
			return 1.0
		case domain.DifficultyMedium:
			return 0.5
		default:
			return 0.0
		}
	default:
		return 0.5
	}
}
