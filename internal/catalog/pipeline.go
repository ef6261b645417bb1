package catalog

import (
	"sort"
	"strings"

	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/recommend"
)

// Recommender ranks a user's catalog for the recommended view
type Recommender interface {
	Recommend(tasks []domain.Task, user *domain.User) []domain.Task
}

// Pipeline derives the displayed task list from the catalog and a FilterState
type Pipeline struct {
	recommender Recommender
}

// NewPipeline creates a pipeline ranking recommended views with r.
// A nil r uses a jitter-free recommend.Scorer.
func NewPipeline(r Recommender) *Pipeline {
	if r == nil {
		r = recommend.NewScorer(nil)
	}
	return &Pipeline{recommender: r}
}

// Apply returns the tasks to display. The input slice is never reordered.
//
// In recommended mode the recommender's ranking is narrowed by type,
// language and search only; the difficulty filter and manual sort do
// not apply there.
func (p *Pipeline) Apply(tasks []domain.Task, user *domain.User, st FilterState) []domain.Task {
	if st.Recommended() {
		return Refine(p.recommender.Recommend(tasks, user), st)
	}

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesType(t, st) || !matchesLang(t, st) || !matchesSearch(t, st) {
			continue
		}
		if st.DiffFilter != "" && t.Difficulty != st.DiffFilter {
			continue
		}
		if st.HideCompleted && t.IsCompleted() {
			continue
		}
		out = append(out, t)
	}

	key := st.SortBy
	if key == SortNone {
		key = SortCreatedDesc
	}
	sortTasks(out, key)
	return out
}

// Refine narrows an already ranked recommendation list by type, language
// and search text, keeping its order.
func Refine(ranked []domain.Task, st FilterState) []domain.Task {
	out := make([]domain.Task, 0, len(ranked))
	for _, t := range ranked {
		if matchesType(t, st) && matchesLang(t, st) && matchesSearch(t, st) {
			out = append(out, t)
		}
	}
	return out
}

func matchesType(t domain.Task, st FilterState) bool {
	return st.TypeFilter == "" || t.Type == st.TypeFilter
}

func matchesLang(t domain.Task, st FilterState) bool {
	return st.LangFilter == "" || t.Language == st.LangFilter
}

func matchesSearch(t domain.Task, st FilterState) bool {
	if st.SearchQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(st.SearchQuery))
}

// sortTasks orders tasks in place. Equal elements keep their relative order.
func sortTasks(tasks []domain.Task, key SortKey) {
	var less func(a, b *domain.Task) bool
	switch key {
	case SortAlphaAsc:
		less = func(a, b *domain.Task) bool { return titleLess(a.Title, b.Title) }
	case SortAlphaDesc:
		less = func(a, b *domain.Task) bool { return titleLess(b.Title, a.Title) }
	case SortXPAsc:
		less = func(a, b *domain.Task) bool { return a.XP < b.XP }
	case SortXPDesc:
		less = func(a, b *domain.Task) bool { return a.XP > b.XP }
	case SortPointsAsc:
		less = func(a, b *domain.Task) bool { return a.Points < b.Points }
	case SortPointsDesc:
		less = func(a, b *domain.Task) bool { return a.Points > b.Points }
	case SortCreatedAsc:
		less = func(a, b *domain.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortCreatedDesc:
		less = func(a, b *domain.Task) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortNone:
		return
	default:
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool { return less(&tasks[i], &tasks[j]) })
}

// titleLess compares case-insensitively, falling back to byte order
func titleLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
