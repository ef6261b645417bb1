package catalog

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/recommend"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, Title: "Go Basics", Type: domain.TaskTypeQuiz, Language: "Go", Difficulty: domain.DifficultyEasy, XP: 10, Points: 30, CreatedAt: base},
		{ID: 2, Title: "python loops", Type: domain.TaskTypeFillBlank, Language: "Python", Difficulty: domain.DifficultyEasy, XP: 30, Points: 10, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, Title: "Go Channels", Type: domain.TaskTypeQuiz, Language: "Go", Difficulty: domain.DifficultyMedium, XP: 20, Points: 20, CreatedAt: base.Add(time.Hour)},
		{ID: 4, Title: "Advanced Go", Type: domain.TaskTypeQuiz, Language: "Go", Difficulty: domain.DifficultyHard, XP: 50, Points: 50, CreatedAt: base.Add(3 * time.Hour)},
		{ID: 5, Title: "Done Go", Type: domain.TaskTypeQuiz, Language: "Go", Difficulty: domain.DifficultyEasy, XP: 40, Points: 40, CreatedAt: base.Add(4 * time.Hour),
			Progress: &domain.UserTaskProgress{Attempts: 2, IsCompleted: true, Progress: 100}},
	}
}

func taskIDs(tasks []domain.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPipeline_AllMode(t *testing.T) {
	p := NewPipeline(recommend.NewScorer(nil))
	user := &domain.User{ID: 1, Level: 1}

	tests := []struct {
		name string
		st   FilterState
		want []int64
	}{
		{"default sorts newest first", DefaultFilterState(), []int64{5, 4, 2, 3, 1}},
		{"type filter", FilterState{TypeFilter: domain.TaskTypeFillBlank}, []int64{2}},
		{"lang and diff", FilterState{LangFilter: "Go", DiffFilter: domain.DifficultyEasy}, []int64{5, 1}},
		{"search case-insensitive", FilterState{SearchQuery: "GO"}, []int64{5, 4, 3, 1}},
		{"hide completed", FilterState{HideCompleted: true}, []int64{4, 2, 3, 1}},
		{"alpha asc", FilterState{SortBy: SortAlphaAsc}, []int64{4, 5, 1, 3, 2}},
		{"alpha desc", FilterState{SortBy: SortAlphaDesc}, []int64{2, 3, 1, 5, 4}},
		{"xp asc", FilterState{SortBy: SortXPAsc}, []int64{1, 3, 2, 5, 4}},
		{"xp desc", FilterState{SortBy: SortXPDesc}, []int64{4, 5, 2, 3, 1}},
		{"points asc", FilterState{SortBy: SortPointsAsc}, []int64{2, 3, 1, 5, 4}},
		{"points desc", FilterState{SortBy: SortPointsDesc}, []int64{4, 5, 1, 3, 2}},
		{"created asc", FilterState{SortBy: SortCreatedAsc}, []int64{1, 3, 2, 4, 5}},
		{"combined", FilterState{LangFilter: "Go", HideCompleted: true, SortBy: SortXPAsc}, []int64{1, 3, 4}},
		{"no match", FilterState{LangFilter: "C#"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := taskIDs(p.Apply(sampleTasks(), user, tt.st))
			if !equalIDs(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPipeline_RecommendedMode(t *testing.T) {
	p := NewPipeline(recommend.NewScorer(nil))

	// Level 3: band {EASY, MEDIUM}, ideal MEDIUM; completed and HARD dropped.
	user := &domain.User{ID: 1, Level: 3}
	st := FilterState{RecommendationFilter: ShowRecommended}
	got := taskIDs(p.Apply(sampleTasks(), user, st))
	want := []int64{3, 2, 1}
	if !equalIDs(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}

	// Type, language and search narrow the ranking.
	st.LangFilter = "Go"
	got = taskIDs(p.Apply(sampleTasks(), user, st))
	if !equalIDs(got, []int64{3, 1}) {
		t.Errorf("Apply() with lang = %v, want [3 1]", got)
	}

	st.SearchQuery = "basics"
	got = taskIDs(p.Apply(sampleTasks(), user, st))
	if !equalIDs(got, []int64{1}) {
		t.Errorf("Apply() with search = %v, want [1]", got)
	}
}

func TestPipeline_RecommendedIgnoresDifficultyAndSort(t *testing.T) {
	p := NewPipeline(recommend.NewScorer(nil))
	user := &domain.User{ID: 1, Level: 3}

	plain := p.Apply(sampleTasks(), user, FilterState{RecommendationFilter: ShowRecommended})
	filtered := p.Apply(sampleTasks(), user, FilterState{
		RecommendationFilter: ShowRecommended,
		DiffFilter:           domain.DifficultyHard,
		SortBy:               SortAlphaAsc,
		HideCompleted:        true,
	})
	if !equalIDs(taskIDs(plain), taskIDs(filtered)) {
		t.Errorf("difficulty/sort changed recommended view: %v vs %v", taskIDs(plain), taskIDs(filtered))
	}
}

func TestPipeline_HideCompletedNeverShowsCompleted(t *testing.T) {
	p := NewPipeline(nil)
	for _, key := range append([]SortKey{SortNone}, SortKeys...) {
		for _, task := range p.Apply(sampleTasks(), &domain.User{Level: 9}, FilterState{HideCompleted: true, SortBy: key}) {
			if task.IsCompleted() {
				t.Errorf("sort %q: completed task %d shown", key, task.ID)
			}
		}
	}
}

func TestPipeline_DoesNotReorderInput(t *testing.T) {
	tasks := sampleTasks()
	NewPipeline(nil).Apply(tasks, &domain.User{Level: 1}, FilterState{SortBy: SortXPDesc})
	if !equalIDs(taskIDs(tasks), []int64{1, 2, 3, 4, 5}) {
		t.Errorf("input reordered: %v", taskIDs(tasks))
	}
}

func TestRefine_KeepsOrder(t *testing.T) {
	ranked := sampleTasks()
	got := taskIDs(Refine(ranked, FilterState{TypeFilter: domain.TaskTypeQuiz, DiffFilter: domain.DifficultyHard}))
	if !equalIDs(got, []int64{1, 3, 4, 5}) {
		t.Errorf("Refine() = %v", got)
	}
}
