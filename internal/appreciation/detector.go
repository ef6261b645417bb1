// Package appreciation recognizes noteworthy finishes of a quiz attempt
// and phrases short, evidence-based encouragement for them.
package appreciation

import (
	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/quiz"
)

// MomentType categorizes appreciation moments
type MomentType string

const (
	// Attempt-level moments
	MomentFlawless      MomentType = "flawless"
	MomentNoHintsNeeded MomentType = "no_hints_needed"
	MomentMinimalHints  MomentType = "minimal_hints"
	MomentPersistence   MomentType = "persistence"
	MomentTaskComplete  MomentType = "task_complete"

	// Progress-level moments
	MomentLevelUp  MomentType = "level_up"
	MomentMaxLevel MomentType = "max_level"
	MomentStreak   MomentType = "streak"
)

// priority orders moments by significance
var priority = map[MomentType]int{
	MomentMaxLevel:      11,
	MomentLevelUp:       10,
	MomentFlawless:      8,
	MomentNoHintsNeeded: 7,
	MomentStreak:        5,
	MomentPersistence:   4,
	MomentMinimalHints:  3,
	MomentTaskComplete:  1,
}

// Priority returns the significance of a moment type
func Priority(t MomentType) int {
	return priority[t]
}

// Moment is an appreciation-worthy event
type Moment struct {
	Type     MomentType
	Evidence Evidence
}

// Evidence provides the data backing a moment
type Evidence struct {
	TaskTitle string `json:"task_title,omitempty"`
	Language  string `json:"language,omitempty"`
	Questions int    `json:"questions,omitempty"`
	Hints     int    `json:"hints,omitempty"`
	Mistakes  int    `json:"mistakes,omitempty"`
	Level     int    `json:"level,omitempty"`
	Streak    int    `json:"streak,omitempty"`
}

// Result summarizes one finished attempt
type Result struct {
	Task      *domain.Task
	Practice  bool
	Hints     int
	Mistakes  int
	LeveledUp bool
	// User is the snapshot after the final submission, nil in practice mode
	User *domain.User
}

// ResultFromState builds a Result from a settled session state. ok is false
// unless the attempt ended in completion.
func ResultFromState(st quiz.State) (Result, bool) {
	if st.Task == nil || (st.Phase != quiz.PhaseCompleted && st.Phase != quiz.PhaseLevelUp) {
		return Result{}, false
	}
	r := Result{
		Task:      st.Task,
		Practice:  st.Mode == quiz.ModePractice,
		Hints:     st.Hints,
		Mistakes:  st.Mistakes,
		LeveledUp: st.Phase == quiz.PhaseLevelUp || st.NewLevel > 0,
	}
	if !r.Practice {
		r.User = st.User
	}
	return r, true
}

// Detector identifies appreciation-worthy moments
type Detector struct {
	minimalHintThreshold int
	persistenceMistakes  int
	streakMilestone      int
}

// NewDetector creates a detector with default thresholds
func NewDetector() *Detector {
	return &Detector{
		minimalHintThreshold: 2,
		persistenceMistakes:  3,
		streakMilestone:      3,
	}
}

// Detect finds the moments of a finished attempt. Progress moments are
// only reported for graded attempts.
func (d *Detector) Detect(r Result) []Moment {
	if r.Task == nil {
		return nil
	}
	base := Evidence{
		TaskTitle: r.Task.Title,
		Language:  r.Task.Language,
		Questions: len(r.Task.Questions),
		Hints:     r.Hints,
		Mistakes:  r.Mistakes,
	}
	add := func(moments []Moment, t MomentType, mutate ...func(*Evidence)) []Moment {
		e := base
		for _, m := range mutate {
			m(&e)
		}
		return append(moments, Moment{Type: t, Evidence: e})
	}

	moments := add(nil, MomentTaskComplete)

	switch {
	case r.Hints == 0 && r.Mistakes == 0:
		moments = add(moments, MomentFlawless)
	case r.Hints == 0:
		moments = add(moments, MomentNoHintsNeeded)
	case r.Hints <= d.minimalHintThreshold:
		moments = add(moments, MomentMinimalHints)
	}
	if r.Mistakes >= d.persistenceMistakes {
		moments = add(moments, MomentPersistence)
	}

	if r.Practice || r.User == nil {
		return moments
	}
	level := func(e *Evidence) { e.Level = r.User.Level }
	if r.LeveledUp {
		if r.User.Level >= domain.MaxLevel {
			moments = add(moments, MomentMaxLevel, level)
		} else {
			moments = add(moments, MomentLevelUp, level)
		}
	}
	if s := r.User.StreakCount; s >= d.streakMilestone && s%d.streakMilestone == 0 {
		moments = add(moments, MomentStreak, func(e *Evidence) { e.Streak = s })
	}
	return moments
}

// SelectBest picks the most significant moment. Ties keep the earlier one.
func (d *Detector) SelectBest(moments []Moment) *Moment {
	if len(moments) == 0 {
		return nil
	}
	best := moments[0]
	for _, m := range moments[1:] {
		if Priority(m.Type) > Priority(best.Type) {
			best = m
		}
	}
	return &best
}
