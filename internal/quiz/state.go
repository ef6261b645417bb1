// Package quiz drives a single attempt at a task: question progression,
// hints, graded or practice judging, timed feedback and level-up detection.
//
// All transitions go through Reduce, a pure function over an explicit
// State record. Session wraps it with I/O, the feedback timer and
// teardown handling.
package quiz

import (
	"slices"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// Phase is the coarse state of a quiz attempt
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseAnswering
	PhaseSubmitting
	PhaseFeedback
	PhaseLevelUp
	PhaseCompleted
	PhaseUnavailable // task could not be loaded
	PhaseEmpty       // task has no questions
)

var phaseNames = [...]string{
	PhaseLoading:     "loading",
	PhaseAnswering:   "answering",
	PhaseSubmitting:  "submitting",
	PhaseFeedback:    "feedback",
	PhaseLevelUp:     "level_up",
	PhaseCompleted:   "completed",
	PhaseUnavailable: "unavailable",
	PhaseEmpty:       "empty",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// AcceptsInput reports whether answer edits, hints and submissions are allowed
func (p Phase) AcceptsInput() bool {
	return p == PhaseAnswering
}

// Mode selects graded or practice judging
type Mode int

const (
	ModeGraded Mode = iota
	ModePractice
)

func (m Mode) String() string {
	if m == ModePractice {
		return "practice"
	}
	return "graded"
}

// Verdict is the outcome shown during feedback
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictCorrect
	VerdictIncorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictIncorrect:
		return "incorrect"
	default:
		return ""
	}
}

// State is a snapshot of a quiz attempt
type State struct {
	Phase Phase
	Mode  Mode
	Task  *domain.Task
	User  *domain.User

	Index         int
	Answer        string
	HintUsed      bool
	HintedOptions []string

	Verdict  Verdict
	NewLevel int
	LastErr  error

	// counted across the whole attempt
	Hints    int
	Mistakes int

	// resolved while in feedback, applied when it elapses
	finishes bool
	levelUp  bool
}

// NewState returns the loading state for a session
func NewState(mode Mode, user *domain.User) State {
	return State{Phase: PhaseLoading, Mode: mode, User: user}
}

// Question returns the current question
func (s State) Question() (domain.TaskQuestion, bool) {
	if s.Task == nil || s.Index < 0 || s.Index >= len(s.Task.Questions) {
		return domain.TaskQuestion{}, false
	}
	return s.Task.Questions[s.Index], true
}

// Options returns the choices to present, hinted ones when a hint removed one
func (s State) Options() []string {
	if s.HintedOptions != nil {
		return s.HintedOptions
	}
	if q, ok := s.Question(); ok {
		return q.Options
	}
	return nil
}

// Total is the number of questions in the task
func (s State) Total() int {
	if s.Task == nil {
		return 0
	}
	return len(s.Task.Questions)
}

// ProgressPercent is the share of questions already passed
func (s State) ProgressPercent() float64 {
	if s.Phase == PhaseCompleted || s.Phase == PhaseLevelUp {
		return 100
	}
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Index) / float64(total) * 100
}

// Event is an input to Reduce
type Event interface {
	event()
}

// Loaded delivers the fetched task. A nil Task means the backend had nothing.
type Loaded struct{ Task *domain.Task }

// LoadFailed reports a failed task fetch
type LoadFailed struct{ Err error }

// AnswerChanged replaces the current answer text
type AnswerChanged struct{ Answer string }

// HintRequested asks for the one hint allowed per question
type HintRequested struct{}

// SubmitStarted marks a submission as in flight
type SubmitStarted struct{}

// SubmitResolved delivers the judge's verdict
type SubmitResolved struct{ Result domain.SubmitResult }

// SubmitFailed reports a transient judge failure
type SubmitFailed struct{ Err error }

// AlreadyCompleted reports the judge refusing a submission for a finished task
type AlreadyCompleted struct{}

// FeedbackElapsed ends the feedback phase
type FeedbackElapsed struct{}

// LevelUpDismissed closes the level-up overlay
type LevelUpDismissed struct{}

func (Loaded) event()           {}
func (LoadFailed) event()       {}
func (AnswerChanged) event()    {}
func (HintRequested) event()    {}
func (SubmitStarted) event()    {}
func (SubmitResolved) event()   {}
func (SubmitFailed) event()     {}
func (AlreadyCompleted) event() {}
func (FeedbackElapsed) event()  {}
func (LevelUpDismissed) event() {}

// Reduce applies e to s and returns the next state. Events that are not
// valid in the current phase return s unchanged. s is never mutated.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case Loaded:
		if s.Phase != PhaseLoading {
			return s
		}
		return loaded(s, e.Task)

	case LoadFailed:
		if s.Phase != PhaseLoading {
			return s
		}
		s.Phase = PhaseUnavailable
		s.LastErr = e.Err
		return s

	case AnswerChanged:
		if !s.Phase.AcceptsInput() {
			return s
		}
		s.Answer = e.Answer
		return s

	case HintRequested:
		if !s.Phase.AcceptsInput() || s.HintUsed {
			return s
		}
		return hint(s)

	case SubmitStarted:
		if !CanSubmit(s) {
			return s
		}
		s.Phase = PhaseSubmitting
		s.LastErr = nil
		return s

	case SubmitResolved:
		if s.Phase != PhaseSubmitting {
			return s
		}
		return resolved(s, e.Result)

	case SubmitFailed:
		if s.Phase != PhaseSubmitting {
			return s
		}
		s.Phase = PhaseAnswering
		s.LastErr = e.Err
		return s

	case AlreadyCompleted:
		if s.Phase != PhaseSubmitting {
			return s
		}
		s.Phase = PhaseCompleted
		return s

	case FeedbackElapsed:
		if s.Phase != PhaseFeedback {
			return s
		}
		return feedbackElapsed(s)

	case LevelUpDismissed:
		if s.Phase != PhaseLevelUp {
			return s
		}
		s.Phase = PhaseCompleted
		return s
	}
	return s
}

// CanSubmit reports whether a submission would be accepted
func CanSubmit(s State) bool {
	if !s.Phase.AcceptsInput() || s.Answer == "" {
		return false
	}
	_, ok := s.Question()
	return ok
}

func loaded(s State, task *domain.Task) State {
	if task == nil {
		s.Phase = PhaseUnavailable
		return s
	}
	s.Task = task
	s.Index = 0

	if s.Mode == ModeGraded && task.Progress != nil {
		if task.Progress.IsCompleted {
			s.Phase = PhaseCompleted
			return s
		}
		idx, ok := ResumeIndex(task)
		if !ok && len(task.Questions) > 0 {
			s.Phase = PhaseCompleted
			return s
		}
		s.Index = idx
	}

	if len(task.Questions) == 0 {
		s.Phase = PhaseEmpty
		return s
	}
	s.Phase = PhaseAnswering
	return s
}

// ResumeIndex returns the first question without a correct recorded answer.
// ok is false when every question has been answered correctly.
func ResumeIndex(task *domain.Task) (int, bool) {
	solved := task.Progress.CorrectlyAnswered()
	for i, q := range task.Questions {
		if !solved[q.ID] {
			return i, true
		}
	}
	return 0, false
}

func hint(s State) State {
	q, ok := s.Question()
	if !ok {
		return s
	}

	switch q.Type {
	case domain.TaskTypeQuiz:
		removed := slices.IndexFunc(q.Options, func(opt string) bool {
			return !domain.AnswersMatch(opt, q.CorrectAnswer)
		})
		if removed < 0 {
			return s
		}
		if s.Answer != "" && domain.AnswersMatch(s.Answer, q.Options[removed]) {
			s.Answer = ""
		}
		s.HintedOptions = slices.Delete(slices.Clone(q.Options), removed, removed+1)
		s.HintUsed = true
		s.Hints++

	case domain.TaskTypeFillBlank:
		runes := []rune(q.CorrectAnswer)
		if len(runes) == 0 {
			return s
		}
		s.Answer = string(runes[0])
		s.HintUsed = true
		s.Hints++
	}
	return s
}

func resolved(s State, res domain.SubmitResult) State {
	s.Phase = PhaseFeedback
	s.finishes = false
	s.levelUp = false

	if !res.IsCorrect {
		s.Verdict = VerdictIncorrect
		s.Mistakes++
		return s
	}
	s.Verdict = VerdictCorrect
	s.finishes = res.IsCompleted

	if s.Mode == ModeGraded && res.IsCompleted && res.User != nil {
		before := 0
		if s.User != nil {
			before = s.User.Level
		}
		if res.User.Level > before {
			s.levelUp = true
			s.NewLevel = res.User.Level
		}
		s.User = res.User
	}
	return s
}

func feedbackElapsed(s State) State {
	verdict := s.Verdict
	s.Verdict = VerdictNone

	if verdict != VerdictCorrect {
		s.Phase = PhaseAnswering
		return s
	}

	s.Answer = ""
	s.HintedOptions = nil

	switch {
	case s.finishes && s.levelUp:
		s.Phase = PhaseLevelUp
	case s.finishes:
		s.Phase = PhaseCompleted
	case s.Index+1 >= s.Total():
		// the judge accepted the last question without completing the task
		s.Phase = PhaseCompleted
	default:
		s.Index++
		s.HintUsed = false
		s.Phase = PhaseAnswering
	}
	s.finishes = false
	s.levelUp = false
	return s
}
