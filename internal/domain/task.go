package domain

import (
	"strings"
	"time"
)

// TaskType identifies how a task's questions are answered
type TaskType string

const (
	TaskTypeQuiz      TaskType = "QUIZ"
	TaskTypeCode      TaskType = "CODE"
	TaskTypeFillBlank TaskType = "FILL_BLANK"
)

// Valid reports whether t is one of the known task types
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeQuiz, TaskTypeCode, TaskTypeFillBlank:
		return true
	}
	return false
}

// Difficulty represents task difficulty, ordered EASY < MEDIUM < HARD
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Difficulties lists every difficulty in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Ordinal returns the position of d on the EASY<MEDIUM<HARD scale,
// or -1 for an unknown difficulty.
func (d Difficulty) Ordinal() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	}
	return -1
}

// Valid reports whether d is a known difficulty
func (d Difficulty) Valid() bool {
	return d.Ordinal() >= 0
}

// Languages is the closed set of task languages offered by the catalog
var Languages = []string{"Python", "Go", "JavaScript", "TypeScript", "C#", "Algorithms", "General"}

// BlankMarker marks the gap in a fill-in-the-blank question
const BlankMarker = "___"

// Task is a unit of learning content made of ordered questions.
// Progress is the requesting user's progress, when any exists.
type Task struct {
	ID          int64             `json:"ID"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        TaskType          `json:"type"`
	Language    string            `json:"language"`
	Difficulty  Difficulty        `json:"difficulty"`
	Points      int               `json:"points"`
	XP          int               `json:"xp"`
	CreatedAt   time.Time         `json:"created_at"`
	Questions   []TaskQuestion    `json:"task_questions"`
	Progress    *UserTaskProgress `json:"user_progress"`
}

// IsCompleted reports whether the attached progress marks the task done
func (t *Task) IsCompleted() bool {
	return t.Progress != nil && t.Progress.IsCompleted
}

// NotAttempted reports whether the user has never submitted an answer
func (t *Task) NotAttempted() bool {
	return t.Progress == nil || t.Progress.Attempts == 0
}

// Question returns the question with the given id
func (t *Task) Question(id int64) (TaskQuestion, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return TaskQuestion{}, false
}

// TaskQuestion is a single question belonging to a task
type TaskQuestion struct {
	ID            int64    `json:"ID"`
	TaskID        int64    `json:"task_id"`
	QuestionText  string   `json:"question_text"`
	Type          TaskType `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Prompt splits the question text around the blank marker. hasBlank is
// false when the text carries no marker.
func (q TaskQuestion) Prompt() (before, after string, hasBlank bool) {
	return strings.Cut(q.QuestionText, BlankMarker)
}

// AnswersMatch reports whether given matches correct after trimming
// surrounding whitespace and ignoring case.
func AnswersMatch(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}
