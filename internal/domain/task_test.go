package domain

import "testing"

func TestDifficulty_Ordinal(t *testing.T) {
	tests := []struct {
		d    Difficulty
		want int
	}{
		{DifficultyEasy, 0},
		{DifficultyMedium, 1},
		{DifficultyHard, 2},
		{"EXTREME", -1},
		{"", -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.d), func(t *testing.T) {
			if got := tt.d.Ordinal(); got != tt.want {
				t.Errorf("Ordinal() = %d, want %d", got, tt.want)
			}
			if got := tt.d.Valid(); got != (tt.want >= 0) {
				t.Errorf("Valid() = %v, want %v", got, tt.want >= 0)
			}
		})
	}
}

func TestTaskType_Valid(t *testing.T) {
	for _, tt := range []TaskType{TaskTypeQuiz, TaskTypeCode, TaskTypeFillBlank} {
		if !tt.Valid() {
			t.Errorf("%q should be valid", tt)
		}
	}
	if TaskType("ESSAY").Valid() {
		t.Error("ESSAY should not be valid")
	}
}

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		name    string
		given   string
		correct string
		want    bool
	}{
		{"exact", "paris", "paris", true},
		{"padded and cased", "  Paris ", "paris", true},
		{"correct padded", "go", " Go\n", true},
		{"different", "london", "paris", false},
		{"empty", "", "paris", false},
		{"inner whitespace matters", "new  york", "new york", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnswersMatch(tt.given, tt.correct); got != tt.want {
				t.Errorf("AnswersMatch(%q, %q) = %v, want %v", tt.given, tt.correct, got, tt.want)
			}
		})
	}
}

func TestTask_ProgressHelpers(t *testing.T) {
	task := &Task{ID: 1}
	if task.IsCompleted() {
		t.Error("task without progress should not be completed")
	}
	if !task.NotAttempted() {
		t.Error("task without progress should be not attempted")
	}

	task.Progress = &UserTaskProgress{Attempts: 0}
	if !task.NotAttempted() {
		t.Error("zero attempts should count as not attempted")
	}

	task.Progress = &UserTaskProgress{Attempts: 2, IsCompleted: true}
	if task.NotAttempted() {
		t.Error("attempted task reported as not attempted")
	}
	if !task.IsCompleted() {
		t.Error("completed progress not reported")
	}
}

func TestTaskQuestion_Prompt(t *testing.T) {
	q := TaskQuestion{QuestionText: "The capital of France is ___."}
	before, after, ok := q.Prompt()
	if !ok {
		t.Fatal("expected blank marker")
	}
	if before != "The capital of France is " || after != "." {
		t.Errorf("Prompt() = %q, %q", before, after)
	}

	q = TaskQuestion{QuestionText: "Pick one"}
	if _, _, ok := q.Prompt(); ok {
		t.Error("expected no blank marker")
	}
}

func TestUserTaskProgress_CorrectlyAnswered(t *testing.T) {
	var nilProgress *UserTaskProgress
	if got := nilProgress.CorrectlyAnswered(); len(got) != 0 {
		t.Errorf("nil progress = %v, want empty", got)
	}

	p := &UserTaskProgress{Answers: []UserAnswer{
		{TaskQuestionID: 1, IsCorrect: false},
		{TaskQuestionID: 2, IsCorrect: true},
		{TaskQuestionID: 1, IsCorrect: true},
		{TaskQuestionID: 3, IsCorrect: false},
	}}
	got := p.CorrectlyAnswered()
	if !got[1] || !got[2] || got[3] {
		t.Errorf("CorrectlyAnswered() = %v", got)
	}
}
