package domain

import "time"

// UserTaskProgress tracks one user's attempts at one task
type UserTaskProgress struct {
	ID          int64        `json:"ID"`
	UserID      int64        `json:"user_id"`
	TaskID      int64        `json:"task_id"`
	Progress    float64      `json:"progress"`
	Attempts    int          `json:"attempts"`
	Mistakes    int          `json:"mistakes"`
	IsCompleted bool         `json:"is_completed"`
	CompletedAt *time.Time   `json:"completed_at"`
	Answers     []UserAnswer `json:"answers"`
}

// UserAnswer records a single submitted answer
type UserAnswer struct {
	ID             int64     `json:"ID"`
	TaskQuestionID int64     `json:"task_question_id"`
	AnswerGiven    string    `json:"answer_given"`
	IsCorrect      bool      `json:"is_correct"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// CorrectlyAnswered returns the set of question ids with at least one
// correct recorded answer.
func (p *UserTaskProgress) CorrectlyAnswered() map[int64]bool {
	solved := make(map[int64]bool)
	if p == nil {
		return solved
	}
	for _, a := range p.Answers {
		if a.IsCorrect {
			solved[a.TaskQuestionID] = true
		}
	}
	return solved
}

// SubmitResult is the judge's verdict for one submitted answer.
// User is set only when the submission completed the task.
type SubmitResult struct {
	IsCorrect   bool  `json:"is_correct"`
	IsCompleted bool  `json:"is_completed"`
	User        *User `json:"updated_user,omitempty"`
}
