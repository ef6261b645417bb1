package quiz

import (
	"context"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// TaskSource fetches one task with the user's progress attached.
// A nil task with a nil error means the task does not exist.
type TaskSource interface {
	TaskDetail(ctx context.Context, taskID, userID int64) (*domain.Task, error)
}

// AnswerJudge decides whether an answer is correct and records the attempt.
// It returns domain.ErrTaskAlreadyCompleted when the task was finished elsewhere.
type AnswerJudge interface {
	SubmitAnswer(ctx context.Context, userID, taskID, questionID int64, answer string) (domain.SubmitResult, error)
}

// Ensure implementations satisfy the interfaces
var _ AnswerJudge = (*PracticeJudge)(nil)
