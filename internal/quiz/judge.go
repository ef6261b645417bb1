package quiz

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// PracticeJudge checks answers against the task's own correct answers.
// Nothing is recorded and no rewards are granted.
type PracticeJudge struct {
	task *domain.Task
}

// NewPracticeJudge creates a judge for task
func NewPracticeJudge(task *domain.Task) *PracticeJudge {
	return &PracticeJudge{task: task}
}

// SubmitAnswer compares answer with the question's correct answer,
// ignoring case and surrounding whitespace. The task completes when the
// last question is answered correctly.
func (j *PracticeJudge) SubmitAnswer(_ context.Context, _, taskID, questionID int64, answer string) (domain.SubmitResult, error) {
	if j.task == nil || j.task.ID != taskID {
		return domain.SubmitResult{}, domain.ErrTaskNotFound
	}

	for i, q := range j.task.Questions {
		if q.ID != questionID {
			continue
		}
		correct := domain.AnswersMatch(answer, q.CorrectAnswer)
		return domain.SubmitResult{
			IsCorrect:   correct,
			IsCompleted: correct && i == len(j.task.Questions)-1,
		}, nil
	}
	return domain.SubmitResult{}, fmt.Errorf("%w: %d", domain.ErrQuestionNotFound, questionID)
}
