// Package progress is the local authoritative backend. It judges
// answers, records attempts and rewards, ranks recommendations and
// publishes progress events.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/quiz"
	"github.com/felixgeelhaar/codequest/internal/recommend"
)

// Store is the persistence the service needs
type Store interface {
	ListTasks(ctx context.Context, userID int64) ([]domain.Task, error)
	TaskDetail(ctx context.Context, taskID, userID int64) (*domain.Task, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	RecordAnswer(ctx context.Context, userID, taskID, questionID int64, answer string) (domain.SubmitResult, error)
}

// Publisher receives progress events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent) error
}

// Service implements the backend contracts on top of a Store
type Service struct {
	store     Store
	publisher Publisher
	ranker    *recommend.AffinityRanker
}

// NewService creates a service. publisher may be nil.
func NewService(store Store, publisher Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		ranker:    recommend.NewAffinityRanker(),
	}
}

// User returns the user with the given ID
func (s *Service) User(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}

// TasksForUser returns every task with userID's progress attached
func (s *Service) TasksForUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// TaskDetail returns the task with questions and userID's progress, or
// nil when no such task exists.
func (s *Service) TaskDetail(ctx context.Context, taskID, userID int64) (*domain.Task, error) {
	task, err := s.store.TaskDetail(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task detail: %w", err)
	}
	return task, nil
}

// SubmitAnswer judges and records one answer. Completing the task
// returns the updated user.
func (s *Service) SubmitAnswer(ctx context.Context, userID, taskID, questionID int64, answer string) (domain.SubmitResult, error) {
	before, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	res, err := s.store.RecordAnswer(ctx, userID, taskID, questionID, answer)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	slog.Debug("answer recorded",
		"user_id", userID,
		"task_id", taskID,
		"question_id", questionID,
		"is_correct", res.IsCorrect,
		"is_completed", res.IsCompleted,
	)

	ev := domain.NewProgressEvent(domain.EventAnswerSubmitted, userID, taskID)
	ev.QuestionID = questionID
	ev.IsCorrect = res.IsCorrect
	s.publish(ctx, ev)

	if res.IsCompleted && res.User != nil {
		ev := domain.NewProgressEvent(domain.EventTaskCompleted, userID, taskID)
		ev.XP = res.User.XP - before.XP
		ev.Points = res.User.Points - before.Points
		ev.Level = res.User.Level
		s.publish(ctx, ev)

		if res.User.Level > before.Level {
			ev := domain.NewProgressEvent(domain.EventLevelUp, userID, taskID)
			ev.Level = res.User.Level
			ev.XP = res.User.XP
			s.publish(ctx, ev)
			slog.Info("user levelled up", "user_id", userID, "level", res.User.Level)
		}
	}

	return res, nil
}

// RecommendedTasks ranks userID's unfinished tasks by affinity
func (s *Service) RecommendedTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return s.ranker.Rank(tasks, *user, History(tasks)), nil
}

// History lists the tasks the user has touched, oldest first
func History(tasks []domain.Task) []recommend.HistoryEntry {
	touched := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Progress != nil {
			touched = append(touched, t)
		}
	}
	sort.SliceStable(touched, func(i, j int) bool {
		return touched[i].Progress.ID < touched[j].Progress.ID
	})

	history := make([]recommend.HistoryEntry, len(touched))
	for i, t := range touched {
		history[i] = recommend.HistoryEntry{
			Language:  t.Language,
			Type:      t.Type,
			Completed: t.Progress.IsCompleted,
		}
	}
	return history
}

func (s *Service) publish(ctx context.Context, ev domain.ProgressEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish progress event",
			"type", ev.Type,
			"user_id", ev.UserID,
			"task_id", ev.TaskID,
			"error", err,
		)
	}
}

// Ensure Service satisfies the collaborator contracts
var (
	_ catalog.TaskCatalog          = (*Service)(nil)
	_ catalog.RecommendationSource = (*Service)(nil)
	_ quiz.TaskSource              = (*Service)(nil)
	_ quiz.AnswerJudge             = (*Service)(nil)
)
