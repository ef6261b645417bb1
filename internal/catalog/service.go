package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/recommend"
)

// Service loads a user's catalog and runs it through the pipeline
type Service struct {
	tasks    TaskCatalog
	remote   RecommendationSource
	pipeline *Pipeline
}

// NewService creates a catalog service. remote may be nil, in which case
// recommendations are always computed locally.
func NewService(tasks TaskCatalog, remote RecommendationSource, pipeline *Pipeline) *Service {
	if pipeline == nil {
		pipeline = NewPipeline(nil)
	}
	return &Service{tasks: tasks, remote: remote, pipeline: pipeline}
}

// List returns the displayed tasks for user under st. When a remote
// source is configured and the recommended view is active, its ranking is
// used; a failing remote falls back to the local ranking. Remote results
// outside the user's target band, or already completed, are dropped.
func (s *Service) List(ctx context.Context, user *domain.User, st FilterState) ([]domain.Task, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user required", domain.ErrInvalidInput)
	}

	if st.Recommended() && s.remote != nil {
		ranked, err := s.remote.RecommendedTasks(ctx, user.ID)
		if err == nil {
			return Refine(eligible(ranked, user.Level), st), nil
		}
		slog.Warn("remote recommendations unavailable, ranking locally", "user_id", user.ID, "error", err)
	}

	tasks, err := s.tasks.TasksForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return s.pipeline.Apply(tasks, user, st), nil
}

func eligible(ranked []domain.Task, level int) []domain.Task {
	out := make([]domain.Task, 0, len(ranked))
	for _, t := range ranked {
		if recommend.Eligible(t, level) {
			out = append(out, t)
		}
	}
	return out
}
