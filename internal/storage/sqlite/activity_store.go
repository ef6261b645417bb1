package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// ActivityStore records progress events as a per-user activity feed.
type ActivityStore struct {
	db *DB
}

// NewActivityStore creates a new SQLite-backed activity store.
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Record stores ev. Events already recorded are ignored, so redelivered
// messages are harmless.
func (s *ActivityStore) Record(ctx context.Context, ev *domain.ProgressEvent) error {
	a := domain.ActivityFromEvent(*ev)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (event_id, user_id, task_id, action_type, description, xp_earned, points_earned, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING`,
		a.EventID.String(), a.UserID, a.TaskID, a.ActionType, a.Description, a.XPEarned, a.PointsEarned, a.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Publish records ev directly, standing in for a broker when events are
// not routed through RabbitMQ.
func (s *ActivityStore) Publish(ctx context.Context, ev domain.ProgressEvent) error {
	return s.Record(ctx, &ev)
}

// ListActivity returns userID's most recent activity, newest first.
func (s *ActivityStore) ListActivity(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, user_id, task_id, action_type, description, xp_earned, points_earned, occurred_at
		FROM activity_log WHERE user_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		var eventID string
		if err := rows.Scan(&a.ID, &eventID, &a.UserID, &a.TaskID, &a.ActionType, &a.Description,
			&a.XPEarned, &a.PointsEarned, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.EventID, err = uuid.Parse(eventID); err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
