package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// Producer publishes progress events
type Producer struct {
	conn *Connection
}

// NewProducer creates a new event producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// Publish sends ev to the exchange using its type as routing key
func (p *Producer) Publish(ctx context.Context, ev domain.ProgressEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if ev.Type == "" {
		return fmt.Errorf("%w: event type required", domain.ErrInvalidInput)
	}

	if err := p.conn.PublishJSON(ctx, ev.Type, ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("published event",
		"event_id", ev.ID,
		"type", ev.Type,
		"user_id", ev.UserID,
		"task_id", ev.TaskID,
	)

	return nil
}
