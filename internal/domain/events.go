package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published when progress changes
const (
	EventAnswerSubmitted = "answer.submitted"
	EventTaskCompleted   = "task.completed"
	EventLevelUp         = "user.level_up"
)

// ProgressEvent is emitted by the progress backend after a submission
type ProgressEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	TaskID     int64     `json:"task_id"`
	QuestionID int64     `json:"question_id,omitempty"`
	IsCorrect  bool      `json:"is_correct,omitempty"`
	XP         int       `json:"xp,omitempty"`
	Points     int       `json:"points,omitempty"`
	Level      int       `json:"level,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProgressEvent creates an event stamped with a fresh id and the current time
func NewProgressEvent(eventType string, userID, taskID int64) ProgressEvent {
	return ProgressEvent{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		TaskID:     taskID,
		OccurredAt: time.Now(),
	}
}

// Activity is one entry of a user's activity feed
type Activity struct {
	ID           int64     `json:"ID"`
	EventID      uuid.UUID `json:"event_id"`
	UserID       int64     `json:"user_id"`
	TaskID       int64     `json:"task_id"`
	ActionType   string    `json:"action_type"`
	Description  string    `json:"description"`
	XPEarned     int       `json:"xp_earned"`
	PointsEarned int       `json:"points_earned"`
	OccurredAt   time.Time `json:"timestamp"`
}

// ActivityFromEvent describes ev for the activity feed
func ActivityFromEvent(ev ProgressEvent) Activity {
	a := Activity{
		EventID:    ev.ID,
		UserID:     ev.UserID,
		TaskID:     ev.TaskID,
		ActionType: ev.Type,
		OccurredAt: ev.OccurredAt,
	}
	switch ev.Type {
	case EventAnswerSubmitted:
		if ev.IsCorrect {
			a.Description = "Answered a question correctly"
		} else {
			a.Description = "Answered a question incorrectly"
		}
	case EventTaskCompleted:
		a.Description = "Completed a task"
		a.XPEarned = ev.XP
		a.PointsEarned = ev.Points
	case EventLevelUp:
		a.Description = fmt.Sprintf("Reached level %d", ev.Level)
	default:
		a.Description = ev.Type
	}
	return a
}
