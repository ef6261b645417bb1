package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

func TestActivityStore_RecordAndList(t *testing.T) {
	store := NewActivityStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	answered := domain.NewProgressEvent(domain.EventAnswerSubmitted, 1, 4)
	answered.IsCorrect = true
	answered.OccurredAt = base

	completed := domain.NewProgressEvent(domain.EventTaskCompleted, 1, 4)
	completed.XP, completed.Points = 30, 20
	completed.OccurredAt = base.Add(time.Minute)

	other := domain.NewProgressEvent(domain.EventAnswerSubmitted, 2, 4)
	other.OccurredAt = base

	for _, ev := range []domain.ProgressEvent{answered, completed, other} {
		if err := store.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	// Redelivery of the same event is ignored
	if err := store.Record(ctx, &completed); err != nil {
		t.Fatalf("Record() duplicate error = %v", err)
	}

	feed, err := store.ListActivity(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("len(feed) = %d; want 2", len(feed))
	}
	if feed[0].EventID != completed.ID || feed[0].XPEarned != 30 || feed[0].PointsEarned != 20 {
		t.Errorf("feed[0] = %+v", feed[0])
	}
	if feed[1].Description != "Answered a question correctly" {
		t.Errorf("feed[1].Description = %q", feed[1].Description)
	}

	limited, err := store.ListActivity(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d; want 1", len(limited))
	}
}
