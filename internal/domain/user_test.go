package domain

import (
	"testing"
	"time"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{500, 4},
		{999, 4},
		{1000, 5},
		{50000, 5},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestProgressForXP(t *testing.T) {
	lp := ProgressForXP(175)
	if lp.Level != 2 {
		t.Errorf("Level = %d, want 2", lp.Level)
	}
	if lp.NextLevelXP != 250 {
		t.Errorf("NextLevelXP = %d, want 250", lp.NextLevelXP)
	}
	if lp.Remaining != 75 {
		t.Errorf("Remaining = %d, want 75", lp.Remaining)
	}
	if lp.Percent != 50 {
		t.Errorf("Percent = %v, want 50", lp.Percent)
	}

	top := ProgressForXP(2000)
	if top.Level != MaxLevel || top.Percent != 100 || top.Remaining != 0 {
		t.Errorf("max level progress = %+v", top)
	}
}

func TestUser_UpdateStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		lastActive time.Time
		streak     int
		want       int
	}{
		{"first activity", time.Time{}, 0, 1},
		{"same day", now.Add(-2 * time.Hour), 4, 4},
		{"same day first", now.Add(-2 * time.Hour), 0, 1},
		{"yesterday", now.AddDate(0, 0, -1), 4, 5},
		{"late yesterday", time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), 2, 3},
		{"two days ago", now.AddDate(0, 0, -2), 9, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{StreakCount: tt.streak, LastActiveDate: tt.lastActive}
			u.UpdateStreak(now)
			if u.StreakCount != tt.want {
				t.Errorf("StreakCount = %d, want %d", u.StreakCount, tt.want)
			}
			if !u.LastActiveDate.Equal(now) {
				t.Errorf("LastActiveDate = %v, want %v", u.LastActiveDate, now)
			}
		})
	}
}

func TestUser_GrantReward(t *testing.T) {
	u := &User{Level: 1, XP: 90, Points: 5}
	u.GrantReward(20, 10)
	if u.XP != 110 || u.Points != 15 {
		t.Errorf("XP/Points = %d/%d, want 110/15", u.XP, u.Points)
	}
	if u.Level != 2 {
		t.Errorf("Level = %d, want 2", u.Level)
	}

	// Levels set above the XP table are kept.
	u = &User{Level: 4, XP: 0}
	u.GrantReward(10, 0)
	if u.Level != 4 {
		t.Errorf("Level = %d, want 4", u.Level)
	}
}
