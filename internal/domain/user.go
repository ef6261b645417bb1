package domain

import "time"

// User is the gamification snapshot of a learner
type User struct {
	ID             int64     `json:"ID"`
	Username       string    `json:"username"`
	Level          int       `json:"level"`
	XP             int       `json:"xp"`
	Points         int       `json:"points"`
	StreakCount    int       `json:"streakCount"`
	LastActiveDate time.Time `json:"lastActiveDate"`
}

// LevelThresholds maps each level to the total XP required to reach it
var LevelThresholds = map[int]int{
	1: 0,
	2: 100,
	3: 250,
	4: 500,
	5: 1000,
}

// MaxLevel is the highest level reachable through XP
const MaxLevel = 5

// LevelForXP returns the highest level whose threshold xp meets
func LevelForXP(xp int) int {
	level := 1
	for l := 1; l <= MaxLevel; l++ {
		if xp >= LevelThresholds[l] {
			level = l
		}
	}
	return level
}

// LevelProgress describes where a user sits within their current level
type LevelProgress struct {
	Level       int     `json:"level"`
	XP          int     `json:"xp"`
	NextLevelXP int     `json:"next_level_xp"`
	Remaining   int     `json:"remaining"`
	Percent     float64 `json:"percent"`
}

// ProgressForXP computes the level progress for a total XP amount.
// At MaxLevel the percentage is pinned to 100.
func ProgressForXP(xp int) LevelProgress {
	level := LevelForXP(xp)
	lp := LevelProgress{Level: level, XP: xp}
	if level >= MaxLevel {
		lp.NextLevelXP = LevelThresholds[MaxLevel]
		lp.Percent = 100
		return lp
	}
	floor := LevelThresholds[level]
	next := LevelThresholds[level+1]
	lp.NextLevelXP = next
	lp.Remaining = next - xp
	lp.Percent = float64(xp-floor) / float64(next-floor) * 100
	return lp
}

// UpdateStreak advances the daily streak for activity at now.
// Activity on the same day leaves the streak unchanged, activity on the
// following day extends it and any longer gap restarts it at 1.
func (u *User) UpdateStreak(now time.Time) {
	today := truncateDay(now)
	last := truncateDay(u.LastActiveDate)

	switch {
	case u.LastActiveDate.IsZero():
		u.StreakCount = 1
	case last.Equal(today):
		if u.StreakCount == 0 {
			u.StreakCount = 1
		}
	case last.AddDate(0, 0, 1).Equal(today):
		u.StreakCount++
	default:
		u.StreakCount = 1
	}
	u.LastActiveDate = now
}

// GrantReward adds XP and points and recomputes the level.
// Levels never go down.
func (u *User) GrantReward(xp, points int) {
	u.XP += xp
	u.Points += points
	if l := LevelForXP(u.XP); l > u.Level {
		u.Level = l
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
