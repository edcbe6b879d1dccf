// Package achievements evaluates the fixed achievement rule set.
//
// Streak achievements compare against the longest streak ever reached, not
// the current one, so an unlock is permanent even after a streak breaks.
package achievements

import (
	"time"

	"github.com/codedaily/codedaily/internal/models"
)

// Achievement is a static, code-defined achievement definition.
type Achievement struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Emoji       string                     `json:"emoji"`
	Description string                     `json:"description"`
	Category    models.AchievementCategory `json:"category"`
	Threshold   int                        `json:"threshold"`
}

// All is the complete definition list: streak achievements first, then commit
// achievements, each group in ascending threshold order. Evaluation iterates
// this slice so results are deterministic.
var All = []Achievement{
	{ID: "streak_3", Name: "First Steps", Emoji: "🔥", Description: "Maintain a 3-day coding streak", Category: models.CategoryStreak, Threshold: 3},
	{ID: "streak_7", Name: "Week Warrior", Emoji: "🏆", Description: "Maintain a 7-day coding streak", Category: models.CategoryStreak, Threshold: 7},
	{ID: "streak_14", Name: "Fortnight Fighter", Emoji: "📅", Description: "Maintain a 14-day coding streak", Category: models.CategoryStreak, Threshold: 14},
	{ID: "streak_30", Name: "Monthly Master", Emoji: "⭐", Description: "Maintain a 30-day coding streak", Category: models.CategoryStreak, Threshold: 30},
	{ID: "streak_100", Name: "Century Coder", Emoji: "💯", Description: "Maintain a 100-day coding streak", Category: models.CategoryStreak, Threshold: 100},
	{ID: "first_commit", Name: "Hello World", Emoji: "👋", Description: "Make your first commit", Category: models.CategoryCommits, Threshold: 1},
	{ID: "commits_10", Name: "Getting Started", Emoji: "🌱", Description: "Make 10 total commits", Category: models.CategoryCommits, Threshold: 10},
	{ID: "commits_50", Name: "Halfway Hero", Emoji: "🚀", Description: "Make 50 total commits", Category: models.CategoryCommits, Threshold: 50},
	{ID: "commits_100", Name: "Century Club", Emoji: "💯", Description: "Make 100 total commits", Category: models.CategoryCommits, Threshold: 100},
	{ID: "commits_500", Name: "Commit Champion", Emoji: "👑", Description: "Make 500 total commits", Category: models.CategoryCommits, Threshold: 500},
}

// Check returns the definitions whose unlock condition newly holds, in
// definition order. Already-unlocked ids are never re-reported. The caller
// owns the idempotent persistence step.
func Check(currentStreak, longestStreak, totalCommits int, unlockedIDs map[string]struct{}) []Achievement {
	_ = currentStreak // streak unlocks key off the longest-streak high-water mark

	var newly []Achievement
	for _, a := range All {
		if _, ok := unlockedIDs[a.ID]; ok {
			continue
		}
		switch a.Category {
		case models.CategoryStreak:
			if longestStreak >= a.Threshold {
				newly = append(newly, a)
			}
		case models.CategoryCommits:
			if totalCommits >= a.Threshold {
				newly = append(newly, a)
			}
		}
	}
	return newly
}

// Value returns the metric an achievement unlocks against.
func (a Achievement) Value(longestStreak, totalCommits int) int {
	if a.Category == models.CategoryStreak {
		return longestStreak
	}
	return totalCommits
}

// Status annotates a definition with its unlock state.
type Status struct {
	Achievement
	Unlocked      bool       `json:"unlocked"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
	UnlockedValue *int       `json:"unlocked_value,omitempty"`
}

// StatusView merges the full definition list with unlock records. Every
// definition appears exactly once, in definition order.
func StatusView(unlocked []models.UnlockedAchievement) []Status {
	byID := make(map[string]models.UnlockedAchievement, len(unlocked))
	for _, u := range unlocked {
		byID[u.ID] = u
	}

	out := make([]Status, 0, len(All))
	for _, a := range All {
		st := Status{Achievement: a}
		if rec, ok := byID[a.ID]; ok {
			st.Unlocked = true
			at := rec.UnlockedAt
			st.UnlockedAt = &at
			val := rec.UnlockedValue
			st.UnlockedValue = &val
		}
		out = append(out, st)
	}
	return out
}
