// Package streak computes coding streaks from commit events.
//
// A streak is a run of consecutive calendar days each containing at least one
// commit. The current streak has a one-day grace period: it survives through
// the day after the last commit before resetting to zero.
package streak

import (
	"sort"
	"time"

	"github.com/codedaily/codedaily/internal/models"
)

const dateLayout = "2006-01-02"

// Info is the result of a streak calculation.
type Info struct {
	CurrentStreak  int      `json:"current_streak"`
	LongestStreak  int      `json:"longest_streak"`
	StreakActive   bool     `json:"streak_active"`
	LastCommitDate string   `json:"last_commit_date,omitempty"`
	CommitDates    []string `json:"commit_dates"`
}

// Calculate computes streak statistics from commit events. today overrides
// the reference date for determinism ("YYYY-MM-DD"); empty means the current
// UTC date.
func Calculate(events []models.CommitEvent, today string) Info {
	if today == "" {
		today = time.Now().UTC().Format(dateLayout)
	}

	seen := make(map[string]struct{}, len(events))
	dates := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Date == "" || ev.Date == "unknown" {
			continue
		}
		if _, ok := seen[ev.Date]; ok {
			continue
		}
		seen[ev.Date] = struct{}{}
		dates = append(dates, ev.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	if len(dates) == 0 {
		return Info{CommitDates: []string{}}
	}

	current := currentStreak(dates, today)
	longest := longestStreak(dates)
	if current > longest {
		longest = current
	}

	return Info{
		CurrentStreak:  current,
		LongestStreak:  longest,
		StreakActive:   dates[0] == today,
		LastCommitDate: dates[0],
		CommitDates:    dates,
	}
}

// currentStreak counts consecutive days backwards from the most recent
// commit date. The streak is valid only if that date is today or yesterday.
func currentStreak(dates []string, today string) int {
	todayDate, err := time.Parse(dateLayout, today)
	if err != nil {
		return 0
	}
	mostRecent, err := time.Parse(dateLayout, dates[0])
	if err != nil {
		return 0
	}

	yesterday := todayDate.AddDate(0, 0, -1)
	if !mostRecent.Equal(todayDate) && !mostRecent.Equal(yesterday) {
		return 0
	}

	streak := 1
	cursor := mostRecent
	for _, d := range dates[1:] {
		commitDate, err := time.Parse(dateLayout, d)
		if err != nil {
			break
		}
		expected := cursor.AddDate(0, 0, -1)
		if commitDate.Equal(expected) {
			streak++
			cursor = commitDate
		} else if commitDate.Before(expected) {
			break
		}
		// Equal to cursor means a duplicate slipped through dedup; skip it.
	}
	return streak
}

// longestStreak scans the descending date list pairwise for the longest run
// of consecutive calendar days.
func longestStreak(dates []string) int {
	if len(dates) == 1 {
		return 1
	}

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		newer, err := time.Parse(dateLayout, dates[i-1])
		if err != nil {
			run = 1
			continue
		}
		older, err := time.Parse(dateLayout, dates[i])
		if err != nil {
			run = 1
			continue
		}
		if newer.Sub(older) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}
