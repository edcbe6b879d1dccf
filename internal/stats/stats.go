// Package stats computes commit-count buckets relative to a reference date.
package stats

import (
	"time"

	"github.com/codedaily/codedaily/internal/models"
)

const dateLayout = "2006-01-02"

// Stats holds the six commit counters. A single event contributes its
// CommitCount to every bucket its date falls into.
type Stats struct {
	CommitsToday      int `json:"commits_today"`
	CommitsThisWeek   int `json:"commits_this_week"`
	CommitsThisMonth  int `json:"commits_this_month"`
	CommitsLast7Days  int `json:"commits_last_7_days"`
	CommitsLast30Days int `json:"commits_last_30_days"`
	TotalCommits      int `json:"total_commits"`
}

// Calculate computes commit statistics. Events with missing, "unknown", or
// unparseable dates are skipped entirely, including from the total. today
// overrides the reference date ("YYYY-MM-DD"); empty means current UTC date.
func Calculate(events []models.CommitEvent, today string) Stats {
	var todayDate time.Time
	if today == "" {
		now := time.Now().UTC()
		todayDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse(dateLayout, today)
		if err != nil {
			return Stats{}
		}
		todayDate = parsed
	}

	todayStr := todayDate.Format(dateLayout)

	// Week runs Monday through Sunday.
	weekStart := todayDate.AddDate(0, 0, -mondayOffset(todayDate))
	weekEnd := weekStart.AddDate(0, 0, 6)

	monthStart := time.Date(todayDate.Year(), todayDate.Month(), 1, 0, 0, 0, 0, time.UTC)

	sevenDaysAgo := todayDate.AddDate(0, 0, -6)
	thirtyDaysAgo := todayDate.AddDate(0, 0, -29)

	var s Stats
	for _, ev := range events {
		if ev.Date == "" || ev.Date == "unknown" {
			continue
		}
		eventDate, err := time.Parse(dateLayout, ev.Date)
		if err != nil {
			continue
		}

		count := ev.CommitCount
		s.TotalCommits += count

		if ev.Date == todayStr {
			s.CommitsToday += count
		}
		if !eventDate.Before(weekStart) && !eventDate.After(weekEnd) {
			s.CommitsThisWeek += count
		}
		// The same-month check is kept alongside the month-start bound to
		// match the documented behavior exactly.
		if !eventDate.Before(monthStart) && eventDate.Month() == todayDate.Month() {
			s.CommitsThisMonth += count
		}
		if !eventDate.Before(sevenDaysAgo) && !eventDate.After(todayDate) {
			s.CommitsLast7Days += count
		}
		if !eventDate.Before(thirtyDaysAgo) && !eventDate.After(todayDate) {
			s.CommitsLast30Days += count
		}
	}
	return s
}

// mondayOffset returns the number of days since the most recent Monday.
func mondayOffset(d time.Time) int {
	wd := int(d.Weekday()) // Sunday == 0
	if wd == 0 {
		return 6
	}
	return wd - 1
}
