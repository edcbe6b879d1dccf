// Package history builds the fixed-length daily time series behind the
// contribution heatmap.
package history

import (
	"time"

	"github.com/codedaily/codedaily/internal/models"
)

const dateLayout = "2006-01-02"

// DefaultDays is the default heatmap window: 12 weeks.
const DefaultDays = 84

// Day is one cell of the heatmap grid.
type Day struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// Period describes the window the series covers.
type Period struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	TotalDays int    `json:"total_days"`
}

// History is an oldest-to-newest series of exactly Period.TotalDays entries
// ending at the reference date. MaxCount is the in-window daily maximum.
type History struct {
	Days     []Day  `json:"days"`
	Period   Period `json:"period"`
	MaxCount int    `json:"max_count"`
}

// Calculate aggregates commit counts per date and lays them onto a window of
// `days` consecutive dates ending at today (inclusive). days <= 0 falls back
// to DefaultDays; empty today means the current UTC date.
func Calculate(events []models.CommitEvent, days int, today string) History {
	if days <= 0 {
		days = DefaultDays
	}

	var todayDate time.Time
	if today == "" {
		now := time.Now().UTC()
		todayDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse(dateLayout, today)
		if err != nil {
			now := time.Now().UTC()
			parsed = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		}
		todayDate = parsed
	}

	commitsByDate := make(map[string]int)
	for _, ev := range events {
		if ev.Date == "" {
			continue
		}
		commitsByDate[ev.Date] += ev.CommitCount
	}

	start := todayDate.AddDate(0, 0, -(days - 1))

	dayList := make([]Day, 0, days)
	maxCount := 0
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		count := commitsByDate[date]
		if count > maxCount {
			maxCount = count
		}
		dayList = append(dayList, Day{Date: date, Count: count, Level: level(count)})
	}

	return History{
		Days: dayList,
		Period: Period{
			Start:     start.Format(dateLayout),
			End:       todayDate.Format(dateLayout),
			TotalDays: days,
		},
		MaxCount: maxCount,
	}
}

// level buckets a day's commit count into a 0-4 heatmap intensity.
func level(count int) int {
	switch {
	case count == 0:
		return 0
	case count == 1:
		return 1
	case count <= 3:
		return 2
	case count <= 5:
		return 3
	default:
		return 4
	}
}
