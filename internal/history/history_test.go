package history

import (
	"testing"

	"github.com/codedaily/codedaily/internal/models"
)

func event(date string, count int) models.CommitEvent {
	return models.CommitEvent{Date: date, Repo: "user/repo", CommitCount: count}
}

func TestCalculateWindow(t *testing.T) {
	h := Calculate(nil, 7, "2026-08-28")

	if len(h.Days) != 7 {
		t.Fatalf("len(Days) = %d, want 7", len(h.Days))
	}
	if h.Period.Start != "2026-08-22" || h.Period.End != "2026-08-28" {
		t.Fatalf("Period = %+v, want 2026-08-22..2026-08-28", h.Period)
	}
	if h.Period.TotalDays != 7 {
		t.Fatalf("TotalDays = %d, want 7", h.Period.TotalDays)
	}
	if h.Days[0].Date != "2026-08-22" || h.Days[6].Date != "2026-08-28" {
		t.Fatalf("Days span %s..%s, want ascending window", h.Days[0].Date, h.Days[6].Date)
	}
}

func TestCalculateDefaultDays(t *testing.T) {
	h := Calculate(nil, 0, "2026-08-28")

	if len(h.Days) != DefaultDays {
		t.Fatalf("len(Days) = %d, want %d", len(h.Days), DefaultDays)
	}
}

func TestCalculateAggregatesPerDate(t *testing.T) {
	events := []models.CommitEvent{
		event("2026-08-28", 2),
		event("2026-08-28", 3), // second repo, same day
		event("2026-08-27", 1),
	}

	h := Calculate(events, 7, "2026-08-28")

	last := h.Days[len(h.Days)-1]
	if last.Count != 5 {
		t.Fatalf("today Count = %d, want 5", last.Count)
	}
	if h.MaxCount != 5 {
		t.Fatalf("MaxCount = %d, want 5", h.MaxCount)
	}
}

func TestCalculateExcludesOutOfWindow(t *testing.T) {
	events := []models.CommitEvent{
		event("2026-08-01", 9), // before the window
		event("2026-08-28", 1),
	}

	h := Calculate(events, 7, "2026-08-28")

	if h.MaxCount != 1 {
		t.Fatalf("MaxCount = %d, want 1 (out-of-window counts must not leak)", h.MaxCount)
	}
}

func TestLevels(t *testing.T) {
	cases := []struct {
		count, want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
		{6, 4},
		{25, 4},
	}
	for _, tc := range cases {
		if got := level(tc.count); got != tc.want {
			t.Fatalf("level(%d) = %d, want %d", tc.count, got, tc.want)
		}
	}
}

func TestCalculateLevelsOnDays(t *testing.T) {
	events := []models.CommitEvent{
		event("2026-08-28", 6),
		event("2026-08-27", 4),
		event("2026-08-26", 2),
		event("2026-08-25", 1),
	}

	h := Calculate(events, 5, "2026-08-28")

	wantLevels := []int{0, 1, 2, 3, 4}
	for i, want := range wantLevels {
		if h.Days[i].Level != want {
			t.Fatalf("Days[%d].Level = %d, want %d", i, h.Days[i].Level, want)
		}
	}
}
