package achievements

import (
	"testing"
	"time"

	"github.com/codedaily/codedaily/internal/models"
)

func TestCheckFreshStart(t *testing.T) {
	newly := Check(0, 0, 0, map[string]struct{}{})
	if len(newly) != 0 {
		t.Fatalf("Check(0,0,0) = %d unlocks, want 0", len(newly))
	}
}

func TestCheckFirstCommit(t *testing.T) {
	newly := Check(1, 1, 1, map[string]struct{}{})

	ids := make(map[string]bool, len(newly))
	for _, a := range newly {
		ids[a.ID] = true
	}
	if !ids["first_commit"] {
		t.Fatal("first_commit not unlocked at 1 total commit")
	}
	if ids["streak_3"] || ids["commits_10"] {
		t.Fatalf("unexpected unlocks: %v", ids)
	}
}

func TestCheckStreakUsesLongest(t *testing.T) {
	// Current streak broke, but the longest run crossed the threshold once:
	// the unlock must still fire (and remain permanent afterwards).
	newly := Check(0, 7, 12, map[string]struct{}{})

	ids := make(map[string]bool, len(newly))
	for _, a := range newly {
		ids[a.ID] = true
	}
	if !ids["streak_3"] || !ids["streak_7"] {
		t.Fatalf("streak unlocks = %v, want streak_3 and streak_7", ids)
	}
}

func TestCheckSkipsAlreadyUnlocked(t *testing.T) {
	unlocked := map[string]struct{}{
		"first_commit": {},
		"streak_3":     {},
	}
	newly := Check(3, 3, 5, unlocked)

	for _, a := range newly {
		if a.ID == "first_commit" || a.ID == "streak_3" {
			t.Fatalf("re-reported already-unlocked achievement %s", a.ID)
		}
	}
}

func TestCheckDefinitionOrder(t *testing.T) {
	newly := Check(100, 100, 500, map[string]struct{}{})

	if len(newly) != len(All) {
		t.Fatalf("unlocks = %d, want all %d", len(newly), len(All))
	}
	for i, a := range newly {
		if a.ID != All[i].ID {
			t.Fatalf("unlock[%d] = %s, want %s (definition order)", i, a.ID, All[i].ID)
		}
	}
}

func TestValue(t *testing.T) {
	var streakAch, commitsAch Achievement
	for _, a := range All {
		if a.ID == "streak_7" {
			streakAch = a
		}
		if a.ID == "commits_10" {
			commitsAch = a
		}
	}

	if got := streakAch.Value(9, 42); got != 9 {
		t.Fatalf("streak Value = %d, want 9", got)
	}
	if got := commitsAch.Value(9, 42); got != 42 {
		t.Fatalf("commits Value = %d, want 42", got)
	}
}

func TestStatusView(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	unlocked := []models.UnlockedAchievement{
		{ID: "first_commit", UnlockedAt: at, UnlockedValue: 1},
	}

	view := StatusView(unlocked)

	if len(view) != len(All) {
		t.Fatalf("len(view) = %d, want %d", len(view), len(All))
	}
	for _, st := range view {
		if st.ID == "first_commit" {
			if !st.Unlocked || st.UnlockedAt == nil || !st.UnlockedAt.Equal(at) {
				t.Fatalf("first_commit status = %+v, want unlocked at %v", st, at)
			}
			if st.UnlockedValue == nil || *st.UnlockedValue != 1 {
				t.Fatalf("first_commit UnlockedValue = %v, want 1", st.UnlockedValue)
			}
		} else if st.Unlocked {
			t.Fatalf("%s unexpectedly unlocked", st.ID)
		}
	}
}
