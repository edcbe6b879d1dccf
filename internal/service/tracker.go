// Package service orchestrates the engines: refreshing activity from GitHub,
// assembling the dashboard read model, and running quest ingestion passes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/codedaily/codedaily/internal/achievements"
	"github.com/codedaily/codedaily/internal/activity"
	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/history"
	"github.com/codedaily/codedaily/internal/models"
	"github.com/codedaily/codedaily/internal/quest"
	"github.com/codedaily/codedaily/internal/stats"
	"github.com/codedaily/codedaily/internal/streak"
)

const dateLayout = "2006-01-02"

// Sync-run source labels.
const (
	runSourceEvents   = "github_events"
	runSourceIssues   = "github_issues"
	runSourceTodos    = "todo_scan"
	runSourceIdeas    = "ideas_md"
	runSourceDiscover = "discover"
)

// goalSettingKey stores the daily commit goal; defaults to 1.
const goalSettingKey = "daily_goal"

// EventSource is the slice of the GitHub client the tracker consumes.
type EventSource interface {
	ListUserEvents(ctx context.Context) ([]activity.RawEvent, error)
	Username() string
}

// Tracker drives the activity refresh cycle and the dashboard read model.
type Tracker struct {
	db     database.DB
	source EventSource
	quests *quest.Engine
	logger *slog.Logger
	now    func() time.Time
}

func NewTracker(db database.DB, source EventSource, quests *quest.Engine) *Tracker {
	return &Tracker{
		db:     db,
		source: source,
		quests: quests,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source. For tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// RefreshResult reports one refresh pass.
type RefreshResult struct {
	EventsFetched   int                        `json:"events_fetched"`
	NewCommits      int                        `json:"new_commits"`
	NewAchievements []achievements.Achievement `json:"new_achievements"`
	Streak          streak.Info                `json:"streak"`
}

// Refresh pulls the user's recent events, stores any commits not already
// known, and unlocks achievements whose thresholds the stored history now
// meets. Safe to run repeatedly: commit storage and unlocks are idempotent.
func (t *Tracker) Refresh(ctx context.Context) (RefreshResult, error) {
	raw, err := t.source.ListUserEvents(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("fetch events: %w", err)
	}
	events := activity.ParseCommitEvents(raw)

	inserted, err := t.db.SaveCommits(ctx, events)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("save commits: %w", err)
	}

	// Streak, stats and achievements evaluate over the full stored history,
	// not just this fetch window.
	stored, err := t.db.GetCommitEvents(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	today := t.now().UTC().Format(dateLayout)
	info := streak.Calculate(stored, today)
	st := stats.Calculate(stored, today)

	newly, err := t.checkAchievements(ctx, info.LongestStreak, st.TotalCommits)
	if err != nil {
		return RefreshResult{}, err
	}

	// The audit row counts flattened commit rows, matching what SaveCommits
	// inserted, so skipped stays the already-known remainder.
	fetched := 0
	for _, ev := range events {
		fetched += len(ev.Commits)
	}
	if err := t.recordRun(ctx, runSourceEvents, inserted, fetched-inserted); err != nil {
		return RefreshResult{}, err
	}

	t.logger.Info("refresh complete",
		"events", len(raw),
		"new_commits", inserted,
		"current_streak", info.CurrentStreak,
		"new_achievements", len(newly))

	return RefreshResult{
		EventsFetched:   len(raw),
		NewCommits:      inserted,
		NewAchievements: newly,
		Streak:          info,
	}, nil
}

// checkAchievements unlocks every definition whose threshold holds and is not
// yet recorded. The threshold is re-verified right before each insert; the
// insert itself is insert-if-absent, so concurrent refreshes cannot
// double-unlock.
func (t *Tracker) checkAchievements(ctx context.Context, longestStreak, totalCommits int) ([]achievements.Achievement, error) {
	unlocked, err := t.db.GetUnlockedAchievements(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(unlocked))
	for _, u := range unlocked {
		ids[u.ID] = struct{}{}
	}

	newly := achievements.Check(0, longestStreak, totalCommits, ids)
	for _, a := range newly {
		value := a.Value(longestStreak, totalCommits)
		if value < a.Threshold {
			continue
		}
		rec := models.UnlockedAchievement{
			ID:            a.ID,
			UnlockedAt:    t.now().UTC(),
			UnlockedValue: value,
		}
		if err := t.db.UnlockAchievement(ctx, &rec); err != nil {
			return nil, fmt.Errorf("unlock achievement %s: %w", a.ID, err)
		}
		t.logger.Info("achievement unlocked", "id", a.ID, "name", a.Name, "value", value)
	}
	return newly, nil
}

func (t *Tracker) recordRun(ctx context.Context, source string, added, skipped int) error {
	return t.db.RecordSyncRun(ctx, &models.SyncRun{
		ID:      uuid.NewString(),
		Source:  source,
		Added:   added,
		Skipped: skipped,
		RanAt:   t.now().UTC(),
	})
}

// Dashboard is the combined read model behind the status display.
type Dashboard struct {
	Username     string                `json:"username"`
	Streak       streak.Info           `json:"streak"`
	Stats        stats.Stats           `json:"stats"`
	History      history.History       `json:"history"`
	DailyGoal    int                   `json:"daily_goal"`
	GoalMet      bool                  `json:"goal_met"`
	Achievements []achievements.Status `json:"achievements"`
	Quests       []models.Quest        `json:"quests"`
	LastSync     map[string]time.Time  `json:"last_sync,omitempty"`
}

// BuildDashboard assembles the dashboard from stored history. An empty today
// means the current UTC date.
func (t *Tracker) BuildDashboard(ctx context.Context, today string) (*Dashboard, error) {
	if today == "" {
		today = t.now().UTC().Format(dateLayout)
	}

	stored, err := t.db.GetCommitEvents(ctx)
	if err != nil {
		return nil, err
	}

	st := stats.Calculate(stored, today)
	goal, err := t.DailyGoal(ctx)
	if err != nil {
		return nil, err
	}

	unlocked, err := t.db.GetUnlockedAchievements(ctx)
	if err != nil {
		return nil, err
	}

	quests, err := t.quests.GetPrioritizedQuests(ctx, models.QuestPending, 5)
	if err != nil {
		return nil, err
	}

	lastSync := make(map[string]time.Time)
	for _, source := range []string{runSourceEvents, runSourceIssues, runSourceTodos, runSourceDiscover} {
		run, err := t.db.GetLastSyncRun(ctx, source)
		if err != nil {
			return nil, err
		}
		if run != nil {
			lastSync[source] = run.RanAt
		}
	}

	return &Dashboard{
		Username:     t.source.Username(),
		Streak:       streak.Calculate(stored, today),
		Stats:        st,
		History:      history.Calculate(stored, history.DefaultDays, today),
		DailyGoal:    goal,
		GoalMet:      st.CommitsToday >= goal,
		Achievements: achievements.StatusView(unlocked),
		Quests:       quests,
		LastSync:     lastSync,
	}, nil
}

// DailyGoal reads the configured daily commit goal, defaulting to 1.
func (t *Tracker) DailyGoal(ctx context.Context) (int, error) {
	raw, err := t.db.GetSetting(ctx, goalSettingKey, "1")
	if err != nil {
		return 0, err
	}
	goal, err := strconv.Atoi(raw)
	if err != nil || goal < 1 {
		return 1, nil
	}
	return goal, nil
}

// SetDailyGoal stores a new daily commit goal. Must be a positive integer.
func (t *Tracker) SetDailyGoal(ctx context.Context, goal int) error {
	if goal < 1 {
		return fmt.Errorf("daily goal must be a positive integer")
	}
	return t.db.SetSetting(ctx, goalSettingKey, strconv.Itoa(goal))
}
