package database

import (
	"context"

	"github.com/codedaily/codedaily/internal/models"
)

// DB defines the data access contract. Implemented by SQLite and PostgreSQL
// backends. Lookup methods return a nil record (not an error) when the id is
// absent; update/delete methods report absence through their bool result.
type DB interface {
	Close() error
	Migrate(ctx context.Context) error

	// Commits. SaveCommits flattens events into rows unique on
	// (date, repo, sha) and reports how many rows were actually inserted,
	// so re-ingesting overlapping event windows is idempotent.
	SaveCommits(ctx context.Context, events []models.CommitEvent) (int, error)
	GetCommitEvents(ctx context.Context) ([]models.CommitEvent, error)
	GetCommitEventsSince(ctx context.Context, sinceDate string) ([]models.CommitEvent, error)
	GetCommitDates(ctx context.Context) ([]string, error)
	ClearCommits(ctx context.Context) error

	// Quests
	CreateQuest(ctx context.Context, q *models.Quest) error
	GetQuest(ctx context.Context, id int64) (*models.Quest, error)
	GetQuests(ctx context.Context, status models.QuestStatus, limit int) ([]models.Quest, error)
	UpdateQuestStatus(ctx context.Context, id int64, status models.QuestStatus) (bool, error)
	QuestExistsBySourceRef(ctx context.Context, source models.QuestSource, sourceRef string) (bool, error)
	DeleteQuest(ctx context.Context, id int64) (bool, error)
	UpdateQuestAIFields(ctx context.Context, id int64, description string, difficulty int, reasoning string) (bool, error)
	GetQuestsWithoutAI(ctx context.Context, limit int) ([]models.Quest, error)

	// Ideas
	CreateIdea(ctx context.Context, idea *models.Idea) error
	GetIdea(ctx context.Context, id int64) (*models.Idea, error)
	GetIdeas(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error)
	UpdateIdeaStatus(ctx context.Context, id int64, status models.IdeaStatus) (bool, error)
	DeleteIdea(ctx context.Context, id int64) (bool, error)

	// Achievements. UnlockAchievement is insert-if-absent.
	GetUnlockedAchievements(ctx context.Context) ([]models.UnlockedAchievement, error)
	UnlockAchievement(ctx context.Context, rec *models.UnlockedAchievement) error

	// Settings
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Cache. GetCache misses once the entry has expired.
	GetCache(ctx context.Context, key string) (string, bool, error)
	SetCache(ctx context.Context, key, value string, ttlHours int) error

	// Sync runs
	RecordSyncRun(ctx context.Context, run *models.SyncRun) error
	GetLastSyncRun(ctx context.Context, source string) (*models.SyncRun, error)
}
