package models

import (
	"fmt"
	"time"
)

// QuestSource identifies where a quest was ingested from.
type QuestSource string

const (
	SourceManual      QuestSource = "manual"
	SourceIdeasMD     QuestSource = "ideas_md"
	SourceGitHubIssue QuestSource = "github_issue"
	SourceTodoScan    QuestSource = "todo_scan"
)

func ParseQuestSource(s string) (QuestSource, error) {
	switch QuestSource(s) {
	case SourceManual, SourceIdeasMD, SourceGitHubIssue, SourceTodoScan:
		return QuestSource(s), nil
	}
	return "", fmt.Errorf("invalid quest source: %q", s)
}

// QuestStatus is the quest lifecycle state.
type QuestStatus string

const (
	QuestPending   QuestStatus = "pending"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestSkipped   QuestStatus = "skipped"
	QuestArchived  QuestStatus = "archived"
)

func ParseQuestStatus(s string) (QuestStatus, error) {
	switch QuestStatus(s) {
	case QuestPending, QuestActive, QuestCompleted, QuestSkipped, QuestArchived:
		return QuestStatus(s), nil
	}
	return "", fmt.Errorf("invalid quest status: %q", s)
}

// IdeaStatus is the idea lifecycle state.
type IdeaStatus string

const (
	IdeaActive    IdeaStatus = "active"
	IdeaPromoted  IdeaStatus = "promoted"
	IdeaCompleted IdeaStatus = "completed"
	IdeaArchived  IdeaStatus = "archived"
)

func ParseIdeaStatus(s string) (IdeaStatus, error) {
	switch IdeaStatus(s) {
	case IdeaActive, IdeaPromoted, IdeaCompleted, IdeaArchived:
		return IdeaStatus(s), nil
	}
	return "", fmt.Errorf("invalid idea status: %q", s)
}

// AchievementCategory distinguishes streak-based from commit-count achievements.
type AchievementCategory string

const (
	CategoryStreak  AchievementCategory = "streak"
	CategoryCommits AchievementCategory = "commits"
)

// Commit is a single pushed commit: short sha plus the first line of the message.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// CommitEvent is one push worth of activity. CommitCount is explicit and may
// exceed len(Commits) because the events API truncates long commit lists.
// Date is "YYYY-MM-DD" or the sentinel "unknown" when the event carried no
// timestamp. Never persisted as-is; only its flattened commit rows are stored.
type CommitEvent struct {
	Date        string   `json:"date"`
	Repo        string   `json:"repo"`
	Commits     []Commit `json:"commits"`
	CommitCount int      `json:"commit_count"`
}

// Quest is a trackable unit of work. Source and SourceRef are immutable after
// creation; only status, enrichment fields and UpdatedAt mutate.
type Quest struct {
	ID                 int64       `json:"id"`
	Source             QuestSource `json:"source"`
	SourceRef          string      `json:"source_ref,omitempty"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	Status             QuestStatus `json:"status"`
	AIDescription      string      `json:"ai_description,omitempty"`
	AIDifficulty       int         `json:"ai_difficulty,omitempty"`
	AIDifficultyReason string      `json:"ai_difficulty_reasoning,omitempty"`
	EnhancedAt         *time.Time  `json:"enhanced_at,omitempty"`
	PriorityScore      int         `json:"priority_score,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Idea is a lightweight backlog note that can be promoted into a quest.
type Idea struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Status    IdeaStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UnlockedAchievement records a permanent unlock: at most one row per
// achievement id, carrying the metric value at unlock time.
type UnlockedAchievement struct {
	ID            string    `json:"id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
	UnlockedValue int       `json:"unlocked_value"`
}

// SyncRun is an audit record of one ingestion pass against a source.
type SyncRun struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Added   int       `json:"added"`
	Skipped int       `json:"skipped"`
	RanAt   time.Time `json:"ran_at"`
}

// TodoComment is one TODO/FIXME/HACK/XXX comment surfaced by the scanner.
type TodoComment struct {
	FilePath    string `json:"file_path"`
	LineNumber  int    `json:"line_number"`
	CommentType string `json:"comment_type"`
	Content     string `json:"content"`
}

// SourceRef returns the file:line reference key used for quest deduplication.
func (t TodoComment) SourceRef() string {
	return fmt.Sprintf("%s:%d", t.FilePath, t.LineNumber)
}

// EnhancementResult is the output of the AI enhancement provider.
type EnhancementResult struct {
	Description         string `json:"description"`
	Difficulty          int    `json:"difficulty"`
	DifficultyReasoning string `json:"difficulty_reasoning"`
}
