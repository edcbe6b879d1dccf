// Package quest manages the quest lifecycle: creation, acceptance,
// completion, skipping with save-as-idea, priority ranking, and deduplicated
// ingestion from TODO scans, GitHub issues, and external issue discovery.
package quest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/models"
)

const (
	// varietyWindow bounds how many top remaining candidates are re-scored
	// with the variety bonus at each ranking step. A tunable heuristic.
	varietyWindow = 5
	varietyBonus  = 3

	// maxAgeBonus caps how much quest age can contribute to priority.
	maxAgeBonus = 10

	// titleMaxLen bounds ingested titles and descriptions.
	titleMaxLen = 200
)

type Engine struct {
	db  database.DB
	now func() time.Time
}

func NewEngine(db database.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

// WithClock overrides the engine clock. For tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// PriorityScore computes a quest's priority (higher surfaces sooner).
// previousSource enables the variety bonus when ranking a list.
func (e *Engine) PriorityScore(q *models.Quest, previousSource models.QuestSource) int {
	score := 0

	// Older quests get boosted, capped so ancient backlog doesn't dominate.
	if !q.CreatedAt.IsZero() {
		ageDays := int(e.now().Sub(q.CreatedAt).Hours() / 24)
		if ageDays > maxAgeBonus {
			ageDays = maxAgeBonus
		}
		if ageDays > 0 {
			score += ageDays
		}
	}

	// External commitments rank higher than self-authored items.
	switch q.Source {
	case models.SourceGitHubIssue:
		score += 3
	case models.SourceTodoScan:
		score += 2
	case models.SourceIdeasMD:
		score += 1
	}

	if q.Description != "" {
		score += 2
	}
	if q.AIDescription != "" {
		score += 1
	}
	// Difficulty 2-3 is the quick-win sweet spot.
	if q.AIDifficulty == 2 || q.AIDifficulty == 3 {
		score += 1
	}
	if previousSource != "" && q.Source != previousSource {
		score += varietyBonus
	}

	return score
}

// GetPrioritizedQuests returns up to limit quests of the given status, sorted
// by priority with source interleaving. Each returned quest carries its final
// variety-adjusted score.
func (e *Engine) GetPrioritizedQuests(ctx context.Context, status models.QuestStatus, limit int) ([]models.Quest, error) {
	quests, err := e.db.GetQuests(ctx, status, 0)
	if err != nil {
		return nil, err
	}
	if len(quests) == 0 {
		return []models.Quest{}, nil
	}

	for i := range quests {
		quests[i].PriorityScore = e.PriorityScore(&quests[i], "")
	}
	sort.SliceStable(quests, func(i, j int) bool {
		return quests[i].PriorityScore > quests[j].PriorityScore
	})

	// Greedy selection: at each step re-score the top remaining candidates
	// with the variety bonus and take the best, so the list interleaves
	// sources instead of running all of one type.
	result := make([]models.Quest, 0, limit)
	remaining := quests
	var prevSource models.QuestSource

	for len(remaining) > 0 && len(result) < limit {
		bestIdx := 0
		bestScore := remaining[0].PriorityScore

		if prevSource != "" {
			window := varietyWindow
			if len(remaining) < window {
				window = len(remaining)
			}
			for i := 0; i < window; i++ {
				adjusted := remaining[i].PriorityScore
				if remaining[i].Source != prevSource {
					adjusted += varietyBonus
				}
				if adjusted > bestScore {
					bestScore = adjusted
					bestIdx = i
				}
			}
		}

		selected := remaining[bestIdx]
		selected.PriorityScore = bestScore
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		result = append(result, selected)
		prevSource = selected.Source
	}

	return result, nil
}

// GetPendingQuests returns pending quests, newest first.
func (e *Engine) GetPendingQuests(ctx context.Context, limit int) ([]models.Quest, error) {
	return e.db.GetQuests(ctx, models.QuestPending, limit)
}

// GetActiveQuests returns currently active quests.
func (e *Engine) GetActiveQuests(ctx context.Context) ([]models.Quest, error) {
	return e.db.GetQuests(ctx, models.QuestActive, 0)
}

// AddManualQuest creates a pending quest with source "manual".
func (e *Engine) AddManualQuest(ctx context.Context, title, description string) (*models.Quest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	q := &models.Quest{
		Source:      models.SourceManual,
		Title:       title,
		Description: description,
	}
	if err := e.db.CreateQuest(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// AcceptQuest marks a quest active. Returns nil when the id is absent.
func (e *Engine) AcceptQuest(ctx context.Context, id int64) (*models.Quest, error) {
	return e.transition(ctx, id, models.QuestActive)
}

// CompleteQuest marks a quest completed. Returns nil when the id is absent.
func (e *Engine) CompleteQuest(ctx context.Context, id int64) (*models.Quest, error) {
	return e.transition(ctx, id, models.QuestCompleted)
}

func (e *Engine) transition(ctx context.Context, id int64, status models.QuestStatus) (*models.Quest, error) {
	ok, err := e.db.UpdateQuestStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.db.GetQuest(ctx, id)
}

// SkipResult is the structured outcome of SkipQuest. An absent quest id is a
// failed result, not an error.
type SkipResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Quest   *models.Quest `json:"quest,omitempty"`
	Idea    *models.Idea  `json:"idea,omitempty"`
}

// SkipQuest moves a quest to a terminal status: action "archive" maps to
// archived, anything else to skipped. With saveAsIdea the quest title (plus
// " - description" when present) becomes a new idea.
func (e *Engine) SkipQuest(ctx context.Context, id int64, action string, saveAsIdea bool) (SkipResult, error) {
	quest, err := e.db.GetQuest(ctx, id)
	if err != nil {
		return SkipResult{}, err
	}
	if quest == nil {
		return SkipResult{Success: false, Error: "quest not found"}, nil
	}

	status := models.QuestSkipped
	if action == "archive" {
		status = models.QuestArchived
	}
	if _, err := e.db.UpdateQuestStatus(ctx, id, status); err != nil {
		return SkipResult{}, err
	}

	updated, err := e.db.GetQuest(ctx, id)
	if err != nil {
		return SkipResult{}, err
	}
	result := SkipResult{Success: true, Quest: updated}

	if saveAsIdea {
		content := quest.Title
		if quest.Description != "" {
			content += " - " + quest.Description
		}
		idea := &models.Idea{Content: content}
		if err := e.db.CreateIdea(ctx, idea); err != nil {
			return SkipResult{}, err
		}
		result.Idea = idea
	}

	return result, nil
}

// PromoteIdeaToQuest creates a quest from an idea and flips the idea to
// promoted. Returns nil when the idea is absent.
func (e *Engine) PromoteIdeaToQuest(ctx context.Context, ideaID int64) (*models.Quest, error) {
	idea, err := e.db.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea == nil {
		return nil, nil
	}

	q := &models.Quest{
		Source:    models.SourceIdeasMD,
		SourceRef: fmt.Sprintf("idea:%d", ideaID),
		Title:     idea.Content,
	}
	if err := e.db.CreateQuest(ctx, q); err != nil {
		return nil, err
	}
	if _, err := e.db.UpdateIdeaStatus(ctx, ideaID, models.IdeaPromoted); err != nil {
		return nil, err
	}
	return q, nil
}

// SyncResult reports one ingestion pass.
type SyncResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// SyncGitHubIssues creates quests from GitHub issues that haven't been synced
// before. Pull requests are filtered out (they arrive via the issues API but
// carry a pull_request marker). Idempotent: dedup key is the issue URL.
func (e *Engine) SyncGitHubIssues(ctx context.Context, issues []models.Issue) (SyncResult, error) {
	var res SyncResult

	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		issueURL := issue.HTMLURL
		if issueURL == "" {
			continue
		}

		exists, err := e.db.QuestExistsBySourceRef(ctx, models.SourceGitHubIssue, issueURL)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}

		title := issue.Title
		if title == "" {
			title = "Untitled issue"
		}
		if repo := repoFromIssueURL(issueURL); repo != "" {
			title = fmt.Sprintf("[%s] %s", repo, title)
		}

		q := &models.Quest{
			Source:      models.SourceGitHubIssue,
			SourceRef:   issueURL,
			Title:       title,
			Description: truncate(issue.Body, titleMaxLen),
		}
		if err := e.db.CreateQuest(ctx, q); err != nil {
			return res, err
		}
		res.Added++
	}

	return res, nil
}

// SyncExternalIssues ingests externally-discovered good-first-issue
// candidates. Same shape and dedup key as SyncGitHubIssues; the caller is
// responsible for caching discovery results before invoking this.
func (e *Engine) SyncExternalIssues(ctx context.Context, issues []models.Issue) (SyncResult, error) {
	return e.SyncGitHubIssues(ctx, issues)
}

// SyncTodoComments creates quests from scanned TODO comments. Dedup is
// reference-based (file:line), not content-based, so editing a TODO in place
// does not create a second quest.
func (e *Engine) SyncTodoComments(ctx context.Context, todos []models.TodoComment) (SyncResult, error) {
	var res SyncResult

	for _, todo := range todos {
		sourceRef := todo.SourceRef()

		exists, err := e.db.QuestExistsBySourceRef(ctx, models.SourceTodoScan, sourceRef)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}

		title := truncate(fmt.Sprintf("[%s] %s", todo.CommentType, todo.Content), titleMaxLen)
		q := &models.Quest{
			Source:    models.SourceTodoScan,
			SourceRef: sourceRef,
			Title:     title,
		}
		if err := e.db.CreateQuest(ctx, q); err != nil {
			return res, err
		}
		res.Added++
	}

	return res, nil
}

// Summary counts quests per lifecycle status.
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Archived  int `json:"archived"`
}

// GetQuestSummary scans all quests and tallies counts per status.
func (e *Engine) GetQuestSummary(ctx context.Context) (Summary, error) {
	quests, err := e.db.GetQuests(ctx, "", 0)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Total: len(quests)}
	for _, q := range quests {
		switch q.Status {
		case models.QuestPending:
			s.Pending++
		case models.QuestActive:
			s.Active++
		case models.QuestCompleted:
			s.Completed++
		case models.QuestSkipped:
			s.Skipped++
		case models.QuestArchived:
			s.Archived++
		}
	}
	return s, nil
}

// repoFromIssueURL extracts "owner/repo" from an issue URL like
// https://github.com/owner/repo/issues/123.
func repoFromIssueURL(issueURL string) string {
	_, rest, ok := strings.Cut(issueURL, "github.com/")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return parts[0] + "/" + parts[1]
}

// truncate shortens s to max runes, with a trailing ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
