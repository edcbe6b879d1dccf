package quest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/models"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) (*Engine, database.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewEngine(db).WithClock(func() time.Time { return testNow }), db
}

func TestPriorityScoreComponents(t *testing.T) {
	e, _ := testEngine(t)

	q := &models.Quest{
		Source:    models.SourceGitHubIssue,
		CreatedAt: testNow.AddDate(0, 0, -4),
	}
	// age 4 + source 3
	if got := e.PriorityScore(q, ""); got != 7 {
		t.Fatalf("PriorityScore = %d, want 7", got)
	}

	q.Description = "details"
	q.AIDescription = "enhanced"
	q.AIDifficulty = 3
	// + description 2 + ai description 1 + sweet-spot difficulty 1
	if got := e.PriorityScore(q, ""); got != 11 {
		t.Fatalf("PriorityScore = %d, want 11", got)
	}

	// Variety bonus applies only when the source differs from the previous.
	if got := e.PriorityScore(q, models.SourceTodoScan); got != 14 {
		t.Fatalf("PriorityScore with variety = %d, want 14", got)
	}
	if got := e.PriorityScore(q, models.SourceGitHubIssue); got != 11 {
		t.Fatalf("PriorityScore same source = %d, want 11", got)
	}
}

func TestPriorityScoreAgeCapped(t *testing.T) {
	e, _ := testEngine(t)

	q := &models.Quest{
		Source:    models.SourceManual,
		CreatedAt: testNow.AddDate(0, 0, -365),
	}
	if got := e.PriorityScore(q, ""); got != 10 {
		t.Fatalf("PriorityScore = %d, want age capped at 10", got)
	}
}

func TestPriorityScoreDifficultyOutsideSweetSpot(t *testing.T) {
	e, _ := testEngine(t)

	q := &models.Quest{Source: models.SourceManual, CreatedAt: testNow, AIDifficulty: 5}
	if got := e.PriorityScore(q, ""); got != 0 {
		t.Fatalf("PriorityScore = %d, want 0 (difficulty 5 earns no bonus)", got)
	}
}

func TestGetPrioritizedQuestsInterleavesSources(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()

	// Three issue quests and one TODO quest, all created now. Issues score
	// higher (3 vs 2), but variety should pull the TODO quest up to second.
	for _, ref := range []string{"https://github.com/o/r/issues/1", "https://github.com/o/r/issues/2", "https://github.com/o/r/issues/3"} {
		q := &models.Quest{Source: models.SourceGitHubIssue, SourceRef: ref, Title: ref}
		if err := db.CreateQuest(ctx, q); err != nil {
			t.Fatalf("CreateQuest: %v", err)
		}
	}
	todo := &models.Quest{Source: models.SourceTodoScan, SourceRef: "a.go:1", Title: "[TODO] fix"}
	if err := db.CreateQuest(ctx, todo); err != nil {
		t.Fatalf("CreateQuest: %v", err)
	}

	quests, err := e.GetPrioritizedQuests(ctx, models.QuestPending, 4)
	if err != nil {
		t.Fatalf("GetPrioritizedQuests: %v", err)
	}
	if len(quests) != 4 {
		t.Fatalf("len(quests) = %d, want 4", len(quests))
	}
	if quests[0].Source != models.SourceGitHubIssue {
		t.Fatalf("quests[0].Source = %q, want github_issue", quests[0].Source)
	}
	if quests[1].Source != models.SourceTodoScan {
		t.Fatalf("quests[1].Source = %q, want todo_scan via variety bonus", quests[1].Source)
	}
	// The selected TODO quest carries its adjusted score: 2 base + 3 variety.
	if quests[1].PriorityScore != 5 {
		t.Fatalf("quests[1].PriorityScore = %d, want 5", quests[1].PriorityScore)
	}
}

func TestGetPrioritizedQuestsEmpty(t *testing.T) {
	e, _ := testEngine(t)

	quests, err := e.GetPrioritizedQuests(context.Background(), models.QuestPending, 5)
	if err != nil {
		t.Fatalf("GetPrioritizedQuests: %v", err)
	}
	if quests == nil || len(quests) != 0 {
		t.Fatalf("quests = %v, want empty slice", quests)
	}
}

func TestAddManualQuest(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	q, err := e.AddManualQuest(ctx, "  write docs  ", "for the new API")
	if err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}
	if q.Title != "write docs" {
		t.Fatalf("Title = %q, want trimmed", q.Title)
	}
	if q.Source != models.SourceManual || q.Status != models.QuestPending {
		t.Fatalf("quest = %+v, want pending manual", q)
	}

	if _, err := e.AddManualQuest(ctx, "   ", ""); err == nil {
		t.Fatal("AddManualQuest(blank) error = nil, want error")
	}
}

func TestAcceptAndCompleteQuest(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	q, err := e.AddManualQuest(ctx, "task", "")
	if err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}

	accepted, err := e.AcceptQuest(ctx, q.ID)
	if err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}
	if accepted == nil || accepted.Status != models.QuestActive {
		t.Fatalf("accepted = %+v, want active", accepted)
	}

	completed, err := e.CompleteQuest(ctx, q.ID)
	if err != nil {
		t.Fatalf("CompleteQuest: %v", err)
	}
	if completed == nil || completed.Status != models.QuestCompleted {
		t.Fatalf("completed = %+v, want completed", completed)
	}

	missing, err := e.AcceptQuest(ctx, 9999)
	if err != nil {
		t.Fatalf("AcceptQuest(missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("AcceptQuest(missing) = %+v, want nil", missing)
	}
}

func TestSkipQuest(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	q, err := e.AddManualQuest(ctx, "later", "someday maybe")
	if err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}

	res, err := e.SkipQuest(ctx, q.ID, "skip", true)
	if err != nil {
		t.Fatalf("SkipQuest: %v", err)
	}
	if !res.Success {
		t.Fatalf("SkipQuest result = %+v, want success", res)
	}
	if res.Quest.Status != models.QuestSkipped {
		t.Fatalf("Status = %q, want skipped", res.Quest.Status)
	}
	if res.Idea == nil || res.Idea.Content != "later - someday maybe" {
		t.Fatalf("Idea = %+v, want title - description content", res.Idea)
	}
}

func TestSkipQuestArchive(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	q, err := e.AddManualQuest(ctx, "obsolete", "")
	if err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}

	res, err := e.SkipQuest(ctx, q.ID, "archive", false)
	if err != nil {
		t.Fatalf("SkipQuest: %v", err)
	}
	if res.Quest.Status != models.QuestArchived {
		t.Fatalf("Status = %q, want archived", res.Quest.Status)
	}
	if res.Idea != nil {
		t.Fatalf("Idea = %+v, want nil without saveAsIdea", res.Idea)
	}
}

func TestSkipQuestMissing(t *testing.T) {
	e, _ := testEngine(t)

	res, err := e.SkipQuest(context.Background(), 9999, "skip", false)
	if err != nil {
		t.Fatalf("SkipQuest: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("SkipQuest(missing) = %+v, want failed result", res)
	}
}

func TestPromoteIdeaToQuest(t *testing.T) {
	e, db := testEngine(t)
	ctx := context.Background()

	idea := models.Idea{Content: "build a tui dashboard"}
	if err := db.CreateIdea(ctx, &idea); err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}

	q, err := e.PromoteIdeaToQuest(ctx, idea.ID)
	if err != nil {
		t.Fatalf("PromoteIdeaToQuest: %v", err)
	}
	if q.Source != models.SourceIdeasMD {
		t.Fatalf("Source = %q, want ideas_md", q.Source)
	}
	if q.SourceRef != "idea:1" {
		t.Fatalf("SourceRef = %q, want idea:1", q.SourceRef)
	}
	if q.Title != "build a tui dashboard" {
		t.Fatalf("Title = %q, want idea content", q.Title)
	}

	promoted, err := db.GetIdea(ctx, idea.ID)
	if err != nil {
		t.Fatalf("GetIdea: %v", err)
	}
	if promoted.Status != models.IdeaPromoted {
		t.Fatalf("idea Status = %q, want promoted", promoted.Status)
	}

	missing, err := e.PromoteIdeaToQuest(ctx, 9999)
	if err != nil {
		t.Fatalf("PromoteIdeaToQuest(missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("PromoteIdeaToQuest(missing) = %+v, want nil", missing)
	}
}

func issueJSON(t *testing.T, title, url, body string, isPR bool) models.Issue {
	t.Helper()
	raw := map[string]any{"title": title, "html_url": url, "body": body}
	if isPR {
		raw["pull_request"] = map[string]any{"url": url}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal issue: %v", err)
	}
	var issue models.Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		t.Fatalf("unmarshal issue: %v", err)
	}
	return issue
}

func TestSyncGitHubIssues(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	issues := []models.Issue{
		issueJSON(t, "Fix flaky test", "https://github.com/owner/repo/issues/7", "it fails sometimes", false),
		issueJSON(t, "Add feature", "https://github.com/owner/repo/pull/8", "", true), // PR, filtered
	}

	res, err := e.SyncGitHubIssues(ctx, issues)
	if err != nil {
		t.Fatalf("SyncGitHubIssues: %v", err)
	}
	if res.Added != 1 || res.Skipped != 0 {
		t.Fatalf("result = %+v, want 1 added, 0 skipped", res)
	}

	quests, err := e.GetPendingQuests(ctx, 0)
	if err != nil {
		t.Fatalf("GetPendingQuests: %v", err)
	}
	if len(quests) != 1 {
		t.Fatalf("len(quests) = %d, want 1", len(quests))
	}
	if quests[0].Title != "[owner/repo] Fix flaky test" {
		t.Fatalf("Title = %q, want repo-prefixed", quests[0].Title)
	}
	if quests[0].Description != "it fails sometimes" {
		t.Fatalf("Description = %q", quests[0].Description)
	}

	// Re-sync is idempotent.
	res, err = e.SyncGitHubIssues(ctx, issues)
	if err != nil {
		t.Fatalf("SyncGitHubIssues again: %v", err)
	}
	if res.Added != 0 || res.Skipped != 1 {
		t.Fatalf("re-sync result = %+v, want 0 added, 1 skipped", res)
	}
}

func TestSyncGitHubIssuesTruncatesBody(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	long := strings.Repeat("x", 300)
	res, err := e.SyncGitHubIssues(ctx, []models.Issue{
		issueJSON(t, "Long body", "https://github.com/o/r/issues/1", long, false),
	})
	if err != nil {
		t.Fatalf("SyncGitHubIssues: %v", err)
	}
	if res.Added != 1 {
		t.Fatalf("Added = %d, want 1", res.Added)
	}

	quests, _ := e.GetPendingQuests(ctx, 0)
	desc := quests[0].Description
	if len([]rune(desc)) != 200 || !strings.HasSuffix(desc, "...") {
		t.Fatalf("Description length = %d, want 200 runes ending in ...", len([]rune(desc)))
	}
}

func TestSyncTodoComments(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	todos := []models.TodoComment{
		{FilePath: "main.go", LineNumber: 12, CommentType: "TODO", Content: "handle errors"},
		{FilePath: "main.go", LineNumber: 40, CommentType: "FIXME", Content: "race condition"},
	}

	res, err := e.SyncTodoComments(ctx, todos)
	if err != nil {
		t.Fatalf("SyncTodoComments: %v", err)
	}
	if res.Added != 2 {
		t.Fatalf("Added = %d, want 2", res.Added)
	}

	quests, _ := e.GetPendingQuests(ctx, 0)
	titles := map[string]bool{}
	for _, q := range quests {
		titles[q.Title] = true
		if q.Source != models.SourceTodoScan {
			t.Fatalf("Source = %q, want todo_scan", q.Source)
		}
	}
	if !titles["[TODO] handle errors"] || !titles["[FIXME] race condition"] {
		t.Fatalf("titles = %v, want [TYPE] content form", titles)
	}

	// Same file:line with edited content still dedups.
	res, err = e.SyncTodoComments(ctx, []models.TodoComment{
		{FilePath: "main.go", LineNumber: 12, CommentType: "TODO", Content: "handle errors better"},
	})
	if err != nil {
		t.Fatalf("SyncTodoComments again: %v", err)
	}
	if res.Added != 0 || res.Skipped != 1 {
		t.Fatalf("re-sync result = %+v, want 0 added, 1 skipped", res)
	}
}

func TestGetQuestSummary(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.AddManualQuest(ctx, "task", ""); err != nil {
			t.Fatalf("AddManualQuest: %v", err)
		}
	}
	if _, err := e.AcceptQuest(ctx, 1); err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}
	if _, err := e.CompleteQuest(ctx, 2); err != nil {
		t.Fatalf("CompleteQuest: %v", err)
	}

	s, err := e.GetQuestSummary(ctx)
	if err != nil {
		t.Fatalf("GetQuestSummary: %v", err)
	}
	want := Summary{Total: 3, Pending: 1, Active: 1, Completed: 1}
	if s != want {
		t.Fatalf("Summary = %+v, want %+v", s, want)
	}
}

func TestRepoFromIssueURL(t *testing.T) {
	cases := []struct {
		url, want string
	}{
		{"https://github.com/owner/repo/issues/5", "owner/repo"},
		{"https://github.com/owner/repo", "owner/repo"},
		{"https://example.com/owner/repo/issues/5", ""},
		{"https://github.com/", ""},
	}
	for _, tc := range cases {
		if got := repoFromIssueURL(tc.url); got != tc.want {
			t.Fatalf("repoFromIssueURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
