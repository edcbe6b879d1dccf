package quest

import (
	"context"
	"fmt"
	"testing"

	"github.com/codedaily/codedaily/internal/llm"
	"github.com/codedaily/codedaily/internal/models"
)

// fakeEnhancer scripts per-call outcomes keyed by quest title/content.
type fakeEnhancer struct {
	configured bool
	failOn     map[string]error
	calls      []string
}

func (f *fakeEnhancer) IsConfigured() bool { return f.configured }

func (f *fakeEnhancer) EnhanceTodo(ctx context.Context, content, filePath string) (*models.EnhancementResult, error) {
	f.calls = append(f.calls, content)
	if err, ok := f.failOn[content]; ok {
		return nil, err
	}
	return &models.EnhancementResult{
		Description:         "enhanced: " + content,
		Difficulty:          2,
		DifficultyReasoning: "small task",
	}, nil
}

func TestEnhanceQuest(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	q, err := e.AddManualQuest(ctx, "refactor parser", "")
	if err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}

	provider := &fakeEnhancer{configured: true}
	enhanced, err := e.EnhanceQuest(ctx, provider, q.ID)
	if err != nil {
		t.Fatalf("EnhanceQuest: %v", err)
	}
	if enhanced.AIDescription != "enhanced: refactor parser" {
		t.Fatalf("AIDescription = %q", enhanced.AIDescription)
	}
	if enhanced.AIDifficulty != 2 || enhanced.EnhancedAt == nil {
		t.Fatalf("enhanced = %+v, want difficulty 2 with timestamp", enhanced)
	}
}

func TestEnhanceQuestMissing(t *testing.T) {
	e, _ := testEngine(t)

	q, err := e.EnhanceQuest(context.Background(), &fakeEnhancer{configured: true}, 9999)
	if err != nil {
		t.Fatalf("EnhanceQuest: %v", err)
	}
	if q != nil {
		t.Fatalf("EnhanceQuest(missing) = %+v, want nil", q)
	}
}

func TestEnhanceBatch(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.AddManualQuest(ctx, fmt.Sprintf("task %d", i), ""); err != nil {
			t.Fatalf("AddManualQuest: %v", err)
		}
	}

	provider := &fakeEnhancer{configured: true}
	res, err := e.EnhanceBatch(ctx, provider, 10)
	if err != nil {
		t.Fatalf("EnhanceBatch: %v", err)
	}
	if res.Processed != 3 || res.Enhanced != 3 || res.Failed != 0 {
		t.Fatalf("result = %+v, want 3 enhanced", res)
	}
	if res.RateLimited {
		t.Fatal("RateLimited = true, want false")
	}
	if len(res.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(res.Results))
	}
}

func TestEnhanceBatchHaltsOnRateLimit(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.AddManualQuest(ctx, fmt.Sprintf("task %d", i), ""); err != nil {
			t.Fatalf("AddManualQuest: %v", err)
		}
	}

	// Quests come back newest-first: task 2, task 1, task 0. Rate-limit the
	// second call and expect the third to be skipped without a provider call.
	provider := &fakeEnhancer{
		configured: true,
		failOn:     map[string]error{"task 1": llm.ErrRateLimited},
	}

	res, err := e.EnhanceBatch(ctx, provider, 10)
	if err != nil {
		t.Fatalf("EnhanceBatch: %v", err)
	}
	if !res.RateLimited {
		t.Fatal("RateLimited = false, want true")
	}
	if res.Enhanced != 1 {
		t.Fatalf("Enhanced = %d, want 1", res.Enhanced)
	}
	if len(provider.calls) != 2 {
		t.Fatalf("provider calls = %d, want 2 (halt after rate limit)", len(provider.calls))
	}

	skipped := 0
	for _, r := range res.Results {
		if r.Status == "skipped" {
			skipped++
		}
	}
	if skipped != 2 {
		t.Fatalf("skipped results = %d, want 2", skipped)
	}
}

func TestEnhanceBatchReportsFailures(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	if _, err := e.AddManualQuest(ctx, "good task", ""); err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}
	if _, err := e.AddManualQuest(ctx, "bad task", ""); err != nil {
		t.Fatalf("AddManualQuest: %v", err)
	}

	provider := &fakeEnhancer{
		configured: true,
		failOn:     map[string]error{"bad task": fmt.Errorf("model returned garbage")},
	}

	res, err := e.EnhanceBatch(ctx, provider, 10)
	if err != nil {
		t.Fatalf("EnhanceBatch: %v", err)
	}
	if res.Enhanced != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 1 enhanced, 1 failed", res)
	}
	for _, r := range res.Results {
		if r.Title == "bad task" && (r.Status != "failed" || r.Error == "") {
			t.Fatalf("bad task result = %+v, want failed with error", r)
		}
	}
}

func TestEnhanceBatchCapsLimit(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := e.AddManualQuest(ctx, fmt.Sprintf("task %d", i), ""); err != nil {
			t.Fatalf("AddManualQuest: %v", err)
		}
	}

	provider := &fakeEnhancer{configured: true}
	res, err := e.EnhanceBatch(ctx, provider, 100)
	if err != nil {
		t.Fatalf("EnhanceBatch: %v", err)
	}
	if res.Processed != 20 {
		t.Fatalf("Processed = %d, want capped at 20", res.Processed)
	}
}
