package quest

import (
	"context"
	"errors"

	"github.com/codedaily/codedaily/internal/llm"
	"github.com/codedaily/codedaily/internal/models"
)

// maxBatchEnhance caps how many quests a single batch pass will send to the
// enhancement provider.
const maxBatchEnhance = 20

// Enhancer is the AI enhancement capability. Implemented by llm.Client.
type Enhancer interface {
	IsConfigured() bool
	EnhanceTodo(ctx context.Context, content, filePath string) (*models.EnhancementResult, error)
}

// EnhanceOutcome reports one quest's result within a batch pass.
type EnhanceOutcome struct {
	QuestID int64  `json:"quest_id"`
	Title   string `json:"title"`
	Status  string `json:"status"` // "enhanced", "failed", "skipped"
	Error   string `json:"error,omitempty"`
}

// BatchEnhanceResult reports a batch pass: exactly which items succeeded,
// which failed, and whether the pass stopped early on a rate limit.
type BatchEnhanceResult struct {
	Processed   int              `json:"processed"`
	Enhanced    int              `json:"enhanced"`
	Failed      int              `json:"failed"`
	RateLimited bool             `json:"rate_limited"`
	Results     []EnhanceOutcome `json:"results"`
}

// EnhanceQuest enriches a single quest via the provider and persists the
// result. Returns nil when the quest id is absent.
func (e *Engine) EnhanceQuest(ctx context.Context, provider Enhancer, id int64) (*models.Quest, error) {
	q, err := e.db.GetQuest(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, nil
	}

	// TODO-scan quests carry their file:line ref, which gives the model
	// useful context; other sources have none.
	filePath := ""
	if q.Source == models.SourceTodoScan {
		filePath = q.SourceRef
	}

	result, err := provider.EnhanceTodo(ctx, q.Title, filePath)
	if err != nil {
		return nil, err
	}

	if _, err := e.db.UpdateQuestAIFields(ctx, id, result.Description, result.Difficulty, result.DifficultyReasoning); err != nil {
		return nil, err
	}
	return e.db.GetQuest(ctx, id)
}

// EnhanceBatch enriches up to limit (capped at 20) pending quests lacking AI
// fields. The pass halts on the provider's first rate-limit signal, marking
// the remaining quests skipped, and reports per-item outcomes.
func (e *Engine) EnhanceBatch(ctx context.Context, provider Enhancer, limit int) (BatchEnhanceResult, error) {
	if limit <= 0 || limit > maxBatchEnhance {
		limit = maxBatchEnhance
	}

	quests, err := e.db.GetQuestsWithoutAI(ctx, limit)
	if err != nil {
		return BatchEnhanceResult{}, err
	}

	res := BatchEnhanceResult{Results: make([]EnhanceOutcome, 0, len(quests))}
	for _, q := range quests {
		if res.RateLimited {
			res.Results = append(res.Results, EnhanceOutcome{QuestID: q.ID, Title: q.Title, Status: "skipped", Error: "rate limited"})
			continue
		}

		filePath := ""
		if q.Source == models.SourceTodoScan {
			filePath = q.SourceRef
		}

		result, err := provider.EnhanceTodo(ctx, q.Title, filePath)
		if err != nil {
			if errors.Is(err, llm.ErrRateLimited) {
				res.RateLimited = true
				res.Results = append(res.Results, EnhanceOutcome{QuestID: q.ID, Title: q.Title, Status: "skipped", Error: "rate limited"})
				continue
			}
			res.Failed++
			res.Processed++
			res.Results = append(res.Results, EnhanceOutcome{QuestID: q.ID, Title: q.Title, Status: "failed", Error: err.Error()})
			continue
		}

		if _, err := e.db.UpdateQuestAIFields(ctx, q.ID, result.Description, result.Difficulty, result.DifficultyReasoning); err != nil {
			return res, err
		}
		res.Enhanced++
		res.Processed++
		res.Results = append(res.Results, EnhanceOutcome{QuestID: q.ID, Title: q.Title, Status: "enhanced"})
	}

	return res, nil
}
