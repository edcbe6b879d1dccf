// Package llm provides AI-powered quest enhancement through the Anthropic
// messages API. The client is an optional capability: callers must branch on
// IsConfigured rather than rely on errors.
package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/models"
)

var (
	// ErrNotConfigured signals a missing or placeholder API key. Non-retryable.
	ErrNotConfigured = errors.New("anthropic api key not configured")
	// ErrRateLimited signals the provider rejected the call with 429. Batch
	// operations halt on this rather than retrying inline.
	ErrRateLimited = errors.New("anthropic rate limit exceeded")
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	model          = "claude-sonnet-4-20250514"
	maxTokens      = 500

	// cacheTTLHours keeps enhancement responses for one week.
	cacheTTLHours = 168
)

const enhancePrompt = `Analyze this TODO/task from a codebase. Return a JSON object with:
- "description": A clear, actionable 1-3 sentence description that explains what needs to be done. Focus on the goal, not just repeating the TODO text.
- "difficulty": An integer 1-5 rating where:
  1 = Quick fix (< 30 minutes, simple change)
  2 = Small task (30 min - 2 hours, straightforward)
  3 = Medium task (2-4 hours, some complexity)
  4 = Large task (4-8 hours, significant work)
  5 = Major task (> 8 hours, complex changes)
- "difficulty_reasoning": A brief explanation (1 sentence) for the difficulty rating

Context:
- File: %s
- Content: %s

Respond with only valid JSON, no markdown or explanation.`

// Client calls the Anthropic messages API, memoizing responses in the
// database cache when one is provided.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      database.DB
}

func NewClient(apiKey string, cache database.DB) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cache:      cache,
	}
}

// WithBaseURL overrides the API endpoint. For tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// IsConfigured reports whether a usable API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.apiKey != "your_api_key_here"
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// EnhanceTodo generates a description, 1-5 difficulty rating, and rationale
// for a TODO-like task. Results are cached for a week keyed on the
// (file path, content) pair.
func (c *Client) EnhanceTodo(ctx context.Context, content, filePath string) (*models.EnhancementResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if filePath == "" {
		filePath = "unknown"
	}

	cacheKey := enhanceCacheKey(content, filePath)
	if c.cache != nil {
		if cached, ok, err := c.cache.GetCache(ctx, cacheKey); err == nil && ok {
			var result models.EnhancementResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return &result, nil
			}
		}
	}

	body, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: fmt.Sprintf(enhancePrompt, filePath, content)}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("anthropic api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(mr.Content) == 0 {
		return nil, fmt.Errorf("anthropic response has no content")
	}

	result, err := parseEnhancement(mr.Content[0].Text)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = c.cache.SetCache(ctx, cacheKey, string(data), cacheTTLHours)
		}
	}

	return result, nil
}

// parseEnhancement extracts the JSON enhancement payload from the model's
// text reply, tolerating markdown code fences.
func parseEnhancement(text string) (*models.EnhancementResult, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	var raw struct {
		Description         *string `json:"description"`
		Difficulty          *int    `json:"difficulty"`
		DifficultyReasoning *string `json:"difficulty_reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse enhancement response: %w", err)
	}
	if raw.Description == nil || raw.Difficulty == nil || raw.DifficultyReasoning == nil {
		return nil, fmt.Errorf("enhancement response missing required fields")
	}

	difficulty := *raw.Difficulty
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 5 {
		difficulty = 5
	}

	return &models.EnhancementResult{
		Description:         *raw.Description,
		Difficulty:          difficulty,
		DifficultyReasoning: *raw.DifficultyReasoning,
	}, nil
}

func enhanceCacheKey(content, filePath string) string {
	sum := sha256.Sum256([]byte(filePath + ":" + content))
	return "llm_enhance:" + hex.EncodeToString(sum[:])[:16]
}
