package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/codedaily/codedaily/internal/database"
)

func testCache(t *testing.T) *database.SQLiteDB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func messagesReply(text string) string {
	data, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"text": text}},
	})
	return string(data)
}

func TestEnhanceTodo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("path = %q, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "sk-test" {
			t.Fatalf("X-Api-Key = %q", got)
		}
		if got := r.Header.Get("Anthropic-Version"); got != "2023-06-01" {
			t.Fatalf("Anthropic-Version = %q", got)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("messages = %+v", req.Messages)
		}
		w.Write([]byte(messagesReply(`{"description":"Wrap the error with context.","difficulty":2,"difficulty_reasoning":"Single call site."}`)))
	}))
	defer srv.Close()

	c := NewClient("sk-test", nil).WithBaseURL(srv.URL)
	res, err := c.EnhanceTodo(context.Background(), "handle the error", "main.go")
	if err != nil {
		t.Fatalf("EnhanceTodo: %v", err)
	}
	if res.Description != "Wrap the error with context." || res.Difficulty != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestEnhanceTodoNotConfigured(t *testing.T) {
	for _, key := range []string{"", "your_api_key_here"} {
		c := NewClient(key, nil)
		if c.IsConfigured() {
			t.Fatalf("IsConfigured(%q) = true, want false", key)
		}
		if _, err := c.EnhanceTodo(context.Background(), "x", "y"); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("error = %v, want ErrNotConfigured", err)
		}
	}
}

func TestEnhanceTodoRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("sk-test", nil).WithBaseURL(srv.URL)
	_, err := c.EnhanceTodo(context.Background(), "x", "y")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestEnhanceTodoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", nil).WithBaseURL(srv.URL)
	if _, err := c.EnhanceTodo(context.Background(), "x", "y"); err == nil {
		t.Fatal("EnhanceTodo: expected error on 500")
	}
}

func TestEnhanceTodoUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(messagesReply(`{"description":"d","difficulty":1,"difficulty_reasoning":"r"}`)))
	}))
	defer srv.Close()

	c := NewClient("sk-test", testCache(t)).WithBaseURL(srv.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := c.EnhanceTodo(ctx, "handle the error", "main.go")
		if err != nil {
			t.Fatalf("EnhanceTodo #%d: %v", i+1, err)
		}
		if res.Description != "d" {
			t.Fatalf("result = %+v", res)
		}
	}

	if calls != 1 {
		t.Fatalf("api calls = %d, want 1 (second hit served from cache)", calls)
	}
}

func TestParseEnhancement(t *testing.T) {
	cases := []struct {
		name           string
		text           string
		wantDifficulty int
		wantErr        bool
	}{
		{"plain json", `{"description":"d","difficulty":3,"difficulty_reasoning":"r"}`, 3, false},
		{"code fence", "```json\n{\"description\":\"d\",\"difficulty\":4,\"difficulty_reasoning\":\"r\"}\n```", 4, false},
		{"clamps low", `{"description":"d","difficulty":0,"difficulty_reasoning":"r"}`, 1, false},
		{"clamps high", `{"description":"d","difficulty":9,"difficulty_reasoning":"r"}`, 5, false},
		{"missing field", `{"description":"d","difficulty":2}`, 0, true},
		{"not json", "sure, here is the analysis", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := parseEnhancement(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseEnhancement(%q): expected error", tc.text)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEnhancement: %v", err)
			}
			if res.Difficulty != tc.wantDifficulty {
				t.Fatalf("Difficulty = %d, want %d", res.Difficulty, tc.wantDifficulty)
			}
		})
	}
}
