package ideasfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/models"
)

func testDB(t *testing.T) *database.SQLiteDB {
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

func testFile(t *testing.T, content string) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "IDEAS.md")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return New(path).WithClock(func() time.Time {
		return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	})
}

func TestRead(t *testing.T) {
	f := testFile(t, `# Ideas

Some prose that is not an entry.

- [ ] build a CLI dashboard (2026-08-01)
- [x] write the parser (2026-07-12)
- [X] caps checkbox
`)

	entries, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Content != "build a CLI dashboard" || entries[0].Completed || entries[0].Date != "2026-08-01" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if !entries[1].Completed || !entries[2].Completed {
		t.Fatalf("completed flags = %v, %v, want both true", entries[1].Completed, entries[2].Completed)
	}
	if entries[2].Date != "" {
		t.Fatalf("entries[2].Date = %q, want empty", entries[2].Date)
	}
}

func TestReadMissingFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "nope.md"))
	entries, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if entries != nil {
		t.Fatalf("entries = %v, want nil", entries)
	}
}

func TestAdd(t *testing.T) {
	f := testFile(t, "")

	if err := f.Add("learn generics"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Duplicate content is a no-op.
	if err := f.Add("learn generics"); err != nil {
		t.Fatalf("Add duplicate: %v", err)
	}

	entries, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Date != "2026-08-28" {
		t.Fatalf("Date = %q, want today's stamp", entries[0].Date)
	}
}

func TestAddEmpty(t *testing.T) {
	f := testFile(t, "")
	if err := f.Add("   "); err == nil {
		t.Fatal("Add(blank): expected error")
	}
}

func TestMarkCompleted(t *testing.T) {
	f := testFile(t, "# Ideas\n\n- [ ] ship it (2026-08-01)\n")

	ok, err := f.MarkCompleted("ship it")
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if !ok {
		t.Fatal("MarkCompleted = false, want true")
	}

	entries, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !entries[0].Completed {
		t.Fatalf("entries[0] = %+v, want completed", entries[0])
	}

	ok, err = f.MarkCompleted("never existed")
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if ok {
		t.Fatal("MarkCompleted(missing) = true, want false")
	}
}

func TestSyncToDB(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := testFile(t, "# Ideas\n\n- [ ] idea one\n- [x] idea two\n")

	added, err := f.SyncToDB(ctx, db)
	if err != nil {
		t.Fatalf("SyncToDB: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	// Second run must not duplicate.
	added, err = f.SyncToDB(ctx, db)
	if err != nil {
		t.Fatalf("SyncToDB second run: %v", err)
	}
	if added != 0 {
		t.Fatalf("added = %d, want 0", added)
	}

	completed, err := db.GetIdeas(ctx, models.IdeaCompleted)
	if err != nil {
		t.Fatalf("GetIdeas: %v", err)
	}
	if len(completed) != 1 || completed[0].Content != "idea two" {
		t.Fatalf("completed = %+v, want idea two", completed)
	}
}

func TestSyncFromDB(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	active := models.Idea{Content: "active idea", Status: models.IdeaActive}
	if err := db.CreateIdea(ctx, &active); err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}
	done := models.Idea{Content: "finished idea", Status: models.IdeaActive}
	if err := db.CreateIdea(ctx, &done); err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}
	if _, err := db.UpdateIdeaStatus(ctx, done.ID, models.IdeaCompleted); err != nil {
		t.Fatalf("UpdateIdeaStatus: %v", err)
	}

	f := testFile(t, "# My Backlog\n\n- [ ] stale entry (2026-01-01)\n")
	if err := f.SyncFromDB(ctx, db); err != nil {
		t.Fatalf("SyncFromDB: %v", err)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# My Backlog") {
		t.Fatalf("header not preserved:\n%s", text)
	}
	if strings.Contains(text, "stale entry") {
		t.Fatalf("stale entry survived rewrite:\n%s", text)
	}
	if !strings.Contains(text, "- [ ] active idea") || !strings.Contains(text, "- [x] finished idea") {
		t.Fatalf("entries missing:\n%s", text)
	}
}
