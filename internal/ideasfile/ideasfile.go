// Package ideasfile reads and writes the checkbox-markdown ideas backlog and
// keeps it in sync with the database. Lines look like:
//
//	- [ ] build a thing (2026-08-01)
//	- [x] finished thing (2026-07-12)
package ideasfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/models"
)

var entryPattern = regexp.MustCompile(`^-\s*\[([ xX])\]\s*(.+?)(?:\s*\((\d{4}-\d{2}-\d{2})\))?\s*$`)

const defaultHeader = "# Ideas\n"

// Entry is one checkbox line from the ideas file.
type Entry struct {
	Content   string
	Completed bool
	Date      string
}

// File manages one ideas markdown file. A missing file reads as empty.
type File struct {
	path string
	now  func() time.Time
}

func New(path string) *File {
	return &File{path: path, now: time.Now}
}

// WithClock overrides the timestamp source. For tests.
func (f *File) WithClock(now func() time.Time) *File {
	f.now = now
	return f
}

// Read parses all checkbox entries, preserving file order. Non-entry lines
// (headers, prose) are ignored.
func (f *File) Read() ([]Entry, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		m := entryPattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		entries = append(entries, Entry{
			Content:   strings.TrimSpace(m[2]),
			Completed: m[1] != " ",
			Date:      m[3],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Add appends a new unchecked entry stamped with today's date. Duplicate
// content is a no-op.
func (f *File) Add(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("idea content is empty")
	}

	entries, err := f.Read()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Content == content {
			return nil
		}
	}

	entries = append(entries, Entry{
		Content: content,
		Date:    f.now().UTC().Format("2006-01-02"),
	})
	return f.write(entries)
}

// MarkCompleted checks off the entry with matching content. Returns false
// when no entry matches.
func (f *File) MarkCompleted(content string) (bool, error) {
	entries, err := f.Read()
	if err != nil {
		return false, err
	}

	found := false
	for i := range entries {
		if entries[i].Content == content {
			entries[i].Completed = true
			found = true
		}
	}
	if !found {
		return false, nil
	}
	return true, f.write(entries)
}

// SyncToDB imports file entries into the database, deduplicating on content.
// A checked entry completes its database counterpart. Returns how many ideas
// were created.
func (f *File) SyncToDB(ctx context.Context, db database.DB) (int, error) {
	entries, err := f.Read()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	existing, err := db.GetIdeas(ctx, "")
	if err != nil {
		return 0, err
	}
	byContent := make(map[string]models.Idea, len(existing))
	for _, idea := range existing {
		byContent[idea.Content] = idea
	}

	added := 0
	for _, e := range entries {
		idea, ok := byContent[e.Content]
		if !ok {
			created := models.Idea{Content: e.Content, Status: models.IdeaActive}
			if err := db.CreateIdea(ctx, &created); err != nil {
				return added, err
			}
			idea = created
			added++
		}
		if e.Completed && idea.Status == models.IdeaActive {
			if _, err := db.UpdateIdeaStatus(ctx, idea.ID, models.IdeaCompleted); err != nil {
				return added, err
			}
		}
	}
	return added, nil
}

// SyncFromDB rewrites the file from the database's active and completed
// ideas, preserving the existing header block above the first entry.
func (f *File) SyncFromDB(ctx context.Context, db database.DB) error {
	active, err := db.GetIdeas(ctx, models.IdeaActive)
	if err != nil {
		return err
	}
	completed, err := db.GetIdeas(ctx, models.IdeaCompleted)
	if err != nil {
		return err
	}

	var entries []Entry
	for _, idea := range active {
		entries = append(entries, Entry{
			Content: idea.Content,
			Date:    idea.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	for _, idea := range completed {
		entries = append(entries, Entry{
			Content:   idea.Content,
			Completed: true,
			Date:      idea.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	return f.write(entries)
}

// write renders header + entries. The header is whatever preceded the first
// entry line in the current file, or a default for new files.
func (f *File) write(entries []Entry) error {
	header := f.header()

	var b strings.Builder
	b.WriteString(header)
	if !strings.HasSuffix(header, "\n\n") {
		b.WriteString("\n")
	}
	for _, e := range entries {
		mark := " "
		if e.Completed {
			mark = "x"
		}
		if e.Date != "" {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", mark, e.Content, e.Date)
		} else {
			fmt.Fprintf(&b, "- [%s] %s\n", mark, e.Content)
		}
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(f.path, []byte(b.String()), 0o644)
}

func (f *File) header() string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return defaultHeader
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if entryPattern.MatchString(line) {
			break
		}
		lines = append(lines, line)
	}
	header := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if header == "" {
		return defaultHeader
	}
	return header + "\n"
}
