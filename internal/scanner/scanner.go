// Package scanner surfaces TODO/FIXME/HACK/XXX comments from source trees as
// quest suggestions.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codedaily/codedaily/internal/models"
)

// todoPattern matches TODO/FIXME/HACK/XXX comments behind #, // or /* leaders.
var todoPattern = regexp.MustCompile(`(?i)(?:#|//|/\*)\s*(TODO|FIXME|HACK|XXX):\s*(.+)`)

var excludedDirs = map[string]struct{}{
	".git":          {},
	".venv":         {},
	"__pycache__":   {},
	"node_modules":  {},
	"vendor":        {},
	"testdata":      {},
	".tox":          {},
	".pytest_cache": {},
	"dist":          {},
}

// scannedExtensions are the source file types the walker inspects.
var scannedExtensions = map[string]struct{}{
	".go":   {},
	".py":   {},
	".js":   {},
	".ts":   {},
	".tsx":  {},
	".jsx":  {},
	".rb":   {},
	".rs":   {},
	".java": {},
	".c":    {},
	".h":    {},
	".cpp":  {},
	".sh":   {},
}

// ScanFile scans a single file. Unreadable files yield no results rather
// than an error: per-file defects degrade gracefully.
func ScanFile(path string) []models.TodoComment {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var todos []models.TodoComment
	for i, line := range strings.Split(string(data), "\n") {
		m := todoPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		todos = append(todos, models.TodoComment{
			FilePath:    path,
			LineNumber:  i + 1,
			CommentType: strings.ToUpper(m[1]),
			Content:     strings.TrimSpace(m[2]),
		})
	}
	return todos
}

// ScanDirectory walks root recursively, scanning recognized source files and
// reporting paths relative to root. Test files and excluded directories are
// skipped; test-specific TODOs are usually not actionable production work.
func ScanDirectory(root string) ([]models.TodoComment, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var todos []models.TodoComment
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if _, excluded := excludedDirs[d.Name()]; excluded && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := scannedExtensions[filepath.Ext(path)]; !ok {
			return nil
		}
		if isTestFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		for _, todo := range ScanFile(path) {
			todo.FilePath = filepath.ToSlash(rel)
			todos = append(todos, todo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return todos, nil
}

func isTestFile(name string) bool {
	return strings.HasPrefix(name, "test_") ||
		strings.HasSuffix(name, "_test.go") ||
		strings.HasSuffix(name, "_test.py") ||
		strings.HasSuffix(name, ".test.js") ||
		strings.HasSuffix(name, ".test.ts") ||
		name == "conftest.py"
}
