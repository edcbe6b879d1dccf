package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/ideasfile"
	"github.com/codedaily/codedaily/internal/models"
	"github.com/codedaily/codedaily/internal/quest"
	"github.com/codedaily/codedaily/internal/scanner"
)

const (
	// discoverCacheKey memoizes good-first-issue discovery for a day so
	// repeated dashboard loads don't burn search-API quota.
	discoverCacheKey      = "discover:good_first_issues"
	discoverCacheTTLHours = 24

	discoverStarredLimit  = 10
	discoverIssuesPerRepo = 3
	discoverConcurrency   = 4
)

// IssueSource is the slice of the GitHub client the syncer consumes.
type IssueSource interface {
	ListAssignedIssues(ctx context.Context) ([]models.Issue, error)
	ListStarredRepos(ctx context.Context, limit int) ([]models.Repo, error)
	SearchGoodFirstIssues(ctx context.Context, repoFullName string, limit int) ([]models.Issue, error)
}

// Syncer runs quest ingestion passes against the external sources.
type Syncer struct {
	db       database.DB
	gh       IssueSource
	engine   *quest.Engine
	scanRoot string
	ideas    *ideasfile.File
	logger   *slog.Logger
	now      func() time.Time
}

func NewSyncer(db database.DB, gh IssueSource, engine *quest.Engine, scanRoot string) *Syncer {
	return &Syncer{
		db:       db,
		gh:       gh,
		engine:   engine,
		scanRoot: scanRoot,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// WithIdeasFile attaches the markdown ideas backlog; SyncIdeas is a no-op
// without it.
func (s *Syncer) WithIdeasFile(ideas *ideasfile.File) *Syncer {
	s.ideas = ideas
	return s
}

// SyncIdeas imports the markdown ideas backlog into the database and writes
// the merged list back out, so edits on either side converge.
func (s *Syncer) SyncIdeas(ctx context.Context) (quest.SyncResult, error) {
	if s.ideas == nil {
		return quest.SyncResult{}, nil
	}

	added, err := s.ideas.SyncToDB(ctx, s.db)
	if err != nil {
		return quest.SyncResult{}, fmt.Errorf("sync ideas file: %w", err)
	}
	if err := s.ideas.SyncFromDB(ctx, s.db); err != nil {
		return quest.SyncResult{}, fmt.Errorf("write ideas file: %w", err)
	}

	res := quest.SyncResult{Added: added}
	if err := s.recordRun(ctx, runSourceIdeas, res); err != nil {
		return res, err
	}
	s.logger.Info("ideas sync complete", "added", added)
	return res, nil
}

// SyncIssues ingests the user's open assigned issues as quests.
func (s *Syncer) SyncIssues(ctx context.Context) (quest.SyncResult, error) {
	issues, err := s.gh.ListAssignedIssues(ctx)
	if err != nil {
		return quest.SyncResult{}, fmt.Errorf("fetch assigned issues: %w", err)
	}

	res, err := s.engine.SyncGitHubIssues(ctx, issues)
	if err != nil {
		return res, err
	}
	if err := s.recordRun(ctx, runSourceIssues, res); err != nil {
		return res, err
	}

	s.logger.Info("issue sync complete", "fetched", len(issues), "added", res.Added, "skipped", res.Skipped)
	return res, nil
}

// SyncTodos scans the configured source tree and ingests TODO comments as
// quests.
func (s *Syncer) SyncTodos(ctx context.Context) (quest.SyncResult, error) {
	todos, err := scanner.ScanDirectory(s.scanRoot)
	if err != nil {
		return quest.SyncResult{}, fmt.Errorf("scan %s: %w", s.scanRoot, err)
	}

	res, err := s.engine.SyncTodoComments(ctx, todos)
	if err != nil {
		return res, err
	}
	if err := s.recordRun(ctx, runSourceTodos, res); err != nil {
		return res, err
	}

	s.logger.Info("todo sync complete", "found", len(todos), "added", res.Added, "skipped", res.Skipped)
	return res, nil
}

// Discover finds good-first-issues across the user's recently starred
// repositories and ingests them as quests. Discovery results are cached for
// 24 hours; the ingestion itself stays idempotent either way.
func (s *Syncer) Discover(ctx context.Context) (quest.SyncResult, error) {
	issues, err := s.discoverIssues(ctx)
	if err != nil {
		return quest.SyncResult{}, err
	}

	res, err := s.engine.SyncExternalIssues(ctx, issues)
	if err != nil {
		return res, err
	}
	if err := s.recordRun(ctx, runSourceDiscover, res); err != nil {
		return res, err
	}

	s.logger.Info("discovery complete", "issues", len(issues), "added", res.Added, "skipped", res.Skipped)
	return res, nil
}

func (s *Syncer) discoverIssues(ctx context.Context) ([]models.Issue, error) {
	if cached, ok, err := s.db.GetCache(ctx, discoverCacheKey); err == nil && ok {
		var issues []models.Issue
		if err := json.Unmarshal([]byte(cached), &issues); err == nil {
			return issues, nil
		}
	}

	repos, err := s.gh.ListStarredRepos(ctx, discoverStarredLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch starred repos: %w", err)
	}

	var (
		mu     sync.Mutex
		issues []models.Issue
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(discoverConcurrency)
	for _, repo := range repos {
		g.Go(func() error {
			found, err := s.gh.SearchGoodFirstIssues(gctx, repo.FullName, discoverIssuesPerRepo)
			if err != nil {
				return fmt.Errorf("search %s: %w", repo.FullName, err)
			}
			mu.Lock()
			issues = append(issues, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(issues); err == nil {
		_ = s.db.SetCache(ctx, discoverCacheKey, string(data), discoverCacheTTLHours)
	}
	return issues, nil
}

func (s *Syncer) recordRun(ctx context.Context, source string, res quest.SyncResult) error {
	return s.db.RecordSyncRun(ctx, &models.SyncRun{
		ID:      uuid.NewString(),
		Source:  source,
		Added:   res.Added,
		Skipped: res.Skipped,
		RanAt:   s.now().UTC(),
	})
}
