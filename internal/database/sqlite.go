package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/codedaily/codedaily/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func OpenSQLite(dsn string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Enable WAL mode and foreign keys
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Close() error { return s.db.Close() }

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS commits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	repo TEXT NOT NULL,
	sha TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(date, repo, sha)
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS achievements (
	id TEXT PRIMARY KEY,
	unlocked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	unlocked_value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS quests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	source_ref TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	ai_description TEXT NOT NULL DEFAULT '',
	ai_difficulty INTEGER NOT NULL DEFAULT 0,
	ai_difficulty_reasoning TEXT NOT NULL DEFAULT '',
	enhanced_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ideas (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	added INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	ran_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_commits_date ON commits(date);
CREATE INDEX IF NOT EXISTS idx_quests_status_created ON quests(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_quests_source_ref ON quests(source, source_ref);
CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sync_runs_source ON sync_runs(source, ran_at DESC);
`

// --- Commits ---

func (s *SQLiteDB) SaveCommits(ctx context.Context, events []models.CommitEvent) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, ev := range events {
		for _, c := range ev.Commits {
			if ev.Date == "" || ev.Repo == "" || c.SHA == "" {
				continue
			}
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO commits (date, repo, sha, message) VALUES (?, ?, ?, ?)`,
				ev.Date, ev.Repo, c.SHA, c.Message)
			if err != nil {
				return 0, err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *SQLiteDB) GetCommitEvents(ctx context.Context) ([]models.CommitEvent, error) {
	return s.queryCommitEvents(ctx, "")
}

func (s *SQLiteDB) GetCommitEventsSince(ctx context.Context, sinceDate string) ([]models.CommitEvent, error) {
	return s.queryCommitEvents(ctx, sinceDate)
}

// queryCommitEvents groups stored commit rows by (date, repo) back into the
// normalized event shape, date-descending, with count = grouped row count.
func (s *SQLiteDB) queryCommitEvents(ctx context.Context, sinceDate string) ([]models.CommitEvent, error) {
	query := `SELECT date, repo, sha, message FROM commits ORDER BY date DESC, repo, id`
	args := []any{}
	if sinceDate != "" {
		query = `SELECT date, repo, sha, message FROM commits WHERE date >= ? ORDER BY date DESC, repo, id`
		args = append(args, sinceDate)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return groupCommitRows(rows)
}

func (s *SQLiteDB) GetCommitDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM commits ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *SQLiteDB) ClearCommits(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM commits`)
	return err
}

// --- Quests ---

func (s *SQLiteDB) CreateQuest(ctx context.Context, q *models.Quest) error {
	if q.Status == "" {
		q.Status = models.QuestPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quests (source, source_ref, title, description, status) VALUES (?, ?, ?, ?, ?)`,
		string(q.Source), q.SourceRef, q.Title, q.Description, string(q.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = id
	created, err := s.GetQuest(ctx, id)
	if err != nil {
		return err
	}
	if created != nil {
		*q = *created
	}
	return nil
}

func (s *SQLiteDB) GetQuest(ctx context.Context, id int64) (*models.Quest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	return scanQuest(row)
}

func (s *SQLiteDB) GetQuests(ctx context.Context, status models.QuestStatus, limit int) ([]models.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuests(rows)
}

func (s *SQLiteDB) UpdateQuestStatus(ctx context.Context, id int64, status models.QuestStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quests SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteDB) QuestExistsBySourceRef(ctx context.Context, source models.QuestSource, sourceRef string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM quests WHERE source = ? AND source_ref = ? LIMIT 1`,
		string(source), sourceRef).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteDB) DeleteQuest(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteDB) UpdateQuestAIFields(ctx context.Context, id int64, description string, difficulty int, reasoning string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quests SET ai_description = ?, ai_difficulty = ?, ai_difficulty_reasoning = ?,
		 enhanced_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		description, difficulty, reasoning, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteDB) GetQuestsWithoutAI(ctx context.Context, limit int) ([]models.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests
		WHERE status = 'pending' AND ai_description = ''
		ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuests(rows)
}

// --- Ideas ---

func (s *SQLiteDB) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.Status == "" {
		idea.Status = models.IdeaActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ideas (content, status) VALUES (?, ?)`,
		idea.Content, string(idea.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	idea.ID = id
	created, err := s.GetIdea(ctx, id)
	if err != nil {
		return err
	}
	if created != nil {
		*idea = *created
	}
	return nil
}

func (s *SQLiteDB) GetIdea(ctx context.Context, id int64) (*models.Idea, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, status, created_at, updated_at FROM ideas WHERE id = ?`, id)
	var idea models.Idea
	var status string
	err := row.Scan(&idea.ID, &idea.Content, &status, &idea.CreatedAt, &idea.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idea.Status = models.IdeaStatus(status)
	return &idea, nil
}

func (s *SQLiteDB) GetIdeas(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	query := `SELECT id, content, status, created_at, updated_at FROM ideas`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		var idea models.Idea
		var st string
		if err := rows.Scan(&idea.ID, &idea.Content, &st, &idea.CreatedAt, &idea.UpdatedAt); err != nil {
			return nil, err
		}
		idea.Status = models.IdeaStatus(st)
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

func (s *SQLiteDB) UpdateIdeaStatus(ctx context.Context, id int64, status models.IdeaStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ideas SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteDB) DeleteIdea(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Achievements ---

func (s *SQLiteDB) GetUnlockedAchievements(ctx context.Context) ([]models.UnlockedAchievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unlocked_at, unlocked_value FROM achievements ORDER BY unlocked_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UnlockedAchievement
	for rows.Next() {
		var rec models.UnlockedAchievement
		if err := rows.Scan(&rec.ID, &rec.UnlockedAt, &rec.UnlockedValue); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) UnlockAchievement(ctx context.Context, rec *models.UnlockedAchievement) error {
	if rec.UnlockedAt.IsZero() {
		rec.UnlockedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO achievements (id, unlocked_at, unlocked_value) VALUES (?, ?, ?)`,
		rec.ID, rec.UnlockedAt, rec.UnlockedValue)
	return err
}

// --- Settings ---

func (s *SQLiteDB) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteDB) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

// --- Cache ---

func (s *SQLiteDB) GetCache(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if time.Now().After(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

func (s *SQLiteDB) SetCache(ctx context.Context, key, value string, ttlHours int) error {
	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt.UTC())
	return err
}

// --- Sync runs ---

func (s *SQLiteDB) RecordSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run.RanAt.IsZero() {
		run.RanAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, source, added, skipped, ran_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Added, run.Skipped, run.RanAt)
	return err
}

func (s *SQLiteDB) GetLastSyncRun(ctx context.Context, source string) (*models.SyncRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, added, skipped, ran_at FROM sync_runs
		 WHERE source = ? ORDER BY ran_at DESC, id LIMIT 1`, source)
	var run models.SyncRun
	err := row.Scan(&run.ID, &run.Source, &run.Added, &run.Skipped, &run.RanAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// --- shared row helpers ---

const questColumns = `id, source, source_ref, title, description, status,
	ai_description, ai_difficulty, ai_difficulty_reasoning, enhanced_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestRow(sc rowScanner) (*models.Quest, error) {
	var q models.Quest
	var source, status string
	var enhancedAt sql.NullTime
	err := sc.Scan(&q.ID, &source, &q.SourceRef, &q.Title, &q.Description, &status,
		&q.AIDescription, &q.AIDifficulty, &q.AIDifficultyReason, &enhancedAt,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.Source = models.QuestSource(source)
	q.Status = models.QuestStatus(status)
	if enhancedAt.Valid {
		t := enhancedAt.Time
		q.EnhancedAt = &t
	}
	return &q, nil
}

func scanQuest(row *sql.Row) (*models.Quest, error) {
	q, err := scanQuestRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return q, err
}

func scanQuests(rows *sql.Rows) ([]models.Quest, error) {
	var quests []models.Quest
	for rows.Next() {
		q, err := scanQuestRow(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

// groupCommitRows rebuilds normalized commit events from flattened rows.
func groupCommitRows(rows *sql.Rows) ([]models.CommitEvent, error) {
	type key struct{ date, repo string }
	grouped := make(map[key][]models.Commit)
	order := make([]key, 0)

	for rows.Next() {
		var date, repo, sha, message string
		if err := rows.Scan(&date, &repo, &sha, &message); err != nil {
			return nil, err
		}
		k := key{date, repo}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], models.Commit{SHA: sha, Message: message})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	events := make([]models.CommitEvent, 0, len(order))
	for _, k := range order {
		commits := grouped[k]
		events = append(events, models.CommitEvent{
			Date:        k.date,
			Repo:        k.repo,
			Commits:     commits,
			CommitCount: len(commits),
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date > events[j].Date })
	return events, nil
}
