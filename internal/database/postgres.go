package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codedaily/codedaily/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresDB struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, pgSchema)
	return err
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS commits (
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	repo TEXT NOT NULL,
	sha TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE(date, repo, sha)
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS achievements (
	id TEXT PRIMARY KEY,
	unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	unlocked_value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS quests (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	source_ref TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	ai_description TEXT NOT NULL DEFAULT '',
	ai_difficulty INTEGER NOT NULL DEFAULT 0,
	ai_difficulty_reasoning TEXT NOT NULL DEFAULT '',
	enhanced_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ideas (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	added INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	ran_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_commits_date ON commits(date);
CREATE INDEX IF NOT EXISTS idx_quests_status_created ON quests(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_quests_source_ref ON quests(source, source_ref);
CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sync_runs_source ON sync_runs(source, ran_at DESC);
`

// --- Commits ---

func (p *PostgresDB) SaveCommits(ctx context.Context, events []models.CommitEvent) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
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
				`INSERT INTO commits (date, repo, sha, message) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (date, repo, sha) DO NOTHING`,
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

func (p *PostgresDB) GetCommitEvents(ctx context.Context) ([]models.CommitEvent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT date, repo, sha, message FROM commits ORDER BY date DESC, repo, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return groupCommitRows(rows)
}

func (p *PostgresDB) GetCommitEventsSince(ctx context.Context, sinceDate string) ([]models.CommitEvent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT date, repo, sha, message FROM commits WHERE date >= $1 ORDER BY date DESC, repo, id`,
		sinceDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return groupCommitRows(rows)
}

func (p *PostgresDB) GetCommitDates(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT date FROM commits ORDER BY date DESC`)
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

func (p *PostgresDB) ClearCommits(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM commits`)
	return err
}

// --- Quests ---

func (p *PostgresDB) CreateQuest(ctx context.Context, q *models.Quest) error {
	if q.Status == "" {
		q.Status = models.QuestPending
	}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO quests (source, source_ref, title, description, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		string(q.Source), q.SourceRef, q.Title, q.Description, string(q.Status)).
		Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return err
}

func (p *PostgresDB) GetQuest(ctx context.Context, id int64) (*models.Quest, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = $1`, id)
	return scanQuest(row)
}

func (p *PostgresDB) GetQuests(ctx context.Context, status models.QuestStatus, limit int) ([]models.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuests(rows)
}

func (p *PostgresDB) UpdateQuestStatus(ctx context.Context, id int64, status models.QuestStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE quests SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *PostgresDB) QuestExistsBySourceRef(ctx context.Context, source models.QuestSource, sourceRef string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx,
		`SELECT 1 FROM quests WHERE source = $1 AND source_ref = $2 LIMIT 1`,
		string(source), sourceRef).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *PostgresDB) DeleteQuest(ctx context.Context, id int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM quests WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *PostgresDB) UpdateQuestAIFields(ctx context.Context, id int64, description string, difficulty int, reasoning string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE quests SET ai_description = $1, ai_difficulty = $2, ai_difficulty_reasoning = $3,
		 enhanced_at = NOW(), updated_at = NOW() WHERE id = $4`,
		description, difficulty, reasoning, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *PostgresDB) GetQuestsWithoutAI(ctx context.Context, limit int) ([]models.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests
		WHERE status = 'pending' AND ai_description = ''
		ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuests(rows)
}

// --- Ideas ---

func (p *PostgresDB) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.Status == "" {
		idea.Status = models.IdeaActive
	}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO ideas (content, status) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		idea.Content, string(idea.Status)).
		Scan(&idea.ID, &idea.CreatedAt, &idea.UpdatedAt)
	return err
}

func (p *PostgresDB) GetIdea(ctx context.Context, id int64) (*models.Idea, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, content, status, created_at, updated_at FROM ideas WHERE id = $1`, id)
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

func (p *PostgresDB) GetIdeas(ctx context.Context, status models.IdeaStatus) ([]models.Idea, error) {
	query := `SELECT id, content, status, created_at, updated_at FROM ideas`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := p.db.QueryContext(ctx, query, args...)
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

func (p *PostgresDB) UpdateIdeaStatus(ctx context.Context, id int64, status models.IdeaStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE ideas SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *PostgresDB) DeleteIdea(ctx context.Context, id int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Achievements ---

func (p *PostgresDB) GetUnlockedAchievements(ctx context.Context) ([]models.UnlockedAchievement, error) {
	rows, err := p.db.QueryContext(ctx,
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

func (p *PostgresDB) UnlockAchievement(ctx context.Context, rec *models.UnlockedAchievement) error {
	if rec.UnlockedAt.IsZero() {
		rec.UnlockedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO achievements (id, unlocked_at, unlocked_value) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.UnlockedAt, rec.UnlockedValue)
	return err
}

// --- Settings ---

func (p *PostgresDB) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (p *PostgresDB) SetSetting(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	return err
}

// --- Cache ---

func (p *PostgresDB) GetCache(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt time.Time
	err := p.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache WHERE key = $1`, key).Scan(&value, &expiresAt)
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

func (p *PostgresDB) SetCache(ctx context.Context, key, value string, ttlHours int) error {
	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO cache (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt.UTC())
	return err
}

// --- Sync runs ---

func (p *PostgresDB) RecordSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run.RanAt.IsZero() {
		run.RanAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, source, added, skipped, ran_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Source, run.Added, run.Skipped, run.RanAt)
	return err
}

func (p *PostgresDB) GetLastSyncRun(ctx context.Context, source string) (*models.SyncRun, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, source, added, skipped, ran_at FROM sync_runs
		 WHERE source = $1 ORDER BY ran_at DESC, id LIMIT 1`, source)
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
