// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/models"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		title TEXT,
		kind TEXT NOT NULL,
		categories TEXT NOT NULL,
		tags TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		template_id TEXT,
		profile TEXT NOT NULL,
		variables_used TEXT NOT NULL,
		fallbacks_used TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_template_id ON runs(template_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveTemplate inserts a template or replaces the stored body of an existing
// one, keeping its original position.
func (s *SQLiteStorage) SaveTemplate(ctx context.Context, doc *document.Document) error {
	body, err := document.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize template: %w", err)
	}
	categories, err := json.Marshal(nonNil(doc.Categories))
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	tags, err := json.Marshal(nonNil(doc.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, title, kind, categories, tags, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, kind = excluded.kind, categories = excluded.categories,
		   tags = excluded.tags, body = excluded.body, updated_at = excluded.updated_at`,
		doc.ID, doc.Title, string(doc.Kind), string(categories), string(tags), string(body), now, now,
	)
	return err
}

// GetTemplate returns a template by ID. A missing id matches models.ErrTemplateNotFound.
func (s *SQLiteStorage) GetTemplate(ctx context.Context, id string) (*document.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrTemplateNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return document.Parse([]byte(body))
}

// DeleteTemplate removes a template by ID.
func (s *SQLiteStorage) DeleteTemplate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	return err
}

// ListTemplates returns templates with offset and limit in insertion order.
// A non-positive limit returns every template from offset on.
func (s *SQLiteStorage) ListTemplates(ctx context.Context, offset, limit int) ([]*document.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM templates ORDER BY rowid LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		doc, err := document.Parse([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("stored template %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SaveRun inserts or replaces a run.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *Run) error {
	profileJSON, err := json.Marshal(run.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	variablesJSON, err := json.Marshal(nonNil(run.Report.VariablesUsed))
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	fallbacksJSON, err := json.Marshal(nonNil(run.Report.FallbacksUsed))
	if err != nil {
		return fmt.Errorf("failed to marshal fallbacks: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (run_id, status, template_id, profile, variables_used, fallbacks_used, elapsed_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Report.RunID, string(run.Report.Status), run.Report.MatchedTemplateID,
		string(profileJSON), string(variablesJSON), string(fallbacksJSON),
		run.Report.ElapsedMs, run.Report.Error, run.CreatedAt,
	)
	return err
}

const runColumns = `run_id, status, template_id, profile, variables_used, fallbacks_used, elapsed_ms, error, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                          Run
		status                       string
		templateID, errText          sql.NullString
		profileJSON, vars, fallbacks string
	)
	if err := row.Scan(&run.Report.RunID, &status, &templateID, &profileJSON, &vars, &fallbacks,
		&run.Report.ElapsedMs, &errText, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Report.Status = models.Stage(status)
	run.Report.MatchedTemplateID = templateID.String
	run.Report.Error = errText.String
	if err := json.Unmarshal([]byte(profileJSON), &run.Profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if err := json.Unmarshal([]byte(vars), &run.Report.VariablesUsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}
	if err := json.Unmarshal([]byte(fallbacks), &run.Report.FallbacksUsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fallbacks: %w", err)
	}
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountTemplates returns the total number of templates.
func (s *SQLiteStorage) CountTemplates(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count)
	return count, err
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

var _ Storage = (*SQLiteStorage)(nil)
