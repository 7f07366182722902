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

	"github.com/hyperjump/promptrepo/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a
// private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
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
	CREATE TABLE IF NOT EXISTS prompts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tool_used TEXT NOT NULL DEFAULT '[]',
		prompt_text TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		username TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const promptColumns = `id, title, description, tool_used, prompt_text, tags, username, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var p models.Prompt
	var toolsJSON, tagsJSON string
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &toolsJSON, &p.PromptText, &tagsJSON,
		&p.Username, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(toolsJSON), &p.ToolUsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool_used: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if p.ToolUsed == nil {
		p.ToolUsed = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func marshalList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	return string(b), err
}

// CreatePrompt inserts a prompt and stamps its timestamps.
func (s *SQLiteStorage) CreatePrompt(ctx context.Context, p *models.Prompt) error {
	tools, err := marshalList(p.ToolUsed)
	if err != nil {
		return fmt.Errorf("failed to marshal tool_used: %w", err)
	}
	tags, err := marshalList(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prompts (`+promptColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, tools, p.PromptText, tags, p.Username, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPrompt returns a prompt by ID.
func (s *SQLiteStorage) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	p, err := scanPrompt(s.db.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePrompt removes a prompt by ID.
func (s *SQLiteStorage) DeletePrompt(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListPrompts returns prompts newest first with offset and limit.
func (s *SQLiteStorage) ListPrompts(ctx context.Context, offset, limit int) ([]*models.Prompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+promptColumns+` FROM prompts ORDER BY seq DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prompts := []*models.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// ForEachPrompt visits every prompt oldest first.
func (s *SQLiteStorage) ForEachPrompt(ctx context.Context, fn func(*models.Prompt) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+promptColumns+` FROM prompts ORDER BY seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountPrompts returns the total number of prompts.
func (s *SQLiteStorage) CountPrompts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
