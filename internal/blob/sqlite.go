package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps blobs in a SQLite table with a per-row version token.
// Several processes on one host may share the database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the blob database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open blob database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		version TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize blob schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Name returns "sqlite".
func (s *SQLiteStore) Name() string { return "sqlite" }

// Get returns the blob stored at key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, Version, error) {
	var data []byte
	var version string
	err := s.db.QueryRowContext(ctx, `SELECT data, version FROM blobs WHERE key = ?`, key).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NoVersion, ErrNotFound
	}
	if err != nil {
		return nil, NoVersion, fmt.Errorf("%w: get %s: %w", ErrTransient, key, err)
	}
	return data, Version(version), nil
}

// Put writes data if the stored version equals ifMatch.
func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte, ifMatch Version) (Version, error) {
	next := uuid.NewString()
	var res sql.Result
	var err error
	if ifMatch == NoVersion {
		res, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO blobs (key, data, version) VALUES (?, ?, ?)`,
			key, data, next)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE blobs SET data = ?, version = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE key = ? AND version = ?`,
			data, next, key, string(ifMatch))
	}
	if err != nil {
		return NoVersion, fmt.Errorf("%w: put %s: %w", ErrTransient, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NoVersion, fmt.Errorf("%w: put %s: %w", ErrTransient, key, err)
	}
	if n == 0 {
		return NoVersion, ErrPreconditionFailed
	}
	return Version(next), nil
}

// PutUnconditional overwrites key.
func (s *SQLiteStore) PutUnconditional(ctx context.Context, key string, data []byte) (Version, error) {
	next := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, version) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, version = excluded.version,
		 updated_at = CURRENT_TIMESTAMP`,
		key, data, next)
	if err != nil {
		return NoVersion, fmt.Errorf("%w: put %s: %w", ErrTransient, key, err)
	}
	return Version(next), nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrTransient, key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
