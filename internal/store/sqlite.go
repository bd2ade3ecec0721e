package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores each collection as one row of a key/value table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %q", path)
	}
	// A single connection keeps writes ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	s, err := NewSQLite(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLite(db *sql.DB) (*SQLiteBackend, error) {
	s := &SQLiteBackend{db: db}
	if err := s.migrate(); err != nil {
		return nil, errors.Wrap(err, "migrate keyed_collections")
	}
	return s, nil
}

func (s *SQLiteBackend) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS keyed_collections (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM keyed_collections WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO keyed_collections (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteBackend) Close() error { return s.db.Close() }
