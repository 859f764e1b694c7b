package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"checkin-go/domain/balance"
)

const createBalanceTable = `CREATE TABLE IF NOT EXISTS balance_state (
	scope      TEXT PRIMARY KEY,
	hash       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const upsertBalance = `INSERT INTO balance_state (scope, hash, updated_at) VALUES (?, ?, ?)
ON CONFLICT(scope) DO UPDATE SET hash = excluded.hash, updated_at = excluded.updated_at`

// SQLiteHashStore keeps the hash in a local SQLite database.
type SQLiteHashStore struct {
	db    *sql.DB
	scope string
}

// OpenSQLiteHashStore opens (or creates) the database at path.
func OpenSQLiteHashStore(ctx context.Context, path, scope string) (*SQLiteHashStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if scope == "" {
		scope = DefaultScope
	}

	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open(sqlite): %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createBalanceTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create balance table: %w", err)
	}
	return &SQLiteHashStore{db: db, scope: scope}, nil
}

// Load reads the scope's hash.
func (s *SQLiteHashStore) Load(ctx context.Context) (string, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM balance_state WHERE scope = ?`, s.scope).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query balance state: %w", err)
	}
	hash, err := parseHash(raw)
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Save upserts the scope's hash.
func (s *SQLiteHashStore) Save(ctx context.Context, hash string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, upsertBalance, s.scope, hash, now); err != nil {
		return fmt.Errorf("failed to save balance state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteHashStore) Close() error {
	return s.db.Close()
}

var _ balance.Store = (*SQLiteHashStore)(nil)
