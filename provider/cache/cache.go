// Package cache persists raw provider payloads in a local sqlite file.
//
// Only immutable responses belong here, e.g. historical odds snapshots: they never change once
// published and re-fetching them costs API quota.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS payloads (
	key        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
);`

// SQLite is a payload cache backed by a sqlite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache file at path.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Get returns the cached body for key.
func (c *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx, `SELECT body FROM payloads WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return body, true, nil
}

// Put stores body under key, replacing any previous entry.
func (c *SQLite) Put(ctx context.Context, key string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO payloads (key, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		key, body, c.now().Unix(),
	)

	return err
}

// Len returns the number of cached payloads.
func (c *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payloads`).Scan(&n)

	return n, err
}

// Purge removes entries fetched before cutoff and returns how many were removed.
func (c *SQLite) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM payloads WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLite) Close() error {
	return c.db.Close()
}
