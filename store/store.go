// Package store persists pipeline data in Postgres.
//
// Every table is maintained with change-aware upserts: a row is only rewritten (and its
// timestamp bumped) when one of its value columns actually differs from the stored row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/inattention/sportdata/pkg/logger"
)

// DB is the subset of database/sql used by the store. Both *sql.DB and *sql.Tx satisfy it.
type DB interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
}

var (
	_ DB = (*sql.DB)(nil)
	_ DB = (*sql.Tx)(nil)
)

// Store wraps a Postgres connection pool, optionally bound to a transaction.
type Store struct {
	base *sql.DB
	tx   *sql.Tx
	lggr logger.Logger
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, lggr logger.Logger, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database url is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(lggr, db), nil
}

// New wraps an existing pool.
func New(lggr logger.Logger, db *sql.DB) *Store {
	return &Store{base: db, lggr: lggr.Named("store")}
}

// SQL returns the underlying pool.
func (s *Store) SQL() *sql.DB { return s.base }

// Close closes the underlying pool.
func (s *Store) Close() error { return s.base.Close() }

func (s *Store) conn() DB {
	if s.tx != nil {
		return s.tx
	}

	return s.base
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	s.lggr.Debugw("Executing query", "sql", q, "args", len(args))
	return s.conn().QueryContext(ctx, q, args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	s.lggr.Debugw("Executing query", "sql", q, "args", len(args))
	return s.conn().QueryRowContext(ctx, q, args...)
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (int64, error) {
	s.lggr.Debugw("Executing statement", "sql", q, "args", len(args))
	res, err := s.conn().ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, nil
}

// Fixture executes a statement and discards the result. It is intended for test setup.
func (s *Store) Fixture(ctx context.Context, q string, args ...any) error {
	_, err := s.exec(ctx, q, args...)
	return err
}

// InTx runs fn against a store bound to a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise. Nested calls reuse the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.base.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	bound := &Store{base: s.base, tx: tx, lggr: s.lggr}
	if err := fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return n, nil
}

func scanInt64s(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

func (s *Store) int64s(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	return scanInt64s(rows)
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	x := v.Int64

	return &x
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()

	return &t
}

// int64Array binds ids as a Postgres bigint[]; nil becomes an empty array rather than NULL.
func int64Array(ids []int64) any {
	if ids == nil {
		ids = []int64{}
	}

	return pq.Array(ids)
}
