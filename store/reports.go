package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrStageReportNotFound is returned when no stage report has the requested id.
var ErrStageReportNotFound = errors.New("stage report not found")

// StageReport is a persisted stage execution.
type StageReport struct {
	ID         string
	RunID      string
	Stage      string
	Version    string
	Input      json.RawMessage
	Output     json.RawMessage
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// InsertStageReport stores a stage execution. Reports are immutable; a duplicate id is an error.
func (s *Store) InsertStageReport(ctx context.Context, r StageReport) error {
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}
	_, err := s.exec(ctx, `INSERT INTO stage_reports
		(id, run_id, stage, version, input, output, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.RunID, r.Stage, r.Version, jsonb(r.Input), jsonb(r.Output), errText,
		r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert stage report %s: %w", r.ID, err)
	}

	return nil
}

// StageReport loads a report by id.
func (s *Store) StageReport(ctx context.Context, id string) (StageReport, error) {
	rows, err := s.stageReports(ctx, "WHERE id = $1", id)
	if err != nil {
		return StageReport{}, err
	}
	if len(rows) == 0 {
		return StageReport{}, fmt.Errorf("%w: %s", ErrStageReportNotFound, id)
	}

	return rows[0], nil
}

// StageReports lists the reports of a run in execution order.
func (s *Store) StageReports(ctx context.Context, runID string) ([]StageReport, error) {
	return s.stageReports(ctx, "WHERE run_id = $1", runID)
}

func (s *Store) stageReports(ctx context.Context, where string, args ...any) ([]StageReport, error) {
	rows, err := s.query(ctx, `SELECT id, run_id, stage, version, input, output, error, started_at, finished_at
		FROM stage_reports `+where+` ORDER BY started_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list stage reports: %w", err)
	}
	defer rows.Close()
	var out []StageReport
	for rows.Next() {
		var (
			r             StageReport
			input, output []byte
			errText       sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Stage, &r.Version, &input, &output, &errText,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Input = input
		r.Output = output
		r.Error = errText.String
		r.StartedAt = r.StartedAt.UTC()
		r.FinishedAt = r.FinishedAt.UTC()
		out = append(out, r)
	}

	return out, rows.Err()
}

// jsonb binds raw JSON, mapping an empty document to NULL.
func jsonb(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	return string(raw)
}
