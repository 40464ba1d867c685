package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/inattention/sportdata/store"
)

// ReportStore persists stage reports.
type ReportStore interface {
	InsertStageReport(ctx context.Context, r store.StageReport) error
	StageReport(ctx context.Context, id string) (store.StageReport, error)
	StageReports(ctx context.Context, runID string) ([]store.StageReport, error)
}

// StoreReporter records the reports of one run in the stage_reports table.
type StoreReporter struct {
	db     ReportStore
	runID  string
	getCtx func() context.Context
}

// NewStoreReporter returns a reporter for runID.
func NewStoreReporter(getCtx func() context.Context, db ReportStore, runID string) *StoreReporter {
	return &StoreReporter{db: db, runID: runID, getCtx: getCtx}
}

// AddReport marshals the report's input and output to JSON and inserts it.
func (r *StoreReporter) AddReport(report Report[any, any]) error {
	input, err := json.Marshal(report.Input)
	if err != nil {
		return fmt.Errorf("marshal report input: %w", err)
	}
	output, err := json.Marshal(report.Output)
	if err != nil {
		return fmt.Errorf("marshal report output: %w", err)
	}
	row := store.StageReport{
		ID:         report.ID,
		RunID:      report.RunID,
		Stage:      report.Def.ID,
		Input:      input,
		Output:     output,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
	if row.RunID == "" {
		row.RunID = r.runID
	}
	if report.Def.Version != nil {
		row.Version = report.Def.Version.String()
	}
	if report.Err != nil {
		row.Error = report.Err.Message
	}

	return r.db.InsertStageReport(r.getCtx(), row)
}

// GetReport loads a report by id. Input and output come back as generic JSON values.
func (r *StoreReporter) GetReport(id string) (Report[any, any], error) {
	row, err := r.db.StageReport(r.getCtx(), id)
	if errors.Is(err, store.ErrStageReportNotFound) {
		return Report[any, any]{}, fmt.Errorf("report_id %s: %w", id, ErrReportNotFound)
	}
	if err != nil {
		return Report[any, any]{}, err
	}

	return fromRow(row)
}

// GetReports returns the reports of the reporter's run.
func (r *StoreReporter) GetReports() ([]Report[any, any], error) {
	rows, err := r.db.StageReports(r.getCtx(), r.runID)
	if err != nil {
		return nil, err
	}
	out := make([]Report[any, any], 0, len(rows))
	for _, row := range rows {
		rep, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}

	return out, nil
}

func fromRow(row store.StageReport) (Report[any, any], error) {
	rep := Report[any, any]{
		ID:         row.ID,
		RunID:      row.RunID,
		Def:        Definition{ID: row.Stage},
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
	if row.Version != "" {
		v, err := semver.NewVersion(row.Version)
		if err != nil {
			return Report[any, any]{}, fmt.Errorf("report %s version: %w", row.ID, err)
		}
		rep.Def.Version = v
	}
	if len(row.Input) > 0 {
		if err := json.Unmarshal(row.Input, &rep.Input); err != nil {
			return Report[any, any]{}, fmt.Errorf("report %s input: %w", row.ID, err)
		}
	}
	if len(row.Output) > 0 {
		if err := json.Unmarshal(row.Output, &rep.Output); err != nil {
			return Report[any, any]{}, fmt.Errorf("report %s output: %w", row.ID, err)
		}
	}
	if row.Error != "" {
		rep.Err = &ReportError{Message: row.Error}
	}

	return rep, nil
}
