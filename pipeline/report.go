package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report is the result of a stage execution.
type Report[IN, OUT any] struct {
	ID         string       `json:"id"`
	RunID      string       `json:"runId"`
	Def        Definition   `json:"definition"`
	Input      IN           `json:"input"`
	Output     OUT          `json:"output"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Err        *ReportError `json:"error"`
}

// Duration is the wall time of the execution.
func (r Report[IN, OUT]) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ToGenericReport converts the Report to a generic Report.
func (r Report[IN, OUT]) ToGenericReport() Report[any, any] {
	return genericReport(r)
}

// NewReport creates a new report finished now.
func NewReport[IN, OUT any](
	def Definition, runID string, input IN, output OUT, started time.Time, err error,
) Report[IN, OUT] {
	r := Report[IN, OUT]{
		ID:         uuid.New().String(),
		RunID:      runID,
		Def:        def,
		Input:      input,
		Output:     output,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// ReportError represents an error in the Report.
// Its purpose is to have an exported field `Message` for marshalling as the
// native error cant be marshaled to JSON.
type ReportError struct {
	Message string `json:"message"`
}

// Error implements the error interface.
func (o ReportError) Error() string {
	return o.Message
}

var ErrReportNotFound = errors.New("report not found")

// Reporter records stage reports.
type Reporter interface {
	GetReport(id string) (Report[any, any], error)
	GetReports() ([]Report[any, any], error)
	AddReport(report Report[any, any]) error
}

// MemoryReporter stores reports in memory. It is safe for concurrent use.
type MemoryReporter struct {
	reports []Report[any, any]
	mu      sync.RWMutex
}

// NewMemoryReporter creates a new MemoryReporter seeded with reports.
func NewMemoryReporter(reports ...Report[any, any]) *MemoryReporter {
	return &MemoryReporter{reports: reports}
}

// AddReport adds a report to the memory reporter.
func (e *MemoryReporter) AddReport(report Report[any, any]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports = append(e.reports, report)

	return nil
}

// GetReports returns all reports in insertion order.
func (e *MemoryReporter) GetReports() ([]Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	reports := make([]Report[any, any], len(e.reports))
	copy(reports, e.reports)

	return reports, nil
}

// GetReport returns a report by ID.
// Returns ErrReportNotFound if the report is not found.
func (e *MemoryReporter) GetReport(id string) (Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, report := range e.reports {
		if report.ID == id {
			return report, nil
		}
	}

	return Report[any, any]{}, fmt.Errorf("report_id %s: %w", id, ErrReportNotFound)
}

// TeeReporter writes every report to all of its reporters. Reads are served by the first one.
type TeeReporter struct {
	reporters []Reporter
}

// Tee returns a reporter fanning out to reporters. At least one reporter is required.
func Tee(primary Reporter, others ...Reporter) *TeeReporter {
	return &TeeReporter{reporters: append([]Reporter{primary}, others...)}
}

func (t *TeeReporter) AddReport(report Report[any, any]) error {
	var errs []error
	for _, r := range t.reporters {
		if err := r.AddReport(report); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (t *TeeReporter) GetReport(id string) (Report[any, any], error) {
	return t.reporters[0].GetReport(id)
}

func (t *TeeReporter) GetReports() ([]Report[any, any], error) {
	return t.reporters[0].GetReports()
}

func genericReport[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:         r.ID,
		RunID:      r.RunID,
		Def:        r.Def,
		Input:      r.Input,
		Output:     r.Output,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Err:        r.Err,
	}
}
