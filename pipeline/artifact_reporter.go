package pipeline

import (
	"fmt"

	"github.com/inattention/sportdata/artifacts"
)

// ArtifactReporter keeps reports in memory and also writes each one to the artifacts directory.
type ArtifactReporter struct {
	*MemoryReporter
	dir *artifacts.Dir
}

// NewArtifactReporter returns a reporter writing under dir.
func NewArtifactReporter(dir *artifacts.Dir) *ArtifactReporter {
	return &ArtifactReporter{MemoryReporter: NewMemoryReporter(), dir: dir}
}

// AddReport records the report and saves it as reports/<runID>/<ksuid>-<stage>.json.
func (r *ArtifactReporter) AddReport(report Report[any, any]) error {
	if err := r.MemoryReporter.AddReport(report); err != nil {
		return err
	}
	if _, err := r.dir.SaveReport(report.RunID, report.Def.ID, report); err != nil {
		return fmt.Errorf("save report artifact: %w", err)
	}

	return nil
}
