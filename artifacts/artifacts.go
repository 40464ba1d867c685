// Package artifacts writes run reports and raw provider payloads to disk as JSON files named
// by a sortable ksuid, so a directory listing is in creation order.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/segmentio/ksuid"
)

const (
	reportsDir  = "reports"
	payloadsDir = "payloads"
)

// NewRunID returns a new time-ordered run identifier.
func NewRunID() string {
	return ksuid.New().String()
}

// Dir is an artifacts root directory.
type Dir struct {
	root string
}

// New returns the artifacts directory rooted at root. Nothing is created until a file is saved.
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// SaveReport writes v as reports/<runID>/<ksuid>-<stage>.json and returns the file path.
func (d *Dir) SaveReport(runID, stage string, v any) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("save report %s: empty run id", stage)
	}

	return d.save(filepath.Join(d.root, reportsDir, safeName(runID)), stage, v)
}

// SavePayload writes v as payloads/<ksuid>-<kind>.json and returns the file path.
func (d *Dir) SavePayload(kind string, v any) (string, error) {
	return d.save(filepath.Join(d.root, payloadsDir), kind, v)
}

// Reports lists the report files of a run in creation order.
func (d *Dir) Reports(runID string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.root, reportsDir, safeName(runID), "*.json"))
	if err != nil {
		return nil, err
	}

	return matches, nil
}

func (d *Dir) save(dir, name string, v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ksuid.New().String()+"-"+safeName(name)+".json")
	if err := os.WriteFile(path, append(b, '\n'), 0o600); err != nil {
		return "", err
	}

	return path, nil
}

var unsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// safeName turns an arbitrary label into a file name component.
func safeName(s string) string {
	s = unsafe.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "artifact"
	}

	return s
}
