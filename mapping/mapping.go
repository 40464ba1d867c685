// Package mapping maintains the hand-edited CSV files that link SportMonks ids to
// The Odds API names.
//
// The files are owned by the operator: Sync only ever appends ids that are not in the file
// yet and never rewrites an existing row.
package mapping

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a mapping file lacks a required column.
var ErrMissingColumn = errors.New("mapping file is missing a required column")

// Kind names the three columns of a mapping file.
type Kind struct {
	IDColumn   string
	NameColumn string
	OAColumn   string
}

var (
	// Teams maps team ids to OddsAPI team names.
	Teams = Kind{IDColumn: "team_id", NameColumn: "team_name", OAColumn: "oa_name"}
	// Leagues maps league ids to OddsAPI sport keys.
	Leagues = Kind{IDColumn: "league_id", NameColumn: "league_name", OAColumn: "oa_league_name"}
)

func (k Kind) header() []string { return []string{k.IDColumn, k.NameColumn, k.OAColumn} }

// Row is one line of a mapping file.
type Row struct {
	ID     int64
	Name   string
	OAName string
}

// Read returns the rows of the file keyed by id. A missing file yields an empty map.
// Rows whose id does not parse are ignored; cell contents are kept verbatim.
func Read(path string, kind Kind) (map[int64]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[int64]Row{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return read(f, path, kind, false)
}

func read(r io.Reader, path string, kind Kind, requireOA bool) (map[int64]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return map[int64]Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	required := []string{kind.IDColumn}
	if requireOA {
		required = append(required, kind.OAColumn)
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %s needs %v, found %v", ErrMissingColumn, path, required, header)
		}
	}
	cell := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	out := map[int64]Row{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(cell(rec, kind.IDColumn)), 10, 64)
		if err != nil {
			continue
		}
		out[id] = Row{ID: id, Name: cell(rec, kind.NameColumn), OAName: cell(rec, kind.OAColumn)}
	}

	return out, nil
}

// Load returns id to OddsAPI name for every row with a non-empty OddsAPI column.
// The file must exist and carry both the id and the OddsAPI column.
func Load(path string, kind Kind) (map[int64]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer f.Close()
	rows, err := read(f, path, kind, true)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for id, r := range rows {
		if v := strings.TrimSpace(r.OAName); v != "" {
			out[id] = v
		}
	}

	return out, nil
}

// Write replaces the file with rows in the given order, creating parent directories.
func Write(path string, kind Kind, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(kind.header()); err != nil {
		_ = f.Close()
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{strconv.FormatInt(r.ID, 10), r.Name, r.OAName}); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// SyncResult counts what Sync did.
type SyncResult struct {
	InDB     int `json:"in_db"`
	Existing int `json:"existing"`
	Added    int `json:"added"`
	Skipped  int `json:"skipped"`
}

// Order sorts the rows of a file before it is written.
type Order func(rows []Row)

// ByID sorts rows by ascending id.
func ByID(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int { return cmp.Compare(a.ID, b.ID) })
}

// ByLeague returns an Order grouping rows by primary league (unknown leagues last), then
// unmapped rows before mapped ones, then by lower-cased name and id.
func ByLeague(primary map[int64]int64) Order {
	return func(rows []Row) {
		slices.SortFunc(rows, func(a, b Row) int {
			la, oka := primary[a.ID]
			lb, okb := primary[b.ID]
			switch {
			case oka && !okb:
				return -1
			case !oka && okb:
				return 1
			case oka && okb && la != lb:
				return cmp.Compare(la, lb)
			}
			ma, mb := strings.TrimSpace(a.OAName) != "", strings.TrimSpace(b.OAName) != ""
			if ma != mb {
				if ma {
					return 1
				}
				return -1
			}

			return cmp.Or(
				cmp.Compare(strings.ToLower(strings.TrimSpace(a.Name)), strings.ToLower(strings.TrimSpace(b.Name))),
				cmp.Compare(a.ID, b.ID),
			)
		})
	}
}

// Sync appends the ids of current (id to name) that are missing from the file and rewrites
// it in order. Existing rows are preserved exactly.
func Sync(path string, kind Kind, current map[int64]string, order Order) (SyncResult, error) {
	existing, err := Read(path, kind)
	if err != nil {
		return SyncResult{}, err
	}
	res := SyncResult{InDB: len(current), Existing: len(existing)}
	merged := make(map[int64]Row, len(existing)+len(current))
	for id, r := range existing {
		merged[id] = r
	}
	for id, name := range current {
		if _, ok := merged[id]; ok {
			res.Skipped++
			continue
		}
		merged[id] = Row{ID: id, Name: name}
		res.Added++
	}

	rows := make([]Row, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, r)
	}
	if order == nil {
		order = ByID
	}
	order(rows)

	return res, Write(path, kind, rows)
}
