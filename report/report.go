// Package report renders pipeline results as plain terminal tables.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/stages"
	"github.com/inattention/sportdata/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	sepStyle    = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Table is a titled grid of cells. Columns listed in Right are right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Right   map[int]bool
}

// NewTable returns an empty table.
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers, Right: map[int]bool{}}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Headers))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

func (t *Table) widths() []int {
	w := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		w[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			w[i] = max(w[i], lipgloss.Width(cell))
		}
	}
	// padding
	for i := range w {
		w[i] += 2
	}

	return w
}

// String renders the table. A table without rows renders only its title and a "(no rows)" line.
func (t *Table) String() string {
	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(titleStyle.Render(t.Title))
		sb.WriteString("\n")
	}
	if len(t.Rows) == 0 {
		sb.WriteString("(no rows)\n")
		return sb.String()
	}

	widths := t.widths()
	sep := sepStyle.Render("|")
	line := func(style lipgloss.Style, cells []string) {
		for i, cell := range cells {
			s := style.Width(widths[i])
			if t.Right[i] {
				s = s.Align(lipgloss.Right)
			}
			sb.WriteString(s.Render(cell))
			if i < len(cells)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}

	line(headerStyle, t.Headers)
	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")
	for _, row := range t.Rows {
		line(cellStyle, row)
	}

	return sb.String()
}

var coverageHeaders = []string{
	"league", "fixtures", "lineups", "minutes", "ratings", "minutes+ratings",
	"share lineups", "share minutes", "share ratings", "share both",
}

func coverageRow(name string, c store.Coverage) []string {
	return []string{
		name,
		strconv.FormatInt(c.Fixtures, 10),
		strconv.FormatInt(c.WithLineups, 10),
		strconv.FormatInt(c.WithMinutes, 10),
		strconv.FormatInt(c.WithRatings, 10),
		strconv.FormatInt(c.WithMinutesAndRating, 10),
		share(c.ShareLineups),
		share(c.ShareMinutes),
		share(c.ShareRatings),
		share(c.ShareMinutesAndRating),
	}
}

func share(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func numericColumns(from, to int) map[int]bool {
	m := map[int]bool{}
	for i := from; i < to; i++ {
		m[i] = true
	}

	return m
}

// Coverage renders the overall coverage followed by one row per league.
func Coverage(out stages.CoverageOutput) string {
	overall := NewTable("Overall", coverageHeaders...)
	overall.Right = numericColumns(1, len(coverageHeaders))
	overall.AddRow(coverageRow("all", out.Overall)...)

	byLeague := NewTable("By league", coverageHeaders...)
	byLeague.Right = overall.Right
	for _, c := range out.Leagues {
		name := c.League
		if name == "" {
			name = "(unnamed)"
		}
		byLeague.AddRow(coverageRow(name, c)...)
	}

	return overall.String() + "\n" + byLeague.String()
}

// Run renders one row per executed stage of a run.
func Run(out stages.RunOutput) string {
	t := NewTable(fmt.Sprintf("Run %s (%s)", out.RunID, out.Mode), "stage", "duration", "result")
	t.Right = map[int]bool{1: true}
	for _, s := range out.Steps {
		result := summary(s.Output)
		if s.Err != "" {
			result = errStyle.Render("error: " + s.Err)
		}
		t.AddRow(s.Stage, s.Duration.Round(time.Millisecond).String(), result)
	}

	return t.String()
}

// Reports renders stored stage reports in the order given.
func Reports(reports []pipeline.Report[any, any]) string {
	t := NewTable("Stage reports", "started", "stage", "version", "duration", "result")
	t.Right = map[int]bool{3: true}
	for _, r := range reports {
		result := summary(r.Output)
		if r.Err != nil {
			result = errStyle.Render("error: " + r.Err.Error())
		}
		version := ""
		if r.Def.Version != nil {
			version = r.Def.Version.String()
		}
		t.AddRow(
			r.StartedAt.UTC().Format(time.DateTime),
			r.Def.ID,
			version,
			r.Duration().Round(time.Millisecond).String(),
			result,
		)
	}

	return t.String()
}
