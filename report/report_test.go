package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/stages"
	"github.com/inattention/sportdata/store"
)

func TestTable_String(t *testing.T) {
	t.Parallel()

	tbl := NewTable("Teams", "id", "name")
	tbl.Right[0] = true
	tbl.AddRow("1", "Arsenal")
	tbl.AddRow("1000", "Brighton & Hove Albion", "dropped")
	tbl.AddRow("7")

	lines := strings.Split(strings.TrimRight(tbl.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Teams", lines[0])
	assert.Contains(t, lines[1], "name")
	assert.Equal(t, strings.Repeat("-", 6+24+1), lines[2])
	assert.Contains(t, lines[3], "    1 |")
	assert.Contains(t, lines[4], "Brighton & Hove Albion")
	assert.NotContains(t, tbl.String(), "dropped")

	empty := NewTable("Nothing", "a")
	assert.Equal(t, "Nothing\n(no rows)\n", empty.String())
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	out := stages.CoverageOutput{
		Overall: store.Coverage{Fixtures: 3, WithLineups: 2, ShareLineups: store.Share(2, 3)},
		Leagues: []store.Coverage{
			{League: "Premier League", Fixtures: 2, WithLineups: 2, ShareLineups: 1},
			{League: "", Fixtures: 1},
		},
	}

	got := Coverage(out)
	assert.Contains(t, got, "Overall")
	assert.Contains(t, got, "By league")
	assert.Contains(t, got, "0.6667")
	assert.Contains(t, got, "1.0000")
	assert.Contains(t, got, "Premier League")
	assert.Contains(t, got, "(unnamed)")
	assert.Less(t, strings.Index(got, "Premier League"), strings.Index(got, "(unnamed)"))
}

func TestRun(t *testing.T) {
	t.Parallel()

	got := Run(stages.RunOutput{
		RunID: "2abc",
		Mode:  stages.ModeSync,
		Steps: []stages.Step{
			{Stage: "leagues", Duration: 1500 * time.Microsecond, Output: stages.LeaguesOutput{Requested: 2, Found: 2, Written: 2}},
			{Stage: "seasons", Duration: time.Second, Err: "seasons: boom"},
		},
	})

	assert.Contains(t, got, "Run 2abc (sync)")
	assert.Contains(t, got, "deleted=0 found=2 requested=2 written=2")
	assert.Contains(t, got, "2ms")
	assert.Contains(t, got, "error: seasons: boom")
}

func TestReports(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ok := pipeline.NewReport(
		pipeline.Definition{ID: "teams", Version: semver.MustParse("1.0.0")},
		"run", any(nil), any(map[string]int{"written": 4}), started, nil,
	)
	failed := pipeline.NewReport(
		pipeline.Definition{ID: "lineups"},
		"run", any(nil), any(nil), started, errors.New("rate limited"),
	)

	got := Reports([]pipeline.Report[any, any]{ok, failed})
	assert.Contains(t, got, "2024-05-01 10:00:00")
	assert.Contains(t, got, "1.0.0")
	assert.Contains(t, got, "written=4")
	assert.Contains(t, got, "error: rate limited")
}

func TestSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give any
		want string
	}{
		{name: "nil", give: nil, want: ""},
		{name: "struct", give: stages.DerivedOutput{Rows: 3, Written: 1}, want: "deleted=0 rows=3 written=1"},
		{name: "non numeric fields dropped", give: map[string]any{"missing": []int{1}, "n": 2}, want: "n=2"},
		{name: "scalar", give: 5, want: "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, summary(tt.give))
		})
	}
}
