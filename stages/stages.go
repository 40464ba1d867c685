// Package stages implements the numbered database pipeline: catalog loading from SportMonks,
// derived tables, cross-provider mappings and historical odds.
//
// Each stage is a pipeline.Stage run through pipeline.ExecuteStage. Stages are idempotent and
// resumable: rerunning one continues where an interrupted run stopped.
package stages

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/inattention/sportdata/pipeline"
)

// Mode selects between a full synchronisation and an insert-only extension.
type Mode string

const (
	// ModeSync upserts changed rows and deletes rows that are no longer selected.
	ModeSync Mode = "sync"
	// ModeExtend only inserts rows that are missing; nothing is updated or deleted.
	ModeExtend Mode = "extend"
)

// ParseMode validates a textual mode, defaulting to ModeSync.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSync, nil
	case ModeSync, ModeExtend:
		return m, nil
	default:
		return "", fmt.Errorf("mode must be %q or %q, got %q", ModeSync, ModeExtend, s)
	}
}

func (m Mode) extend() bool { return m == ModeExtend }

var v1 = semver.MustParse("1.0.0")

// Registry returns every stage, keyed by the id used on the command line.
func Registry() *pipeline.Registry {
	r := pipeline.NewRegistry()
	pipeline.Register(r, Leagues)
	pipeline.Register(r, Seasons)
	pipeline.Register(r, Fixtures)
	pipeline.Register(r, Teams)
	pipeline.Register(r, Lineups)
	pipeline.Register(r, PreviousMatches)
	pipeline.Register(r, Players)
	pipeline.Register(r, TeamRatings)
	pipeline.Register(r, TeamMapping)
	pipeline.Register(r, LeagueMapping)
	pipeline.Register(r, FixturesMatching)
	pipeline.Register(r, Rematch)
	pipeline.Register(r, OddsHistory)
	pipeline.Register(r, OddsSportMonks)
	pipeline.Register(r, Coverage)

	return r
}
