package stages

import (
	"fmt"
	"time"

	"github.com/inattention/sportdata/mapping"
	"github.com/inattention/sportdata/matching"
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// Snapshot modes of the fixtures matching stage.
const (
	SnapshotKickoffPlus1h = "kickoff_plus_1h"
	SnapshotNow           = "now"
)

// MatchingInput configures the fixtures matching stage.
type MatchingInput struct {
	LeagueCSV    string `json:"leagueCsv"`
	TeamCSV      string `json:"teamCsv"`
	Limit        int    `json:"limit,omitempty"`
	WindowHours  int    `json:"windowHours"`
	SnapshotMode string `json:"snapshotMode"`
}

// MatchingOutput summarises a matching run.
type MatchingOutput struct {
	Candidates     int   `json:"candidates"`
	Matched        int   `json:"matched"`
	SkippedMapping int   `json:"skippedMapping"`
	NoMatch        int   `json:"noMatch"`
	Failed         int   `json:"failed"`
	Written        int64 `json:"written"`
}

// loadMappings reads both mapping files, requiring each to map at least one id.
func loadMappings(leagueCSV, teamCSV string) (leagues, teams map[int64]string, err error) {
	if leagues, err = mapping.Load(leagueCSV, mapping.Leagues); err != nil {
		return nil, nil, err
	}
	if len(leagues) == 0 {
		return nil, nil, fmt.Errorf("no league mappings with %s found: fill %s first", mapping.Leagues.OAColumn, leagueCSV)
	}
	if teams, err = mapping.Load(teamCSV, mapping.Teams); err != nil {
		return nil, nil, err
	}
	if len(teams) == 0 {
		return nil, nil, fmt.Errorf("no team mappings with %s found: fill %s first", mapping.Teams.OAColumn, teamCSV)
	}

	return leagues, teams, nil
}

func matchRow(fx store.Kickoff, r matching.Result) store.Match {
	return store.Match{
		FixtureID:    fx.FixtureID,
		LeagueID:     fx.LeagueID,
		EventID:      r.EventID,
		HomeTeam:     r.HomeTeam,
		AwayTeam:     r.AwayTeam,
		CommenceTime: ptr(r.Commence.UTC()),
	}
}

// FixturesMatching links unmatched fixtures of mapped leagues to OddsAPI events whose team names
// equal the mapped names, picking the event closest to kickoff.
var FixturesMatching = pipeline.NewStage(
	"fixtures_matching",
	v1,
	"Link fixtures to OddsAPI events",
	func(b pipeline.Bundle, deps *Deps, in MatchingInput) (MatchingOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("fixtures_matching")

		oa, err := deps.oddsAPI("fixtures_matching")
		if err != nil {
			return MatchingOutput{}, err
		}
		if in.WindowHours <= 0 {
			in.WindowHours = 12
		}
		switch in.SnapshotMode {
		case "":
			in.SnapshotMode = SnapshotKickoffPlus1h
		case SnapshotKickoffPlus1h, SnapshotNow:
		default:
			return MatchingOutput{}, fmt.Errorf("snapshot mode must be %q or %q, got %q",
				SnapshotKickoffPlus1h, SnapshotNow, in.SnapshotMode)
		}
		leagueMap, teamMap, err := loadMappings(in.LeagueCSV, in.TeamCSV)
		if err != nil {
			return MatchingOutput{}, err
		}
		leagueIDs := make([]int64, 0, len(leagueMap))
		for id := range leagueMap {
			leagueIDs = append(leagueIDs, id)
		}
		leagueIDs = sortedUnique(leagueIDs)

		fixtures, err := deps.Store.UnmatchedFixtures(ctx, leagueIDs, store.FixtureFilter{Limit: in.Limit})
		if err != nil {
			return MatchingOutput{}, err
		}
		out := MatchingOutput{Candidates: len(fixtures)}
		lggr.Infow("Unmatched candidate fixtures", "count", len(fixtures), "limit", in.Limit)
		if len(fixtures) == 0 {
			return out, nil
		}

		window := time.Duration(in.WindowHours) * time.Hour
		var rows []store.Match
		for _, fx := range fixtures {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			sport := leagueMap[fx.LeagueID]
			home, away := teamMap[fx.HomeTeamID], teamMap[fx.AwayTeamID]
			if sport == "" || home == "" || away == "" {
				out.SkippedMapping++
				lggr.Debugw("Skipping fixture without mapping",
					"fixtureID", fx.FixtureID, "leagueID", fx.LeagueID, "sportKey", sport,
					"homeTeamID", fx.HomeTeamID, "homeMapped", home != "",
					"awayTeamID", fx.AwayTeamID, "awayMapped", away != "")

				continue
			}

			kickoff := fx.Kickoff.UTC()
			from, to := kickoff.Add(-window), kickoff.Add(window)
			snapshot := kickoff.Add(time.Hour)
			if in.SnapshotMode == SnapshotNow {
				snapshot = time.Now().UTC()
			}
			snap, err := oa.HistoricalEvents(ctx, sport, snapshot, &from, &to)
			if err != nil {
				out.Failed++
				lggr.Warnw("OddsAPI call failed", "fixtureID", fx.FixtureID, "sportKey", sport, "error", err)

				continue
			}
			best, ok := matching.BestEvent(snap.Data, home, away, kickoff)
			if !ok {
				out.NoMatch++
				lggr.Infow("No matching event",
					"fixtureID", fx.FixtureID, "sportKey", sport, "kickoff", kickoff,
					"home", home, "away", away, "events", len(snap.Data), "windowHours", in.WindowHours)

				continue
			}
			out.Matched++
			lggr.Infow("Matched fixture",
				"fixtureID", fx.FixtureID, "eventID", best.EventID, "kind", best.Kind,
				"kickoff", kickoff, "commence", best.Commence, "home", best.HomeTeam, "away", best.AwayTeam)
			rows = append(rows, matchRow(fx, best))
		}

		if out.Written, err = deps.Store.UpsertMatches(ctx, rows); err != nil {
			return out, err
		}
		b.Metrics.Add("fixtures_matching", "matched", out.Matched)
		b.Metrics.Add("fixtures_matching", "no_match", out.NoMatch)
		lggr.Infow("Fixtures matching done",
			"matched", out.Matched, "noMatch", out.NoMatch, "skippedMapping", out.SkippedMapping,
			"failed", out.Failed, "written", out.Written)

		return out, nil
	},
)

// RematchInput configures the relaxed rematch stage.
type RematchInput struct {
	LeagueCSV  string `json:"leagueCsv"`
	TeamCSV    string `json:"teamCsv"`
	Limit      int    `json:"limit"`
	LeagueID   int64  `json:"leagueId,omitempty"`
	SeasonID   int64  `json:"seasonId,omitempty"`
	DryRun     bool   `json:"dryRun"`
	WindowDays int    `json:"windowDays"`
}

// RematchOutput summarises a rematch run.
type RematchOutput struct {
	Candidates int   `json:"candidates"`
	Matched    int   `json:"matched"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	Written    int64 `json:"written"`
}

// Rematch retries fixtures still lacking an OddsAPI event with relaxed matching: one mapped
// team name is enough and the window is measured in days.
var Rematch = pipeline.NewStage(
	"rematch",
	v1,
	"Match remaining fixtures to OddsAPI events with relaxed team matching",
	func(b pipeline.Bundle, deps *Deps, in RematchInput) (RematchOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("rematch")

		oa, err := deps.oddsAPI("rematch")
		if err != nil {
			return RematchOutput{}, err
		}
		if in.Limit <= 0 {
			in.Limit = 200
		}
		if in.WindowDays <= 0 {
			in.WindowDays = 1
		}
		leagueMap, teamMap, err := loadMappings(in.LeagueCSV, in.TeamCSV)
		if err != nil {
			return RematchOutput{}, err
		}

		missing, err := deps.Store.UnmatchedFixtures(ctx, nil, store.FixtureFilter{
			LeagueID: in.LeagueID, SeasonID: in.SeasonID, Limit: in.Limit,
		})
		if err != nil {
			return RematchOutput{}, err
		}
		out := RematchOutput{Candidates: len(missing)}
		if len(missing) == 0 {
			lggr.Infow("No missing fixtures found", "leagueID", in.LeagueID, "seasonID", in.SeasonID)
			return out, nil
		}
		lggr.Infow("Missing fixtures to try",
			"count", len(missing), "dryRun", in.DryRun, "leagueID", in.LeagueID, "seasonID", in.SeasonID)

		window := time.Duration(in.WindowDays) * 24 * time.Hour
		for i, fx := range missing {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			sport, ok := leagueMap[fx.LeagueID]
			if !ok {
				out.Skipped++
				lggr.Infow("No league mapping, skipping", "at", i+1, "fixtureID", fx.FixtureID, "leagueID", fx.LeagueID)

				continue
			}
			home, away := teamMap[fx.HomeTeamID], teamMap[fx.AwayTeamID]
			if home == "" && away == "" {
				out.Skipped++
				lggr.Infow("No team mapping for both teams, skipping", "at", i+1, "fixtureID", fx.FixtureID)

				continue
			}

			from, to := fx.Kickoff.Add(-window), fx.Kickoff.Add(window)
			snap, err := oa.HistoricalEvents(ctx, sport, to, &from, &to)
			if err != nil {
				out.Failed++
				lggr.Warnw("OddsAPI call failed", "at", i+1, "fixtureID", fx.FixtureID, "error", err)

				continue
			}
			best, ok := matching.BestEventRelaxed(snap.Data, home, away, fx.Kickoff)
			if !ok {
				out.Failed++
				lggr.Infow("No candidate event",
					"at", i+1, "fixtureID", fx.FixtureID, "sportKey", sport, "home", home, "away", away, "events", len(snap.Data))

				continue
			}
			out.Matched++
			lggr.Infow("Matched fixture",
				"at", i+1, "fixtureID", fx.FixtureID, "seasonID", fx.SeasonID, "kickoff", fx.Kickoff,
				"smHome", orTeamID(fx.HomeTeamName, fx.HomeTeamID), "smAway", orTeamID(fx.AwayTeamName, fx.AwayTeamID),
				"score", best.Score, "timeDiff", best.Diff, "eventID", best.EventID,
				"commence", best.Commence, "oaHome", best.HomeTeam, "oaAway", best.AwayTeam)
			if in.DryRun {
				continue
			}
			n, err := deps.Store.UpsertMatches(ctx, []store.Match{matchRow(fx, best)})
			if err != nil {
				return out, err
			}
			out.Written += n
		}
		b.Metrics.Add("rematch", "matched", out.Matched)
		lggr.Infow("Rematch done",
			"matched", out.Matched, "failed", out.Failed, "skipped", out.Skipped, "written", out.Written)

		return out, nil
	},
)

func orTeamID(name string, id int64) string {
	if name != "" {
		return name
	}

	return fmt.Sprintf("team_id=%d", id)
}
