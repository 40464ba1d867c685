package stages

import (
	"context"
	"fmt"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/provider/sportmonks"
	"github.com/inattention/sportdata/store"
)

// LineupsInput configures the lineups stage.
type LineupsInput struct {
	Mode Mode `json:"mode"`
	// SeasonID restricts an extend run to one season. Zero means all seasons.
	SeasonID int64 `json:"seasonId,omitempty"`
}

// LineupsOutput summarises a lineups run.
type LineupsOutput struct {
	Fixtures int   `json:"fixtures"`
	OK       int   `json:"ok"`
	Skipped  int   `json:"skipped"`
	Failed   int   `json:"failed"`
	Written  int64 `json:"written"`
	Deleted  int64 `json:"deleted"`
}

// flattenLineup returns one row per player of both sides. Rows without a player id are dropped.
func flattenLineup(fixtureID int64, l *sportmonks.Lineup) []store.Lineup {
	if l == nil {
		return nil
	}
	if l.FixtureID != 0 {
		fixtureID = l.FixtureID
	}
	var rows []store.Lineup
	for _, side := range [][]sportmonks.LineupEntry{l.HomeLineup, l.AwayLineup} {
		for _, p := range side {
			if p.PlayerID == nil {
				continue
			}
			rows = append(rows, store.Lineup{
				FixtureID:         fixtureID,
				PlayerID:          *p.PlayerID,
				TeamID:            p.TeamID,
				TypeID:            p.TypeID,
				Minutes:           ptr(p.MinutesPlayed),
				Rating:            p.Rating,
				FormationPosition: p.FormationPosition,
			})
		}
	}

	return rows
}

// Lineups loads the lineup of every stored fixture, one fixture at a time so an interrupted
// run keeps what it saved.
var Lineups = pipeline.NewStage(
	"lineups",
	v1,
	"Load fixture lineups with player minutes and ratings",
	func(b pipeline.Bundle, deps *Deps, in LineupsInput) (LineupsOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("lineups")

		sm, err := deps.sportmonks("lineups")
		if err != nil {
			return LineupsOutput{}, err
		}
		var ids []int64
		if in.Mode.extend() {
			ids, err = deps.Store.FixturesWithoutLineups(ctx, in.SeasonID)
		} else {
			ids, err = deps.Store.FixtureIDs(ctx)
		}
		if err != nil {
			return LineupsOutput{}, err
		}
		out := LineupsOutput{Fixtures: len(ids)}
		lggr.Infow("Fixtures to process", "count", len(ids), "mode", in.Mode, "seasonID", in.SeasonID)

		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				lggr.Warnw("Stopping early, progress is saved fixture by fixture", "processed", i)
				return out, err
			}
			if !in.Mode.extend() {
				done, err := deps.Store.HasLineup(ctx, id)
				if err != nil {
					return out, err
				}
				if done {
					out.Skipped++
					if out.Skipped%200 == 0 {
						lggr.Infow("Progress", "at", i+1, "of", len(ids), "skipped", out.Skipped, "ok", out.OK, "failed", out.Failed)
					}

					continue
				}
			}

			n, err := saveLineup(ctx, b, deps, sm, id, in.Mode)
			if err != nil {
				out.Failed++
				lggr.Warnw("Failed to fetch or save lineup", "fixtureID", id, "error", err)

				continue
			}
			out.OK++
			out.Written += n
			if out.OK%25 == 0 || i == len(ids)-1 {
				lggr.Infow("Progress",
					"at", i+1, "of", len(ids), "ok", out.OK, "skipped", out.Skipped, "failed", out.Failed, "rows", out.Written)
			}
		}
		b.Metrics.Add("lineups", "ok", out.OK)
		b.Metrics.Add("lineups", "skipped", out.Skipped)
		b.Metrics.Add("lineups", "failed", out.Failed)

		if !in.Mode.extend() {
			if out.Deleted, err = deps.Store.DeleteOrphanLineups(ctx); err != nil {
				return out, err
			}
		}
		lggr.Infow("Lineups done",
			"ok", out.OK, "skipped", out.Skipped, "failed", out.Failed, "rows", out.Written, "deleted", out.Deleted)

		return out, nil
	},
)

func saveLineup(ctx context.Context, b pipeline.Bundle, deps *Deps, sm SportMonks, fixtureID int64, mode Mode) (int64, error) {
	lineup, err := pipeline.RetryRateLimited(ctx, b.Logger, deps.lineupRetry(), fmt.Sprintf("lineup %d", fixtureID),
		func(ctx context.Context) (*sportmonks.Lineup, error) {
			l, _, err := sm.Lineup(ctx, fixtureID)
			return l, err
		})
	if err != nil {
		return 0, err
	}
	rows := flattenLineup(fixtureID, lineup)
	if mode.extend() {
		return deps.Store.InsertLineups(ctx, rows)
	}

	return deps.Store.UpsertLineups(ctx, rows)
}
