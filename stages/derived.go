package stages

import (
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// DerivedInput configures the stages computed from stored tables.
type DerivedInput struct {
	Mode Mode `json:"mode"`
}

// DerivedOutput summarises a derived table run.
type DerivedOutput struct {
	Rows    int   `json:"rows"`
	Written int64 `json:"written"`
	Deleted int64 `json:"deleted"`
}

// PreviousMatches links every fixture and team to the team's five previous fixtures.
var PreviousMatches = pipeline.NewStage(
	"previous_matches",
	v1,
	"Link each fixture and team to the team's five previous fixtures",
	func(b pipeline.Bundle, deps *Deps, in DerivedInput) (DerivedOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("previous_matches")
		provider := deps.provider()

		rows, err := deps.Store.BuildPreviousMatches(ctx, provider, in.Mode.extend())
		if err != nil {
			return DerivedOutput{}, err
		}
		out := DerivedOutput{Rows: len(rows)}

		if in.Mode.extend() {
			if out.Written, err = deps.Store.InsertPreviousMatches(ctx, rows); err != nil {
				return out, err
			}
			lggr.Infow("Previous matches inserted", "rows", out.Rows, "inserted", out.Written)

			return out, nil
		}

		err = deps.Store.InTx(ctx, func(tx *store.Store) error {
			var err error
			if out.Written, err = tx.UpsertPreviousMatches(ctx, rows); err != nil {
				return err
			}
			out.Deleted, err = tx.DeleteStalePreviousMatches(ctx, provider)

			return err
		})
		if err != nil {
			return out, err
		}
		b.Metrics.Add("previous_matches", "written", int(out.Written))
		lggr.Infow("Previous matches synchronised", "rows", out.Rows, "insertedOrUpdated", out.Written, "deleted", out.Deleted)

		return out, nil
	},
)

// TeamRatings averages the player ratings of each team in each fixture.
var TeamRatings = pipeline.NewStage(
	"team_ratings",
	v1,
	"Average player ratings per fixture and team",
	func(b pipeline.Bundle, deps *Deps, in DerivedInput) (DerivedOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("team_ratings")

		rows, err := deps.Store.ComputeTeamRatings(ctx, in.Mode.extend())
		if err != nil {
			return DerivedOutput{}, err
		}
		out := DerivedOutput{Rows: len(rows)}
		if in.Mode.extend() {
			out.Written, err = deps.Store.InsertTeamRatings(ctx, rows)
		} else {
			out.Written, err = deps.Store.UpsertTeamRatings(ctx, rows)
		}
		if err != nil {
			return out, err
		}
		b.Metrics.Add("team_ratings", "written", int(out.Written))
		lggr.Infow("Team ratings written", "rows", out.Rows, "written", out.Written, "mode", in.Mode)

		return out, nil
	},
)
