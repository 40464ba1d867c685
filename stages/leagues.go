package stages

import (
	"slices"
	"strings"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// LeaguesInput selects the leagues to load.
type LeaguesInput struct {
	LeaguesFile string `json:"leaguesFile"`
	Mode        Mode   `json:"mode"`
}

// LeaguesOutput summarises a leagues run.
type LeaguesOutput struct {
	Requested int     `json:"requested"`
	Found     int     `json:"found"`
	Missing   []int64 `json:"missing,omitempty"`
	Written   int64   `json:"written"`
	Deleted   int64   `json:"deleted"`
}

// Leagues loads the leagues listed in the leagues YAML file from the API.
var Leagues = pipeline.NewStage(
	"leagues",
	v1,
	"Load the leagues listed in the leagues file",
	func(b pipeline.Bundle, deps *Deps, in LeaguesInput) (LeaguesOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("leagues")
		provider := deps.provider()

		sm, err := deps.sportmonks("leagues")
		if err != nil {
			return LeaguesOutput{}, err
		}
		wanted, err := LoadLeagueIDs(in.LeaguesFile)
		if err != nil {
			return LeaguesOutput{}, err
		}
		wanted = sortedUnique(wanted)

		if in.Mode.extend() {
			stored, err := deps.Store.LeagueIDs(ctx, "")
			if err != nil {
				return LeaguesOutput{}, err
			}
			wanted = slices.DeleteFunc(wanted, func(id int64) bool {
				_, ok := slices.BinarySearch(stored, id)
				return ok
			})
			if len(wanted) == 0 {
				lggr.Infow("No new league ids in the leagues file, nothing to insert")
				return LeaguesOutput{}, nil
			}
		}
		out := LeaguesOutput{Requested: len(wanted)}

		all, _, err := sm.Leagues(ctx)
		if err != nil {
			return out, err
		}
		var rows []store.League
		for _, l := range all {
			if _, ok := slices.BinarySearch(wanted, l.ID); !ok {
				continue
			}
			rows = append(rows, store.League{ID: l.ID, Name: strings.TrimSpace(l.Name), Provider: provider})
		}
		out.Found = len(rows)
		out.Missing = missingIDs(wanted, rows, func(l store.League) int64 { return l.ID })
		if len(out.Missing) > 0 {
			lggr.Warnw("League ids not found in the API response",
				"count", len(out.Missing), "first", firstN(out.Missing, 10))
		}

		if in.Mode.extend() {
			out.Written, err = deps.Store.InsertLeagues(ctx, rows)
			if err != nil {
				return out, err
			}
			lggr.Infow("Leagues inserted", "inserted", out.Written)

			return out, nil
		}

		err = deps.Store.InTx(ctx, func(tx *store.Store) error {
			var err error
			if out.Written, err = tx.UpsertLeagues(ctx, rows); err != nil {
				return err
			}
			out.Deleted, err = tx.DeleteLeaguesNotIn(ctx, provider, wanted)

			return err
		})
		if err != nil {
			return out, err
		}
		b.Metrics.Add("leagues", "written", int(out.Written))
		lggr.Infow("Leagues synchronised", "insertedOrUpdated", out.Written, "deleted", out.Deleted)

		return out, nil
	},
)
