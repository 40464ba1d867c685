package stages

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// TeamsInput configures the teams stage.
type TeamsInput struct {
	Mode Mode `json:"mode"`
}

// TeamsOutput summarises a teams run.
type TeamsOutput struct {
	TeamIDs   int   `json:"teamIds"`
	Fetched   int   `json:"fetched"`
	EmptyName int   `json:"emptyName"`
	Failed    int   `json:"failed"`
	Written   int64 `json:"written"`
	Deleted   int64 `json:"deleted"`
}

// fetchTeams looks up team names concurrently. Failed lookups are logged and counted.
func fetchTeams(ctx context.Context, b pipeline.Bundle, deps *Deps, sm SportMonks, ids []int64, provider string) ([]store.Team, TeamsOutput) {
	lggr := b.Logger.Named("teams")
	var (
		mu   sync.Mutex
		rows []store.Team
		out  TeamsOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deps.concurrency())
	for _, id := range ids {
		g.Go(func() error {
			team, _, err := sm.Team(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed++
				lggr.Warnw("Failed to fetch team", "teamID", id, "error", err)

				return nil
			}
			name := ""
			if team != nil {
				name = strings.TrimSpace(team.Name)
			}
			if name == "" {
				out.EmptyName++
				return nil
			}
			out.Fetched++
			rows = append(rows, store.Team{ID: id, Name: name, Provider: provider})

			return nil
		})
	}
	// Goroutines never return an error: a failed lookup is logged and counted in out.
	_ = g.Wait()
	slices.SortFunc(rows, func(a, b store.Team) int { return cmp.Compare(a.ID, b.ID) })

	return rows, out
}

// Teams loads the names of the teams referenced by stored fixtures.
var Teams = pipeline.NewStage(
	"teams",
	v1,
	"Load the teams referenced by stored fixtures",
	func(b pipeline.Bundle, deps *Deps, in TeamsInput) (TeamsOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("teams")
		provider := deps.provider()

		sm, err := deps.sportmonks("teams")
		if err != nil {
			return TeamsOutput{}, err
		}
		var ids []int64
		if in.Mode.extend() {
			ids, err = deps.Store.MissingTeamIDs(ctx, provider)
		} else {
			ids, err = deps.Store.FixtureTeamIDs(ctx, provider)
		}
		if err != nil {
			return TeamsOutput{}, err
		}
		lggr.Infow("Team ids to fetch", "count", len(ids), "mode", in.Mode)

		rows, out := fetchTeams(ctx, b, deps, sm, ids, provider)
		out.TeamIDs = len(ids)
		if err := ctx.Err(); err != nil {
			return out, err
		}
		b.Metrics.Add("teams", "failed", out.Failed)

		if in.Mode.extend() {
			if out.Written, err = deps.Store.InsertTeams(ctx, rows); err != nil {
				return out, err
			}
			lggr.Infow("Teams inserted", "inserted", out.Written, "failed", out.Failed)

			return out, nil
		}

		err = deps.Store.InTx(ctx, func(tx *store.Store) error {
			var err error
			if out.Written, err = tx.UpsertTeams(ctx, rows); err != nil {
				return err
			}
			out.Deleted, err = tx.DeleteTeamsNotIn(ctx, provider, ids)

			return err
		})
		if err != nil {
			return out, err
		}
		b.Metrics.Add("teams", "written", int(out.Written))
		lggr.Infow("Teams synchronised",
			"insertedOrUpdated", out.Written, "deleted", out.Deleted, "failed", out.Failed, "emptyName", out.EmptyName)

		return out, nil
	},
)
