package stages

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// playerBatch is the number of players fetched before the batch is written.
const playerBatch = 250

// PlayersOutput summarises a players run.
type PlayersOutput struct {
	Missing int   `json:"missing"`
	Fetched int   `json:"fetched"`
	Failed  int   `json:"failed"`
	Written int64 `json:"written"`
}

// fetchPlayers looks up a batch of player names concurrently. A failed lookup or an empty name
// leaves the slot nil.
func fetchPlayers(ctx context.Context, b pipeline.Bundle, deps *Deps, sm SportMonks, ids []int64) []*store.Player {
	lggr := b.Logger.Named("players")
	out := make([]*store.Player, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deps.concurrency())
	for i, id := range ids {
		g.Go(func() error {
			p, _, err := sm.Player(gctx, id)
			if err != nil {
				lggr.Warnw("Failed to fetch player", "playerID", id, "error", err)
				return nil
			}
			if p == nil {
				return nil
			}
			if name := cleanName(p.Name); name != "" {
				out[i] = &store.Player{ID: id, Name: name}
			}

			return nil
		})
	}
	// Goroutines never return an error: a failed lookup is logged and leaves its slot nil.
	_ = g.Wait()

	return out
}

// Players loads the names of players that appear in lineups but not in the players table.
var Players = pipeline.NewStage(
	"players",
	v1,
	"Load names of players present in lineups",
	func(b pipeline.Bundle, deps *Deps, _ pipeline.EmptyInput) (PlayersOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("players")

		sm, err := deps.sportmonks("players")
		if err != nil {
			return PlayersOutput{}, err
		}
		ids, err := deps.Store.MissingPlayerIDs(ctx)
		if err != nil {
			return PlayersOutput{}, err
		}
		out := PlayersOutput{Missing: len(ids)}
		lggr.Infow("Players missing from the players table", "count", len(ids))

		for start := 0; start < len(ids); start += playerBatch {
			batch := ids[start:min(start+playerBatch, len(ids))]
			var rows []store.Player
			for _, p := range fetchPlayers(ctx, b, deps, sm, batch) {
				if p == nil {
					out.Failed++
					continue
				}
				rows = append(rows, *p)
			}
			if err := ctx.Err(); err != nil {
				return out, err
			}
			n, err := deps.Store.UpsertPlayers(ctx, rows)
			if err != nil {
				return out, err
			}
			out.Fetched += len(rows)
			out.Written += n
			lggr.Infow("Progress", "done", start+len(batch), "of", len(ids), "fetched", out.Fetched, "failed", out.Failed)
		}
		b.Metrics.Add("players", "written", int(out.Written))
		b.Metrics.Add("players", "failed", out.Failed)

		return out, nil
	},
)
