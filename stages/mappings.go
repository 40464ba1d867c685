package stages

import (
	"github.com/inattention/sportdata/mapping"
	"github.com/inattention/sportdata/pipeline"
)

// MappingInput configures the mapping stages.
type MappingInput struct {
	Path string `json:"path"`
	Mode Mode   `json:"mode"`
}

// TeamMapping appends stored teams that are missing from the team mapping CSV. An extend run
// also orders the file by primary league with unmapped teams first.
var TeamMapping = pipeline.NewStage(
	"team_mapping",
	v1,
	"Append new teams to the team name mapping file",
	func(b pipeline.Bundle, deps *Deps, in MappingInput) (mapping.SyncResult, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("team_mapping")

		teams, err := deps.Store.TeamNames(ctx)
		if err != nil {
			return mapping.SyncResult{}, err
		}
		var order mapping.Order = mapping.ByID
		if in.Mode.extend() {
			primary, err := deps.Store.TeamPrimaryLeagues(ctx)
			if err != nil {
				return mapping.SyncResult{}, err
			}
			order = mapping.ByLeague(primary)
		}
		res, err := mapping.Sync(in.Path, mapping.Teams, teams, order)
		if err != nil {
			return res, err
		}
		lggr.Infow("Team mapping updated",
			"path", in.Path, "inDB", res.InDB, "existing", res.Existing, "added", res.Added, "skipped", res.Skipped)

		return res, nil
	},
)

// LeagueMapping appends stored leagues that are missing from the league mapping CSV.
var LeagueMapping = pipeline.NewStage(
	"league_mapping",
	v1,
	"Append new leagues to the league mapping file",
	func(b pipeline.Bundle, deps *Deps, in MappingInput) (mapping.SyncResult, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("league_mapping")

		leagues, err := deps.Store.LeagueNames(ctx)
		if err != nil {
			return mapping.SyncResult{}, err
		}
		res, err := mapping.Sync(in.Path, mapping.Leagues, leagues, mapping.ByID)
		if err != nil {
			return res, err
		}
		lggr.Infow("League mapping updated",
			"path", in.Path, "inDB", res.InDB, "existing", res.Existing, "added", res.Added, "skipped", res.Skipped)

		return res, nil
	},
)
