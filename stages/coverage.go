package stages

import (
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// CoverageInput selects the fixtures the coverage report counts.
type CoverageInput struct {
	Provider      string  `json:"provider"`
	SeasonIDs     []int64 `json:"seasonIds,omitempty"`
	MinPlayerRows int     `json:"minPlayerRows"`
}

// CoverageOutput is lineup coverage over all selected fixtures and per league.
type CoverageOutput struct {
	Overall store.Coverage   `json:"overall"`
	Leagues []store.Coverage `json:"leagues"`
}

// Coverage reports how many fixtures have lineups, minutes and ratings. It only reads.
var Coverage = pipeline.NewStage(
	"coverage",
	v1,
	"Report lineup coverage per league",
	func(b pipeline.Bundle, deps *Deps, in CoverageInput) (CoverageOutput, error) {
		if in.Provider == "" {
			in.Provider = deps.provider()
		}
		if in.MinPlayerRows < 1 {
			in.MinPlayerRows = 1
		}
		leagues, overall, err := deps.Store.Coverage(b.GetContext(), store.CoverageFilter{
			Provider:      in.Provider,
			SeasonIDs:     in.SeasonIDs,
			MinPlayerRows: in.MinPlayerRows,
		})
		if err != nil {
			return CoverageOutput{}, err
		}
		b.Logger.Named("coverage").Infow("Coverage",
			"provider", in.Provider, "seasonIDs", in.SeasonIDs, "fixtures", overall.Fixtures,
			"withLineups", overall.WithLineups, "shareLineups", overall.ShareLineups, "leagues", len(leagues))

		return CoverageOutput{Overall: overall, Leagues: leagues}, nil
	},
)
