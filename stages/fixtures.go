package stages

import (
	"time"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/provider/sportmonks"
	"github.com/inattention/sportdata/store"
)

// FixturesInput configures the fixtures stage.
type FixturesInput struct {
	Mode Mode `json:"mode"`
}

// FixturesOutput summarises a fixtures run.
type FixturesOutput struct {
	Seasons  int   `json:"seasons"`
	Fixtures int   `json:"fixtures"`
	Written  int64 `json:"written"`
	Deleted  int64 `json:"deleted"`
}

// scheduleRows converts a season schedule into fixture rows. Fixtures without an id are dropped;
// the season's league is used when the schedule omits it. Unparseable dates are stored as NULL.
func scheduleRows(season store.Season, schedule []sportmonks.ScheduleFixture, provider string) (rows []store.Fixture, badDates int) {
	for _, fx := range schedule {
		if fx.FixtureID == nil {
			continue
		}
		row := store.Fixture{
			ID:         *fx.FixtureID,
			LeagueID:   season.LeagueID,
			SeasonID:   season.ID,
			HomeTeamID: fx.HomeTeamID,
			AwayTeamID: fx.AwayTeamID,
			HomeGoals:  fx.HomeGoals,
			AwayGoals:  fx.AwayGoals,
			Provider:   provider,
		}
		if fx.LeagueID != nil {
			row.LeagueID = *fx.LeagueID
		}
		if fx.Date != "" {
			if t, err := sportmonks.ParseTimestamp(fx.Date); err == nil {
				row.Date = ptr(t.UTC().Truncate(time.Second))
			} else {
				badDates++
			}
		}
		rows = append(rows, row)
	}

	return rows, badDates
}

// Fixtures loads the schedule of every stored season of the provider.
var Fixtures = pipeline.NewStage(
	"fixtures",
	v1,
	"Load the schedule of every stored season",
	func(b pipeline.Bundle, deps *Deps, in FixturesInput) (FixturesOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("fixtures")
		provider := deps.provider()

		sm, err := deps.sportmonks("fixtures")
		if err != nil {
			return FixturesOutput{}, err
		}
		var seasons []store.Season
		if in.Mode.extend() {
			seasons, err = deps.Store.SeasonsWithoutFixtures(ctx, provider)
		} else {
			seasons, err = deps.Store.Seasons(ctx, provider)
		}
		if err != nil {
			return FixturesOutput{}, err
		}
		if len(seasons) == 0 {
			lggr.Infow("No seasons to load fixtures for, run the seasons stage first", "provider", provider)
			return FixturesOutput{}, nil
		}
		out := FixturesOutput{Seasons: len(seasons)}

		var (
			rows []store.Fixture
			keep []int64
		)
		for _, s := range seasons {
			lggr.Infow("Fetching fixtures", "leagueID", s.LeagueID, "seasonID", s.ID)
			schedule, _, err := sm.Schedule(ctx, s.ID)
			if err != nil {
				return out, err
			}
			fxRows, badDates := scheduleRows(s, schedule, provider)
			if badDates > 0 {
				lggr.Warnw("Fixtures with unparseable kickoff stored without date", "seasonID", s.ID, "count", badDates)
			}
			rows = append(rows, fxRows...)
			keep = append(keep, s.ID)
		}
		out.Fixtures = len(rows)

		if in.Mode.extend() {
			if out.Written, err = deps.Store.InsertFixtures(ctx, rows); err != nil {
				return out, err
			}
			lggr.Infow("Fixtures inserted", "inserted", out.Written)

			return out, nil
		}

		err = deps.Store.InTx(ctx, func(tx *store.Store) error {
			var err error
			if out.Written, err = tx.UpsertFixtures(ctx, rows); err != nil {
				return err
			}
			out.Deleted, err = tx.DeleteFixturesNotInSeasons(ctx, provider, keep)

			return err
		})
		if err != nil {
			return out, err
		}
		b.Metrics.Add("fixtures", "written", int(out.Written))
		lggr.Infow("Fixtures synchronised", "insertedOrUpdated", out.Written, "deleted", out.Deleted)

		return out, nil
	},
)
