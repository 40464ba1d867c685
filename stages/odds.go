package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/inattention/sportdata/mapping"
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/provider/oddsapi"
	"github.com/inattention/sportdata/provider/sportmonks"
	"github.com/inattention/sportdata/store"
	"github.com/inattention/sportdata/timeline"
)

// fallbackSportKeys resolves leagues missing from the league mapping file.
var fallbackSportKeys = map[int64]string{
	82: "soccer_germany_bundesliga",
	8:  "soccer_epl",
}

// sportKeys resolves OddsAPI sport keys from the league mapping file, then fallbackSportKeys.
type sportKeys map[int64]mapping.Row

func (k sportKeys) lookup(leagueID int64) (string, error) {
	if key := strings.TrimSpace(k[leagueID].OAName); key != "" {
		return key, nil
	}
	if key, ok := fallbackSportKeys[leagueID]; ok {
		return key, nil
	}

	return "", fmt.Errorf("no OddsAPI sport key for league %d: add it to the league mapping", leagueID)
}

// pacer waits between provider requests. A zero interval never waits.
func pacer(every time.Duration) func(ctx context.Context) error {
	if every <= 0 {
		return func(context.Context) error { return nil }
	}
	l := rate.NewLimiter(rate.Every(every), 1)

	return l.Wait
}

// OddsHistoryInput configures the odds history stage.
type OddsHistoryInput struct {
	Mode      Mode   `json:"mode"`
	LeagueCSV string `json:"leagueCsv"`
	Limit     int    `json:"limit,omitempty"`
	LeagueID  int64  `json:"leagueId,omitempty"`
	SeasonID  int64  `json:"seasonId,omitempty"`
	// Provider is the label stored with every row.
	Provider     string        `json:"provider"`
	Region       string        `json:"region"`
	Bookmaker    string        `json:"bookmaker"`
	SkipExisting bool          `json:"skipExisting"`
	Pace         time.Duration `json:"pace,omitempty"`
}

func (in *OddsHistoryInput) normalize() {
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	in.Region = strings.ToLower(strings.TrimSpace(in.Region))
	in.Bookmaker = strings.ToLower(strings.TrimSpace(in.Bookmaker))
	if in.Provider == "" {
		in.Provider = "betfair"
	}
	if in.Region == "" {
		in.Region = "eu"
	}
	if in.Bookmaker == "" {
		in.Bookmaker = "betfair"
	}
	if in.Mode.extend() {
		in.SkipExisting = true
	}
}

// OddsOutput summarises an odds run.
type OddsOutput struct {
	Fixtures  int   `json:"fixtures"`
	OK        int   `json:"ok"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	Snapshots int   `json:"snapshots"`
	Written   int64 `json:"written"`
}

// OddsHistory stores a timeline of OddsAPI 1X2 snapshots for every matched fixture. Snapshots
// that cannot be fetched are stored with NULL odds so every timeline stays complete.
var OddsHistory = pipeline.NewStage(
	"odds_history",
	v1,
	"Store historical 1X2 odds timelines from OddsAPI",
	func(b pipeline.Bundle, deps *Deps, in OddsHistoryInput) (OddsOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("odds_history")

		oa, err := deps.oddsAPI("odds_history")
		if err != nil {
			return OddsOutput{}, err
		}
		in.normalize()
		leagues, err := mapping.Read(in.LeagueCSV, mapping.Leagues)
		if err != nil {
			return OddsOutput{}, err
		}
		keys := sportKeys(leagues)

		fixtures, err := deps.Store.MatchedFixtures(ctx, store.FixtureFilter{
			LeagueID: in.LeagueID, SeasonID: in.SeasonID, Limit: in.Limit,
		})
		if err != nil {
			return OddsOutput{}, err
		}
		out := OddsOutput{Fixtures: len(fixtures)}
		lggr.Infow("Candidate fixtures with an OddsAPI event", "count", len(fixtures), "limit", in.Limit)

		wait := pacer(in.Pace)
		for i, fx := range fixtures {
			if err := ctx.Err(); err != nil {
				lggr.Warnw("Stopping early, progress is saved fixture by fixture", "processed", i)
				return out, err
			}
			if in.SkipExisting {
				done, err := deps.Store.HasOdds(ctx, fx.FixtureID, in.Provider, "")
				if err != nil {
					return out, err
				}
				if done {
					out.Skipped++
					if out.Skipped%200 == 0 {
						lggr.Infow("Progress", "at", i+1, "of", len(fixtures), "skipped", out.Skipped, "ok", out.OK, "failed", out.Failed)
					}

					continue
				}
			}

			rows, err := oddsTimeline(ctx, b, deps, oa, keys, fx, in, wait)
			if err != nil {
				out.Failed++
				lggr.Warnw("Fixture failed", "fixtureID", fx.FixtureID, "error", err)

				continue
			}
			n, err := deps.Store.UpsertOdds(ctx, rows)
			if err != nil {
				return out, err
			}
			out.OK++
			out.Snapshots += len(rows)
			out.Written += n
			lggr.Debugw("Fixture done", "fixtureID", fx.FixtureID, "snapshots", len(rows), "upserted", n)
			if out.OK%5 == 0 {
				lggr.Infow("Progress",
					"at", i+1, "of", len(fixtures), "ok", out.OK, "skipped", out.Skipped, "failed", out.Failed,
					"snapshots", out.Snapshots, "upserted", out.Written)
			}
		}
		b.Metrics.Add("odds_history", "ok", out.OK)
		b.Metrics.Add("odds_history", "failed", out.Failed)
		lggr.Infow("Odds history done",
			"ok", out.OK, "skipped", out.Skipped, "failed", out.Failed,
			"snapshots", out.Snapshots, "upserted", out.Written)

		return out, nil
	},
)

func oddsTimeline(
	ctx context.Context, b pipeline.Bundle, deps *Deps, oa OddsAPI, keys sportKeys,
	fx store.Kickoff, in OddsHistoryInput, wait func(context.Context) error,
) ([]store.Odds1X2, error) {
	sport, err := keys.lookup(fx.LeagueID)
	if err != nil {
		return nil, err
	}
	var prevKickoff *time.Time
	prev, err := deps.Store.PreviousFixture(ctx, fx.FixtureID, fx.HomeTeamID)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		if prevKickoff, err = deps.Store.FixtureKickoff(ctx, *prev); err != nil {
			return nil, err
		}
	}

	points := timeline.Points(fx.Kickoff, prevKickoff)
	rows := make([]store.Odds1X2, 0, len(points))
	for _, p := range points {
		if err := wait(ctx); err != nil {
			return nil, err
		}
		row := store.Odds1X2{FixtureID: fx.FixtureID, Timestamp: p.At, Timeline: p.Label, Provider: in.Provider}
		what := fmt.Sprintf("h2h %s %s", fx.EventID, p.At.Format(time.RFC3339))
		snap, err := pipeline.RetryRateLimited(ctx, b.Logger, deps.oddsRetry(), what,
			func(ctx context.Context) (*oddsapi.H2H, error) {
				return oa.H2HSnapshot(ctx, sport, fx.EventID, p.At, in.Bookmaker, in.Region)
			})
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			b.Logger.Warnw("Snapshot failed, storing empty odds",
				"fixtureID", fx.FixtureID, "snapshot", p.At, "sportKey", sport, "eventID", fx.EventID, "error", err)
		case snap != nil:
			row.Home, row.Draw, row.Away = snap.Home, snap.Draw, snap.Away
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// SportMonks odds rows carry these labels.
const (
	SportMonksOddsTimeline = "sm_odds"
	SportMonksOddsProvider = sportmonks.Name
	fulltimeResultMarket   = 1
	betfairBookmaker       = 9
)

// OddsSportMonksInput configures the SportMonks odds stage.
type OddsSportMonksInput struct {
	Mode         Mode          `json:"mode"`
	Limit        int           `json:"limit,omitempty"`
	SkipExisting bool          `json:"skipExisting"`
	Pace         time.Duration `json:"pace,omitempty"`
}

// OddsSportMonks stores one SportMonks pre-match 1X2 snapshot (Betfair, fulltime result) per
// fixture. The snapshot timestamp falls back to the kickoff when SportMonks reports none.
var OddsSportMonks = pipeline.NewStage(
	"odds_sportmonks",
	v1,
	"Store one SportMonks 1X2 snapshot per fixture",
	func(b pipeline.Bundle, deps *Deps, in OddsSportMonksInput) (OddsOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("odds_sportmonks")

		sm, err := deps.sportmonks("odds_sportmonks")
		if err != nil {
			return OddsOutput{}, err
		}
		skip := in.SkipExisting || in.Mode.extend()
		fixtures, err := deps.Store.ScheduledFixtures(ctx, store.FixtureFilter{Limit: in.Limit})
		if err != nil {
			return OddsOutput{}, err
		}
		out := OddsOutput{Fixtures: len(fixtures)}
		lggr.Infow("Candidate fixtures", "count", len(fixtures), "limit", in.Limit, "skipExisting", skip)

		wait := pacer(in.Pace)
		for i, fx := range fixtures {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if skip {
				done, err := deps.Store.HasOdds(ctx, fx.FixtureID, SportMonksOddsProvider, SportMonksOddsTimeline)
				if err != nil {
					return out, err
				}
				if done {
					out.Skipped++
					continue
				}
			}
			if err := wait(ctx); err != nil {
				return out, err
			}
			odds, _, err := sm.PreMatch1X2(ctx, fx.FixtureID, fulltimeResultMarket, betfairBookmaker)
			if err != nil {
				out.Failed++
				lggr.Warnw("Failed to fetch odds", "fixtureID", fx.FixtureID, "error", err)

				continue
			}
			row := store.Odds1X2{
				FixtureID: fx.FixtureID,
				Timestamp: fx.Kickoff.UTC(),
				Timeline:  SportMonksOddsTimeline,
				Provider:  SportMonksOddsProvider,
			}
			if odds != nil {
				if odds.Timestamp != nil {
					row.Timestamp = odds.Timestamp.UTC()
				}
				row.Home, row.Draw, row.Away = odds.Home, odds.Draw, odds.Away
			}
			n, err := deps.Store.UpsertOdds(ctx, []store.Odds1X2{row})
			if err != nil {
				return out, err
			}
			out.OK++
			out.Snapshots++
			out.Written += n
			if out.OK%200 == 0 {
				lggr.Infow("Progress", "at", i+1, "of", len(fixtures), "ok", out.OK, "skipped", out.Skipped, "failed", out.Failed)
			}
		}
		b.Metrics.Add("odds_sportmonks", "ok", out.OK)
		b.Metrics.Add("odds_sportmonks", "failed", out.Failed)
		lggr.Infow("SportMonks odds done",
			"ok", out.OK, "skipped", out.Skipped, "failed", out.Failed, "upserted", out.Written)

		return out, nil
	},
)
