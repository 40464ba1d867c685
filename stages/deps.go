package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inattention/sportdata/api"
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/provider/oddsapi"
	"github.com/inattention/sportdata/provider/sportmonks"
	"github.com/inattention/sportdata/store"
)

// SportMonks is the part of the SportMonks adapter the stages call.
type SportMonks interface {
	Leagues(ctx context.Context) ([]sportmonks.League, json.RawMessage, error)
	Seasons(ctx context.Context, leagueID int64) ([]sportmonks.Season, error)
	Schedule(ctx context.Context, seasonID int64) ([]sportmonks.ScheduleFixture, json.RawMessage, error)
	Team(ctx context.Context, teamID int64) (*sportmonks.Team, json.RawMessage, error)
	Player(ctx context.Context, playerID int64) (*sportmonks.Player, json.RawMessage, error)
	Lineup(ctx context.Context, fixtureID int64) (*sportmonks.Lineup, json.RawMessage, error)
	PreMatch1X2(ctx context.Context, fixtureID, marketID, bookmakerID int64) (*sportmonks.PreMatch1X2, json.RawMessage, error)
}

// OddsAPI is the part of The Odds API adapter the stages call.
type OddsAPI interface {
	HistoricalEvents(ctx context.Context, sport string, snapshot time.Time, commenceFrom, commenceTo *time.Time) (*oddsapi.EventsSnapshot, error)
	H2HSnapshot(ctx context.Context, sport, eventID string, at time.Time, bookmaker, region string) (*oddsapi.H2H, error)
}

// Deps are the dependencies shared by all stages.
type Deps struct {
	Store      *store.Store
	SportMonks SportMonks
	OddsAPI    OddsAPI
	// Provider is the configured data provider; rows written by the stages carry it.
	Provider string
	// Concurrency bounds parallel provider requests in the teams and players stages.
	Concurrency int
	// LineupRetry and OddsRetry override pipeline.LineupPolicy and pipeline.OddsPolicy when set.
	LineupRetry pipeline.RateLimitPolicy
	OddsRetry   pipeline.RateLimitPolicy
}

var errNoClient = errors.New("client not configured")

func (d *Deps) provider() string {
	if p := strings.ToLower(strings.TrimSpace(d.Provider)); p != "" {
		return p
	}

	return sportmonks.Name
}

// sportmonks returns the SportMonks adapter when it is the configured provider.
func (d *Deps) sportmonks(stage string) (SportMonks, error) {
	if p := d.provider(); p != sportmonks.Name {
		return nil, fmt.Errorf("%w: %s supports only %s, configured provider is %s",
			api.ErrUnsupportedProvider, stage, sportmonks.Name, p)
	}
	if d.SportMonks == nil {
		return nil, fmt.Errorf("%s: %s %w", stage, sportmonks.Name, errNoClient)
	}

	return d.SportMonks, nil
}

func (d *Deps) oddsAPI(stage string) (OddsAPI, error) {
	if d.OddsAPI == nil {
		return nil, fmt.Errorf("%s: %s %w", stage, oddsapi.Name, errNoClient)
	}

	return d.OddsAPI, nil
}

func (d *Deps) lineupRetry() pipeline.RateLimitPolicy {
	if d.LineupRetry.Attempts == 0 {
		return pipeline.LineupPolicy
	}

	return d.LineupRetry
}

func (d *Deps) oddsRetry() pipeline.RateLimitPolicy {
	if d.OddsRetry.Attempts == 0 {
		return pipeline.OddsPolicy
	}

	return d.OddsRetry
}

func (d *Deps) concurrency() int {
	if d.Concurrency < 1 {
		return 1
	}

	return d.Concurrency
}
