// Package api is the provider-agnostic entry point for fetching sports data.
//
// Each call takes an optional provider override; an empty provider uses the configured one.
// Calls return a Result whose Raw payload is only populated in ModeFull.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/inattention/sportdata/provider/oddsapi"
	"github.com/inattention/sportdata/provider/sportmonks"
)

// ErrUnsupportedProvider is returned when a provider cannot serve an operation.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Mode selects what a call returns.
type Mode string

const (
	// ModeParsed returns only the parsed value.
	ModeParsed Mode = "parsed"
	// ModeFull also returns the raw provider payload.
	ModeFull Mode = "full"
)

// ParseMode validates a textual mode, defaulting to ModeParsed.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeParsed:
		return ModeParsed, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", fmt.Errorf("mode must be either %q or %q", ModeParsed, ModeFull)
	}
}

// Result pairs a parsed value with the raw payload it came from.
type Result[T any] struct {
	Parsed T
	Raw    any
}

func result[T any](mode Mode, parsed T, raw any) Result[T] {
	if mode != ModeFull {
		return Result[T]{Parsed: parsed}
	}

	return Result[T]{Parsed: parsed, Raw: raw}
}

// SportMonks is the subset of the SportMonks adapter used by the facade.
type SportMonks interface {
	Leagues(ctx context.Context) ([]sportmonks.League, json.RawMessage, error)
	Seasons(ctx context.Context, leagueID int64) ([]sportmonks.Season, error)
	Fixture(ctx context.Context, fixtureID int64) (*sportmonks.Fixture, json.RawMessage, error)
	Lineup(ctx context.Context, fixtureID int64) (*sportmonks.Lineup, json.RawMessage, error)
	Schedule(ctx context.Context, seasonID int64) ([]sportmonks.ScheduleFixture, json.RawMessage, error)
	Team(ctx context.Context, teamID int64) (*sportmonks.Team, json.RawMessage, error)
	Player(ctx context.Context, playerID int64) (*sportmonks.Player, json.RawMessage, error)
	Odds(ctx context.Context, fixtureID int64, market string) (*sportmonks.Odds, json.RawMessage, error)
	PremiumOddHistory(ctx context.Context, fixtureID int64, market string, bookmakerID int64, label string, rng sportmonks.HistoryRange) ([]sportmonks.HistoryPoint, *sportmonks.HistoryBundle, error)
	PreMatch1X2(ctx context.Context, fixtureID, marketID, bookmakerID int64) (*sportmonks.PreMatch1X2, json.RawMessage, error)
}

// OddsAPI is the subset of The Odds API adapter used by the facade.
type OddsAPI interface {
	Sports(ctx context.Context) ([]oddsapi.Sport, json.RawMessage, error)
	HistoricalEventOdds(ctx context.Context, sport, eventID string, q oddsapi.OddsQuery) (*oddsapi.EventOddsSnapshot, json.RawMessage, error)
}

// Client dispatches calls to the adapter of the requested provider.
type Client struct {
	defaultProvider string
	sm              SportMonks
	oa              OddsAPI
	// missing explains why an adapter is nil, e.g. a missing token.
	missing map[string]error
}

// New returns a Client. Adapters may be nil when their provider is not configured.
func New(defaultProvider string, sm SportMonks, oa OddsAPI) *Client {
	return &Client{defaultProvider: normalize(defaultProvider), sm: sm, oa: oa, missing: map[string]error{}}
}

// SportMonks returns the SportMonks adapter or the reason it is unavailable.
func (c *Client) SportMonks() (SportMonks, error) {
	if c.sm == nil {
		return nil, c.unavailable(sportmonks.Name)
	}

	return c.sm, nil
}

// OddsAPI returns the Odds API adapter or the reason it is unavailable.
func (c *Client) OddsAPI() (OddsAPI, error) {
	if c.oa == nil {
		return nil, c.unavailable(oddsapi.Name)
	}

	return c.oa, nil
}

func (c *Client) unavailable(name string) error {
	if err, ok := c.missing[name]; ok {
		return fmt.Errorf("%s client unavailable: %w", name, err)
	}

	return fmt.Errorf("%s client unavailable", name)
}

func (c *Client) resolve(p string) string {
	if p = normalize(p); p != "" {
		return p
	}
	if c.defaultProvider != "" {
		return c.defaultProvider
	}

	return sportmonks.Name
}

// sportmonksFor returns the SportMonks adapter when p resolves to it. Odds API has no equivalent
// of the operation op.
func (c *Client) sportmonksFor(p, op string) (SportMonks, error) {
	switch name := c.resolve(p); name {
	case sportmonks.Name:
		return c.SportMonks()
	case oddsapi.Name:
		return nil, fmt.Errorf("%w: %s does not support %s", ErrUnsupportedProvider, name, op)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
}

// Leagues lists provider leagues.
func (c *Client) Leagues(ctx context.Context, p string, mode Mode) (Result[[]sportmonks.League], error) {
	sm, err := c.sportmonksFor(p, "leagues")
	if err != nil {
		return Result[[]sportmonks.League]{}, err
	}
	parsed, raw, err := sm.Leagues(ctx)

	return result(mode, parsed, raw), err
}

// Seasons lists the seasons of a league.
func (c *Client) Seasons(ctx context.Context, p string, leagueID int64) ([]sportmonks.Season, error) {
	sm, err := c.sportmonksFor(p, "seasons")
	if err != nil {
		return nil, err
	}

	return sm.Seasons(ctx, leagueID)
}

// Fixture fetches a fixture.
func (c *Client) Fixture(ctx context.Context, p string, fixtureID int64, mode Mode) (Result[*sportmonks.Fixture], error) {
	sm, err := c.sportmonksFor(p, "fixtures")
	if err != nil {
		return Result[*sportmonks.Fixture]{}, err
	}
	parsed, raw, err := sm.Fixture(ctx, fixtureID)

	return result(mode, parsed, raw), err
}

// Lineup fetches a fixture lineup.
func (c *Client) Lineup(ctx context.Context, p string, fixtureID int64, mode Mode) (Result[*sportmonks.Lineup], error) {
	sm, err := c.sportmonksFor(p, "lineups")
	if err != nil {
		return Result[*sportmonks.Lineup]{}, err
	}
	parsed, raw, err := sm.Lineup(ctx, fixtureID)

	return result(mode, parsed, raw), err
}

// Schedule fetches the fixtures of a season.
func (c *Client) Schedule(ctx context.Context, p string, seasonID int64, mode Mode) (Result[[]sportmonks.ScheduleFixture], error) {
	sm, err := c.sportmonksFor(p, "schedules")
	if err != nil {
		return Result[[]sportmonks.ScheduleFixture]{}, err
	}
	parsed, raw, err := sm.Schedule(ctx, seasonID)

	return result(mode, parsed, raw), err
}

// Team fetches a team.
func (c *Client) Team(ctx context.Context, p string, teamID int64, mode Mode) (Result[*sportmonks.Team], error) {
	sm, err := c.sportmonksFor(p, "teams")
	if err != nil {
		return Result[*sportmonks.Team]{}, err
	}
	parsed, raw, err := sm.Team(ctx, teamID)

	return result(mode, parsed, raw), err
}

// Player fetches a player.
func (c *Client) Player(ctx context.Context, p string, playerID int64, mode Mode) (Result[*sportmonks.Player], error) {
	sm, err := c.sportmonksFor(p, "players")
	if err != nil {
		return Result[*sportmonks.Player]{}, err
	}
	parsed, raw, err := sm.Player(ctx, playerID)

	return result(mode, parsed, raw), err
}

// Odds fetches the odds of a fixture for one canonical market.
func (c *Client) Odds(ctx context.Context, p string, fixtureID int64, market string, mode Mode) (Result[*sportmonks.Odds], error) {
	sm, err := c.sportmonksFor(p, "odds by fixture")
	if err != nil {
		return Result[*sportmonks.Odds]{}, err
	}
	parsed, raw, err := sm.Odds(ctx, fixtureID, market)

	return result(mode, parsed, raw), err
}

// PremiumOddHistory fetches the bookmaker update history of one premium odd.
func (c *Client) PremiumOddHistory(
	ctx context.Context,
	p string,
	fixtureID int64,
	market string,
	bookmakerID int64,
	label string,
	rng sportmonks.HistoryRange,
	mode Mode,
) (Result[[]sportmonks.HistoryPoint], error) {
	sm, err := c.sportmonksFor(p, "premium odd history")
	if err != nil {
		return Result[[]sportmonks.HistoryPoint]{}, err
	}
	series, bundle, err := sm.PremiumOddHistory(ctx, fixtureID, market, bookmakerID, label, rng)

	return result(mode, series, bundle), err
}

// Sports lists Odds API sports.
func (c *Client) Sports(ctx context.Context, mode Mode) (Result[[]oddsapi.Sport], error) {
	oa, err := c.OddsAPI()
	if err != nil {
		return Result[[]oddsapi.Sport]{}, err
	}
	parsed, raw, err := oa.Sports(ctx)

	return result(mode, parsed, raw), err
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
