package store

import (
	"context"
	"fmt"
	"time"
)

// Match links a fixture to an OddsAPI event.
type Match struct {
	FixtureID    int64
	LeagueID     int64
	EventID      string
	HomeTeam     string
	AwayTeam     string
	CommenceTime *time.Time
}

// Odds1X2 is one 1X2 snapshot of a fixture.
type Odds1X2 struct {
	FixtureID int64
	Timestamp time.Time
	Timeline  string
	Provider  string
	Home      *float64
	Draw      *float64
	Away      *float64
}

var (
	matchesUpsert = upsert{
		table:    TableFixturesMatching,
		columns:  []string{"fixture_id", "league_id", "oa_event_id", "oa_home_team", "oa_away_team", "oa_commence_time"},
		conflict: []string{"fixture_id"},
		compare:  []string{"league_id", "oa_event_id", "oa_home_team", "oa_away_team", "oa_commence_time"},
		touch:    "matched_at",
	}
	oddsUpsert = upsert{
		table:    TableOdds1X2,
		columns:  []string{"fixture_id", "timestamp", "timeline_identifier", "provider", "home", "draw", "away"},
		conflict: []string{"fixture_id", "timestamp", "timeline_identifier", "provider"},
		compare:  []string{"home", "draw", "away"},
		touch:    "computed_at",
	}
)

// UpsertMatches stores fixture to event links, rewriting only changed rows.
func (s *Store) UpsertMatches(ctx context.Context, rows []Match) (int64, error) {
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = []any{r.FixtureID, r.LeagueID, r.EventID, r.HomeTeam, r.AwayTeam, r.CommenceTime}
	}

	return s.write(ctx, matchesUpsert, args)
}

// UpsertOdds stores 1X2 snapshots, rewriting only changed prices.
func (s *Store) UpsertOdds(ctx context.Context, rows []Odds1X2) (int64, error) {
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = []any{r.FixtureID, r.Timestamp.UTC(), r.Timeline, r.Provider, r.Home, r.Draw, r.Away}
	}

	return s.write(ctx, oddsUpsert, args)
}

// HasOdds reports whether the fixture has odds rows for provider. A non-empty timeline
// restricts the lookup to that timeline identifier.
func (s *Store) HasOdds(ctx context.Context, fixtureID int64, provider, timeline string) (bool, error) {
	var ok bool
	err := s.queryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM odds_1x2
			WHERE fixture_id = $1 AND provider = $2 AND ($3 = '' OR timeline_identifier = $3)
		)`, fixtureID, provider, timeline).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lookup odds %d: %w", fixtureID, err)
	}

	return ok, nil
}

// Odds lists the stored snapshots of a fixture for provider, latest first.
func (s *Store) Odds(ctx context.Context, fixtureID int64, provider string) ([]Odds1X2, error) {
	rows, err := s.query(ctx, `SELECT fixture_id, timestamp, timeline_identifier, provider, home, draw, away
		FROM odds_1x2 WHERE fixture_id = $1 AND provider = $2
		ORDER BY timestamp DESC, timeline_identifier`, fixtureID, provider)
	if err != nil {
		return nil, fmt.Errorf("list odds %d: %w", fixtureID, err)
	}
	defer rows.Close()
	var out []Odds1X2
	for rows.Next() {
		var o Odds1X2
		if err := rows.Scan(&o.FixtureID, &o.Timestamp, &o.Timeline, &o.Provider, &o.Home, &o.Draw, &o.Away); err != nil {
			return nil, err
		}
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}

	return out, rows.Err()
}
