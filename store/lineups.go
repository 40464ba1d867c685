package store

import (
	"context"
	"fmt"
)

// Lineup is one player row of a fixture lineup.
type Lineup struct {
	FixtureID         int64
	PlayerID          int64
	TeamID            *int64
	TypeID            *int64
	Minutes           *int64
	Rating            *float64
	FormationPosition *int64
}

var lineupsUpsert = upsert{
	table:    TableLineups,
	columns:  []string{"fixture_id", "player_id", "team_id", "type_id", "minutes_player", "rating_player", "formation_position"},
	conflict: []string{"fixture_id", "player_id"},
	compare:  []string{"team_id", "type_id", "minutes_player", "rating_player", "formation_position"},
	touch:    "updated_at",
}

func lineupArgs(rows []Lineup) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.FixtureID, r.PlayerID, r.TeamID, r.TypeID, r.Minutes, r.Rating, r.FormationPosition}
	}

	return out
}

// UpsertLineups inserts new lineup rows and updates changed ones.
func (s *Store) UpsertLineups(ctx context.Context, rows []Lineup) (int64, error) {
	return s.write(ctx, lineupsUpsert, lineupArgs(rows))
}

// InsertLineups inserts lineup rows that are not stored yet.
func (s *Store) InsertLineups(ctx context.Context, rows []Lineup) (int64, error) {
	u := lineupsUpsert
	u.nothing = true

	return s.write(ctx, u, lineupArgs(rows))
}

// HasLineup reports whether any lineup row exists for the fixture.
func (s *Store) HasLineup(ctx context.Context, fixtureID int64) (bool, error) {
	var ok bool
	err := s.queryRow(ctx, "SELECT EXISTS (SELECT 1 FROM lineups WHERE fixture_id = $1)", fixtureID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lookup lineup %d: %w", fixtureID, err)
	}

	return ok, nil
}

// FixturesWithoutLineups lists fixtures that have no lineup rows, optionally within one season.
func (s *Store) FixturesWithoutLineups(ctx context.Context, seasonID int64) ([]int64, error) {
	ids, err := s.int64s(ctx, `SELECT f.fixture_id FROM fixtures f
		WHERE ($1::bigint = 0 OR f.season_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM lineups l WHERE l.fixture_id = f.fixture_id)
		ORDER BY f.fixture_id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list fixtures without lineups: %w", err)
	}

	return ids, nil
}

// DeleteOrphanLineups removes lineup rows whose fixture no longer exists.
func (s *Store) DeleteOrphanLineups(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, `DELETE FROM lineups l
		WHERE NOT EXISTS (SELECT 1 FROM fixtures f WHERE f.fixture_id = l.fixture_id)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan lineups: %w", err)
	}

	return n, nil
}
