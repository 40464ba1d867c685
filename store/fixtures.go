package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Fixture is a row of the fixtures table.
type Fixture struct {
	ID         int64
	Date       *time.Time
	LeagueID   int64
	SeasonID   int64
	HomeTeamID *int64
	AwayTeamID *int64
	HomeGoals  *int64
	AwayGoals  *int64
	Provider   string
}

// Kickoff is a scheduled fixture with both teams known.
type Kickoff struct {
	FixtureID    int64
	LeagueID     int64
	SeasonID     int64
	Kickoff      time.Time
	HomeTeamID   int64
	AwayTeamID   int64
	HomeTeamName string
	AwayTeamName string
	// EventID is the matched OddsAPI event, when selected through fixtures_matching.
	EventID string
}

// FixtureFilter narrows fixture selections. Zero values disable a filter.
type FixtureFilter struct {
	LeagueID int64
	SeasonID int64
	Limit    int
}

var fixturesUpsert = upsert{
	table: TableFixtures,
	columns: []string{
		"fixture_id", "date", "league_id", "season_id",
		"home_team_id", "away_team_id", "home_goals", "away_goals", "provider",
	},
	conflict: []string{"fixture_id"},
	compare: []string{
		"date", "league_id", "season_id",
		"home_team_id", "away_team_id", "home_goals", "away_goals", "provider",
	},
	touch: "updated_at",
}

func fixtureArgs(rows []Fixture) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.ID, r.Date, r.LeagueID, r.SeasonID,
			r.HomeTeamID, r.AwayTeamID, r.HomeGoals, r.AwayGoals, r.Provider,
		}
	}

	return out
}

// UpsertFixtures inserts new fixtures and updates changed ones.
func (s *Store) UpsertFixtures(ctx context.Context, rows []Fixture) (int64, error) {
	return s.write(ctx, fixturesUpsert, fixtureArgs(rows))
}

// InsertFixtures inserts fixtures that are not stored yet.
func (s *Store) InsertFixtures(ctx context.Context, rows []Fixture) (int64, error) {
	u := fixturesUpsert
	u.nothing = true

	return s.write(ctx, u, fixtureArgs(rows))
}

// DeleteFixturesNotInSeasons removes the provider's fixtures whose season is not in keep.
func (s *Store) DeleteFixturesNotInSeasons(ctx context.Context, provider string, keep []int64) (int64, error) {
	return s.deleteMissing(ctx, TableFixtures, "season_id", provider, keep)
}

// FixtureIDs lists every stored fixture id in ascending order.
func (s *Store) FixtureIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.int64s(ctx, "SELECT DISTINCT fixture_id FROM fixtures ORDER BY fixture_id")
	if err != nil {
		return nil, fmt.Errorf("list fixture ids: %w", err)
	}

	return ids, nil
}

// FixtureTeamIDs lists the distinct home and away team ids of the provider's fixtures.
func (s *Store) FixtureTeamIDs(ctx context.Context, provider string) ([]int64, error) {
	ids, err := s.int64s(ctx, `SELECT team_id FROM (
			SELECT home_team_id AS team_id FROM fixtures WHERE provider = $1
			UNION
			SELECT away_team_id AS team_id FROM fixtures WHERE provider = $1
		) t WHERE team_id IS NOT NULL ORDER BY team_id`, provider)
	if err != nil {
		return nil, fmt.Errorf("list fixture teams: %w", err)
	}

	return ids, nil
}

// MissingTeamIDs lists team ids referenced by the provider's fixtures but absent from teams.
func (s *Store) MissingTeamIDs(ctx context.Context, provider string) ([]int64, error) {
	ids, err := s.int64s(ctx, `SELECT team_id FROM (
			SELECT home_team_id AS team_id FROM fixtures WHERE provider = $1
			UNION
			SELECT away_team_id AS team_id FROM fixtures WHERE provider = $1
		) t
		WHERE team_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM teams tm WHERE tm.team_id = t.team_id)
		ORDER BY team_id`, provider)
	if err != nil {
		return nil, fmt.Errorf("list missing teams: %w", err)
	}

	return ids, nil
}

// FixtureKickoff returns the kickoff of a fixture, or nil when unknown.
func (s *Store) FixtureKickoff(ctx context.Context, fixtureID int64) (*time.Time, error) {
	var t sql.NullTime
	err := s.queryRow(ctx, "SELECT date FROM fixtures WHERE fixture_id = $1", fixtureID).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fixture %d kickoff: %w", fixtureID, err)
	}

	return nullTime(t), nil
}

// TeamPrimaryLeagues maps each team id to the league it appears in most often
// (ties broken by the lower league id).
func (s *Store) TeamPrimaryLeagues(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.query(ctx, `WITH appearances AS (
			SELECT home_team_id AS team_id, league_id FROM fixtures
			WHERE home_team_id IS NOT NULL AND league_id IS NOT NULL
			UNION ALL
			SELECT away_team_id AS team_id, league_id FROM fixtures
			WHERE away_team_id IS NOT NULL AND league_id IS NOT NULL
		),
		counted AS (
			SELECT team_id, league_id, COUNT(*) AS n FROM appearances GROUP BY team_id, league_id
		),
		ranked AS (
			SELECT team_id, league_id,
				ROW_NUMBER() OVER (PARTITION BY team_id ORDER BY n DESC, league_id ASC) AS rn
			FROM counted
		)
		SELECT team_id, league_id FROM ranked WHERE rn = 1`)
	if err != nil {
		return nil, fmt.Errorf("team primary leagues: %w", err)
	}
	defer rows.Close()
	out := map[int64]int64{}
	for rows.Next() {
		var team, league int64
		if err := rows.Scan(&team, &league); err != nil {
			return nil, err
		}
		out[team] = league
	}

	return out, rows.Err()
}

// UnmatchedFixtures lists scheduled fixtures of the given leagues without an OddsAPI event,
// ordered by kickoff. Team names are joined from teams when available.
func (s *Store) UnmatchedFixtures(ctx context.Context, leagueIDs []int64, f FixtureFilter) ([]Kickoff, error) {
	q := `SELECT f.fixture_id, f.league_id, f.season_id, f.date, f.home_team_id, f.away_team_id,
			COALESCE(th.team_name, ''), COALESCE(ta.team_name, ''), ''
		FROM fixtures f
		LEFT JOIN fixtures_matching fm ON fm.fixture_id = f.fixture_id
		LEFT JOIN teams th ON th.team_id = f.home_team_id
		LEFT JOIN teams ta ON ta.team_id = f.away_team_id
		WHERE f.date IS NOT NULL
		  AND f.home_team_id IS NOT NULL
		  AND f.away_team_id IS NOT NULL
		  AND fm.oa_event_id IS NULL
		  AND (cardinality($1::bigint[]) = 0 OR f.league_id = ANY($1::bigint[]))
		  AND ($2::bigint = 0 OR f.league_id = $2)
		  AND ($3::bigint = 0 OR f.season_id = $3)
		ORDER BY f.date, f.fixture_id` + limitClause(f.Limit)

	return s.kickoffs(ctx, q, int64Array(leagueIDs), f.LeagueID, f.SeasonID)
}

// MatchedFixtures lists fixtures with an OddsAPI event, ordered by kickoff.
func (s *Store) MatchedFixtures(ctx context.Context, f FixtureFilter) ([]Kickoff, error) {
	q := `SELECT f.fixture_id, f.league_id, f.season_id, f.date, f.home_team_id, f.away_team_id,
			'', '', fm.oa_event_id
		FROM fixtures f
		JOIN fixtures_matching fm ON fm.fixture_id = f.fixture_id
		WHERE f.date IS NOT NULL
		  AND f.home_team_id IS NOT NULL
		  AND f.away_team_id IS NOT NULL
		  AND fm.oa_event_id IS NOT NULL
		  AND ($1::bigint = 0 OR f.league_id = $1)
		  AND ($2::bigint = 0 OR f.season_id = $2)
		ORDER BY f.date, f.fixture_id` + limitClause(f.Limit)

	return s.kickoffs(ctx, q, f.LeagueID, f.SeasonID)
}

// ScheduledFixtures lists fixtures with a kickoff, ordered by kickoff. Team ids may be zero.
func (s *Store) ScheduledFixtures(ctx context.Context, f FixtureFilter) ([]Kickoff, error) {
	q := `SELECT f.fixture_id, f.league_id, f.season_id, f.date,
			COALESCE(f.home_team_id, 0), COALESCE(f.away_team_id, 0), '', '', ''
		FROM fixtures f
		WHERE f.date IS NOT NULL
		  AND ($1::bigint = 0 OR f.league_id = $1)
		  AND ($2::bigint = 0 OR f.season_id = $2)
		ORDER BY f.date, f.fixture_id` + limitClause(f.Limit)

	return s.kickoffs(ctx, q, f.LeagueID, f.SeasonID)
}

func (s *Store) kickoffs(ctx context.Context, q string, args ...any) ([]Kickoff, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	defer rows.Close()
	var out []Kickoff
	for rows.Next() {
		var k Kickoff
		if err := rows.Scan(&k.FixtureID, &k.LeagueID, &k.SeasonID, &k.Kickoff,
			&k.HomeTeamID, &k.AwayTeamID, &k.HomeTeamName, &k.AwayTeamName, &k.EventID); err != nil {
			return nil, err
		}
		k.Kickoff = k.Kickoff.UTC()
		out = append(out, k)
	}

	return out, rows.Err()
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}

	return fmt.Sprintf(" LIMIT %d", limit)
}
