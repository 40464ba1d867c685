package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PreviousMatch links a team's fixture to its five preceding fixtures of the same season.
type PreviousMatch struct {
	FixtureID int64
	TeamID    int64
	SeasonID  int64
	Prev      [5]*int64
}

// TeamRating is the average player rating of a team in a fixture.
type TeamRating struct {
	FixtureID int64
	TeamID    int64
	AvgRating *float64
}

var (
	previousMatchesUpsert = upsert{
		table:    TablePreviousMatches,
		columns:  []string{"fixture_id", "team_id", "season_id", "prev_1", "prev_2", "prev_3", "prev_4", "prev_5"},
		conflict: []string{"fixture_id", "team_id"},
		compare:  []string{"season_id", "prev_1", "prev_2", "prev_3", "prev_4", "prev_5"},
	}
	teamRatingsUpsert = upsert{
		table:    TableTeamRatings,
		columns:  []string{"fixture_id", "team_id", "avg_rating"},
		conflict: []string{"fixture_id", "team_id"},
		compare:  []string{"avg_rating"},
		touch:    "updated_at",
	}
)

// previousMatchesQuery lags fixtures per (season, team) over home and away appearances.
// $1 is the provider; $2 restricts the output to fixtures absent from previous_matches.
const previousMatchesQuery = `WITH team_fixtures AS (
		SELECT fixture_id, season_id, date, home_team_id AS team_id FROM fixtures WHERE provider = $1
		UNION ALL
		SELECT fixture_id, season_id, date, away_team_id AS team_id FROM fixtures WHERE provider = $1
	),
	lagged AS (
		SELECT fixture_id, team_id, season_id,
			LAG(fixture_id, 1) OVER w AS prev_1,
			LAG(fixture_id, 2) OVER w AS prev_2,
			LAG(fixture_id, 3) OVER w AS prev_3,
			LAG(fixture_id, 4) OVER w AS prev_4,
			LAG(fixture_id, 5) OVER w AS prev_5
		FROM team_fixtures
		WHERE team_id IS NOT NULL
		WINDOW w AS (PARTITION BY season_id, team_id ORDER BY date, fixture_id)
	)
	SELECT fixture_id, team_id, season_id, prev_1, prev_2, prev_3, prev_4, prev_5
	FROM lagged l
	WHERE NOT $2::boolean
	   OR NOT EXISTS (SELECT 1 FROM previous_matches pm WHERE pm.fixture_id = l.fixture_id)
	ORDER BY fixture_id, team_id`

// BuildPreviousMatches computes the previous-match chains of the provider's fixtures.
// With onlyMissing set, only fixtures without any previous_matches row are returned, while
// the chains are still computed over the full season.
func (s *Store) BuildPreviousMatches(ctx context.Context, provider string, onlyMissing bool) ([]PreviousMatch, error) {
	rows, err := s.query(ctx, previousMatchesQuery, provider, onlyMissing)
	if err != nil {
		return nil, fmt.Errorf("build previous matches: %w", err)
	}
	defer rows.Close()
	var out []PreviousMatch
	for rows.Next() {
		var (
			pm   PreviousMatch
			prev [5]sql.NullInt64
		)
		if err := rows.Scan(&pm.FixtureID, &pm.TeamID, &pm.SeasonID,
			&prev[0], &prev[1], &prev[2], &prev[3], &prev[4]); err != nil {
			return nil, err
		}
		for i := range prev {
			pm.Prev[i] = nullInt64(prev[i])
		}
		out = append(out, pm)
	}

	return out, rows.Err()
}

func previousMatchArgs(rows []PreviousMatch) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.FixtureID, r.TeamID, r.SeasonID, r.Prev[0], r.Prev[1], r.Prev[2], r.Prev[3], r.Prev[4]}
	}

	return out
}

// UpsertPreviousMatches inserts new chains and updates changed ones.
func (s *Store) UpsertPreviousMatches(ctx context.Context, rows []PreviousMatch) (int64, error) {
	return s.write(ctx, previousMatchesUpsert, previousMatchArgs(rows))
}

// InsertPreviousMatches inserts chains that are not stored yet.
func (s *Store) InsertPreviousMatches(ctx context.Context, rows []PreviousMatch) (int64, error) {
	u := previousMatchesUpsert
	u.nothing = true

	return s.write(ctx, u, previousMatchArgs(rows))
}

// DeleteStalePreviousMatches removes rows whose (fixture, team) pair no longer exists in the
// provider's fixtures.
func (s *Store) DeleteStalePreviousMatches(ctx context.Context, provider string) (int64, error) {
	n, err := s.exec(ctx, `WITH valid AS (
			SELECT fixture_id, home_team_id AS team_id FROM fixtures WHERE provider = $1
			UNION ALL
			SELECT fixture_id, away_team_id AS team_id FROM fixtures WHERE provider = $1
		)
		DELETE FROM previous_matches pm
		WHERE NOT EXISTS (
			SELECT 1 FROM valid v WHERE v.fixture_id = pm.fixture_id AND v.team_id = pm.team_id
		)`, provider)
	if err != nil {
		return 0, fmt.Errorf("delete stale previous matches: %w", err)
	}

	return n, nil
}

// PreviousFixture returns prev_1 of the team in the fixture, or nil when there is none.
func (s *Store) PreviousFixture(ctx context.Context, fixtureID, teamID int64) (*int64, error) {
	var prev sql.NullInt64
	err := s.queryRow(ctx,
		"SELECT prev_1 FROM previous_matches WHERE fixture_id = $1 AND team_id = $2",
		fixtureID, teamID).Scan(&prev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous fixture of %d/%d: %w", fixtureID, teamID, err)
	}

	return nullInt64(prev), nil
}

// ComputeTeamRatings averages player ratings per fixture and team. AVG ignores NULL ratings,
// so a team without any rating gets a NULL average. With onlyMissing set, fixtures already
// present in team_ratings are skipped.
func (s *Store) ComputeTeamRatings(ctx context.Context, onlyMissing bool) ([]TeamRating, error) {
	rows, err := s.query(ctx, `SELECT l.fixture_id, l.team_id, AVG(l.rating_player)::float8
		FROM lineups l
		WHERE l.team_id IS NOT NULL
		  AND (NOT $1::boolean
		       OR NOT EXISTS (SELECT 1 FROM team_ratings tr WHERE tr.fixture_id = l.fixture_id))
		GROUP BY l.fixture_id, l.team_id
		ORDER BY l.fixture_id, l.team_id`, onlyMissing)
	if err != nil {
		return nil, fmt.Errorf("compute team ratings: %w", err)
	}
	defer rows.Close()
	var out []TeamRating
	for rows.Next() {
		var (
			tr  TeamRating
			avg sql.NullFloat64
		)
		if err := rows.Scan(&tr.FixtureID, &tr.TeamID, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			tr.AvgRating = &v
		}
		out = append(out, tr)
	}

	return out, rows.Err()
}

func teamRatingArgs(rows []TeamRating) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.FixtureID, r.TeamID, r.AvgRating}
	}

	return out
}

// UpsertTeamRatings inserts new ratings and updates changed ones.
func (s *Store) UpsertTeamRatings(ctx context.Context, rows []TeamRating) (int64, error) {
	return s.write(ctx, teamRatingsUpsert, teamRatingArgs(rows))
}

// InsertTeamRatings inserts ratings that are not stored yet.
func (s *Store) InsertTeamRatings(ctx context.Context, rows []TeamRating) (int64, error) {
	u := teamRatingsUpsert
	u.nothing = true

	return s.write(ctx, u, teamRatingArgs(rows))
}
