package store

import (
	"context"
	"fmt"
	"math"
)

// CoverageFilter selects the fixtures counted by Coverage.
type CoverageFilter struct {
	Provider      string
	SeasonIDs     []int64
	MinPlayerRows int
}

// Coverage counts fixtures with lineup data for one league, or the total over all leagues.
type Coverage struct {
	League               string  `json:"league_name,omitempty"`
	Fixtures             int64   `json:"n_fixtures"`
	WithLineups          int64   `json:"n_with_lineups"`
	WithMinutes          int64   `json:"n_with_minutes"`
	WithRatings          int64   `json:"n_with_ratings"`
	WithMinutesAndRating int64   `json:"n_with_minutes_and_ratings"`
	ShareLineups         float64 `json:"share_with_lineups"`
	ShareMinutes         float64 `json:"share_with_minutes"`
	ShareRatings         float64 `json:"share_with_ratings"`
	ShareMinutesAndRating float64 `json:"share_with_minutes_and_ratings"`
}

const coverageQuery = `WITH universe AS (
		SELECT f.fixture_id, f.league_id
		FROM fixtures f
		JOIN leagues l ON l.league_id = f.league_id
		WHERE l.provider = $1
		  AND (cardinality($2::bigint[]) = 0 OR f.season_id = ANY($2::bigint[]))
	),
	flags AS (
		SELECT lp.fixture_id,
			COUNT(*) AS n_rows,
			BOOL_OR(lp.minutes_player IS NOT NULL) AS has_minutes,
			BOOL_OR(lp.rating_player IS NOT NULL) AS has_rating,
			BOOL_OR(lp.minutes_player IS NOT NULL AND lp.rating_player IS NOT NULL) AS has_both
		FROM lineups lp
		GROUP BY lp.fixture_id
	)
	SELECT l.league_name,
		COUNT(*),
		COUNT(*) FILTER (WHERE COALESCE(fl.n_rows, 0) >= $3),
		COUNT(*) FILTER (WHERE COALESCE(fl.has_minutes, false)),
		COUNT(*) FILTER (WHERE COALESCE(fl.has_rating, false)),
		COUNT(*) FILTER (WHERE COALESCE(fl.has_both, false))
	FROM universe u
	JOIN leagues l ON l.league_id = u.league_id
	LEFT JOIN flags fl ON fl.fixture_id = u.fixture_id
	GROUP BY l.league_name
	ORDER BY COUNT(*) DESC, l.league_name ASC`

// Coverage reports lineup coverage per league, ordered by fixture count, and the totals.
func (s *Store) Coverage(ctx context.Context, f CoverageFilter) ([]Coverage, Coverage, error) {
	minRows := f.MinPlayerRows
	if minRows < 1 {
		minRows = 1
	}
	rows, err := s.query(ctx, coverageQuery, f.Provider, int64Array(f.SeasonIDs), minRows)
	if err != nil {
		return nil, Coverage{}, fmt.Errorf("coverage: %w", err)
	}
	defer rows.Close()
	var (
		byLeague []Coverage
		total    Coverage
	)
	for rows.Next() {
		var c Coverage
		if err := rows.Scan(&c.League, &c.Fixtures, &c.WithLineups, &c.WithMinutes,
			&c.WithRatings, &c.WithMinutesAndRating); err != nil {
			return nil, Coverage{}, err
		}
		c.fillShares()
		byLeague = append(byLeague, c)
		total.Fixtures += c.Fixtures
		total.WithLineups += c.WithLineups
		total.WithMinutes += c.WithMinutes
		total.WithRatings += c.WithRatings
		total.WithMinutesAndRating += c.WithMinutesAndRating
	}
	if err := rows.Err(); err != nil {
		return nil, Coverage{}, err
	}
	total.fillShares()

	return byLeague, total, nil
}

func (c *Coverage) fillShares() {
	c.ShareLineups = Share(c.WithLineups, c.Fixtures)
	c.ShareMinutes = Share(c.WithMinutes, c.Fixtures)
	c.ShareRatings = Share(c.WithRatings, c.Fixtures)
	c.ShareMinutesAndRating = Share(c.WithMinutesAndRating, c.Fixtures)
}

// Share returns n/total rounded to four decimals, or zero when total is zero.
func Share(n, total int64) float64 {
	if total == 0 {
		return 0
	}

	return math.Round(float64(n)/float64(total)*1e4) / 1e4
}
