package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestUpsert_statement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give upsert
		rows int
		want string
	}{
		{
			name: "update when distinct",
			give: upsert{
				table:    "teams",
				columns:  []string{"team_id", "team_name", "provider"},
				conflict: []string{"team_id"},
				compare:  []string{"team_name", "provider"},
				touch:    "updated_at",
			},
			rows: 2,
			want: "INSERT INTO teams (team_id, team_name, provider) VALUES ($1, $2, $3), ($4, $5, $6) " +
				"ON CONFLICT (team_id) DO UPDATE SET team_name = EXCLUDED.team_name, provider = EXCLUDED.provider, " +
				"updated_at = now() WHERE (teams.team_name, teams.provider) IS DISTINCT FROM " +
				"(EXCLUDED.team_name, EXCLUDED.provider)",
		},
		{
			name: "no touch column",
			give: upsert{
				table:    "previous_matches",
				columns:  []string{"fixture_id", "team_id", "prev_1"},
				conflict: []string{"fixture_id", "team_id"},
				compare:  []string{"prev_1"},
			},
			rows: 1,
			want: "INSERT INTO previous_matches (fixture_id, team_id, prev_1) VALUES ($1, $2, $3) " +
				"ON CONFLICT (fixture_id, team_id) DO UPDATE SET prev_1 = EXCLUDED.prev_1 " +
				"WHERE (previous_matches.prev_1) IS DISTINCT FROM (EXCLUDED.prev_1)",
		},
		{
			name: "insert only",
			give: upsert{
				table:    "leagues",
				columns:  []string{"league_id", "league_name"},
				conflict: []string{"league_id"},
				compare:  []string{"league_name"},
				nothing:  true,
			},
			rows: 1,
			want: "INSERT INTO leagues (league_id, league_name) VALUES ($1, $2) ON CONFLICT (league_id) DO NOTHING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.give.statement(tt.rows))
		})
	}
}

func TestUpsert_chunkSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 9362, oddsUpsert.chunkSize())
	assert.LessOrEqual(t, fixturesUpsert.chunkSize()*len(fixturesUpsert.columns), maxBindParams)
}

func TestUpsert_dedupe(t *testing.T) {
	t.Parallel()

	u := upsert{
		table:    "lineups",
		columns:  []string{"fixture_id", "player_id", "team_id"},
		conflict: []string{"fixture_id", "player_id"},
	}
	rows := [][]any{
		{int64(1), int64(10), ptr(int64(100))},
		{int64(1), int64(11), ptr(int64(100))},
		{int64(1), int64(10), ptr(int64(200))},
		{int64(2), int64(10), nil},
	}

	got := u.dedupe(rows)
	require.Len(t, got, 3)
	assert.Equal(t, int64(10), got[0][1])
	assert.Equal(t, int64(200), *(got[0][2].(*int64)))
	assert.Equal(t, int64(11), got[1][1])
	assert.Equal(t, int64(2), got[2][0])
}

func TestShare(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.6667, Share(2, 3), 1e-9)
	assert.InDelta(t, 0.0, Share(5, 0), 1e-9)
	assert.InDelta(t, 1.0, Share(4, 4), 1e-9)
	assert.InDelta(t, 0.1429, Share(1, 7), 1e-9)
}

func TestFirstColumn(t *testing.T) {
	t.Parallel()

	got, err := firstColumn([]string{"id", "display_name"}, "teams", "team_name", "name", "display_name")
	require.NoError(t, err)
	assert.Equal(t, "display_name", got)

	_, err = firstColumn([]string{"id"}, "teams", "team_name")
	require.ErrorIs(t, err, ErrColumnNotFound)
}
