package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Leagues(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	n, err := s.UpsertLeagues(ctx, []League{
		{ID: 8, Name: "Premier League", Provider: "sportmonks"},
		{ID: 82, Name: "Bundesliga", Provider: "sportmonks"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// unchanged rows are not rewritten
	n, err = s.UpsertLeagues(ctx, []League{{ID: 8, Name: "Premier League", Provider: "sportmonks"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.UpsertLeagues(ctx, []League{{ID: 8, Name: "EPL", Provider: "sportmonks"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.InsertLeagues(ctx, []League{
		{ID: 8, Name: "ignored", Provider: "sportmonks"},
		{ID: 301, Name: "Ligue 1", Provider: "sportmonks"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Leagues(ctx)
	require.NoError(t, err)
	want := []League{
		{ID: 8, Name: "EPL", Provider: "sportmonks"},
		{ID: 82, Name: "Bundesliga", Provider: "sportmonks"},
		{ID: 301, Name: "Ligue 1", Provider: "sportmonks"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Leagues() mismatch (-want +got):\n%s", diff)
	}

	n, err = s.DeleteLeaguesNotIn(ctx, "sportmonks", []int64{8, 82})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteLeaguesNotIn(ctx, "other", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.DeleteLeaguesNotIn(ctx, "sportmonks", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_Seasons(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	_, err := s.UpsertSeasons(ctx, []Season{
		{ID: 1, Name: "2022/2023", LeagueID: 8, Provider: "sportmonks"},
		{ID: 2, Name: "2023/2024", LeagueID: 8, IsCurrent: ptr(true), Provider: "sportmonks"},
	})
	require.NoError(t, err)

	n, err := s.UpsertSeasons(ctx, []Season{{ID: 1, Name: "2022/2023", LeagueID: 8, IsCurrent: ptr(false), Provider: "sportmonks"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "NULL to false is a change")

	_, err = s.UpsertFixtures(ctx, []Fixture{{ID: 100, LeagueID: 8, SeasonID: 1, Provider: "sportmonks"}})
	require.NoError(t, err)

	missing, err := s.SeasonsWithoutFixtures(ctx, "sportmonks")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, int64(2), missing[0].ID)
	require.NotNil(t, missing[0].IsCurrent)
	assert.True(t, *missing[0].IsCurrent)
}

func TestStore_UpsertLargeBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	// more rows than fit in a single statement
	rows := make([]Lineup, 0, 12000)
	for i := range 12000 {
		rows = append(rows, Lineup{FixtureID: int64(i / 20), PlayerID: int64(i), Minutes: ptr(int64(90))})
	}
	n, err := s.UpsertLineups(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), n)

	count, err := s.Count(ctx, TableLineups)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), count)

	_, err = s.Count(ctx, "pg_user")
	require.Error(t, err)
}

func seedFixtures(t *testing.T, s *Store) {
	t.Helper()
	at := func(day int) *time.Time {
		v := time.Date(2023, 8, day, 15, 0, 0, 0, time.UTC)
		return &v
	}
	_, err := s.UpsertLeagues(t.Context(), []League{{ID: 8, Name: "Premier League", Provider: "sportmonks"}})
	require.NoError(t, err)
	_, err = s.UpsertFixtures(t.Context(), []Fixture{
		{ID: 1, Date: at(5), LeagueID: 8, SeasonID: 10, HomeTeamID: ptr(int64(1)), AwayTeamID: ptr(int64(2)), Provider: "sportmonks"},
		{ID: 2, Date: at(12), LeagueID: 8, SeasonID: 10, HomeTeamID: ptr(int64(3)), AwayTeamID: ptr(int64(1)), Provider: "sportmonks"},
		{ID: 3, Date: at(19), LeagueID: 8, SeasonID: 10, HomeTeamID: ptr(int64(1)), AwayTeamID: ptr(int64(3)), Provider: "sportmonks"},
		{ID: 4, Date: at(26), LeagueID: 8, SeasonID: 10, HomeTeamID: ptr(int64(2)), AwayTeamID: nil, Provider: "sportmonks"},
	})
	require.NoError(t, err)
}

func TestStore_PreviousMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	seedFixtures(t, s)

	rows, err := s.BuildPreviousMatches(ctx, "sportmonks", false)
	require.NoError(t, err)
	require.Len(t, rows, 7)

	byKey := map[[2]int64]PreviousMatch{}
	for _, r := range rows {
		byKey[[2]int64{r.FixtureID, r.TeamID}] = r
	}
	team1 := byKey[[2]int64{3, 1}]
	require.NotNil(t, team1.Prev[0])
	require.NotNil(t, team1.Prev[1])
	assert.Equal(t, int64(2), *team1.Prev[0])
	assert.Equal(t, int64(1), *team1.Prev[1])
	assert.Nil(t, team1.Prev[2])
	assert.Nil(t, byKey[[2]int64{1, 1}].Prev[0])

	n, err := s.UpsertPreviousMatches(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = s.UpsertPreviousMatches(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	prev, err := s.PreviousFixture(ctx, 3, 1)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, int64(2), *prev)

	prev, err = s.PreviousFixture(ctx, 99, 1)
	require.NoError(t, err)
	assert.Nil(t, prev)

	missing, err := s.BuildPreviousMatches(ctx, "sportmonks", true)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = s.DeleteFixturesNotInSeasons(ctx, "sportmonks", []int64{99})
	require.NoError(t, err)
	n, err = s.DeleteStalePreviousMatches(ctx, "sportmonks")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestStore_FixtureQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	seedFixtures(t, s)

	teams, err := s.FixtureTeamIDs(ctx, "sportmonks")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, teams)

	_, err = s.UpsertTeams(ctx, []Team{{ID: 1, Name: "Arsenal", Provider: "sportmonks"}})
	require.NoError(t, err)
	missing, err := s.MissingTeamIDs(ctx, "sportmonks")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, missing)

	leagues, err := s.TeamPrimaryLeagues(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{1: 8, 2: 8, 3: 8}, leagues)

	unmatched, err := s.UnmatchedFixtures(ctx, []int64{8}, FixtureFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, int64(1), unmatched[0].FixtureID)
	assert.Equal(t, "Arsenal", unmatched[0].HomeTeamName)
	assert.Equal(t, time.Date(2023, 8, 5, 15, 0, 0, 0, time.UTC), unmatched[0].Kickoff)

	commence := time.Date(2023, 8, 5, 15, 0, 0, 0, time.UTC)
	n, err := s.UpsertMatches(ctx, []Match{{FixtureID: 1, LeagueID: 8, EventID: "ev1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", CommenceTime: &commence}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unmatched, err = s.UnmatchedFixtures(ctx, nil, FixtureFilter{SeasonID: 10})
	require.NoError(t, err)
	assert.Len(t, unmatched, 2, "fixture 4 has no away team")

	matched, err := s.MatchedFixtures(ctx, FixtureFilter{LeagueID: 8})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "ev1", matched[0].EventID)

	scheduled, err := s.ScheduledFixtures(ctx, FixtureFilter{})
	require.NoError(t, err)
	require.Len(t, scheduled, 4)
	assert.Equal(t, int64(0), scheduled[3].AwayTeamID)

	kickoff, err := s.FixtureKickoff(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, kickoff)
	assert.Equal(t, 12, kickoff.Day())
}

func TestStore_LineupsAndRatings(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	seedFixtures(t, s)

	n, err := s.UpsertLineups(ctx, []Lineup{
		{FixtureID: 1, PlayerID: 10, TeamID: ptr(int64(1)), Minutes: ptr(int64(90)), Rating: ptr(7.0)},
		{FixtureID: 1, PlayerID: 11, TeamID: ptr(int64(1)), Minutes: ptr(int64(45)), Rating: ptr(6.0)},
		{FixtureID: 1, PlayerID: 20, TeamID: ptr(int64(2)), Minutes: ptr(int64(90))},
		{FixtureID: 77, PlayerID: 30, TeamID: ptr(int64(9))},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	ok, err := s.HasLineup(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	without, err := s.FixturesWithoutLineups(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, without)

	ratings, err := s.ComputeTeamRatings(ctx, false)
	require.NoError(t, err)
	require.Len(t, ratings, 3)
	require.NotNil(t, ratings[0].AvgRating)
	assert.InDelta(t, 6.5, *ratings[0].AvgRating, 1e-9)
	assert.Nil(t, ratings[1].AvgRating)

	n, err = s.UpsertTeamRatings(ctx, ratings)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	missing, err := s.ComputeTeamRatings(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, missing)

	players, err := s.MissingPlayerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 20, 30}, players)

	_, err = s.UpsertPlayers(ctx, []Player{{ID: 10, Name: "Bukayo Saka"}})
	require.NoError(t, err)
	players, err = s.MissingPlayerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 20, 30}, players)

	n, err = s.DeleteOrphanLineups(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_Coverage(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	seedFixtures(t, s)

	_, err := s.UpsertLineups(ctx, []Lineup{
		{FixtureID: 1, PlayerID: 10, Minutes: ptr(int64(90)), Rating: ptr(7.0)},
		{FixtureID: 1, PlayerID: 11, Minutes: ptr(int64(90))},
		{FixtureID: 2, PlayerID: 10, Minutes: ptr(int64(90))},
	})
	require.NoError(t, err)

	byLeague, total, err := s.Coverage(ctx, CoverageFilter{Provider: "sportmonks", MinPlayerRows: 2})
	require.NoError(t, err)
	require.Len(t, byLeague, 1)
	assert.Equal(t, "Premier League", byLeague[0].League)
	assert.Equal(t, int64(4), total.Fixtures)
	assert.Equal(t, int64(1), total.WithLineups)
	assert.Equal(t, int64(2), total.WithMinutes)
	assert.Equal(t, int64(1), total.WithRatings)
	assert.Equal(t, int64(1), total.WithMinutesAndRating)
	assert.InDelta(t, 0.5, total.ShareMinutes, 1e-9)
	assert.InDelta(t, 0.25, total.ShareLineups, 1e-9)

	_, total, err = s.Coverage(ctx, CoverageFilter{Provider: "sportmonks", SeasonIDs: []int64{11}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total.Fixtures)
	assert.InDelta(t, 0.0, total.ShareLineups, 1e-9)
}

func TestStore_Odds(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	ts := time.Date(2023, 8, 5, 13, 0, 0, 0, time.UTC)
	rows := []Odds1X2{
		{FixtureID: 1, Timestamp: ts, Timeline: "odd_2", Provider: "betfair", Home: ptr(2.1), Draw: ptr(3.4), Away: ptr(3.9)},
		{FixtureID: 1, Timestamp: ts.Add(time.Hour), Timeline: "odd_1", Provider: "betfair"},
	}
	n, err := s.UpsertOdds(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows[1].Home = ptr(2.0)
	n, err = s.UpsertOdds(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := s.HasOdds(ctx, 1, "betfair", "")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasOdds(ctx, 1, "betfair", "sm_odds")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Odds(ctx, 1, "betfair")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "odd_1", got[0].Timeline)
	require.NotNil(t, got[0].Home)
	assert.Nil(t, got[0].Draw)
	assert.Equal(t, ts, got[1].Timestamp)
}

func TestStore_EnsureSchemaUpgradesMatching(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Fixture(ctx, "DROP TABLE fixtures_matching"))
	require.NoError(t, s.Fixture(ctx, `CREATE TABLE fixtures_matching (
		fixture_id BIGINT PRIMARY KEY, league_id BIGINT NOT NULL, oa_event_id TEXT,
		matched_at TIMESTAMPTZ NOT NULL DEFAULT now())`))

	require.NoError(t, s.EnsureSchema(ctx))

	cols, err := s.Columns(ctx, TableFixturesMatching)
	require.NoError(t, err)
	assert.Subset(t, cols, []string{"oa_home_team", "oa_away_team", "oa_commence_time"})

	exists, err := s.TableExists(ctx, TableFixturesMatching)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_NameColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	idCol, nameCol, err := s.NameColumns(ctx, TableTeams, "team")
	require.NoError(t, err)
	assert.Equal(t, "team_id", idCol)
	assert.Equal(t, "team_name", nameCol)

	require.NoError(t, s.Fixture(ctx, "ALTER TABLE teams RENAME COLUMN team_name TO display_name"))
	require.NoError(t, s.Fixture(ctx, "INSERT INTO teams (team_id, display_name, provider) VALUES (5, 'Spurs', 'sportmonks')"))

	names, err := s.TeamNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{5: "Spurs"}, names)

	_, _, err = s.NameColumns(ctx, TableOdds1X2, "team")
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestStore_StageReports(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	started := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := StageReport{
		ID:         uuid.NewString(),
		RunID:      "run-1",
		Stage:      "leagues",
		Version:    "1.0.0",
		Input:      json.RawMessage(`{"leagues_file":"leagues.yaml"}`),
		Output:     json.RawMessage(`{"changed":2}`),
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	require.NoError(t, s.InsertStageReport(ctx, r))
	require.Error(t, s.InsertStageReport(ctx, r))

	got, err := s.StageReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "leagues", got.Stage)
	assert.JSONEq(t, `{"changed":2}`, string(got.Output))
	assert.Empty(t, got.Error)
	assert.Equal(t, started, got.StartedAt)

	list, err := s.StageReports(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.StageReport(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrStageReportNotFound)

	require.NoError(t, s.InTx(ctx, func(tx *Store) error {
		return tx.Fixture(ctx, "DELETE FROM stage_reports")
	}))
	list, err = s.StageReports(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
