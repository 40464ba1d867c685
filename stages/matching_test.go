package stages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/provider/oddsapi"
	"github.com/inattention/sportdata/store"
)

const (
	leagueCSVContent = "league_id,league_name,oa_league_name\n8,Premier League,soccer_epl\n82,Bundesliga,\n"
	teamCSVContent   = "team_id,team_name,oa_name\n10,Arsenal,Arsenal\n11,Chelsea,Chelsea\n12,Luton,\n"
)

var kickoff1 = time.Date(2023, 8, 11, 19, 0, 0, 0, time.UTC)

// seedMatching stores three fixtures: 1 with both teams mapped, 2 with an unmapped away team
// and 3 in an unmapped league.
func seedMatching(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := t.Context()
	_, err := s.UpsertLeagues(ctx, []store.League{
		{ID: 8, Name: "Premier League", Provider: "sportmonks"},
		{ID: 82, Name: "Bundesliga", Provider: "sportmonks"},
	})
	require.NoError(t, err)
	_, err = s.UpsertTeams(ctx, []store.Team{
		{ID: 10, Name: "Arsenal", Provider: "sportmonks"},
		{ID: 11, Name: "Chelsea", Provider: "sportmonks"},
	})
	require.NoError(t, err)
	_, err = s.UpsertFixtures(ctx, []store.Fixture{
		{ID: 1, Date: ptr(kickoff1), LeagueID: 8, SeasonID: 21646, HomeTeamID: ptr(int64(10)), AwayTeamID: ptr(int64(11)), Provider: "sportmonks"},
		{ID: 2, Date: ptr(kickoff1.Add(19 * time.Hour)), LeagueID: 8, SeasonID: 21646, HomeTeamID: ptr(int64(11)), AwayTeamID: ptr(int64(12)), Provider: "sportmonks"},
		{ID: 3, Date: ptr(kickoff1.Add(-time.Hour)), LeagueID: 82, SeasonID: 21795, HomeTeamID: ptr(int64(20)), AwayTeamID: ptr(int64(21)), Provider: "sportmonks"},
	})
	require.NoError(t, err)
}

func eplEvents() map[string][]oddsapi.Event {
	return map[string][]oddsapi.Event{
		"soccer_epl": {
			{ID: "ev-late", CommenceTime: "2023-08-11T21:00:00Z", HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
			{ID: "ev1", CommenceTime: "2023-08-11T19:00:00Z", HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
			{ID: "ev3", CommenceTime: "2023-08-12T14:00:00Z", HomeTeam: "Chelsea", AwayTeam: "Luton Town"},
		},
	}
}

func TestFixturesMatching(t *testing.T) {
	s := newTestStore(t)
	seedMatching(t, s)
	oa := &fakeOddsAPI{events: eplEvents()}
	deps := &Deps{Store: s, OddsAPI: oa}
	in := MatchingInput{
		LeagueCSV: writeFile(t, "league_mapping.csv", leagueCSVContent),
		TeamCSV:   writeFile(t, "team_mapping.csv", teamCSVContent),
	}

	r, err := pipeline.ExecuteStage(newTestBundle(t), FixturesMatching, deps, in)
	require.NoError(t, err)
	assert.Equal(t, MatchingOutput{Candidates: 2, Matched: 1, SkippedMapping: 1, Written: 1}, r.Output)

	require.Len(t, oa.calls, 1)
	assert.Equal(t, eventsCall{
		Sport:    "soccer_epl",
		Snapshot: kickoff1.Add(time.Hour),
		From:     kickoff1.Add(-12 * time.Hour),
		To:       kickoff1.Add(12 * time.Hour),
	}, oa.calls[0])

	matched, err := s.MatchedFixtures(t.Context(), store.FixtureFilter{})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "ev1", matched[0].EventID)

	// matched fixtures are no longer candidates
	r, err = pipeline.ExecuteStage(newTestBundle(t), FixturesMatching, deps, in)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Output.Candidates)
}

func TestFixturesMatching_Errors(t *testing.T) {
	s := newTestStore(t)
	seedMatching(t, s)
	deps := &Deps{Store: s, OddsAPI: &fakeOddsAPI{}}
	leagueCSV := writeFile(t, "league_mapping.csv", leagueCSVContent)

	tests := []struct {
		name    string
		in      MatchingInput
		wantErr string
	}{
		{
			name:    "bad snapshot mode",
			in:      MatchingInput{LeagueCSV: leagueCSV, TeamCSV: leagueCSV, SnapshotMode: "yesterday"},
			wantErr: `snapshot mode must be "kickoff_plus_1h" or "now", got "yesterday"`,
		},
		{
			name:    "empty team mapping",
			in:      MatchingInput{LeagueCSV: leagueCSV, TeamCSV: writeFile(t, "teams.csv", "team_id,team_name,oa_name\n10,Arsenal,\n")},
			wantErr: "no team mappings with oa_name found",
		},
		{
			name:    "missing league mapping",
			in:      MatchingInput{LeagueCSV: t.TempDir() + "/none.csv", TeamCSV: leagueCSV},
			wantErr: "open mapping",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.ExecuteStage(newTestBundle(t), FixturesMatching, deps, tt.in)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFixturesMatching_APIErrorSkipsFixture(t *testing.T) {
	s := newTestStore(t)
	seedMatching(t, s)
	deps := &Deps{Store: s, OddsAPI: &fakeOddsAPI{events: map[string][]oddsapi.Event{}}}

	r, err := pipeline.ExecuteStage(newTestBundle(t), FixturesMatching, deps, MatchingInput{
		LeagueCSV: writeFile(t, "league_mapping.csv", leagueCSVContent),
		TeamCSV:   writeFile(t, "team_mapping.csv", teamCSVContent),
		Limit:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, MatchingOutput{Candidates: 1, Failed: 1}, r.Output)
}

func TestRematch(t *testing.T) {
	s := newTestStore(t)
	seedMatching(t, s)
	oa := &fakeOddsAPI{events: eplEvents()}
	deps := &Deps{Store: s, OddsAPI: oa}
	in := RematchInput{
		LeagueCSV: writeFile(t, "league_mapping.csv", leagueCSVContent),
		TeamCSV:   writeFile(t, "team_mapping.csv", teamCSVContent),
		LeagueID:  8,
		DryRun:    true,
	}

	r, err := pipeline.ExecuteStage(newTestBundle(t), Rematch, deps, in)
	require.NoError(t, err)
	assert.Equal(t, RematchOutput{Candidates: 2, Matched: 2}, r.Output)
	n, err := s.Count(t.Context(), store.TableFixturesMatching)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "dry run writes nothing")

	kickoff2 := kickoff1.Add(19 * time.Hour)
	assert.Equal(t, kickoff2.Add(24*time.Hour), oa.calls[1].Snapshot, "snapshot at window end")
	assert.Equal(t, kickoff2.Add(-24*time.Hour), oa.calls[1].From)

	in.DryRun = false
	in.LeagueID = 0
	r, err = pipeline.ExecuteStage(newTestBundle(t), Rematch, deps, in)
	require.NoError(t, err)
	assert.Equal(t, RematchOutput{Candidates: 3, Matched: 2, Skipped: 1, Written: 2}, r.Output)

	matched, err := s.MatchedFixtures(t.Context(), store.FixtureFilter{})
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "ev1", matched[0].EventID)
	assert.Equal(t, "ev3", matched[1].EventID)

	r, err = pipeline.ExecuteStage(newTestBundle(t), Rematch, deps, in)
	require.NoError(t, err)
	assert.Equal(t, RematchOutput{Candidates: 1, Skipped: 1}, r.Output)
}
