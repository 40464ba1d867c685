package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/inattention/sportdata/provider/oddsapi"
	"github.com/inattention/sportdata/provider/sportmonks"
	"github.com/inattention/sportdata/provider/transport"
)

// fakeSportMonks serves canned responses. Ids missing from a map answer with a 404.
type fakeSportMonks struct {
	leagues   []sportmonks.League
	seasons   map[int64][]sportmonks.Season
	schedules map[int64][]sportmonks.ScheduleFixture
	teams     map[int64]string
	players   map[int64]string
	lineups   map[int64]*sportmonks.Lineup
	odds      map[int64]*sportmonks.PreMatch1X2
	// rateLimited is the number of 429 answers each lineup request gets before succeeding.
	rateLimited int

	mu          sync.Mutex
	lineupCalls map[int64]int
}

func notFound(what string, id int64) error {
	return &transport.StatusError{StatusCode: 404, URL: fmt.Sprintf("https://api.test/%s/%d", what, id)}
}

func (f *fakeSportMonks) Leagues(context.Context) ([]sportmonks.League, json.RawMessage, error) {
	return f.leagues, nil, nil
}

func (f *fakeSportMonks) Seasons(_ context.Context, leagueID int64) ([]sportmonks.Season, error) {
	return f.seasons[leagueID], nil
}

func (f *fakeSportMonks) Schedule(_ context.Context, seasonID int64) ([]sportmonks.ScheduleFixture, json.RawMessage, error) {
	s, ok := f.schedules[seasonID]
	if !ok {
		return nil, nil, notFound("schedules", seasonID)
	}

	return s, nil, nil
}

func (f *fakeSportMonks) Team(_ context.Context, teamID int64) (*sportmonks.Team, json.RawMessage, error) {
	name, ok := f.teams[teamID]
	if !ok {
		return nil, nil, notFound("teams", teamID)
	}

	return &sportmonks.Team{ID: ptr(teamID), Name: name}, nil, nil
}

func (f *fakeSportMonks) Player(_ context.Context, playerID int64) (*sportmonks.Player, json.RawMessage, error) {
	name, ok := f.players[playerID]
	if !ok {
		return nil, nil, notFound("players", playerID)
	}

	return &sportmonks.Player{ID: ptr(playerID), Name: name}, nil, nil
}

func (f *fakeSportMonks) Lineup(_ context.Context, fixtureID int64) (*sportmonks.Lineup, json.RawMessage, error) {
	f.mu.Lock()
	if f.lineupCalls == nil {
		f.lineupCalls = map[int64]int{}
	}
	f.lineupCalls[fixtureID]++
	calls := f.lineupCalls[fixtureID]
	f.mu.Unlock()
	if calls <= f.rateLimited {
		return nil, nil, &transport.RateLimitError{URL: "https://api.test/fixtures"}
	}
	l, ok := f.lineups[fixtureID]
	if !ok {
		return nil, nil, notFound("fixtures", fixtureID)
	}

	return l, nil, nil
}

func (f *fakeSportMonks) PreMatch1X2(_ context.Context, fixtureID, _, _ int64) (*sportmonks.PreMatch1X2, json.RawMessage, error) {
	o, ok := f.odds[fixtureID]
	if !ok {
		return nil, nil, notFound("odds", fixtureID)
	}

	return o, nil, nil
}

type eventsCall struct {
	Sport    string
	Snapshot time.Time
	From, To time.Time
}

// fakeOddsAPI returns the events of a sport and prices snapshots through h2h.
type fakeOddsAPI struct {
	events map[string][]oddsapi.Event
	h2h    func(sport, eventID string, at time.Time) (*oddsapi.H2H, error)

	mu     sync.Mutex
	calls  []eventsCall
	h2hAts []time.Time
}

func (f *fakeOddsAPI) HistoricalEvents(_ context.Context, sport string, snapshot time.Time, from, to *time.Time) (*oddsapi.EventsSnapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, eventsCall{Sport: sport, Snapshot: snapshot, From: *from, To: *to})
	f.mu.Unlock()
	events, ok := f.events[sport]
	if !ok {
		return nil, &transport.StatusError{StatusCode: 422, URL: "https://api.test/historical/sports/" + sport + "/events"}
	}

	return &oddsapi.EventsSnapshot{Timestamp: snapshot.Format(time.RFC3339), Data: events}, nil
}

func (f *fakeOddsAPI) H2HSnapshot(_ context.Context, sport, eventID string, at time.Time, bookmaker, _ string) (*oddsapi.H2H, error) {
	f.mu.Lock()
	f.h2hAts = append(f.h2hAts, at)
	f.mu.Unlock()
	if f.h2h == nil {
		return &oddsapi.H2H{SnapshotTime: at, Bookmaker: bookmaker}, nil
	}

	return f.h2h(sport, eventID, at)
}
