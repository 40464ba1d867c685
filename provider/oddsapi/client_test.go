package oddsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider"
	"github.com/inattention/sportdata/provider/transport"
)

const testRegistry = `
providers:
  - name: oddsapi
    base_url: %s/v4
    endpoints:
      sports: sports
      historical_events: historical/sports/{sport}/events
      historical_event_odds: historical/sports/{sport}/events/{event_id}/odds
`

func newTestClient(t *testing.T, handler http.HandlerFunc, fns ...transport.Option) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	reg, err := provider.Parse(fmt.Appendf(nil, testRegistry, srv.URL))
	require.NoError(t, err)

	lggr := logger.Test(t)
	opts := transport.DefaultOptions(Name)
	opts.MaxRetries = 0
	c := New(lggr, transport.New(lggr, opts, fns...), reg, "key")
	c.chainPause = 0

	return c
}

func TestClient_Sports(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports", r.URL.Path)
		_, _ = w.Write([]byte(`[{"key": "soccer_epl", "group": "Soccer", "title": "EPL", "description": "Premier League", "active": true, "has_outrights": false}]`))
	})

	got, _, err := c.Sports(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []Sport{{Key: "soccer_epl", Group: "Soccer", Title: "EPL", Description: "Premier League", Active: true}}, got)
}

func TestClient_CollectHistoricalEvents(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "/v4/historical/sports/soccer_epl/events", r.URL.Path)
		assert.Equal(t, "iso", q.Get("dateFormat"))
		assert.Equal(t, "2020-09-01T00:00:00Z", q.Get("commenceTimeFrom"))
		fmt.Fprintf(w, `{"timestamp": %q, "data": [
			{"id": "b", "sport_key": "soccer_epl", "commence_time": "2020-09-20T15:00:00Z", "home_team": "Arsenal", "away_team": "Chelsea"},
			{"id": "a", "sport_key": "soccer_epl", "commence_time": "2020-09-12T15:00:00Z", "home_team": "Fulham", "away_team": "Arsenal"},
			{"id": ""}
		]}`, q.Get("date"))
	})

	from := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 5, 31, 0, 0, 0, 0, time.UTC)
	start := time.Date(2020, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(14 * 24 * time.Hour)

	got, err := c.CollectHistoricalEvents(t.Context(), "soccer_epl", from, to, start, end, 7*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EventID)
	assert.Equal(t, "b", got[1].EventID)
	assert.Equal(t, "2020-09-10T00:00:00Z", got[0].FoundInSnapshot)
}

const eventOdds = `{
	"timestamp": %q,
	"previous_timestamp": %q,
	"data": {
		"id": "ev1", "sport_key": "soccer_epl", "commence_time": "2020-11-07T15:00:00Z",
		"home_team": "Arsenal", "away_team": "Aston Villa",
		"bookmakers": [
			{"key": "unibet", "title": "Unibet", "markets": [{"key": "h2h", "outcomes": [
				{"name": "Arsenal", "price": 1.5}, {"name": "Draw", "price": 4.0}, {"name": "Aston Villa", "price": 6.0}
			]}]},
			{"key": "betfair", "title": "Betfair", "last_update": %q, "markets": [{"key": "h2h", "last_update": %q, "outcomes": [
				{"name": "ARSENAL", "price": %s}, {"name": "Draw", "price": 4.2}, {"name": "Aston Villa", "price": null}
			]}]}
		]
	}
}`

func TestClient_H2HSnapshot(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v4/historical/sports/soccer_epl/events/ev1/odds", r.URL.Path)
		assert.Equal(t, "2020-11-07T13:00:00Z", q.Get("date"))
		assert.Equal(t, "h2h", q.Get("markets"))
		assert.Equal(t, "decimal", q.Get("oddsFormat"))
		assert.Equal(t, "betfair", q.Get("bookmakers"))
		assert.Equal(t, "eu", q.Get("regions"))
		fmt.Fprintf(w, eventOdds, "2020-11-07T12:55:00Z", "2020-11-07T12:50:00Z", "x", "x", "1.62")
	})

	got, err := c.H2HSnapshot(t.Context(), "soccer_epl", "ev1", time.Date(2020, 11, 7, 13, 0, 0, 0, time.UTC), " BetFair ", "eu")
	require.NoError(t, err)

	assert.Equal(t, "betfair", got.Bookmaker)
	require.NotNil(t, got.Home)
	assert.InDelta(t, 1.62, *got.Home, 1e-9)
	require.NotNil(t, got.Draw)
	assert.InDelta(t, 4.2, *got.Draw, 1e-9)
	assert.Nil(t, got.Away)
	assert.Equal(t, "2020-11-07T12:55:00Z", got.RawSnapshotTimestamp)
}

func TestClient_H2HSnapshot_FallsBackToFirstBookmaker(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, eventOdds, "2020-11-07T12:55:00Z", "", "x", "x", "1.62")
	})

	got, err := c.H2HSnapshot(t.Context(), "soccer_epl", "ev1", time.Now(), "pinnacle", "eu")
	require.NoError(t, err)
	assert.Equal(t, "unibet", got.Bookmaker)
	require.NotNil(t, got.Away)
	assert.InDelta(t, 6.0, *got.Away, 1e-9)
}

func TestClient_H2HTimeseries(t *testing.T) {
	t.Parallel()

	chain := map[string][2]string{
		// date requested -> snapshot timestamp, previous timestamp
		"2020-11-07T14:30:00Z": {"2020-11-07T14:25:00Z", "2020-11-07T14:20:00Z"},
		"2020-11-07T14:20:00Z": {"2020-11-07T14:20:00Z", "2020-11-07T14:10:00Z"},
		"2020-11-07T14:10:00Z": {"2020-11-07T14:10:00Z", "2020-11-07T14:00:00Z"},
		"2020-11-07T14:00:00Z": {"2020-11-07T14:00:00Z", "2020-11-07T13:50:00Z"},
	}
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		link, ok := chain[r.URL.Query().Get("date")]
		if !assert.True(t, ok, r.URL.Query().Get("date")) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, eventOdds, link[0], link[1], link[0], link[0], "1.7")
	})

	end := time.Date(2020, 11, 7, 14, 5, 0, 0, time.UTC)
	got, err := c.H2HTimeseries(t.Context(), "soccer_epl", "ev1", time.Date(2020, 11, 7, 14, 30, 0, 0, time.UTC), &end, "betfair", "eu")
	require.NoError(t, err)

	// the third snapshot points before end, so the walk stops there
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, got, 3)
	assert.Equal(t, "2020-11-07T14:10:00Z", got[0].SnapshotTimestamp)
	assert.Equal(t, "2020-11-07T14:25:00Z", got[2].SnapshotTimestamp)
	assert.Equal(t, "Betfair", got[0].BookmakerTitle)
	require.NotNil(t, got[0].Home)
	assert.InDelta(t, 1.7, *got[0].Home, 1e-9)
}

func TestClient_H2HTimeseries_StopsOnRepeatedSnapshot(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, eventOdds, "2020-11-07T14:00:00Z", "2020-11-07T13:00:00Z", "x", "x", "1.7")
	})

	got, err := c.H2HTimeseries(t.Context(), "soccer_epl", "ev1", time.Date(2020, 11, 7, 14, 30, 0, 0, time.UTC), nil, "betfair", "eu")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, got, 1)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	got, err := ParseTime("2020-11-07T15:30:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, "2020-11-07T14:30:00Z", ISO(got))

	_, err = ParseTime("2020-11-07")
	require.Error(t, err)
}

// memCache is an in-memory transport.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]

	return b, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = body

	return nil
}

func TestClient_CachesSettledSnapshotsOnly(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		wantHits int32
		wantHome float64
	}{
		{name: "past snapshot", at: now.Add(-48 * time.Hour), wantHits: 1, wantHome: 2.0},
		{name: "within the margin", at: now.Add(-30 * time.Minute), wantHits: 2, wantHome: 3.5},
		{name: "future snapshot", at: now.Add(72 * time.Hour), wantHits: 2, wantHome: 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				price := "2.0"
				if hits.Add(1) > 1 {
					price = "3.5"
				}
				fmt.Fprintf(w, eventOdds, ISO(tt.at), "", "x", "x", price)
			}, transport.WithCache(&memCache{}))
			c.now = func() time.Time { return now }

			_, err := c.H2HSnapshot(t.Context(), "soccer_epl", "ev1", tt.at, "betfair", "eu")
			require.NoError(t, err)
			got, err := c.H2HSnapshot(t.Context(), "soccer_epl", "ev1", tt.at, "betfair", "eu")
			require.NoError(t, err)

			assert.Equal(t, tt.wantHits, hits.Load())
			require.NotNil(t, got.Home)
			assert.InDelta(t, tt.wantHome, *got.Home, 1e-9)
		})
	}
}

func TestClient_HistoricalEvents_FutureSnapshotNotCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"timestamp": "2024-03-04T12:00:00Z", "data": []}`)
	}, transport.WithCache(&memCache{}))
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for range 2 {
		_, err := c.HistoricalEvents(t.Context(), "soccer_epl", now.Add(72*time.Hour), nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())

	for range 2 {
		_, err := c.HistoricalEvents(t.Context(), "soccer_epl", now.Add(-72*time.Hour), nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}
