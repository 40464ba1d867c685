package sportmonks

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider"
	"github.com/inattention/sportdata/provider/transport"
)

const testRegistry = `
providers:
  - name: sportmonks
    base_url: %s
    endpoints:
      leagues: leagues
      seasons: seasons
      fixtures_by_id: fixtures/{fixture_id}
      schedules_seasons: schedules/seasons/{season_id}
      teams_by_id: teams/{team_id}
      players_by_id: players/{player_id}
      premium_odds_by_fixture: odds/premium/fixtures/{fixture_id}
      premium_odds_history_updated_between: odds/premium/history/updated/between/{from_utc}/{to_utc}
      odds_prematch_by_fixture: odds/pre-match/fixtures/{fixture_id}
    odds_market_mapping:
      1x2:
        field: market_description
        equals: ["Fulltime Result"]
`

// newTestClient serves routes keyed by request path, or by path prefix for keys ending in "*".
// Every request must carry the api token.
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h, ok := routes[r.URL.Path]
		if !ok {
			for prefix, ph := range routes {
				if strings.HasSuffix(prefix, "*") && strings.HasPrefix(r.URL.Path, strings.TrimSuffix(prefix, "*")) {
					h, ok = ph, true
				}
			}
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	reg, err := provider.Parse(fmt.Appendf(nil, testRegistry, srv.URL))
	require.NoError(t, err)

	opts := transport.DefaultOptions(Name)
	opts.MaxRetries = 1
	opts.BaseDelay = time.Millisecond
	opts.MaxDelay = time.Millisecond
	lggr := logger.Test(t)

	c := New(lggr, transport.New(lggr, opts), reg, "tok")
	c.windowPause = 0

	return c
}

func jsonBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func ptr[T any](v T) *T { return &v }

func TestEscapeSegment(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2024-01-01%2010%3A05", escapeSegment("2024-01-01 10:05"))
	require.False(t, strings.Contains(escapeSegment("a b"), "+"))
}
