package sportmonks

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonItems(from, n int) string {
	items := make([]string, 0, n)
	for i := from; i < from+n; i++ {
		items = append(items, fmt.Sprintf(`{"id": %d, "name": "S%d", "league_id": 8, "is_current": %t}`, i, i, i == from))
	}

	return "[" + strings.Join(items, ",") + "]"
}

func TestClient_Seasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pages     map[string]string
		wantCount int
		wantCalls int32
	}{
		{
			name: "top level pagination",
			pages: map[string]string{
				"1": `{"data": ` + seasonItems(1, 50) + `, "pagination": {"current_page": 1, "last_page": 2}}`,
				"2": `{"data": ` + seasonItems(51, 3) + `, "pagination": {"current_page": 2, "last_page": 2}}`,
			},
			wantCount: 53,
			wantCalls: 2,
		},
		{
			name: "meta pagination",
			pages: map[string]string{
				"1": `{"data": ` + seasonItems(1, 2) + `, "meta": {"pagination": {"current_page": 1, "last_page": 2}}}`,
				"2": `{"data": ` + seasonItems(3, 1) + `, "meta": {"pagination": {"current_page": 2, "last_page": 2}}}`,
			},
			wantCount: 3,
			wantCalls: 2,
		},
		{
			name: "single object without pagination",
			pages: map[string]string{
				"1": `{"data": {"id": 7, "name": "2020/2021", "league_id": 8}}`,
			},
			wantCount: 1,
			wantCalls: 1,
		},
		{
			name: "full page without pagination keeps paging",
			pages: map[string]string{
				"1": `{"data": ` + seasonItems(1, 50) + `}`,
				"2": `{"data": []}`,
			},
			wantCount: 50,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			c := newTestClient(t, map[string]http.HandlerFunc{
				"/seasons": func(w http.ResponseWriter, r *http.Request) {
					calls.Add(1)
					assert.Equal(t, "seasonLeagues:8", r.URL.Query().Get("filters"))
					assert.Equal(t, "50", r.URL.Query().Get("per_page"))
					_, _ = w.Write([]byte(tt.pages[r.URL.Query().Get("page")]))
				},
			})

			got, err := c.Seasons(t.Context(), 8)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, int64(8), got[0].LeagueID)
		})
	}
}

func TestClient_Leagues(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, map[string]http.HandlerFunc{
		"/leagues": jsonBody(`{"data": [{"id": 8, "name": "Premier League"}, {"id": "bad"}, {"id": 82, "name": "Bundesliga"}]}`),
	})

	got, _, err := c.Leagues(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []League{{ID: 8, Name: "Premier League"}, {ID: 82, Name: "Bundesliga"}}, got)
}

func TestClient_TeamAndPlayer(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, map[string]http.HandlerFunc{
		"/teams/1":   jsonBody(`{"data": [{"id": 1, "name": "  Arsenal "}]}`),
		"/teams/2":   jsonBody(`{"data": []}`),
		"/players/9": jsonBody(`{"data": {"id": 9, "name": "Bukayo Saka"}}`),
	})

	team, _, err := c.Team(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, &Team{ID: ptr[int64](1), Name: "Arsenal"}, team)

	empty, _, err := c.Team(t.Context(), 2)
	require.NoError(t, err)
	assert.Empty(t, empty.Name)

	player, _, err := c.Player(t.Context(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Bukayo Saka", player.Name)

	_, _, err = c.Team(t.Context(), 3)
	require.Error(t, err)
}
