// Package oddsapi adapts The Odds API v4 historical endpoints.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/provider"
	"github.com/inattention/sportdata/provider/transport"
)

// Name is the provider name used in providers_config.yaml.
const Name = "oddsapi"

const (
	isoLayout     = "2006-01-02T15:04:05Z"
	maxChainSteps = 2000
	// settleMargin is how far in the past a snapshot must lie before its payload is cached.
	settleMargin = time.Hour
)

// ISO formats t the way the API expects query dates.
func ISO(t time.Time) string { return t.UTC().Format(isoLayout) }

// ParseTime parses API timestamps such as "2020-11-07T14:30:00Z".
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid oddsapi time %q: %w", s, err)
	}

	return t.UTC(), nil
}

// Client calls The Odds API.
type Client struct {
	http     *transport.Client
	registry *provider.Registry
	apiKey   string
	lggr     logger.Logger
	// chainPause separates requests while walking a snapshot chain.
	chainPause time.Duration
	now        func() time.Time
}

// New returns an Odds API client authenticating with apiKey.
func New(lggr logger.Logger, http *transport.Client, registry *provider.Registry, apiKey string) *Client {
	return &Client{
		http:       http,
		registry:   registry,
		apiKey:     apiKey,
		lggr:       lggr.Named(Name),
		chainPause: 200 * time.Millisecond,
		now:        time.Now,
	}
}

// settled reports whether the snapshot at date can no longer change. Only settled snapshots are
// cached; a snapshot at or after now may still gain bookmaker updates.
func (c *Client) settled(date time.Time) bool {
	return date.Before(c.now().Add(-settleMargin))
}

func (c *Client) get(ctx context.Context, endpoint string, args, params map[string]string, cacheable bool, v any) (json.RawMessage, error) {
	u, err := c.registry.URL(Name, endpoint, args)
	if err != nil {
		return nil, err
	}

	p := map[string]string{"apiKey": c.apiKey}
	for k, val := range params {
		if val != "" {
			p[k] = val
		}
	}

	raw, err := c.http.GetJSON(ctx, transport.Request{URL: u, Params: p, Cacheable: cacheable})
	if err != nil {
		return nil, fmt.Errorf("oddsapi %s: %w", endpoint, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return raw, fmt.Errorf("decode oddsapi %s: %w", endpoint, err)
	}

	return raw, nil
}

// Sports lists in-season and out-of-season sports.
func (c *Client) Sports(ctx context.Context) ([]Sport, json.RawMessage, error) {
	var out []Sport
	raw, err := c.get(ctx, "sports", nil, nil, false, &out)

	return out, raw, err
}

// HistoricalEvents returns the events listed at snapshot, optionally bounded by commence time.
func (c *Client) HistoricalEvents(ctx context.Context, sport string, snapshot time.Time, commenceFrom, commenceTo *time.Time) (*EventsSnapshot, error) {
	params := map[string]string{
		"date":       ISO(snapshot),
		"dateFormat": "iso",
	}
	if commenceFrom != nil {
		params["commenceTimeFrom"] = ISO(*commenceFrom)
	}
	if commenceTo != nil {
		params["commenceTimeTo"] = ISO(*commenceTo)
	}

	var out EventsSnapshot
	if _, err := c.get(ctx, "historical_events", map[string]string{"sport": sport}, params, c.settled(snapshot), &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CollectHistoricalEvents scans snapshots from start to end every step and returns the unique
// events whose commence time lies in [commenceFrom, commenceTo].
func (c *Client) CollectHistoricalEvents(
	ctx context.Context,
	sport string,
	commenceFrom, commenceTo, start, end time.Time,
	step time.Duration,
) ([]CollectedEvent, error) {
	if step <= 0 {
		step = 7 * 24 * time.Hour
	}

	seen := map[string]CollectedEvent{}
	var order []string
	for cur := start; !cur.After(end); cur = cur.Add(step) {
		snap, err := c.HistoricalEvents(ctx, sport, cur, &commenceFrom, &commenceTo)
		if err != nil {
			return nil, err
		}
		for _, e := range snap.Data {
			if e.ID == "" {
				continue
			}
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = CollectedEvent{
				EventID:         e.ID,
				SportKey:        e.SportKey,
				SportTitle:      e.SportTitle,
				CommenceTime:    e.CommenceTime,
				HomeTeam:        e.HomeTeam,
				AwayTeam:        e.AwayTeam,
				FoundInSnapshot: snap.Timestamp,
			}
			order = append(order, e.ID)
		}
	}

	out := make([]CollectedEvent, 0, len(order))
	for _, id := range order {
		out = append(out, seen[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CommenceTime < out[j].CommenceTime })

	return out, nil
}

// OddsQuery selects a historical event odds snapshot.
type OddsQuery struct {
	// Date is an ISO timestamp; the API returns the closest snapshot at or before it.
	Date       string
	Regions    string
	Markets    string
	Bookmakers string
}

// HistoricalEventOdds fetches one odds snapshot of an event in decimal format.
func (c *Client) HistoricalEventOdds(ctx context.Context, sport, eventID string, q OddsQuery) (*EventOddsSnapshot, json.RawMessage, error) {
	if q.Regions == "" && q.Bookmakers == "" {
		q.Regions = "eu"
	}
	if q.Markets == "" {
		q.Markets = "h2h"
	}
	date, err := ParseTime(q.Date)
	cacheable := err == nil && c.settled(date)

	var out EventOddsSnapshot
	raw, err := c.get(ctx, "historical_event_odds",
		map[string]string{"sport": sport, "event_id": eventID},
		map[string]string{
			"date":       q.Date,
			"regions":    q.Regions,
			"markets":    q.Markets,
			"bookmakers": q.Bookmakers,
			"oddsFormat": "decimal",
			"dateFormat": "iso",
		},
		cacheable, &out,
	)
	if err != nil {
		return nil, raw, err
	}

	return &out, raw, nil
}

// H2HSnapshot returns the 1X2 quote of bookmaker (or the first bookmaker listed when absent) at
// the snapshot closest before at.
func (c *Client) H2HSnapshot(ctx context.Context, sport, eventID string, at time.Time, bookmaker, region string) (*H2H, error) {
	bookmaker = strings.ToLower(strings.TrimSpace(bookmaker))
	snap, _, err := c.HistoricalEventOdds(ctx, sport, eventID, OddsQuery{
		Date:       ISO(at),
		Regions:    region,
		Markets:    "h2h",
		Bookmakers: bookmaker,
	})
	if err != nil {
		return nil, err
	}

	out := &H2H{SnapshotTime: at.UTC(), RawSnapshotTimestamp: snap.Timestamp}
	if snap.Data == nil {
		return out, nil
	}

	chosen := pickBookmaker(snap.Data.Bookmakers, bookmaker)
	if chosen == nil {
		return out, nil
	}
	out.Bookmaker = chosen.Key
	if m := h2hMarket(chosen); m != nil {
		out.Home, out.Draw, out.Away = splitOutcomes(m.Outcomes, snap.Data.HomeTeam, snap.Data.AwayTeam, "draw")
	}

	return out, nil
}

// H2HTimeseries walks the snapshot chain backwards from start through previous_timestamp and
// returns one row per snapshot in which bookmaker quoted the event, oldest first. The walk stops
// once the previous snapshot is before end (when end is set), when a snapshot repeats, or after
// 2000 steps.
func (c *Client) H2HTimeseries(ctx context.Context, sport, eventID string, start time.Time, end *time.Time, bookmaker, region string) ([]H2HPoint, error) {
	bookmaker = strings.ToLower(strings.TrimSpace(bookmaker))
	seen := map[string]struct{}{}
	var rows []H2HPoint

	cur := ISO(start)
	for steps := 0; cur != "" && steps < maxChainSteps; steps++ {
		snap, _, err := c.HistoricalEventOdds(ctx, sport, eventID, OddsQuery{Date: cur, Regions: region, Markets: "h2h"})
		if err != nil {
			return nil, err
		}
		if _, ok := seen[snap.Timestamp]; ok {
			break
		}
		seen[snap.Timestamp] = struct{}{}

		if ev := snap.Data; ev != nil {
			if bm := findBookmaker(ev.Bookmakers, bookmaker); bm != nil {
				row := H2HPoint{
					SnapshotTimestamp:   snap.Timestamp,
					EventID:             ev.ID,
					SportKey:            ev.SportKey,
					CommenceTime:        ev.CommenceTime,
					HomeTeam:            ev.HomeTeam,
					AwayTeam:            ev.AwayTeam,
					BookmakerKey:        bm.Key,
					BookmakerTitle:      bm.Title,
					BookmakerLastUpdate: bm.LastUpdate,
					Market:              "h2h",
				}
				if m := h2hMarket(bm); m != nil {
					row.MarketLastUpdate = m.LastUpdate
					row.Home, row.Draw, row.Away = splitOutcomes(m.Outcomes, ev.HomeTeam, ev.AwayTeam, "draw", "tie")
				}
				rows = append(rows, row)
			}
		}

		if end != nil && snap.PreviousTimestamp != "" {
			prev, err := ParseTime(snap.PreviousTimestamp)
			if err != nil {
				return nil, err
			}
			if prev.Before(*end) {
				break
			}
		}
		cur = snap.PreviousTimestamp

		if cur != "" && c.chainPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.chainPause):
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SnapshotTimestamp < rows[j].SnapshotTimestamp })

	return rows, nil
}

func findBookmaker(bms []Bookmaker, key string) *Bookmaker {
	key = strings.ToLower(strings.TrimSpace(key))
	for i := range bms {
		if strings.ToLower(strings.TrimSpace(bms[i].Key)) == key {
			return &bms[i]
		}
	}

	return nil
}

func pickBookmaker(bms []Bookmaker, key string) *Bookmaker {
	if bm := findBookmaker(bms, key); bm != nil {
		return bm
	}
	if len(bms) > 0 {
		return &bms[0]
	}

	return nil
}

func h2hMarket(bm *Bookmaker) *Market {
	for i := range bm.Markets {
		if bm.Markets[i].Key == "h2h" {
			return &bm.Markets[i]
		}
	}

	return nil
}

// splitOutcomes maps outcome names to home, draw and away prices by team name, case-insensitively.
func splitOutcomes(outcomes []Outcome, homeTeam, awayTeam string, drawNames ...string) (home, draw, away *float64) {
	ht := strings.ToLower(strings.TrimSpace(homeTeam))
	at := strings.ToLower(strings.TrimSpace(awayTeam))

	for _, o := range outcomes {
		if o.Price == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(o.Name))
		price := *o.Price
		switch {
		case isOneOf(name, drawNames):
			draw = &price
		case name == ht:
			home = &price
		case name == at:
			away = &price
		}
	}

	return home, draw, away
}

func isOneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}

	return false
}
