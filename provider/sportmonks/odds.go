package sportmonks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/inattention/sportdata/provider/transport"
)

const (
	historyWindow      = 5 * time.Minute
	historyLayout      = "2006-01-02 15:04"
	historyMode        = "updated_between_loop"
	historyWindowTries = 2
)

// Odds fetches the odds of a fixture and keeps those belonging to market.
func (c *Client) Odds(ctx context.Context, fixtureID int64, market string) (*Odds, json.RawMessage, error) {
	rule, err := c.registry.Market(Name, market)
	if err != nil {
		return nil, nil, err
	}

	raw, err := c.get(ctx, "fixtures_by_id",
		map[string]string{"fixture_id": itoa(fixtureID)},
		map[string]string{"include": "odds"},
		0,
	)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]any
	if err := decode(raw, &payload); err != nil {
		return nil, raw, err
	}
	fx := mapOf(payload["data"])

	out := &Odds{
		FixtureID:  fixtureID,
		LeagueID:   int64Ptr(fx["league_id"]),
		SeasonID:   int64Ptr(fx["season_id"]),
		StartingAt: asString(fx["starting_at"]),
		MarketName: strings.ToLower(strings.TrimSpace(market)),
	}
	if id, ok := asInt64(fx["id"]); ok {
		out.FixtureID = id
	}
	out.Odds = rule.Filter(oddsList(fx["odds"]))
	out.Count = len(out.Odds)

	return out, raw, nil
}

// oddsList accepts a list of odds, or an object wrapping them under data.
func oddsList(v any) []map[string]any {
	switch x := v.(type) {
	case []any:
		return listOf(x)
	case map[string]any:
		switch d := x["data"].(type) {
		case []any:
			return listOf(d)
		case map[string]any:
			return []map[string]any{d}
		}
	}

	return nil
}

// HistoryRange bounds a premium odd history lookup. Both ends must be set, or neither to use the
// last 24 hours. Accepted formats are "2006-01-02 15:04" and "2006-01-02 15:04:05" in UTC.
type HistoryRange struct {
	From string
	To   string
}

func (r HistoryRange) resolve(now time.Time) (time.Time, time.Time, error) {
	if (r.From == "") != (r.To == "") {
		return time.Time{}, time.Time{}, errors.New("provide both from and to, or neither")
	}
	if r.From == "" {
		now = now.UTC()
		return now.Add(-24 * time.Hour), now, nil
	}

	from, err := ParseHistoryTime(r.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseHistoryTime(r.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return from, to, nil
}

// ParseHistoryTime parses "YYYY-MM-DD HH:MM[:SS]" as UTC.
func ParseHistoryTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateTime, historyLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid datetime %q: expected 'YYYY-MM-DD HH:MM' or 'YYYY-MM-DD HH:MM:SS'", s)
}

// PremiumOddHistory resolves the premium odd of fixture, market, bookmaker and outcome label and
// collects its bookmaker updates by walking five minute windows of the updated-between endpoint.
func (c *Client) PremiumOddHistory(
	ctx context.Context,
	fixtureID int64,
	market string,
	bookmakerID int64,
	label string,
	rng HistoryRange,
) ([]HistoryPoint, *HistoryBundle, error) {
	rule, err := c.registry.Market(Name, market)
	if err != nil {
		return nil, nil, err
	}

	raw, err := c.get(ctx, "premium_odds_by_fixture", map[string]string{"fixture_id": itoa(fixtureID)}, nil, 0)
	if err != nil {
		return nil, nil, err
	}
	var snapshot map[string]any
	if err := decode(raw, &snapshot); err != nil {
		return nil, nil, err
	}

	var target map[string]any
	wantLabel := strings.ToLower(strings.TrimSpace(label))
	for _, o := range rule.Filter(oddsList(map[string]any{"data": snapshot["data"]})) {
		bid, ok := asInt64(o["bookmaker_id"])
		if ok && bid == bookmakerID && strings.ToLower(strings.TrimSpace(asString(o["label"]))) == wantLabel {
			target = o
			break
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("no premium odd found for fixture_id=%d market=%q bookmaker_id=%d label=%q",
			fixtureID, market, bookmakerID, label)
	}
	oddID, ok := asInt64(target["id"])
	if !ok {
		return nil, nil, errors.New("resolved premium odd has no id")
	}
	c.lggr.Infow("Resolved premium odd",
		"oddID", oddID,
		"value", target["value"],
		"latestBookmakerUpdate", target["latest_bookmaker_update"],
	)

	from, to, err := rng.resolve(c.now())
	if err != nil {
		return nil, nil, err
	}

	type seenKey struct{ id, update, value string }
	seen := make(map[seenKey]struct{})
	var series []HistoryPoint

	for cur := from; cur.Before(to); {
		next := cur.Add(historyWindow)
		if next.After(to) {
			next = to
		}

		items, err := c.historyWindow(ctx, cur, next)
		if err != nil {
			return nil, nil, err
		}

		for _, h := range items {
			if id, ok := asInt64(h["odd_id"]); !ok || id != oddID {
				continue
			}
			key := seenKey{asString(h["id"]), asString(h["bookmaker_update"]), asString(h["value"])}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			series = append(series, HistoryPoint{
				FixtureID:       fixtureID,
				OddID:           oddID,
				BookmakerID:     bookmakerID,
				MarketName:      market,
				Label:           label,
				BookmakerUpdate: asString(h["bookmaker_update"]),
				Value:           h["value"],
				Probability:     h["probability"],
				DP3:             h["dp3"],
				Fractional:      h["fractional"],
				American:        h["american"],
			})
		}

		cur = next
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].BookmakerUpdate < series[j].BookmakerUpdate
	})

	bundle := &HistoryBundle{
		Snapshot:    snapshot,
		Resolved:    target,
		HistoryMode: historyMode,
		FromUTC:     from.Format(historyLayout),
		ToUTC:       to.Format(historyLayout),
	}

	return series, bundle, nil
}

// historyWindow fetches one updated-between window. The API answers 500 for windows without
// updates, so that status and repeated failures yield no items instead of an error.
func (c *Client) historyWindow(ctx context.Context, from, to time.Time) ([]map[string]any, error) {
	u, err := c.url("premium_odds_history_updated_between", map[string]string{
		"from_utc": escapeSegment(from.Format(historyLayout)),
		"to_utc":   escapeSegment(to.Format(historyLayout)),
	})
	if err != nil {
		return nil, err
	}

	for try := 1; try <= historyWindowTries; try++ {
		code, body, err := c.http.GetOnce(ctx, transport.Request{URL: u, Params: c.params(nil)})
		if err != nil {
			return nil, err
		}
		switch {
		case code == http.StatusInternalServerError:
			return nil, nil
		case code == http.StatusOK:
			var payload struct {
				Data json.RawMessage `json:"data"`
			}
			if err := decode(body, &payload); err != nil {
				return nil, err
			}

			return objects(payload.Data)
		}

		if try < historyWindowTries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.windowPause):
			}
		}
	}

	return nil, nil
}

// escapeSegment escapes every reserved character, spaces included, for use in a path segment.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var prematchSides = map[string]string{
	"1":    "home",
	"x":    "draw",
	"2":    "away",
	"home": "home",
	"draw": "draw",
	"away": "away",
}

// PreMatch1X2 fetches pre-match odds of marketID from bookmakerID and keeps the latest quote per
// outcome. The snapshot timestamp is the latest update across outcomes.
func (c *Client) PreMatch1X2(ctx context.Context, fixtureID, marketID, bookmakerID int64) (*PreMatch1X2, json.RawMessage, error) {
	raw, err := c.get(ctx, "odds_prematch_by_fixture",
		map[string]string{"fixture_id": itoa(fixtureID)},
		map[string]string{"filters": fmt.Sprintf("markets:%d;bookmakers:%d", marketID, bookmakerID)},
		45*time.Second,
	)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]any
	if err := decode(raw, &payload); err != nil {
		return nil, raw, err
	}

	out, err := parsePreMatch(listOf(payload["data"]))
	if err != nil {
		return nil, raw, err
	}

	return out, raw, nil
}

func parsePreMatch(items []map[string]any) (*PreMatch1X2, error) {
	type quote struct {
		odds *float64
		ts   string
	}
	latest := map[string]quote{}

	for _, o := range items {
		lbl := o["label"]
		if asString(lbl) == "" {
			lbl = o["name"]
		}
		side, ok := prematchSides[strings.ToLower(strings.TrimSpace(asString(lbl)))]
		if !ok || o["value"] == nil {
			continue
		}

		ts := asString(o["latest_bookmaker_update"])
		if ts == "" {
			ts = asString(o["created_at"])
		}

		var odds *float64
		if f, ok := asFloat(o["value"]); ok {
			odds = &f
		}

		if prev, ok := latest[side]; !ok || ts > prev.ts {
			latest[side] = quote{odds: odds, ts: ts}
		}
	}

	out := &PreMatch1X2{
		Home: latest["home"].odds,
		Draw: latest["draw"].odds,
		Away: latest["away"].odds,
	}

	maxTS := ""
	for _, q := range latest {
		if q.ts > maxTS {
			maxTS = q.ts
		}
	}
	if maxTS != "" {
		t, err := ParseTimestamp(maxTS)
		if err != nil {
			return nil, err
		}
		out.Timestamp = &t
	}

	return out, nil
}

// ParseTimestamp parses SportMonks timestamps: RFC 3339, or "YYYY-MM-DD HH:MM:SS" assumed UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty datetime value")
	}
	if strings.Contains(s, "T") {
		s = strings.Replace(s, "Z", "+00:00", 1)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}

		return time.Time{}, fmt.Errorf("invalid datetime %q", s)
	}

	t, err := time.ParseInLocation(time.DateTime, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", s, err)
	}

	return t, nil
}
