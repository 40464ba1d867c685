package sportmonks

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	seasonsPerPage = 50
	maxSeasonPages = 200
)

// Leagues lists every league available to the subscription.
func (c *Client) Leagues(ctx context.Context) ([]League, json.RawMessage, error) {
	raw, err := c.get(ctx, "leagues", nil, nil, 0)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]any
	if err := decode(raw, &payload); err != nil {
		return nil, raw, err
	}

	var out []League
	for _, l := range listOf(payload["data"]) {
		id, ok := asInt64(l["id"])
		if !ok {
			continue
		}
		out = append(out, League{ID: id, Name: asString(l["name"])})
	}

	return out, raw, nil
}

// Seasons lists the seasons of a league, following pagination.
func (c *Client) Seasons(ctx context.Context, leagueID int64) ([]Season, error) {
	var out []Season
	for page := 1; page <= maxSeasonPages; page++ {
		raw, err := c.get(ctx, "seasons", nil, map[string]string{
			"filters":  "seasonLeagues:" + itoa(leagueID),
			"per_page": strconv.Itoa(seasonsPerPage),
			"page":     strconv.Itoa(page),
		}, 0)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Data       json.RawMessage `json:"data"`
			Pagination map[string]any  `json:"pagination"`
			Meta       struct {
				Pagination map[string]any `json:"pagination"`
			} `json:"meta"`
		}
		if err := decode(raw, &payload); err != nil {
			return nil, err
		}

		items, err := objects(payload.Data)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			s := Season{Name: asString(it["name"])}
			s.ID, _ = asInt64(it["id"])
			s.LeagueID, _ = asInt64(it["league_id"])
			if b, ok := it["is_current"].(bool); ok {
				s.IsCurrent = &b
			}
			out = append(out, s)
		}

		pagination := payload.Pagination
		if pagination == nil {
			pagination = payload.Meta.Pagination
		}
		if !hasMorePages(pagination) && len(items) < seasonsPerPage {
			break
		}
	}

	return out, nil
}

func hasMorePages(p map[string]any) bool {
	cur, ok1 := asInt64(p["current_page"])
	last, ok2 := asInt64(p["last_page"])

	return ok1 && ok2 && cur < last
}

// Team fetches a team name.
func (c *Client) Team(ctx context.Context, teamID int64) (*Team, json.RawMessage, error) {
	raw, err := c.get(ctx, "teams_by_id", map[string]string{"team_id": itoa(teamID)}, nil, 30*time.Second)
	if err != nil {
		return nil, nil, err
	}

	item, err := firstObject(raw)
	if err != nil {
		return nil, raw, err
	}

	return &Team{ID: int64Ptr(item["id"]), Name: strings.TrimSpace(asString(item["name"]))}, raw, nil
}

// Player fetches a player name.
func (c *Client) Player(ctx context.Context, playerID int64) (*Player, json.RawMessage, error) {
	raw, err := c.get(ctx, "players_by_id", map[string]string{"player_id": itoa(playerID)}, nil, 30*time.Second)
	if err != nil {
		return nil, nil, err
	}

	item, err := firstObject(raw)
	if err != nil {
		return nil, raw, err
	}
	name := asString(item["name"])
	if name == "" {
		name = asString(item["display_name"])
	}

	return &Player{ID: int64Ptr(item["id"]), Name: name}, raw, nil
}

// firstObject returns data as an object, taking the first element when data is a list.
func firstObject(raw json.RawMessage) (map[string]any, error) {
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	items, err := objects(payload.Data)
	if err != nil || len(items) == 0 {
		return map[string]any{}, err
	}

	return items[0], nil
}
