package sportmonks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Lineup detail types requested from the API.
const (
	DetailRating        = 118
	DetailMinutesPlayed = 119
)

// Lineup fetches the lineup of a fixture with rating and minutes-played details.
func (c *Client) Lineup(ctx context.Context, fixtureID int64) (*Lineup, json.RawMessage, error) {
	raw, err := c.get(ctx, "fixtures_by_id",
		map[string]string{"fixture_id": itoa(fixtureID)},
		map[string]string{
			"include": "lineups.details.type;participants",
			"filters": fmt.Sprintf("lineupDetailTypes:%d,%d", DetailRating, DetailMinutesPlayed),
		},
		30*time.Second,
	)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]any
	if err := decode(raw, &payload); err != nil {
		return nil, raw, err
	}
	fx := mapOf(payload["data"])
	if fx == nil {
		return nil, raw, fmt.Errorf("lineup %d: missing data", fixtureID)
	}

	return parseLineup(payload, fx), raw, nil
}

func parseLineup(payload, fx map[string]any) *Lineup {
	out := &Lineup{
		Date:     asString(fx["starting_at"]),
		Timezone: asString(payload["timezone"]),
	}
	if id, ok := asInt64(fx["id"]); ok {
		out.FixtureID = id
	}
	out.HomeTeamID, out.HomeTeamName, out.AwayTeamID, out.AwayTeamName = teamsFromParticipants(listOf(fx["participants"]))

	for _, l := range listOf(fx["lineups"]) {
		entry := LineupEntry{
			PlayerID:          int64Ptr(l["player_id"]),
			TeamID:            int64Ptr(l["team_id"]),
			TypeID:            int64Ptr(l["type_id"]),
			PlayerName:        asString(l["player_name"]),
			FormationPosition: int64Ptr(l["formation_position"]),
			MinutesPlayed:     minutesPlayed(l),
			Rating:            rating(l),
		}
		if id, ok := asInt64(l["id"]); ok {
			entry.ID = id
		}

		switch {
		case entry.TeamID == nil:
		case out.HomeTeamID != nil && *entry.TeamID == *out.HomeTeamID:
			out.HomeLineup = append(out.HomeLineup, entry)
		case out.AwayTeamID != nil && *entry.TeamID == *out.AwayTeamID:
			out.AwayLineup = append(out.AwayLineup, entry)
		}
	}

	return out
}

// detailValue returns data.value of the first detail matching typeID or type.code.
func detailValue(entry map[string]any, typeID int64, code string) any {
	for _, d := range listOf(entry["details"]) {
		if id, ok := asInt64(d["type_id"]); ok && id == typeID {
			return mapOf(d["data"])["value"]
		}
		if asString(mapOf(d["type"])["code"]) == code {
			return mapOf(d["data"])["value"]
		}
	}

	return nil
}

func minutesPlayed(entry map[string]any) int64 {
	v := detailValue(entry, DetailMinutesPlayed, "minutes-played")
	if i, ok := asInt64(v); ok {
		return i
	}

	return 0
}

func rating(entry map[string]any) *float64 {
	v := detailValue(entry, DetailRating, "rating")
	if f, ok := asFloat(v); ok {
		return &f
	}

	return nil
}
