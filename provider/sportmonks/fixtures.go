package sportmonks

import (
	"context"
	"encoding/json"
	"fmt"
)

// Fixture fetches one fixture with participants and scores.
func (c *Client) Fixture(ctx context.Context, fixtureID int64) (*Fixture, json.RawMessage, error) {
	raw, err := c.get(ctx, "fixtures_by_id",
		map[string]string{"fixture_id": itoa(fixtureID)},
		map[string]string{"include": "participants;scores"},
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
	if fx == nil {
		return nil, raw, fmt.Errorf("fixture %d: missing data", fixtureID)
	}

	out := &Fixture{
		LeagueID: int64Ptr(fx["league_id"]),
		SeasonID: int64Ptr(fx["season_id"]),
		Date:     asString(fx["starting_at"]),
		Timezone: asString(payload["timezone"]),
	}
	if id, ok := asInt64(fx["id"]); ok {
		out.FixtureID = id
	}

	for _, p := range listOf(fx["participants"]) {
		switch asString(mapOf(p["meta"])["location"]) {
		case "home":
			if out.HomeTeamID == nil {
				out.HomeTeamID = int64Ptr(p["id"])
				out.HomeTeamName = asString(p["name"])
			}
		case "away":
			if out.AwayTeamID == nil {
				out.AwayTeamID = int64Ptr(p["id"])
				out.AwayTeamName = asString(p["name"])
			}
		}
	}

	for _, s := range listOf(fx["scores"]) {
		if asString(s["description"]) != "CURRENT" {
			continue
		}
		sc := mapOf(s["score"])
		switch asString(sc["participant"]) {
		case "home":
			out.HomeGoals = int64Ptr(sc["goals"])
		case "away":
			out.AwayGoals = int64Ptr(sc["goals"])
		}
	}

	return out, raw, nil
}

// Schedule fetches a season schedule and flattens its stages, rounds and fixtures. Fixtures of
// other seasons that appear in the payload are dropped.
func (c *Client) Schedule(ctx context.Context, seasonID int64) ([]ScheduleFixture, json.RawMessage, error) {
	raw, err := c.get(ctx, "schedules_seasons", map[string]string{"season_id": itoa(seasonID)}, nil, 0)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]any
	if err := decode(raw, &payload); err != nil {
		return nil, raw, err
	}

	return parseSchedule(payload, seasonID), raw, nil
}

func parseSchedule(payload map[string]any, seasonID int64) []ScheduleFixture {
	var out []ScheduleFixture
	for _, stage := range listOf(payload["data"]) {
		for _, rnd := range listOf(stage["rounds"]) {
			for _, fx := range listOf(rnd["fixtures"]) {
				if sid, ok := asInt64(fx["season_id"]); !ok || sid != seasonID {
					continue
				}

				row := ScheduleFixture{
					FixtureID: int64Ptr(fx["id"]),
					LeagueID:  int64Ptr(fx["league_id"]),
					SeasonID:  seasonID,
					Date:      asString(fx["starting_at"]),
				}
				row.HomeTeamID, row.HomeTeamName, row.AwayTeamID, row.AwayTeamName = teamsFromParticipants(listOf(fx["participants"]))
				row.HomeGoals, row.AwayGoals = goalsFromScores(listOf(fx["scores"]))
				out = append(out, row)
			}
		}
	}

	return out
}

// teamsFromParticipants returns home and away by meta.location, later entries winning.
func teamsFromParticipants(participants []map[string]any) (homeID *int64, homeName string, awayID *int64, awayName string) {
	for _, p := range participants {
		switch asString(mapOf(p["meta"])["location"]) {
		case "home":
			homeID, homeName = int64Ptr(p["id"]), asString(p["name"])
		case "away":
			awayID, awayName = int64Ptr(p["id"]), asString(p["name"])
		}
	}

	return homeID, homeName, awayID, awayName
}

// goalsFromScores prefers the CURRENT score and falls back to the last score listed per side.
func goalsFromScores(scores []map[string]any) (home, away *int64) {
	for _, s := range scores {
		if asString(s["description"]) != "CURRENT" {
			continue
		}
		sc := mapOf(s["score"])
		switch asString(sc["participant"]) {
		case "home":
			home = int64Ptr(sc["goals"])
		case "away":
			away = int64Ptr(sc["goals"])
		}
		if home != nil && away != nil {
			return home, away
		}
	}

	for _, s := range scores {
		sc := mapOf(s["score"])
		switch asString(sc["participant"]) {
		case "home":
			home = int64Ptr(sc["goals"])
		case "away":
			away = int64Ptr(sc["goals"])
		}
	}

	return home, away
}
