package sportmonks

import "time"

// League is an entry of the leagues endpoint.
type League struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Season is an entry of the seasons endpoint.
type Season struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LeagueID  int64  `json:"league_id"`
	IsCurrent *bool  `json:"is_current"`
}

// Fixture is a single fixture with teams and current goals.
type Fixture struct {
	FixtureID    int64  `json:"fixture_id"`
	LeagueID     *int64 `json:"league_id"`
	SeasonID     *int64 `json:"season_id"`
	HomeTeamID   *int64 `json:"home_team_id"`
	AwayTeamID   *int64 `json:"away_team_id"`
	Date         string `json:"date"`
	Timezone     string `json:"timezone"`
	HomeTeamName string `json:"home_team_name"`
	AwayTeamName string `json:"away_team_name"`
	HomeGoals    *int64 `json:"home_goals"`
	AwayGoals    *int64 `json:"away_goals"`
}

// ScheduleFixture is a fixture read from a season schedule.
type ScheduleFixture struct {
	FixtureID    *int64 `json:"fixture_id"`
	LeagueID     *int64 `json:"league_id"`
	SeasonID     int64  `json:"season_id"`
	Date         string `json:"date"`
	HomeTeamID   *int64 `json:"home_team_id"`
	AwayTeamID   *int64 `json:"away_team_id"`
	HomeTeamName string `json:"home_team_name"`
	AwayTeamName string `json:"away_team_name"`
	HomeGoals    *int64 `json:"home_goals"`
	AwayGoals    *int64 `json:"away_goals"`
}

// LineupEntry is one player of a fixture lineup with the extracted detail values.
type LineupEntry struct {
	ID                int64    `json:"id"`
	PlayerID          *int64   `json:"player_id"`
	TeamID            *int64   `json:"team_id"`
	TypeID            *int64   `json:"type_id"`
	PlayerName        string   `json:"player_name"`
	FormationPosition *int64   `json:"formation_position"`
	MinutesPlayed     int64    `json:"minutes_player"`
	Rating            *float64 `json:"rating_player"`
}

// Lineup splits a fixture lineup by side.
type Lineup struct {
	FixtureID    int64         `json:"fixture_id"`
	Date         string        `json:"date"`
	Timezone     string        `json:"timezone"`
	HomeTeamID   *int64        `json:"home_team_id"`
	HomeTeamName string        `json:"home_team_name"`
	AwayTeamID   *int64        `json:"away_team_id"`
	AwayTeamName string        `json:"away_team_name"`
	HomeLineup   []LineupEntry `json:"home_lineup"`
	AwayLineup   []LineupEntry `json:"away_lineup"`
}

// Team is a team name lookup result.
type Team struct {
	ID   *int64 `json:"team_id"`
	Name string `json:"team_name"`
}

// Player is a player name lookup result.
type Player struct {
	ID   *int64 `json:"player_id"`
	Name string `json:"name"`
}

// Odds holds the odds of a fixture restricted to one market.
type Odds struct {
	FixtureID  int64            `json:"fixture_id"`
	LeagueID   *int64           `json:"league_id"`
	SeasonID   *int64           `json:"season_id"`
	StartingAt string           `json:"starting_at"`
	MarketName string           `json:"market_name"`
	Count      int              `json:"count"`
	Odds       []map[string]any `json:"odds"`
}

// HistoryPoint is one bookmaker update of a premium odd.
type HistoryPoint struct {
	FixtureID       int64  `json:"fixture_id"`
	OddID           int64  `json:"odd_id"`
	BookmakerID     int64  `json:"bookmaker_id"`
	MarketName      string `json:"market_name"`
	Label           string `json:"label"`
	BookmakerUpdate string `json:"bookmaker_update"`
	Value           any    `json:"value"`
	Probability     any    `json:"probability"`
	DP3             any    `json:"dp3"`
	Fractional      any    `json:"fractional"`
	American        any    `json:"american"`
}

// HistoryBundle is the raw context of a premium odd history lookup.
type HistoryBundle struct {
	Snapshot    map[string]any `json:"premium_odds_snapshot"`
	Resolved    map[string]any `json:"resolved_premium_odd"`
	HistoryMode string         `json:"history_mode"`
	FromUTC     string         `json:"from_utc"`
	ToUTC       string         `json:"to_utc"`
}

// PreMatch1X2 is the latest pre-match 1X2 quote of one bookmaker.
type PreMatch1X2 struct {
	Timestamp *time.Time `json:"timestamp"`
	Home      *float64   `json:"home"`
	Draw      *float64   `json:"draw"`
	Away      *float64   `json:"away"`
}
