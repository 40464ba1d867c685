package oddsapi

import "time"

// Sport is an entry of the sports endpoint.
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// Outcome is one priced outcome of a market.
type Outcome struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

// Market is a bookmaker market such as h2h.
type Market struct {
	Key        string    `json:"key"`
	LastUpdate string    `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Bookmaker carries the markets quoted by one bookmaker.
type Bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last_update"`
	Markets    []Market `json:"markets"`
}

// Event is a scheduled match, with bookmakers when odds were requested.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers,omitempty"`
}

// Commence parses CommenceTime.
func (e Event) Commence() (time.Time, error) {
	return ParseTime(e.CommenceTime)
}

// EventsSnapshot is a historical events response.
type EventsSnapshot struct {
	Timestamp         string  `json:"timestamp"`
	PreviousTimestamp string  `json:"previous_timestamp"`
	NextTimestamp     string  `json:"next_timestamp"`
	Data              []Event `json:"data"`
}

// EventOddsSnapshot is a historical event odds response.
type EventOddsSnapshot struct {
	Timestamp         string `json:"timestamp"`
	PreviousTimestamp string `json:"previous_timestamp"`
	NextTimestamp     string `json:"next_timestamp"`
	Data              *Event `json:"data"`
}

// CollectedEvent is an event found while scanning snapshots.
type CollectedEvent struct {
	EventID         string `json:"event_id"`
	SportKey        string `json:"sport_key"`
	SportTitle      string `json:"sport_title"`
	CommenceTime    string `json:"commence_time"`
	HomeTeam        string `json:"home_team"`
	AwayTeam        string `json:"away_team"`
	FoundInSnapshot string `json:"found_in_snapshot"`
}

// H2H is a 1X2 quote taken from one snapshot.
type H2H struct {
	SnapshotTime         time.Time `json:"snapshot_dt"`
	Bookmaker            string    `json:"bookmaker_used"`
	Home                 *float64  `json:"home"`
	Draw                 *float64  `json:"draw"`
	Away                 *float64  `json:"away"`
	RawSnapshotTimestamp string    `json:"raw_snapshot_timestamp"`
}

// H2HPoint is one row of a 1X2 time series.
type H2HPoint struct {
	SnapshotTimestamp   string   `json:"snapshot_timestamp"`
	EventID             string   `json:"event_id"`
	SportKey            string   `json:"sport_key"`
	CommenceTime        string   `json:"commence_time"`
	HomeTeam            string   `json:"home_team"`
	AwayTeam            string   `json:"away_team"`
	BookmakerKey        string   `json:"bookmaker_key"`
	BookmakerTitle      string   `json:"bookmaker_title"`
	BookmakerLastUpdate string   `json:"bookmaker_last_update"`
	Market              string   `json:"market"`
	MarketLastUpdate    string   `json:"market_last_update"`
	Home                *float64 `json:"home_odds"`
	Draw                *float64 `json:"draw_odds"`
	Away                *float64 `json:"away_odds"`
}
