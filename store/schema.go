package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Table names.
const (
	TableLeagues          = "leagues"
	TableSeasons          = "seasons"
	TableFixtures         = "fixtures"
	TableTeams            = "teams"
	TableLineups          = "lineups"
	TablePreviousMatches  = "previous_matches"
	TablePlayers          = "players"
	TableTeamRatings      = "team_ratings"
	TableFixturesMatching = "fixtures_matching"
	TableOdds1X2          = "odds_1x2"
	TableStageReports     = "stage_reports"
)

// ErrColumnNotFound is returned when none of the candidate columns exist on a table.
var ErrColumnNotFound = errors.New("column not found")

var schema = []struct {
	table string
	ddl   string
}{
	{TableLeagues, `CREATE TABLE IF NOT EXISTS leagues (
	league_id   BIGINT PRIMARY KEY,
	league_name TEXT NOT NULL,
	provider    TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{TableSeasons, `CREATE TABLE IF NOT EXISTS seasons (
	season_id   BIGINT PRIMARY KEY,
	season_name TEXT NOT NULL,
	league_id   BIGINT NOT NULL,
	is_current  BOOLEAN,
	provider    TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{TableFixtures, `CREATE TABLE IF NOT EXISTS fixtures (
	fixture_id   BIGINT PRIMARY KEY,
	date         TIMESTAMPTZ,
	league_id    BIGINT NOT NULL,
	season_id    BIGINT NOT NULL,
	home_team_id BIGINT,
	away_team_id BIGINT,
	home_goals   INTEGER,
	away_goals   INTEGER,
	provider     TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{TableTeams, `CREATE TABLE IF NOT EXISTS teams (
	team_id    BIGINT PRIMARY KEY,
	team_name  TEXT NOT NULL,
	provider   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{TableLineups, `CREATE TABLE IF NOT EXISTS lineups (
	fixture_id         BIGINT NOT NULL,
	player_id          BIGINT NOT NULL,
	team_id            BIGINT,
	type_id            BIGINT,
	minutes_player     INTEGER,
	rating_player      DOUBLE PRECISION,
	formation_position INTEGER,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (fixture_id, player_id)
)`},
	{TablePreviousMatches, `CREATE TABLE IF NOT EXISTS previous_matches (
	fixture_id BIGINT NOT NULL,
	team_id    BIGINT NOT NULL,
	season_id  BIGINT NOT NULL,
	prev_1     BIGINT,
	prev_2     BIGINT,
	prev_3     BIGINT,
	prev_4     BIGINT,
	prev_5     BIGINT,
	PRIMARY KEY (fixture_id, team_id)
)`},
	{TablePlayers, `CREATE TABLE IF NOT EXISTS players (
	player_id   BIGINT PRIMARY KEY,
	player_name TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{TableTeamRatings, `CREATE TABLE IF NOT EXISTS team_ratings (
	fixture_id BIGINT NOT NULL,
	team_id    BIGINT NOT NULL,
	avg_rating DOUBLE PRECISION,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (fixture_id, team_id)
)`},
	{TableFixturesMatching, `CREATE TABLE IF NOT EXISTS fixtures_matching (
	fixture_id       BIGINT PRIMARY KEY,
	league_id        BIGINT NOT NULL,
	oa_event_id      TEXT,
	oa_home_team     TEXT,
	oa_away_team     TEXT,
	oa_commence_time TIMESTAMPTZ,
	matched_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{TableOdds1X2, `CREATE TABLE IF NOT EXISTS odds_1x2 (
	fixture_id          BIGINT NOT NULL,
	timestamp           TIMESTAMPTZ NOT NULL,
	timeline_identifier TEXT NOT NULL,
	provider            TEXT NOT NULL,
	home                DOUBLE PRECISION,
	draw                DOUBLE PRECISION,
	away                DOUBLE PRECISION,
	computed_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (fixture_id, timestamp, timeline_identifier, provider)
)`},
	{TableStageReports, `CREATE TABLE IF NOT EXISTS stage_reports (
	id          UUID PRIMARY KEY,
	run_id      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	version     TEXT NOT NULL,
	input       JSONB,
	output      JSONB,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`},
}

// matchingColumns are added to fixtures_matching tables created before they existed.
var matchingColumns = []struct{ name, typ string }{
	{"oa_home_team", "TEXT"},
	{"oa_away_team", "TEXT"},
	{"oa_commence_time", "TIMESTAMPTZ"},
}

// Tables returns the names of all managed tables in creation order.
func Tables() []string {
	out := make([]string, len(schema))
	for i, t := range schema {
		out[i] = t.table
	}

	return out
}

func knownTable(name string) bool {
	for _, t := range schema {
		if t.table == name {
			return true
		}
	}

	return false
}

// EnsureSchema creates every table that does not exist yet and upgrades older
// fixtures_matching tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.InTx(ctx, func(tx *Store) error {
		for _, t := range schema {
			if _, err := tx.exec(ctx, t.ddl); err != nil {
				return fmt.Errorf("create table %s: %w", t.table, err)
			}
		}

		return tx.ensureMatchingColumns(ctx)
	})
}

func (s *Store) ensureMatchingColumns(ctx context.Context) error {
	existing, err := s.Columns(ctx, TableFixturesMatching)
	if err != nil {
		return err
	}
	for _, c := range matchingColumns {
		if slices.Contains(existing, c.name) {
			continue
		}
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", TableFixturesMatching, c.name, c.typ)
		if _, err := s.exec(ctx, q); err != nil {
			return fmt.Errorf("add column %s: %w", c.name, err)
		}
		s.lggr.Infow("Added missing column", "table", TableFixturesMatching, "column", c.name)
	}

	return nil
}

// TableExists reports whether table exists in the current schema.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}

	return n > 0, nil
}

// Columns lists the column names of table in the current schema.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// NameColumns resolves the id and name columns of an entity table such as teams or leagues.
// Candidates are tried in order: "<entity>_id" then "id", and "<entity>_name", "name",
// "display_name", "common_name", "short_name", "official_name".
func (s *Store) NameColumns(ctx context.Context, table, entity string) (idCol, nameCol string, err error) {
	available, err := s.Columns(ctx, table)
	if err != nil {
		return "", "", err
	}
	idCol, err = firstColumn(available, table, entity+"_id", "id")
	if err != nil {
		return "", "", err
	}
	nameCol, err = firstColumn(available, table,
		entity+"_name", "name", "display_name", "common_name", "short_name", "official_name")
	if err != nil {
		return "", "", err
	}

	return idCol, nameCol, nil
}

func firstColumn(available []string, table string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if slices.Contains(available, c) {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: none of %v in %s (available: %v)", ErrColumnNotFound, candidates, table, available)
}
