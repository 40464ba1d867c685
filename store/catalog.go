package store

import (
	"context"
	"database/sql"
	"fmt"
)

// League is a row of the leagues table.
type League struct {
	ID       int64
	Name     string
	Provider string
}

// Season is a row of the seasons table.
type Season struct {
	ID        int64
	Name      string
	LeagueID  int64
	IsCurrent *bool
	Provider  string
}

// Team is a row of the teams table.
type Team struct {
	ID       int64
	Name     string
	Provider string
}

// Player is a row of the players table.
type Player struct {
	ID   int64
	Name string
}

var (
	leaguesUpsert = upsert{
		table:    TableLeagues,
		columns:  []string{"league_id", "league_name", "provider"},
		conflict: []string{"league_id"},
		compare:  []string{"league_name", "provider"},
		touch:    "updated_at",
	}
	seasonsUpsert = upsert{
		table:    TableSeasons,
		columns:  []string{"season_id", "season_name", "league_id", "is_current", "provider"},
		conflict: []string{"season_id"},
		compare:  []string{"season_name", "league_id", "is_current", "provider"},
		touch:    "updated_at",
	}
	teamsUpsert = upsert{
		table:    TableTeams,
		columns:  []string{"team_id", "team_name", "provider"},
		conflict: []string{"team_id"},
		compare:  []string{"team_name", "provider"},
		touch:    "updated_at",
	}
	playersUpsert = upsert{
		table:    TablePlayers,
		columns:  []string{"player_id", "player_name"},
		conflict: []string{"player_id"},
		compare:  []string{"player_name"},
		touch:    "updated_at",
	}
)

func leagueArgs(rows []League) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.ID, r.Name, r.Provider}
	}

	return out
}

// UpsertLeagues inserts new leagues and updates changed ones.
func (s *Store) UpsertLeagues(ctx context.Context, rows []League) (int64, error) {
	return s.write(ctx, leaguesUpsert, leagueArgs(rows))
}

// InsertLeagues inserts leagues that are not stored yet and leaves existing rows untouched.
func (s *Store) InsertLeagues(ctx context.Context, rows []League) (int64, error) {
	u := leaguesUpsert
	u.nothing = true

	return s.write(ctx, u, leagueArgs(rows))
}

// DeleteLeaguesNotIn removes the provider's leagues whose id is not in keep.
func (s *Store) DeleteLeaguesNotIn(ctx context.Context, provider string, keep []int64) (int64, error) {
	return s.deleteMissing(ctx, TableLeagues, "league_id", provider, keep)
}

// LeagueIDs lists stored league ids, optionally restricted to a provider.
func (s *Store) LeagueIDs(ctx context.Context, provider string) ([]int64, error) {
	ids, err := s.int64s(ctx,
		"SELECT league_id FROM leagues WHERE ($1 = '' OR provider = $1) ORDER BY league_id", provider)
	if err != nil {
		return nil, fmt.Errorf("list league ids: %w", err)
	}

	return ids, nil
}

// Leagues lists stored leagues ordered by id.
func (s *Store) Leagues(ctx context.Context) ([]League, error) {
	rows, err := s.query(ctx, "SELECT league_id, league_name, provider FROM leagues ORDER BY league_id")
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	defer rows.Close()
	var out []League
	for rows.Next() {
		var l League
		if err := rows.Scan(&l.ID, &l.Name, &l.Provider); err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func seasonArgs(rows []Season) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.ID, r.Name, r.LeagueID, r.IsCurrent, r.Provider}
	}

	return out
}

// UpsertSeasons inserts new seasons and updates changed ones.
func (s *Store) UpsertSeasons(ctx context.Context, rows []Season) (int64, error) {
	return s.write(ctx, seasonsUpsert, seasonArgs(rows))
}

// InsertSeasons inserts seasons that are not stored yet.
func (s *Store) InsertSeasons(ctx context.Context, rows []Season) (int64, error) {
	u := seasonsUpsert
	u.nothing = true

	return s.write(ctx, u, seasonArgs(rows))
}

// DeleteSeasonsNotIn removes the provider's seasons whose id is not in keep.
func (s *Store) DeleteSeasonsNotIn(ctx context.Context, provider string, keep []int64) (int64, error) {
	return s.deleteMissing(ctx, TableSeasons, "season_id", provider, keep)
}

// SeasonIDs lists every stored season id.
func (s *Store) SeasonIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.int64s(ctx, "SELECT season_id FROM seasons ORDER BY season_id")
	if err != nil {
		return nil, fmt.Errorf("list season ids: %w", err)
	}

	return ids, nil
}

// Seasons lists the provider's seasons ordered by league and season id.
func (s *Store) Seasons(ctx context.Context, provider string) ([]Season, error) {
	rows, err := s.query(ctx, `SELECT season_id, season_name, league_id, is_current, provider
		FROM seasons WHERE provider = $1 ORDER BY league_id, season_id`, provider)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()
	var out []Season
	for rows.Next() {
		var (
			ss      Season
			current sql.NullBool
		)
		if err := rows.Scan(&ss.ID, &ss.Name, &ss.LeagueID, &current, &ss.Provider); err != nil {
			return nil, err
		}
		if current.Valid {
			v := current.Bool
			ss.IsCurrent = &v
		}
		out = append(out, ss)
	}

	return out, rows.Err()
}

// SeasonsWithoutFixtures lists the provider's seasons that have no fixture rows yet.
func (s *Store) SeasonsWithoutFixtures(ctx context.Context, provider string) ([]Season, error) {
	all, err := s.Seasons(ctx, provider)
	if err != nil {
		return nil, err
	}
	have, err := s.int64s(ctx, "SELECT DISTINCT season_id FROM fixtures")
	if err != nil {
		return nil, fmt.Errorf("list fixture seasons: %w", err)
	}
	done := make(map[int64]bool, len(have))
	for _, id := range have {
		done[id] = true
	}
	var out []Season
	for _, ss := range all {
		if !done[ss.ID] {
			out = append(out, ss)
		}
	}

	return out, nil
}

func teamArgs(rows []Team) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.ID, r.Name, r.Provider}
	}

	return out
}

// UpsertTeams inserts new teams and updates changed ones.
func (s *Store) UpsertTeams(ctx context.Context, rows []Team) (int64, error) {
	return s.write(ctx, teamsUpsert, teamArgs(rows))
}

// InsertTeams inserts teams that are not stored yet.
func (s *Store) InsertTeams(ctx context.Context, rows []Team) (int64, error) {
	u := teamsUpsert
	u.nothing = true

	return s.write(ctx, u, teamArgs(rows))
}

// DeleteTeamsNotIn removes the provider's teams whose id is not in keep.
func (s *Store) DeleteTeamsNotIn(ctx context.Context, provider string, keep []int64) (int64, error) {
	return s.deleteMissing(ctx, TableTeams, "team_id", provider, keep)
}

// TeamNames maps stored team ids to names, resolving the id and name columns from the table.
func (s *Store) TeamNames(ctx context.Context) (map[int64]string, error) {
	return s.names(ctx, TableTeams, "team")
}

// LeagueNames maps stored league ids to names.
func (s *Store) LeagueNames(ctx context.Context) (map[int64]string, error) {
	return s.names(ctx, TableLeagues, "league")
}

func (s *Store) names(ctx context.Context, table, entity string) (map[int64]string, error) {
	idCol, nameCol, err := s.NameColumns(ctx, table, entity)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s IS NOT NULL ORDER BY %s", idCol, nameCol, table, idCol, idCol))
	if err != nil {
		return nil, fmt.Errorf("list %s names: %w", entity, err)
	}
	defer rows.Close()
	out := map[int64]string{}
	for rows.Next() {
		var (
			id   int64
			name sql.NullString
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name.String
	}

	return out, rows.Err()
}

// UpsertPlayers inserts new players and updates renamed ones.
func (s *Store) UpsertPlayers(ctx context.Context, rows []Player) (int64, error) {
	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = []any{r.ID, r.Name}
	}

	return s.write(ctx, playersUpsert, args)
}

// MissingPlayerIDs lists player ids present in lineups but absent from players.
func (s *Store) MissingPlayerIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.int64s(ctx, `SELECT DISTINCT l.player_id FROM lineups l
		WHERE l.player_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM players p WHERE p.player_id = l.player_id)
		ORDER BY l.player_id`)
	if err != nil {
		return nil, fmt.Errorf("list missing players: %w", err)
	}

	return ids, nil
}
