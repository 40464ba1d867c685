package pipeline

import (
	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/mapping"
	fpipeline "github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/stages"
)

var (
	mappingLong = text.LongDesc(`
		Appends stored ids that are missing from the mapping CSV. Existing rows, including
		hand-filled OddsAPI names, are never overwritten. Extend mode also reorders the file so
		unmapped rows come first.
	`)

	fixturesMatchingShort = "Match fixtures to OddsAPI events"

	fixturesMatchingLong = text.LongDesc(`
		For every fixture without an OddsAPI event, queries the historical events of the
		league's sport around kickoff and stores the event whose normalised team names match
		the mapped names of both teams.

		Both mapping files must map at least one id.
	`)

	fixturesMatchingExample = text.Examples(`
		# Match 500 fixtures looking at the snapshot one hour after kickoff
		sportdb pipeline fixtures-matching --limit 500

		# Use the current snapshot for upcoming fixtures
		sportdb pipeline fixtures-matching --snapshot now
	`)

	rematchShort = "Retry unmatched fixtures with relaxed name matching"

	rematchLong = text.LongDesc(`
		Retries fixtures still lacking an OddsAPI event. One matching team name is enough and
		the commence window is measured in days. Use --dry-run to inspect matches first.
	`)
)

type mappingFlags struct {
	modeFlags
	path string
}

func newMappingCmd(cfg Config, use, short string, stage *fpipeline.Stage[stages.MappingInput, mapping.SyncResult, *stages.Deps], defaultPath func(*config.Config) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  mappingLong,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := mappingFlags{
				modeFlags: readMode(cmd),
				path:      flags.MustString(cmd.Flags().GetString("path")),
			}
			mode, err := stages.ParseMode(f.mode)
			if err != nil {
				return err
			}

			return execute(cmd, cfg, storeOnly, stage, func(c *config.Config) stages.MappingInput {
				return stages.MappingInput{Path: orDefault(f.path, defaultPath(c)), Mode: mode}
			})
		},
	}

	flags.Mode(cmd)
	cmd.Flags().String("path", "", "Mapping CSV path (default: from config paths)")

	return cmd
}

func newTeamMappingCmd(cfg Config) *cobra.Command {
	return newMappingCmd(cfg, "team-mapping", "Append new teams to the team name mapping CSV", stages.TeamMapping,
		func(c *config.Config) string { return c.Paths.TeamMapping })
}

func newLeagueMappingCmd(cfg Config) *cobra.Command {
	return newMappingCmd(cfg, "league-mapping", "Append new leagues to the league mapping CSV", stages.LeagueMapping,
		func(c *config.Config) string { return c.Paths.LeagueMapping })
}

// mappingFiles adds the flags overriding both mapping CSV paths.
func mappingFiles(cmd *cobra.Command) {
	cmd.Flags().String("league-mapping", "", "League mapping CSV (default: paths.league_mapping)")
	cmd.Flags().String("team-mapping", "", "Team mapping CSV (default: paths.team_mapping)")
}

type fixturesMatchingFlags struct {
	leagueCSV   string
	teamCSV     string
	limit       int
	windowHours int
	snapshot    string
}

func newFixturesMatchingCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fixtures-matching",
		Short:   fixturesMatchingShort,
		Long:    fixturesMatchingLong,
		Example: fixturesMatchingExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := fixturesMatchingFlags{
				leagueCSV:   flags.MustString(cmd.Flags().GetString("league-mapping")),
				teamCSV:     flags.MustString(cmd.Flags().GetString("team-mapping")),
				limit:       flags.MustInt(cmd.Flags().GetInt("limit")),
				windowHours: flags.MustInt(cmd.Flags().GetInt("window-hours")),
				snapshot:    flags.MustString(cmd.Flags().GetString("snapshot")),
			}

			return runFixturesMatching(cmd, cfg, f)
		},
	}

	mappingFiles(cmd)
	flags.Limit(cmd, 0)
	cmd.Flags().Int("window-hours", 12, "Accept events commencing within this many hours of kickoff")
	cmd.Flags().String("snapshot", stages.SnapshotKickoffPlus1h, "Historical snapshot to query: kickoff_plus_1h or now")

	return cmd
}

func runFixturesMatching(cmd *cobra.Command, cfg Config, f fixturesMatchingFlags) error {
	return execute(cmd, cfg, withClients, stages.FixturesMatching, func(c *config.Config) stages.MatchingInput {
		return stages.MatchingInput{
			LeagueCSV:    orDefault(f.leagueCSV, c.Paths.LeagueMapping),
			TeamCSV:      orDefault(f.teamCSV, c.Paths.TeamMapping),
			Limit:        f.limit,
			WindowHours:  f.windowHours,
			SnapshotMode: f.snapshot,
		}
	})
}

type rematchFlags struct {
	leagueCSV  string
	teamCSV    string
	limit      int
	leagueID   int64
	seasonID   int64
	dryRun     bool
	windowDays int
}

func newRematchCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rematch",
		Short: rematchShort,
		Long:  rematchLong,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := rematchFlags{
				leagueCSV:  flags.MustString(cmd.Flags().GetString("league-mapping")),
				teamCSV:    flags.MustString(cmd.Flags().GetString("team-mapping")),
				limit:      flags.MustInt(cmd.Flags().GetInt("limit")),
				leagueID:   flags.MustInt64(cmd.Flags().GetInt64("league-id")),
				seasonID:   flags.MustInt64(cmd.Flags().GetInt64("season-id")),
				dryRun:     flags.MustBool(cmd.Flags().GetBool("dry-run")),
				windowDays: flags.MustInt(cmd.Flags().GetInt("window-days")),
			}

			return runRematch(cmd, cfg, f)
		},
	}

	mappingFiles(cmd)
	flags.Limit(cmd, 200)
	flags.LeagueID(cmd)
	flags.SeasonID(cmd)
	flags.DryRun(cmd)
	cmd.Flags().Int("window-days", 1, "Accept events commencing within this many days of kickoff")

	return cmd
}

func runRematch(cmd *cobra.Command, cfg Config, f rematchFlags) error {
	return execute(cmd, cfg, withClients, stages.Rematch, func(c *config.Config) stages.RematchInput {
		return stages.RematchInput{
			LeagueCSV:  orDefault(f.leagueCSV, c.Paths.LeagueMapping),
			TeamCSV:    orDefault(f.teamCSV, c.Paths.TeamMapping),
			Limit:      f.limit,
			LeagueID:   f.leagueID,
			SeasonID:   f.seasonID,
			DryRun:     f.dryRun,
			WindowDays: f.windowDays,
		}
	})
}
