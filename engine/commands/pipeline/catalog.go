package pipeline

import (
	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	fpipeline "github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/stages"
)

var (
	leaguesShort = "Load the leagues listed in the leagues file"

	leaguesLong = text.LongDesc(`
		Reads league ids from a YAML file (leagues: [8, 82, ...]), fetches the provider's
		league list and writes the selected leagues to the leagues table.

		Ids missing at the provider are logged. Sync mode deletes leagues of the provider that
		are no longer listed; extend mode only inserts ids not yet stored.
	`)

	leaguesExample = text.Examples(`
		# Populate the leagues table from the default leagues file
		sportdb pipeline leagues

		# Only add new ids
		sportdb pipeline leagues --mode extend --leagues-file database/input/leagues.yaml
	`)

	seasonsShort = "Load the seasons listed in the seasons file"

	seasonsLong = text.LongDesc(`
		Reads season names (e.g. "2023/2024" or 2024) from a YAML file and stores the matching
		seasons of every stored league. A name matches exactly or by its start year.
	`)

	fixturesShort = "Load the fixtures of every stored season"

	teamsShort = "Load the teams playing in stored fixtures"

	lineupsShort = "Load lineups, minutes and ratings per fixture"

	lineupsLong = text.LongDesc(`
		Fetches the lineup of every stored fixture that has none yet. Rate limited requests
		are retried with exponential backoff; other failures are logged and skipped so a rerun
		picks them up.
	`)

	playersShort = "Load names of players appearing in lineups"
)

type modeFlags struct {
	mode string
}

func readMode(cmd *cobra.Command) modeFlags {
	return modeFlags{mode: flags.MustString(cmd.Flags().GetString("mode"))}
}

// newModeStageCmd builds a subcommand whose only option is --mode.
func newModeStageCmd[IN, OUT any](
	cfg Config,
	use, short string,
	needs bool,
	stage *fpipeline.Stage[IN, OUT, *stages.Deps],
	input func(mode stages.Mode) IN,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := stages.ParseMode(readMode(cmd).mode)
			if err != nil {
				return err
			}
			n := storeOnly
			if needs {
				n = withClients
			}

			return execute(cmd, cfg, n, stage, func(*config.Config) IN { return input(mode) })
		},
	}
	flags.Mode(cmd)

	return cmd
}

type leaguesFlags struct {
	modeFlags
	leaguesFile string
}

func newLeaguesCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leagues",
		Short:   leaguesShort,
		Long:    leaguesLong,
		Example: leaguesExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := leaguesFlags{
				modeFlags:   readMode(cmd),
				leaguesFile: flags.MustString(cmd.Flags().GetString("leagues-file")),
			}

			return runLeagues(cmd, cfg, f)
		},
	}

	flags.Mode(cmd)
	cmd.Flags().String("leagues-file", "", "YAML file listing league ids (default: paths.leagues_file)")

	return cmd
}

func runLeagues(cmd *cobra.Command, cfg Config, f leaguesFlags) error {
	mode, err := stages.ParseMode(f.mode)
	if err != nil {
		return err
	}

	return execute(cmd, cfg, withClients, stages.Leagues, func(c *config.Config) stages.LeaguesInput {
		return stages.LeaguesInput{LeaguesFile: orDefault(f.leaguesFile, c.Paths.LeaguesFile), Mode: mode}
	})
}

type seasonsFlags struct {
	modeFlags
	seasonsFile string
}

func newSeasonsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seasons",
		Short: seasonsShort,
		Long:  seasonsLong,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := seasonsFlags{
				modeFlags:   readMode(cmd),
				seasonsFile: flags.MustString(cmd.Flags().GetString("seasons-file")),
			}

			return runSeasons(cmd, cfg, f)
		},
	}

	flags.Mode(cmd)
	cmd.Flags().String("seasons-file", "", "YAML file listing season names (default: paths.seasons_file)")

	return cmd
}

func runSeasons(cmd *cobra.Command, cfg Config, f seasonsFlags) error {
	mode, err := stages.ParseMode(f.mode)
	if err != nil {
		return err
	}

	return execute(cmd, cfg, withClients, stages.Seasons, func(c *config.Config) stages.SeasonsInput {
		return stages.SeasonsInput{SeasonsFile: orDefault(f.seasonsFile, c.Paths.SeasonsFile), Mode: mode}
	})
}

func newFixturesCmd(cfg Config) *cobra.Command {
	return newModeStageCmd(cfg, "fixtures", fixturesShort, true, stages.Fixtures,
		func(m stages.Mode) stages.FixturesInput { return stages.FixturesInput{Mode: m} })
}

func newTeamsCmd(cfg Config) *cobra.Command {
	return newModeStageCmd(cfg, "teams", teamsShort, true, stages.Teams,
		func(m stages.Mode) stages.TeamsInput { return stages.TeamsInput{Mode: m} })
}

type lineupsFlags struct {
	modeFlags
	seasonID int64
}

func newLineupsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineups",
		Short: lineupsShort,
		Long:  lineupsLong,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := lineupsFlags{
				modeFlags: readMode(cmd),
				seasonID:  flags.MustInt64(cmd.Flags().GetInt64("season-id")),
			}

			return runLineups(cmd, cfg, f)
		},
	}

	flags.Mode(cmd)
	flags.SeasonID(cmd)

	return cmd
}

func runLineups(cmd *cobra.Command, cfg Config, f lineupsFlags) error {
	mode, err := stages.ParseMode(f.mode)
	if err != nil {
		return err
	}

	return execute(cmd, cfg, withClients, stages.Lineups, func(*config.Config) stages.LineupsInput {
		return stages.LineupsInput{Mode: mode, SeasonID: f.seasonID}
	})
}

func newPlayersCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: playersShort,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, cfg, withClients, stages.Players, func(*config.Config) fpipeline.EmptyInput {
				return fpipeline.EmptyInput{}
			})
		},
	}
}

func newPreviousMatchesCmd(cfg Config) *cobra.Command {
	return newModeStageCmd(cfg, "previous-matches", "Link each fixture to the teams' five previous fixtures", false,
		stages.PreviousMatches, func(m stages.Mode) stages.DerivedInput { return stages.DerivedInput{Mode: m} })
}

func newTeamRatingsCmd(cfg Config) *cobra.Command {
	return newModeStageCmd(cfg, "team-ratings", "Average player ratings per fixture and team", false,
		stages.TeamRatings, func(m stages.Mode) stages.DerivedInput { return stages.DerivedInput{Mode: m} })
}
