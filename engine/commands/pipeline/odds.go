package pipeline

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/stages"
)

var (
	oddsHistoryShort = "Store 1X2 odds timelines of matched fixtures"

	oddsHistoryLong = text.LongDesc(`
		For every fixture matched to an OddsAPI event, fetches head-to-head odds at each point
		of the snapshot timeline: every 10 minutes in the two hours before kickoff, hourly on
		the day before, and around the home team's previous fixture.

		A snapshot that keeps failing is stored with NULL odds. The sport key comes from the
		league mapping CSV.
	`)

	oddsHistoryExample = text.Examples(`
		# Fill odds for new fixtures of one season, pausing between requests
		sportdb pipeline odds-history --mode extend --season-id 23614 --sleep 200ms
	`)

	oddsSportMonksShort = "Store one SportMonks pre-match 1X2 snapshot per fixture"
)

type oddsHistoryFlags struct {
	modeFlags
	leagueCSV    string
	limit        int
	leagueID     int64
	seasonID     int64
	provider     string
	region       string
	bookmaker    string
	skipExisting bool
	pace         time.Duration
}

func newOddsHistoryCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "odds-history",
		Short:   oddsHistoryShort,
		Long:    oddsHistoryLong,
		Example: oddsHistoryExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := oddsHistoryFlags{
				modeFlags:    readMode(cmd),
				leagueCSV:    flags.MustString(cmd.Flags().GetString("league-mapping")),
				limit:        flags.MustInt(cmd.Flags().GetInt("limit")),
				leagueID:     flags.MustInt64(cmd.Flags().GetInt64("league-id")),
				seasonID:     flags.MustInt64(cmd.Flags().GetInt64("season-id")),
				provider:     flags.MustString(cmd.Flags().GetString("label")),
				region:       flags.MustString(cmd.Flags().GetString("region")),
				bookmaker:    flags.MustString(cmd.Flags().GetString("bookmaker")),
				skipExisting: flags.MustBool(cmd.Flags().GetBool("skip-existing")),
				pace:         flags.MustDuration(cmd.Flags().GetDuration("sleep")),
			}

			return runOddsHistory(cmd, cfg, f)
		},
	}

	flags.Mode(cmd)
	flags.Limit(cmd, 0)
	flags.LeagueID(cmd)
	flags.SeasonID(cmd)
	flags.Pace(cmd, 0)
	cmd.Flags().String("league-mapping", "", "League mapping CSV with OddsAPI sport keys (default: paths.league_mapping)")
	cmd.Flags().String("label", "betfair", "Provider label stored with every odds row")
	cmd.Flags().String("region", "eu", "OddsAPI region")
	cmd.Flags().String("bookmaker", "betfair", "OddsAPI bookmaker key; falls back to the first bookmaker quoted")
	cmd.Flags().Bool("skip-existing", false, "Skip fixtures that already have odds for the label (implied by --mode extend)")

	return cmd
}

func runOddsHistory(cmd *cobra.Command, cfg Config, f oddsHistoryFlags) error {
	mode, err := stages.ParseMode(f.mode)
	if err != nil {
		return err
	}

	return execute(cmd, cfg, withClients, stages.OddsHistory, func(c *config.Config) stages.OddsHistoryInput {
		return stages.OddsHistoryInput{
			Mode:         mode,
			LeagueCSV:    orDefault(f.leagueCSV, c.Paths.LeagueMapping),
			Limit:        f.limit,
			LeagueID:     f.leagueID,
			SeasonID:     f.seasonID,
			Provider:     f.provider,
			Region:       f.region,
			Bookmaker:    f.bookmaker,
			SkipExisting: f.skipExisting,
			Pace:         f.pace,
		}
	})
}

type oddsSportMonksFlags struct {
	modeFlags
	limit        int
	skipExisting bool
	pace         time.Duration
}

func newOddsSportMonksCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "odds-sportmonks",
		Short: oddsSportMonksShort,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := oddsSportMonksFlags{
				modeFlags:    readMode(cmd),
				limit:        flags.MustInt(cmd.Flags().GetInt("limit")),
				skipExisting: flags.MustBool(cmd.Flags().GetBool("skip-existing")),
				pace:         flags.MustDuration(cmd.Flags().GetDuration("sleep")),
			}

			return runOddsSportMonks(cmd, cfg, f)
		},
	}

	flags.Mode(cmd)
	flags.Limit(cmd, 0)
	flags.Pace(cmd, 0)
	cmd.Flags().Bool("skip-existing", false, "Skip fixtures that already have a SportMonks snapshot")

	return cmd
}

func runOddsSportMonks(cmd *cobra.Command, cfg Config, f oddsSportMonksFlags) error {
	mode, err := stages.ParseMode(f.mode)
	if err != nil {
		return err
	}

	return execute(cmd, cfg, withClients, stages.OddsSportMonks, func(*config.Config) stages.OddsSportMonksInput {
		return stages.OddsSportMonksInput{Mode: mode, Limit: f.limit, SkipExisting: f.skipExisting, Pace: f.pace}
	})
}
