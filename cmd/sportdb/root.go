package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inattention/sportdata/engine/commands"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/pkg/logger"
)

var rootLong = text.LongDesc(`
	Loads football leagues, seasons, fixtures, teams, lineups and odds from SportMonks and
	The Odds API into PostgreSQL, derives previous matches and team ratings, and maps
	provider ids between the two.

	Configuration is read from config.yaml (see --config); SPORTDATA_* environment
	variables override it.
`)

// defaultLogLevel is the --log-level default.
func defaultLogLevel() string {
	if lvl := os.Getenv("SPORTDATA_LOG_LEVEL"); lvl != "" {
		return lvl
	}

	return "info"
}

// newRootCmd builds the sportdb command tree. level is the level of lggr and is set from
// --log-level before any subcommand runs.
func newRootCmd(lggr logger.Logger, level zap.AtomicLevel) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:           "sportdb",
		Short:         "Football data pipeline",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			lvl, err := logger.ParseLevel(flags.MustString(cmd.Flags().GetString("log-level")))
			if err != nil {
				return err
			}
			level.SetLevel(lvl)

			return nil
		},
	}
	root.PersistentFlags().String("log-level", defaultLogLevel(), "Log level: debug, info, warn or error")

	groups, err := commands.New(lggr).All()
	if err != nil {
		return nil, err
	}
	root.AddCommand(groups...)

	return root, nil
}
