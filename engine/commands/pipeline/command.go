package pipeline

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/pkg/logger"
)

var (
	pipelineShort = "Run database pipeline stages"

	pipelineLong = text.LongDesc(`
		Commands for building the research database.

		Each subcommand runs one stage. Stages are idempotent: rerunning a stage continues
		where an interrupted run stopped. In sync mode a stage upserts changed rows and deletes
		rows that are no longer selected; in extend mode it only inserts missing rows.

		Every execution is recorded in the stage_reports table and, when paths.artifacts_dir is
		set, as a JSON file under <artifacts_dir>/reports/<run id>/.
	`)
)

// Config holds the configuration for pipeline commands.
type Config struct {
	// Logger is the logger to use for command output. Required.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// Validate checks that all required configuration fields are set.
func (c Config) Validate() error {
	var missing []string

	if c.Logger == nil {
		missing = append(missing, "Logger")
	}

	if len(missing) > 0 {
		return errors.New("pipeline.Config: missing required fields: " + strings.Join(missing, ", "))
	}

	return nil
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// NewCommand creates a new pipeline command with all subcommands.
func NewCommand(cfg Config) (*cobra.Command, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.deps()

	cmd := &cobra.Command{
		Use:     "pipeline",
		Aliases: []string{"db"},
		Short:   pipelineShort,
		Long:    pipelineLong,
	}
	flags.ConfigFile(cmd)
	cmd.PersistentFlags().String("metrics-file", "", "Write prometheus metrics of the run to this textfile (default: metrics.file from config)")

	cmd.AddCommand(
		newLeaguesCmd(cfg),
		newSeasonsCmd(cfg),
		newFixturesCmd(cfg),
		newTeamsCmd(cfg),
		newLineupsCmd(cfg),
		newPreviousMatchesCmd(cfg),
		newPlayersCmd(cfg),
		newTeamRatingsCmd(cfg),
		newTeamMappingCmd(cfg),
		newLeagueMappingCmd(cfg),
		newFixturesMatchingCmd(cfg),
		newRematchCmd(cfg),
		newOddsHistoryCmd(cfg),
		newOddsSportMonksCmd(cfg),
		newRunCmd(cfg),
		newListCmd(cfg),
		newReportsCmd(cfg),
	)

	return cmd, nil
}
