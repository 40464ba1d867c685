package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/pkg/logger"
	tables "github.com/inattention/sportdata/report"
	"github.com/inattention/sportdata/stages"
)

var (
	reportShort = "Summarise the stored data"

	coverageLong = text.LongDesc(`
		Counts the fixtures of a provider and how many of them have a lineup with at least
		--min-player-rows players, minutes, ratings, or both. Printed once over all selected
		fixtures and once per league. Nothing is written.
	`)

	coverageExample = text.Examples(`
		# Coverage of every stored season
		sportdb report coverage

		# Two seasons, counting lineups with a full starting eleven only
		sportdb report coverage --season-ids 21646,21795 --min-player-rows 11
	`)
)

// Config holds the configuration for report commands.
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
		return errors.New("report.Config: missing required fields: " + strings.Join(missing, ", "))
	}

	return nil
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// NewCommand creates a new report command with all subcommands.
func NewCommand(cfg Config) (*cobra.Command, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.deps()

	cmd := &cobra.Command{
		Use:   "report",
		Short: reportShort,
	}
	flags.ConfigFile(cmd)

	cmd.AddCommand(newCoverageCmd(cfg))

	return cmd, nil
}

type coverageFlags struct {
	provider      string
	seasonIDs     []int64
	minPlayerRows int
	json          bool
}

func newCoverageCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "coverage",
		Short:   "Report lineup coverage per league",
		Long:    coverageLong,
		Example: coverageExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := coverageFlags{
				provider:      flags.MustString(cmd.Flags().GetString("provider")),
				seasonIDs:     flags.MustInt64Slice(cmd.Flags().GetInt64Slice("season-ids")),
				minPlayerRows: flags.MustInt(cmd.Flags().GetInt("min-player-rows")),
				json:          flags.MustBool(cmd.Flags().GetBool("json")),
			}
			if f.minPlayerRows < 1 {
				return fmt.Errorf("--min-player-rows must be at least 1, got %d", f.minPlayerRows)
			}

			return runCoverage(cmd, cfg, f)
		},
	}

	flags.Provider(cmd)
	cmd.Flags().Int64Slice("season-ids", nil, "Only count fixtures of these seasons")
	cmd.Flags().Int("min-player-rows", 1, "Player rows a lineup needs to count")
	cmd.Flags().Bool("json", false, "Print the coverage as JSON instead of tables")

	return cmd
}

func runCoverage(cmd *cobra.Command, cfg Config, f coverageFlags) (err error) {
	deps := cfg.deps()

	conf, err := deps.ConfigLoader(flags.MustString(cmd.Flags().GetString("config")))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	e, err := deps.EnvOpener(cmd.Context(), cfg.Logger, conf, env.Needs{Store: true})
	if err != nil {
		return fmt.Errorf("failed to open environment: %w", err)
	}
	defer func() { err = errors.Join(err, e.Close()) }()

	b := pipeline.NewBundle(cmd.Context, cfg.Logger, pipeline.NewMemoryReporter(),
		pipeline.WithRegistry(stages.Registry()),
	)
	report, err := pipeline.ExecuteStage(b, stages.Coverage, e.StageDeps(), stages.CoverageInput{
		Provider:      f.provider,
		SeasonIDs:     f.seasonIDs,
		MinPlayerRows: f.minPlayerRows,
	})
	if err != nil {
		return fmt.Errorf("coverage failed: %w", err)
	}

	if f.json {
		out, err := json.MarshalIndent(report.Output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode coverage: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), tables.Coverage(report.Output))

	return err
}
