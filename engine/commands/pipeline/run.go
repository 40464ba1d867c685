package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	fpipeline "github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/report"
	"github.com/inattention/sportdata/stages"
)

var (
	runShort = "Run the loading stages in order"

	runLong = text.LongDesc(`
		Executes leagues, seasons, fixtures, teams, lineups, previous-matches, players and
		team-ratings in that order and stops at the first stage that fails. All stages share
		one run id; list their reports later with "sportdb pipeline reports --run-id <id>".
	`)

	runExample = text.Examples(`
		# Full synchronisation
		sportdb pipeline run

		# Insert-only update, retrying a failed stage twice
		sportdb pipeline run --mode extend --attempts 3
	`)

	reportsShort = "Show the stage reports of a run"
)

type runFlags struct {
	modeFlags
	leaguesFile string
	seasonsFile string
	seasonID    int64
	attempts    uint
	retryDelay  time.Duration
}

func newRunCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   runShort,
		Long:    runLong,
		Example: runExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := runFlags{
				modeFlags:   readMode(cmd),
				leaguesFile: flags.MustString(cmd.Flags().GetString("leagues-file")),
				seasonsFile: flags.MustString(cmd.Flags().GetString("seasons-file")),
				seasonID:    flags.MustInt64(cmd.Flags().GetInt64("season-id")),
				attempts:    flags.MustUint(cmd.Flags().GetUint("attempts")),
				retryDelay:  flags.MustDuration(cmd.Flags().GetDuration("retry-delay")),
			}

			return runRun(cmd, cfg, f)
		},
	}

	flags.Mode(cmd)
	flags.SeasonID(cmd)
	cmd.Flags().String("leagues-file", "", "YAML file listing league ids (default: paths.leagues_file)")
	cmd.Flags().String("seasons-file", "", "YAML file listing season names (default: paths.seasons_file)")
	cmd.Flags().Uint("attempts", 1, "Attempts per stage before the run stops")
	cmd.Flags().Duration("retry-delay", 5*time.Second, "Initial delay between attempts of a stage")

	return cmd
}

func runRun(cmd *cobra.Command, cfg Config, f runFlags) (err error) {
	mode, err := stages.ParseMode(f.mode)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, cfg, withClients)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close()) }()

	out, runErr := stages.Run(s.bundle, s.deps, stages.RunInput{
		Mode:        mode,
		LeaguesFile: orDefault(f.leaguesFile, s.cfg.Paths.LeaguesFile),
		SeasonsFile: orDefault(f.seasonsFile, s.cfg.Paths.SeasonsFile),
		SeasonID:    f.seasonID,
		Attempts:    f.attempts,
		RetryDelay:  f.retryDelay,
	})
	if _, err := fmt.Fprint(cmd.OutOrStdout(), report.Run(out)); err != nil {
		return err
	}

	return runErr
}

func newListCmd(_ Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered stages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := report.NewTable("Stages", "id", "version", "description")
			for _, def := range stages.Registry().Definitions() {
				t.AddRow(def.ID, def.Version.String(), def.Description)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), t.String())

			return err
		},
	}
}

type reportsFlags struct {
	runID string
}

func newReportsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: reportsShort,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := reportsFlags{
				runID: flags.MustString(cmd.Flags().GetString("run-id")),
			}

			return runReports(cmd, cfg, f)
		},
	}

	cmd.Flags().String("run-id", "", "Run id printed by a previous invocation (required)")
	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}

func runReports(cmd *cobra.Command, cfg Config, f reportsFlags) (err error) {
	s, err := openSession(cmd, cfg, storeOnly)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.env.Close()) }()

	reports, err := fpipeline.NewStoreReporter(cmd.Context, s.env.Store, f.runID).GetReports()
	if err != nil {
		return fmt.Errorf("failed to read reports of run %s: %w", f.runID, err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no reports found for run %s", f.runID)
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), report.Reports(reports)); err != nil {
		return err
	}

	if s.env.Artifacts != nil {
		files, err := s.env.Artifacts.Reports(f.runID)
		if err != nil {
			return fmt.Errorf("failed to list report files of run %s: %w", f.runID, err)
		}
		for _, file := range files {
			cmd.Printf("Report file %s\n", file)
		}
	}

	return nil
}
