package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/artifacts"
	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/engine/commands/flags"
	fpipeline "github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/stages"
)

var (
	// storeOnly serves stages that read and write the database without calling a provider.
	storeOnly = env.Needs{Store: true}
	// withClients serves stages that fetch from the providers.
	withClients = env.Needs{Store: true, Clients: true}
)

func defaultRunID() string { return artifacts.NewRunID() }

// session is an opened environment and the bundle stages of one invocation execute with.
type session struct {
	cfg         *config.Config
	env         *env.Env
	deps        *stages.Deps
	bundle      fpipeline.Bundle
	metricsFile string
}

func openSession(cmd *cobra.Command, cfg Config, needs env.Needs) (*session, error) {
	deps := cfg.deps()

	conf, err := deps.ConfigLoader(flags.MustString(cmd.Flags().GetString("config")))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	e, err := deps.EnvOpener(cmd.Context(), cfg.Logger, conf, needs)
	if err != nil {
		return nil, fmt.Errorf("failed to open environment: %w", err)
	}

	runID := deps.RunID()
	var primary fpipeline.Reporter = fpipeline.NewMemoryReporter()
	if e.Store != nil {
		primary = fpipeline.NewStoreReporter(cmd.Context, e.Store, runID)
	}
	var others []fpipeline.Reporter
	if e.Artifacts != nil {
		others = append(others, fpipeline.NewArtifactReporter(e.Artifacts))
	}

	metricsFile := flags.MustString(cmd.Flags().GetString("metrics-file"))
	if metricsFile == "" {
		metricsFile = conf.Metrics.File
	}

	return &session{
		cfg:  conf,
		env:  e,
		deps: e.StageDeps(),
		bundle: fpipeline.NewBundle(cmd.Context, cfg.Logger, fpipeline.Tee(primary, others...),
			fpipeline.WithRunID(runID),
			fpipeline.WithMetrics(fpipeline.NewMetrics(e.Metrics)),
			fpipeline.WithRegistry(stages.Registry()),
		),
		metricsFile: metricsFile,
	}, nil
}

func (s *session) close() error {
	return errors.Join(s.env.WriteMetrics(s.metricsFile), s.env.Close())
}

// execute runs stage with the input built from the loaded configuration and prints its output
// as JSON.
func execute[IN, OUT any](
	cmd *cobra.Command,
	cfg Config,
	needs env.Needs,
	stage *fpipeline.Stage[IN, OUT, *stages.Deps],
	input func(c *config.Config) IN,
) (err error) {
	s, err := openSession(cmd, cfg, needs)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close()) }()

	report, err := fpipeline.ExecuteStage(s.bundle, stage, s.deps, input(s.cfg))
	if err != nil {
		return fmt.Errorf("stage %s failed: %w", stage.ID(), err)
	}
	cmd.Printf("Stage %s finished in %s (run %s)\n", stage.ID(), report.Duration(), s.bundle.RunID)

	return printJSON(cmd, report.Output)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return err
}

// orDefault returns v, or def when v is empty.
func orDefault(v, def string) string {
	if v != "" {
		return v
	}

	return def
}
