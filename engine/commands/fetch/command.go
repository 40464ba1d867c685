package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/api"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/pkg/logger"
)

var (
	fetchShort = "Fetch one provider resource and print it as JSON"

	fetchLong = text.LongDesc(`
		Debug commands calling a provider once. The parsed value is printed by default;
		--full prints the raw provider payload instead and --save also writes the printed
		value to <artifacts_dir>/payloads/.

		Nothing is written to the database.
	`)
)

// Config holds the configuration for fetch commands.
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
		return errors.New("fetch.Config: missing required fields: " + strings.Join(missing, ", "))
	}

	return nil
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// NewCommand creates a new fetch command with all subcommands.
func NewCommand(cfg Config) (*cobra.Command, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.deps()

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: fetchShort,
		Long:  fetchLong,
	}
	flags.ConfigFile(cmd)

	cmd.AddCommand(
		newFixtureCmd(cfg),
		newLineupCmd(cfg),
		newScheduleCmd(cfg),
		newTeamCmd(cfg),
		newPlayerCmd(cfg),
		newOddsCmd(cfg),
		newPremiumHistoryCmd(cfg),
		newSportsCmd(cfg),
		newEventsCmd(cfg),
		newH2HCmd(cfg),
	)

	return cmd, nil
}

// outputFlags are shared by every fetch subcommand.
type outputFlags struct {
	provider string
	full     bool
	save     bool
}

func addOutputFlags(cmd *cobra.Command) {
	flags.Provider(cmd)
	flags.Full(cmd)
	flags.Save(cmd)
}

func readOutputFlags(cmd *cobra.Command) outputFlags {
	return outputFlags{
		provider: flags.MustString(cmd.Flags().GetString("provider")),
		full:     flags.MustBool(cmd.Flags().GetBool("full")),
		save:     flags.MustBool(cmd.Flags().GetBool("save")),
	}
}

func (f outputFlags) mode() api.Mode {
	if f.full {
		return api.ModeFull
	}

	return api.ModeParsed
}

// withClients loads the configuration, opens the provider clients and runs fn with them.
func withClients(cmd *cobra.Command, cfg Config, fn func(e *env.Env) error) (err error) {
	deps := cfg.deps()

	conf, err := deps.ConfigLoader(flags.MustString(cmd.Flags().GetString("config")))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	e, err := deps.EnvOpener(cmd.Context(), cfg.Logger, conf, env.Needs{Clients: true})
	if err != nil {
		return fmt.Errorf("failed to open environment: %w", err)
	}
	defer func() { err = errors.Join(err, e.Close()) }()

	return fn(e)
}

// emit prints the raw payload in full mode and the parsed value otherwise, then saves the
// printed value when --save is set.
func emit[T any](cmd *cobra.Command, e *env.Env, f outputFlags, kind string, res api.Result[T]) error {
	var v any = res.Parsed
	if f.full && res.Raw != nil {
		v = res.Raw
	}

	return printValue(cmd, e, f, kind, v)
}

func printValue(cmd *cobra.Command, e *env.Env, f outputFlags, kind string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(b)); err != nil {
		return err
	}

	if !f.save {
		return nil
	}
	if e.Artifacts == nil {
		return errors.New("cannot save: paths.artifacts_dir is not configured")
	}
	path, err := e.Artifacts.SavePayload(kind, v)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	cmd.Printf("Saved %s\n", path)

	return nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive integer", what, s)
	}

	return id, nil
}
