package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/config"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/pkg/logger"
)

func findSub(t *testing.T, cmd *cobra.Command, use string) *cobra.Command {
	t.Helper()

	for _, sub := range cmd.Commands() {
		if sub.Use == use {
			return sub
		}
	}
	require.Failf(t, "subcommand not found", "%s", use)

	return nil
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	_, err := NewCommand(Config{})
	require.EqualError(t, err, "pipeline.Config: missing required fields: Logger")
}

// TestNewCommand_Structure verifies the command structure is correct.
func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd, err := NewCommand(Config{Logger: logger.Nop()})
	require.NoError(t, err)
	require.NotNil(t, cmd)

	assert.Equal(t, "pipeline", cmd.Use)
	assert.Equal(t, pipelineShort, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	// config and metrics-file are shared by every stage
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("metrics-file"))
	assert.Nil(t, cmd.PersistentFlags().Lookup("mode"), "mode flag should NOT be persistent")

	uses := make([]string, 0, len(cmd.Commands()))
	for _, sc := range cmd.Commands() {
		uses = append(uses, sc.Use)
	}
	assert.ElementsMatch(t, []string{
		"leagues", "seasons", "fixtures", "teams", "lineups", "previous-matches", "players",
		"team-ratings", "team-mapping", "league-mapping", "fixtures-matching", "rematch",
		"odds-history", "odds-sportmonks", "run", "list", "reports",
	}, uses)
}

func TestNewCommand_StageFlags(t *testing.T) {
	t.Parallel()

	cmd, err := NewCommand(Config{Logger: logger.Nop()})
	require.NoError(t, err)

	tests := []struct {
		use   string
		flags []string
	}{
		{use: "leagues", flags: []string{"mode", "leagues-file"}},
		{use: "seasons", flags: []string{"mode", "seasons-file"}},
		{use: "fixtures", flags: []string{"mode"}},
		{use: "lineups", flags: []string{"mode", "season-id"}},
		{use: "team-mapping", flags: []string{"mode", "path"}},
		{use: "fixtures-matching", flags: []string{"league-mapping", "team-mapping", "limit", "window-hours", "snapshot"}},
		{use: "rematch", flags: []string{"limit", "league-id", "season-id", "dry-run", "window-days"}},
		{use: "odds-history", flags: []string{"mode", "limit", "league-id", "season-id", "label", "region", "bookmaker", "skip-existing", "sleep"}},
		{use: "odds-sportmonks", flags: []string{"mode", "limit", "skip-existing", "sleep"}},
		{use: "run", flags: []string{"mode", "leagues-file", "seasons-file", "season-id", "attempts", "retry-delay"}},
		{use: "reports", flags: []string{"run-id"}},
	}
	for _, tt := range tests {
		sub := findSub(t, cmd, tt.use)
		for _, name := range tt.flags {
			assert.NotNil(t, sub.Flags().Lookup(name), "%s --%s", tt.use, name)
		}
	}

	rematch := findSub(t, cmd, "rematch")
	assert.Equal(t, "200", rematch.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "1", rematch.Flags().Lookup("window-days").DefValue)

	matching := findSub(t, cmd, "fixtures-matching")
	assert.Equal(t, "12", matching.Flags().Lookup("window-hours").DefValue)
	assert.Equal(t, "kickoff_plus_1h", matching.Flags().Lookup("snapshot").DefValue)

	odds := findSub(t, cmd, "odds-history")
	assert.Equal(t, "betfair", odds.Flags().Lookup("label").DefValue)
	assert.Equal(t, "eu", odds.Flags().Lookup("region").DefValue)
}

func TestList(t *testing.T) {
	t.Parallel()

	cmd, err := NewCommand(Config{Logger: logger.Nop()})
	require.NoError(t, err)

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"list"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "leagues")
	assert.Contains(t, out.String(), "odds_history")
	assert.Contains(t, out.String(), "1.0.0")
}

func TestStage_InvalidModeFailsBeforeLoading(t *testing.T) {
	t.Parallel()

	loaded := false
	cmd, err := NewCommand(Config{
		Logger: logger.Nop(),
		Deps: Deps{
			ConfigLoader: func(string) (*config.Config, error) {
				loaded = true
				return &config.Config{}, nil
			},
		},
	})
	require.NoError(t, err)

	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"fixtures", "--mode", "append"})

	require.ErrorContains(t, cmd.Execute(), `mode must be "sync" or "extend"`)
	assert.False(t, loaded)
}

func TestStage_ConfigLoadError(t *testing.T) {
	t.Parallel()

	expectedError := errors.New("config not found")
	var gotPath string

	cmd, err := NewCommand(Config{
		Logger: logger.Nop(),
		Deps: Deps{
			ConfigLoader: func(path string) (*config.Config, error) {
				gotPath = path
				return nil, expectedError
			},
		},
	})
	require.NoError(t, err)

	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"leagues", "-c", "custom.yaml"})

	execErr := cmd.Execute()
	require.ErrorIs(t, execErr, expectedError)
	assert.Contains(t, execErr.Error(), "failed to load config")
	assert.Equal(t, "custom.yaml", gotPath)
}

func TestStage_EnvOpenError(t *testing.T) {
	t.Parallel()

	var gotNeeds env.Needs
	cmd, err := NewCommand(Config{
		Logger: logger.Nop(),
		Deps: Deps{
			ConfigLoader: func(string) (*config.Config, error) { return &config.Config{}, nil },
			EnvOpener: func(_ context.Context, _ logger.Logger, _ *config.Config, needs env.Needs) (*env.Env, error) {
				gotNeeds = needs
				return nil, errors.New("connection refused")
			},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		args  []string
		needs env.Needs
	}{
		{args: []string{"team-ratings"}, needs: storeOnly},
		{args: []string{"odds-history", "--season", "23614"}, needs: withClients},
		{args: []string{"run", "--mode", "extend"}, needs: withClients},
		{args: []string{"reports", "--run-id", "x"}, needs: storeOnly},
	}
	for _, tt := range tests {
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs(tt.args)

		require.ErrorContains(t, cmd.Execute(), "failed to open environment: connection refused", "%v", tt.args)
		assert.Equal(t, tt.needs, gotNeeds, "%v", tt.args)
	}
}

func TestReports_MissingRunIDFails(t *testing.T) {
	t.Parallel()

	cmd, err := NewCommand(Config{Logger: logger.Nop()})
	require.NoError(t, err)

	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"reports"})

	require.ErrorContains(t, cmd.Execute(), `required flag(s) "run-id" not set`)
}
