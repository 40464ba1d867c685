// Package flags provides reusable flag helpers for the sportdb commands.
//
// Only flags shared by several commands belong here so they keep one name and meaning across
// the CLI. Command-specific flags are defined next to the command.
package flags

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "config.yaml"

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
func MustBool(b bool, _ error) bool { return b }

// MustInt returns the int value, ignoring the error.
func MustInt(i int, _ error) int { return i }

// MustInt64 returns the int64 value, ignoring the error.
func MustInt64(i int64, _ error) int64 { return i }

// MustUint returns the uint value, ignoring the error.
func MustUint(u uint, _ error) uint { return u }

// MustDuration returns the duration value, ignoring the error.
func MustDuration(d time.Duration, _ error) time.Duration { return d }

// MustInt64Slice returns the int64 slice value, ignoring the error.
func MustInt64Slice(s []int64, _ error) []int64 { return s }

// ConfigFile adds the persistent --config/-c flag to a command group.
// Retrieve the value with cmd.Flags().GetString("config") in any subcommand.
func ConfigFile(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", DefaultConfigFile, "Path to config.yaml; env vars override its values")
}

// Mode adds the --mode/-m flag selecting sync or extend (default: sync).
//
// Usage:
//
//	flags.Mode(cmd)
//	// later in RunE:
//	mode, _ := cmd.Flags().GetString("mode")
func Mode(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", "sync", "Run mode: sync (upsert and delete stale rows) or extend (insert only)")
}

// Limit adds the --limit flag. Zero means no limit.
func Limit(cmd *cobra.Command, defaultValue int) {
	cmd.Flags().Int("limit", defaultValue, "Maximum number of fixtures to process (0 = all)")
}

// LeagueID adds the --league-id flag. Zero means all leagues.
func LeagueID(cmd *cobra.Command) {
	cmd.Flags().Int64("league-id", 0, "Only process fixtures of this league")
}

// SeasonID adds the --season-id flag. Zero means all seasons.
// Also accepts the --season alias.
func SeasonID(cmd *cobra.Command) {
	cmd.Flags().Int64("season-id", 0, "Only process fixtures of this season")
	alias(cmd, "season", "season-id")
}

// DryRun adds the --dry-run flag.
func DryRun(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Log what would be written without writing")
}

// Pace adds the --sleep flag: the minimum pause between provider requests of a stage.
func Pace(cmd *cobra.Command, defaultValue time.Duration) {
	cmd.Flags().Duration("sleep", defaultValue, "Minimum pause between provider requests, e.g. 200ms")
}

// Provider adds the --provider/-p flag overriding the configured data provider.
func Provider(cmd *cobra.Command) {
	cmd.Flags().StringP("provider", "p", "", "Data provider (default: api.provider.name from config)")
}

// Full adds the --full flag printing the raw provider payload instead of the parsed value.
func Full(cmd *cobra.Command) {
	cmd.Flags().Bool("full", false, "Print the raw provider payload")
}

// Save adds the --save flag writing the printed value to the artifacts directory.
func Save(cmd *cobra.Command) {
	cmd.Flags().Bool("save", false, "Also save the output under the artifacts directory")
}

// alias makes --from an accepted spelling of --to.
func alias(cmd *cobra.Command, from, to string) {
	existing := cmd.Flags().GetNormalizeFunc()
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == from {
			return pflag.NormalizedName(to)
		}
		if existing != nil {
			return existing(f, name)
		}

		return pflag.NormalizedName(name)
	})
}
