package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/api"
	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/provider/sportmonks"
)

var (
	premiumHistoryLong = text.LongDesc(`
		Resolves the premium odd of a fixture by market, bookmaker id and outcome label and
		collects its bookmaker updates between --from and --to (UTC, "YYYY-MM-DD HH:MM").
		Without a range the last 24 hours are scanned.
	`)

	premiumHistoryExample = text.Examples(`
		sportdb fetch premium-history 19135003 --bookmaker-id 2 --label Home --from "2024-08-17 10:00" --to "2024-08-17 14:00"
	`)
)

// newIDCmd builds a subcommand taking one numeric id argument. call is an api.Client method
// expression such as (*api.Client).Team.
func newIDCmd[T any](
	cfg Config,
	use, short string,
	call func(c *api.Client, ctx context.Context, provider string, id int64, mode api.Mode) (api.Result[T], error),
) *cobra.Command {
	name, arg, _ := strings.Cut(use, " ")
	what := strings.Trim(arg, "<>")

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], what)
			if err != nil {
				return err
			}
			f := readOutputFlags(cmd)

			return withClients(cmd, cfg, func(e *env.Env) error {
				res, err := call(e.Clients.Client, cmd.Context(), f.provider, id, f.mode())
				if err != nil {
					return fmt.Errorf("fetch %s %d: %w", name, id, err)
				}

				return emit(cmd, e, f, fmt.Sprintf("%s_%d", name, id), res)
			})
		},
	}
	addOutputFlags(cmd)

	return cmd
}

func newFixtureCmd(cfg Config) *cobra.Command {
	return newIDCmd(cfg, "fixture <fixture-id>", "Fetch a fixture with teams and score", (*api.Client).Fixture)
}

func newLineupCmd(cfg Config) *cobra.Command {
	return newIDCmd(cfg, "lineup <fixture-id>", "Fetch the lineup of a fixture with minutes and ratings", (*api.Client).Lineup)
}

func newScheduleCmd(cfg Config) *cobra.Command {
	return newIDCmd(cfg, "schedule <season-id>", "Fetch the fixtures of a season", (*api.Client).Schedule)
}

func newTeamCmd(cfg Config) *cobra.Command {
	return newIDCmd(cfg, "team <team-id>", "Fetch a team", (*api.Client).Team)
}

func newPlayerCmd(cfg Config) *cobra.Command {
	return newIDCmd(cfg, "player <player-id>", "Fetch a player", (*api.Client).Player)
}

func newOddsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "odds <fixture-id>",
		Short: "Fetch the odds of a fixture filtered to one market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "fixture-id")
			if err != nil {
				return err
			}
			f := readOutputFlags(cmd)
			market := flags.MustString(cmd.Flags().GetString("market"))

			return withClients(cmd, cfg, func(e *env.Env) error {
				res, err := e.Clients.Odds(cmd.Context(), f.provider, id, market, f.mode())
				if err != nil {
					return fmt.Errorf("fetch odds of fixture %d: %w", id, err)
				}

				return emit(cmd, e, f, fmt.Sprintf("odds_%d_%s", id, market), res)
			})
		},
	}

	addOutputFlags(cmd)
	cmd.Flags().String("market", "1x2", "Market key from the providers file")

	return cmd
}

type premiumHistoryFlags struct {
	outputFlags
	market      string
	bookmakerID int64
	label       string
	from        string
	to          string
}

func newPremiumHistoryCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "premium-history <fixture-id>",
		Short:   "Fetch the bookmaker update history of one premium odd",
		Long:    premiumHistoryLong,
		Example: premiumHistoryExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := premiumHistoryFlags{
				outputFlags: readOutputFlags(cmd),
				market:      flags.MustString(cmd.Flags().GetString("market")),
				bookmakerID: flags.MustInt64(cmd.Flags().GetInt64("bookmaker-id")),
				label:       flags.MustString(cmd.Flags().GetString("label")),
				from:        flags.MustString(cmd.Flags().GetString("from")),
				to:          flags.MustString(cmd.Flags().GetString("to")),
			}

			return runPremiumHistory(cmd, cfg, args[0], f)
		},
	}

	addOutputFlags(cmd)
	cmd.Flags().String("market", "1x2", "Market key from the providers file")
	cmd.Flags().Int64("bookmaker-id", 0, "SportMonks bookmaker id (required)")
	cmd.Flags().String("label", "", "Outcome label, e.g. Home, Draw or Away (required)")
	cmd.Flags().String("from", "", "Range start, UTC")
	cmd.Flags().String("to", "", "Range end, UTC")
	_ = cmd.MarkFlagRequired("bookmaker-id")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func runPremiumHistory(cmd *cobra.Command, cfg Config, arg string, f premiumHistoryFlags) error {
	id, err := parseID(arg, "fixture-id")
	if err != nil {
		return err
	}

	return withClients(cmd, cfg, func(e *env.Env) error {
		res, err := e.Clients.PremiumOddHistory(cmd.Context(), f.provider, id, f.market, f.bookmakerID, f.label,
			sportmonks.HistoryRange{From: f.from, To: f.to}, f.mode())
		if err != nil {
			return fmt.Errorf("fetch premium history of fixture %d: %w", id, err)
		}
		cmd.Printf("%d updates\n", len(res.Parsed))

		return emit(cmd, e, f.outputFlags, fmt.Sprintf("premium_history_%d", id), res)
	})
}
