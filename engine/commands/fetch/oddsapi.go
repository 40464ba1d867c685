package fetch

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inattention/sportdata/engine/commands/env"
	"github.com/inattention/sportdata/engine/commands/flags"
	"github.com/inattention/sportdata/engine/commands/text"
	"github.com/inattention/sportdata/provider/oddsapi"
)

var (
	eventsLong = text.LongDesc(`
		Lists the events of a sport in the historical snapshot at --at (RFC 3339, default now).
		With --until the snapshots from --at to --until are scanned every --every and the
		unique events commencing between --from and --to are printed.
	`)

	eventsExample = text.Examples(`
		# Events in one snapshot
		sportdb fetch events soccer_epl --at 2023-08-11T20:00:00Z

		# Every Bundesliga event of a season, scanning weekly snapshots
		sportdb fetch events soccer_germany_bundesliga --from 2023-08-01T00:00:00Z --to 2024-06-01T00:00:00Z \
		  --at 2023-08-01T00:00:00Z --until 2024-06-01T00:00:00Z --every 168h
	`)

	h2hLong = text.LongDesc(`
		Prints the head-to-head quote of one event in the snapshot at --at. With --end the
		snapshot chain is walked back from --at to --end and every quote is printed, oldest
		first.
	`)
)

// parseTime parses an optional RFC 3339 flag value.
func parseTime(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := oddsapi.ParseTime(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}

	return &t, nil
}

func newSportsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sports",
		Short: "List The Odds API sports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := readOutputFlags(cmd)

			return withClients(cmd, cfg, func(e *env.Env) error {
				res, err := e.Clients.Sports(cmd.Context(), f.mode())
				if err != nil {
					return fmt.Errorf("fetch sports: %w", err)
				}

				return emit(cmd, e, f, "sports", res)
			})
		},
	}
	addOutputFlags(cmd)

	return cmd
}

type eventsFlags struct {
	outputFlags
	at    string
	from  string
	to    string
	until string
	every time.Duration
}

func newEventsCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events <sport>",
		Short:   "List historical OddsAPI events of a sport",
		Long:    eventsLong,
		Example: eventsExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := eventsFlags{
				outputFlags: readOutputFlags(cmd),
				at:          flags.MustString(cmd.Flags().GetString("at")),
				from:        flags.MustString(cmd.Flags().GetString("from")),
				to:          flags.MustString(cmd.Flags().GetString("to")),
				until:       flags.MustString(cmd.Flags().GetString("until")),
				every:       flags.MustDuration(cmd.Flags().GetDuration("every")),
			}

			return runEvents(cmd, cfg, args[0], f)
		},
	}

	addOutputFlags(cmd)
	cmd.Flags().String("at", "", "Snapshot time (default: now)")
	cmd.Flags().String("from", "", "Only events commencing at or after this time")
	cmd.Flags().String("to", "", "Only events commencing at or before this time")
	cmd.Flags().String("until", "", "Scan snapshots from --at up to this time")
	cmd.Flags().Duration("every", 7*24*time.Hour, "Step between scanned snapshots")

	return cmd
}

func runEvents(cmd *cobra.Command, cfg Config, sport string, f eventsFlags) error {
	at, err := parseTime("at", f.at)
	if err != nil {
		return err
	}
	if at == nil {
		now := time.Now().UTC()
		at = &now
	}
	from, err := parseTime("from", f.from)
	if err != nil {
		return err
	}
	to, err := parseTime("to", f.to)
	if err != nil {
		return err
	}
	until, err := parseTime("until", f.until)
	if err != nil {
		return err
	}
	if until != nil && (from == nil || to == nil) {
		return errors.New("--until needs both --from and --to")
	}

	return withClients(cmd, cfg, func(e *env.Env) error {
		oa, err := e.Clients.OddsAPIClient()
		if err != nil {
			return err
		}

		if until != nil {
			events, err := oa.CollectHistoricalEvents(cmd.Context(), sport, *from, *to, *at, *until, f.every)
			if err != nil {
				return fmt.Errorf("collect %s events: %w", sport, err)
			}
			cmd.Printf("%d unique events\n", len(events))

			return printValue(cmd, e, f.outputFlags, "events_"+sport, events)
		}

		snap, err := oa.HistoricalEvents(cmd.Context(), sport, *at, from, to)
		if err != nil {
			return fmt.Errorf("fetch %s events: %w", sport, err)
		}

		return printValue(cmd, e, f.outputFlags, "events_"+sport, snap)
	})
}

type h2hFlags struct {
	outputFlags
	at        string
	end       string
	bookmaker string
	region    string
}

func newH2HCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "h2h <sport> <event-id>",
		Short: "Fetch head-to-head odds of an OddsAPI event",
		Long:  h2hLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := h2hFlags{
				outputFlags: readOutputFlags(cmd),
				at:          flags.MustString(cmd.Flags().GetString("at")),
				end:         flags.MustString(cmd.Flags().GetString("end")),
				bookmaker:   flags.MustString(cmd.Flags().GetString("bookmaker")),
				region:      flags.MustString(cmd.Flags().GetString("region")),
			}

			return runH2H(cmd, cfg, args[0], args[1], f)
		},
	}

	addOutputFlags(cmd)
	cmd.Flags().String("at", "", "Snapshot time (required)")
	cmd.Flags().String("end", "", "Walk the snapshot chain back to this time")
	cmd.Flags().String("bookmaker", "betfair", "Bookmaker key; falls back to the first bookmaker quoted")
	cmd.Flags().String("region", "eu", "OddsAPI region")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func runH2H(cmd *cobra.Command, cfg Config, sport, eventID string, f h2hFlags) error {
	at, err := parseTime("at", f.at)
	if err != nil {
		return err
	}
	end, err := parseTime("end", f.end)
	if err != nil {
		return err
	}

	return withClients(cmd, cfg, func(e *env.Env) error {
		oa, err := e.Clients.OddsAPIClient()
		if err != nil {
			return err
		}
		kind := "h2h_" + eventID

		if end != nil {
			points, err := oa.H2HTimeseries(cmd.Context(), sport, eventID, *at, end, f.bookmaker, f.region)
			if err != nil {
				return fmt.Errorf("fetch h2h series of %s: %w", eventID, err)
			}
			cmd.Printf("%d snapshots\n", len(points))

			return printValue(cmd, e, f.outputFlags, kind, points)
		}

		quote, err := oa.H2HSnapshot(cmd.Context(), sport, eventID, *at, f.bookmaker, f.region)
		if err != nil {
			return fmt.Errorf("fetch h2h of %s: %w", eventID, err)
		}

		return printValue(cmd, e, f.outputFlags, kind, quote)
	})
}
