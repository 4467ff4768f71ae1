package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/stockbot/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query and display intents and equity snapshots from the SQLite journal.

Subcommands:
  intent  - Show a single intent by ID
  intents - List intents of a day (today by default)
  equity  - List equity snapshots of a day
  report  - Summarize a day as an org document

Examples:
  stockbot journal intent 01J9Z3K4VQ7W8XG2M5N6P7R8S9
  stockbot journal intents 2026-10-16
  stockbot journal report`,
}

var journalIntentCmd = &cobra.Command{
	Use:   "intent <id>",
	Short: "Show a single intent",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalIntent,
}

var journalIntentsCmd = &cobra.Command{
	Use:   "intents [YYYY-MM-DD]",
	Short: "List intents of a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalIntents,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity [YYYY-MM-DD]",
	Short: "List equity snapshots of a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalEquity,
}

var journalReportCmd = &cobra.Command{
	Use:   "report [YYYY-MM-DD]",
	Short: "Summarize a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalReport,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalIntentCmd)
	journalCmd.AddCommand(journalIntentsCmd)
	journalCmd.AddCommand(journalEquityCmd)
	journalCmd.AddCommand(journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./stockbot.db", "path to SQLite journal DB")
}

func runJournalIntent(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	in, err := j.GetIntent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get intent: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %s\n", in.ID)
	fmt.Fprintf(out, "Time:       %s\n", in.Time.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Instrument: %s\n", in.Instrument)
	fmt.Fprintf(out, "Qty:        %+d\n", in.Qty)
	fmt.Fprintf(out, "Price:      %.2f\n", in.Price)
	fmt.Fprintf(out, "Notional:   %s\n", in.Notional.StringFixed(2))
	fmt.Fprintf(out, "Vote:       %+d (target %d, owned %d)\n", in.Vote, in.Target, in.Owned)
	fmt.Fprintf(out, "Mode:       %s\n", in.Mode)
	fmt.Fprintf(out, "Status:     %s\n", in.Status)
	if in.Reason != "" {
		fmt.Fprintf(out, "Reason:     %s\n", in.Reason)
	}
	return nil
}

func runJournalIntents(cmd *cobra.Command, args []string) error {
	start, end, err := dayArg(args)
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	intents, err := j.ListIntentsBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query intents: %w", err)
	}
	return writeIntents(cmd.OutOrStdout(), intents)
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	start, end, err := dayArg(args)
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	snaps, err := j.ListEquityBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tBALANCE\tPEAK\tDRAWDOWN\tSTATE")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f%%\t%s\n",
			s.Time.Local().Format(time.TimeOnly), s.Balance, s.Peak, s.Drawdown*100, s.State)
	}
	return tw.Flush()
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	start, end, err := dayArg(args)
	if err != nil {
		return err
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	intents, err := j.ListIntentsBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query intents: %w", err)
	}
	snaps, err := j.ListEquityBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	return journal.Summarize(start, end, intents, snaps).WriteOrg(cmd.OutOrStdout())
}

func writeIntents(w io.Writer, intents []journal.Intent) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tINSTRUMENT\tQTY\tPRICE\tNOTIONAL\tMODE\tSTATUS\tREASON")
	for _, in := range intents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+d\t%.2f\t%s\t%s\t%s\t%s\n",
			in.Time.Local().Format(time.TimeOnly), in.ID, in.Instrument, in.Qty, in.Price,
			in.Notional.StringFixed(2), in.Mode, in.Status, in.Reason)
	}
	return tw.Flush()
}

// dayArg resolves an optional YYYY-MM-DD argument to local day bounds.
func dayArg(args []string) (time.Time, time.Time, error) {
	loc := time.Local
	day := time.Now().In(loc).Format("2006-01-02")
	if len(args) > 0 {
		day = args[0]
	}
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date: %w", err)
	}
	return start, end, nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
