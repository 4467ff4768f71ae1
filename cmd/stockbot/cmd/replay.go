package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rustyeddy/stockbot/engine"
	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/sim"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <quotes.csv>",
	Short: "Replay recorded quotes through the engine",
	Long: `Feed recorded quotes (time,instrument,price) to the simulated exchange
one frame at a time, running an ingest and a decide tick per frame. The engine
clock follows the recorded timestamps.

Examples:
  stockbot replay quotes.csv
  stockbot replay quotes.csv --balance 50000 --journal`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayBalance   float64
	replayAvailable int
	replayJournal   bool
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Float64Var(&replayBalance, "balance", 10000, "starting cash")
	replayCmd.Flags().IntVar(&replayAvailable, "available", 10000, "shares on offer per instrument")
	replayCmd.Flags().BoolVar(&replayJournal, "journal", false, "write to the configured journal")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	ctx := cmd.Context()

	feed, err := sim.OpenQuoteFeed(args[0])
	if err != nil {
		return fmt.Errorf("open quotes: %w", err)
	}
	defer feed.Close()

	var j journal.Journal = journal.Nop{}
	if replayJournal {
		j, err = openJournal(ctx, cfg.Journal)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
	}

	exch := sim.NewEngine(sim.Config{Balance: replayBalance})
	var now time.Time
	eng := engine.New(exch,
		engine.WithClock(func() time.Time { return now }),
		engine.WithRand(rand.New(rand.NewSource(cfg.Sim.Seed))),
		engine.WithJournal(j),
		engine.WithLogger(logger),
		engine.WithPolicy(cfg.Policy()),
		engine.WithWarmup(cfg.Engine.WarmupPoints),
		engine.WithPeriod(cfg.Scheduler.DecideInterval),
		engine.WithArmed(true),
	)

	frames := 0
	for {
		fr, ok, err := feed.Next()
		if err != nil {
			return fmt.Errorf("read quotes: %w", err)
		}
		if !ok {
			break
		}
		now = fr.Time
		exch.Apply(fr, replayAvailable)
		if err := eng.Ingest(ctx); err != nil {
			return fmt.Errorf("frame %d: ingest: %w", frames, err)
		}
		if err := eng.Decide(ctx); err != nil {
			return fmt.Errorf("frame %d: decide: %w", frames, err)
		}
		frames++
	}

	st := eng.Status()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Frames:    %d\n", frames)
	fmt.Fprintf(out, "Fills:     %d\n", len(exch.Fills()))
	fmt.Fprintf(out, "Equity:    %.2f -> %.2f (%+.2f%%)\n",
		replayBalance, exch.Equity(), pctChange(replayBalance, exch.Equity()))
	fmt.Fprintf(out, "Brake:     %s (%d trips)\n", st.Risk.State, st.Risk.Brakes)
	return nil
}
