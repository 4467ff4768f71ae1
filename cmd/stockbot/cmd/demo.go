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

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Trade against the in-memory simulator",
	Long: `Run the engine against a simulated exchange for a fixed number of ticks
and print a summary. Prices follow the sine models in the sim section of the
config. The demo is armed unless --dry-run is given.

Examples:
  stockbot demo --ticks 500
  stockbot demo -c stockbot.yaml --ticks 2000 --dry-run`,
	RunE: runDemo,
}

var (
	demoTicks   int
	demoDryRun  bool
	demoJournal bool
)

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVar(&demoTicks, "ticks", 300, "number of ingest/decide ticks")
	demoCmd.Flags().BoolVar(&demoDryRun, "dry-run", false, "journal simulated intents only")
	demoCmd.Flags().BoolVar(&demoJournal, "journal", false, "write to the configured journal")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	ctx := cmd.Context()

	var j journal.Journal = journal.Nop{}
	if demoJournal {
		j, err = openJournal(ctx, cfg.Journal)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
	}

	exch := sim.NewEngine(cfg.Sim)
	start := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time {
		return start.Add(time.Duration(exch.StepCount()) * cfg.Scheduler.DecideInterval)
	}

	eng := engine.New(exch,
		engine.WithClock(clock),
		engine.WithRand(rand.New(rand.NewSource(cfg.Sim.Seed))),
		engine.WithJournal(j),
		engine.WithLogger(logger),
		engine.WithPolicy(cfg.Policy()),
		engine.WithWarmup(cfg.Engine.WarmupPoints),
		engine.WithPeriod(cfg.Scheduler.DecideInterval),
		engine.WithArmed(!demoDryRun),
	)

	startEquity := exch.Equity()
	for i := 0; i < demoTicks; i++ {
		exch.Step()
		if err := eng.Ingest(ctx); err != nil {
			return fmt.Errorf("tick %d: ingest: %w", i, err)
		}
		if err := eng.Decide(ctx); err != nil {
			return fmt.Errorf("tick %d: decide: %w", i, err)
		}
	}

	st := eng.Status()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ticks:     %d\n", demoTicks)
	fmt.Fprintf(out, "Armed:     %v\n", st.Armed)
	fmt.Fprintf(out, "Fills:     %d\n", len(exch.Fills()))
	fmt.Fprintf(out, "Equity:    %.2f -> %.2f (%+.2f%%)\n",
		startEquity, exch.Equity(), pctChange(startEquity, exch.Equity()))
	fmt.Fprintf(out, "Brake:     %s (%d trips, drawdown %.2f%%)\n",
		st.Risk.State, st.Risk.Brakes, st.Risk.Drawdown*100)
	for _, snap := range st.Ensembles {
		fmt.Fprintf(out, "  %-6s vote=%+d updates=%d\n", snap.Instrument, snap.LastVote, snap.Updates)
	}
	return nil
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
