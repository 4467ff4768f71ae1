package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/stockbot/control"
	"github.com/rustyeddy/stockbot/engine"
	"github.com/rustyeddy/stockbot/scheduler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trade against the dashboard backend",
	Long: `Run the bot against the backend named by gateway.base_url.

Ingest and decide ticks run on the scheduler periods until interrupted.
Without --arm (or engine.armed) every order is journaled as a simulated
intent and nothing is submitted.

Examples:
  stockbot run -c stockbot.yaml
  stockbot run -c stockbot.yaml --arm`,
	RunE: runRun,
}

var runArm bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runArm, "arm", false, "submit real orders from the start")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	var hub *control.Hub
	opts := []engine.Option{
		engine.WithJournal(j),
		engine.WithLogger(logger),
		engine.WithPolicy(cfg.Policy()),
		engine.WithWarmup(cfg.Engine.WarmupPoints),
		engine.WithPeriod(cfg.Scheduler.DecideInterval),
		engine.WithArmed(cfg.Engine.Armed || runArm),
	}
	if cfg.Control.Enabled {
		hub = control.NewHub(logger)
		opts = append(opts, engine.WithListener(hub.Publish))
	}

	mirror, err := openMirror(ctx, cfg.History)
	if err != nil {
		return fmt.Errorf("open history mirror: %w", err)
	}
	if mirror != nil {
		defer mirror.Close()
		opts = append(opts, engine.WithMirror(mirror))
	}

	gw := newGateway(cfg.Gateway, logger)
	eng := engine.New(gw, opts...)

	if mirror != nil && cfg.History.Restore {
		if err := restoreHistory(ctx, eng, logger); err != nil {
			return err
		}
	}

	sched, err := scheduler.New(cfg.Scheduler, eng, logger)
	if err != nil {
		return err
	}

	logger.Info("stockbot starting",
		"gateway", gw.String(),
		"armed", eng.Armed(),
		"journal", cfg.Journal.Type,
		"mode", cfg.Scheduler.Mode,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if hub != nil {
		srv := control.NewServer(eng, hub,
			control.WithSchedulerStats(sched.Stats),
			control.WithLogger(logger),
			control.WithToken(cfg.Control.Token),
		)
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Control.Addr)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	st := eng.Status()
	logger.Info("stockbot stopped",
		"ingests", st.Ingests,
		"decisions", st.Decisions,
		"brakes", st.Risk.Brakes,
	)
	return nil
}

func restoreHistory(ctx context.Context, eng *engine.Engine, logger *slog.Logger) error {
	n, err := eng.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore history: %w", err)
	}
	logger.Info("history restored", "instruments", n)
	return nil
}
