// Package scheduler drives the engine's ingest and decide actions on fixed
// periods. Each action is single-flight: a tick that fires while the previous
// run is still in flight is skipped and counted, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/stockbot/engine"
)

type Mode string

const (
	// Decoupled runs ingest and decide as two tasks with their own periods.
	Decoupled Mode = "decoupled"
	// Coupled runs ingest then decide in one task on the ingest period.
	Coupled Mode = "coupled"
)

// Runner is the work being scheduled. *engine.Engine implements it.
type Runner interface {
	Ingest(ctx context.Context) error
	Decide(ctx context.Context) error
}

type Config struct {
	Mode           Mode          `json:"mode" yaml:"mode"`
	IngestInterval time.Duration `json:"ingest_interval" yaml:"ingest_interval"`
	DecideInterval time.Duration `json:"decide_interval" yaml:"decide_interval"`
	TickTimeout    time.Duration `json:"tick_timeout" yaml:"tick_timeout"` // 0 means no per-tick deadline
}

func DefaultConfig() Config {
	return Config{
		Mode:           Decoupled,
		IngestInterval: 500 * time.Millisecond,
		DecideInterval: 500 * time.Millisecond,
		TickTimeout:    10 * time.Second,
	}
}

type Scheduler struct {
	cfg    Config
	tasks  []*Task
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the tasks for cfg.Mode.
func New(cfg Config, r Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IngestInterval <= 0 {
		return nil, fmt.Errorf("ingest interval must be positive, got %s", cfg.IngestInterval)
	}

	s := &Scheduler{cfg: cfg, logger: logger}
	switch cfg.Mode {
	case Decoupled, "":
		if cfg.DecideInterval <= 0 {
			return nil, fmt.Errorf("decide interval must be positive, got %s", cfg.DecideInterval)
		}
		s.tasks = []*Task{
			NewTask("ingest", cfg.IngestInterval, cfg.TickTimeout, r.Ingest, logger),
			NewTask("decide", cfg.DecideInterval, cfg.TickTimeout, r.Decide, logger),
		}
	case Coupled:
		s.tasks = []*Task{
			NewTask("tick", cfg.IngestInterval, cfg.TickTimeout, func(ctx context.Context) error {
				// decide fetches its own account and quotes, so it still runs
				// when ingest fails
				return errors.Join(r.Ingest(ctx), r.Decide(ctx))
			}, logger),
		}
	default:
		return nil, fmt.Errorf("unknown scheduler mode %q", cfg.Mode)
	}
	return s, nil
}

func (s *Scheduler) Tasks() []*Task { return s.tasks }

// Start launches every task. The first run of each happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.tasks {
		s.wg.Add(1)
		go func(t *Task) {
			defer s.wg.Done()
			t.loop(s.ctx)
		}(t)
	}
	s.logger.Info("scheduler started",
		"mode", s.cfg.Mode,
		"ingest_interval", s.cfg.IngestInterval,
		"decide_interval", s.cfg.DecideInterval,
	)
	return nil
}

// Stop cancels the tasks and waits for in-flight runs to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// Stats reports every task's counters.
func (s *Scheduler) Stats() []Stats {
	out := make([]Stats, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Stats())
	}
	return out
}

// isSkip reports errors that mean the work was already running elsewhere.
func isSkip(err error) bool {
	return errors.Is(err, engine.ErrTickInFlight)
}
