package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Func func(ctx context.Context) error

// Task runs fn every interval, never more than one run at a time.
type Task struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       Func
	logger   *slog.Logger

	running  atomic.Bool
	wg       sync.WaitGroup
	runs     atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	lastRun time.Time
	lastErr string
}

func NewTask(name string, interval, timeout time.Duration, fn Func, logger *slog.Logger) *Task {
	if logger == nil {
		logger = slog.Default()
	}
	return &Task{
		name:     name,
		interval: interval,
		timeout:  timeout,
		fn:       fn,
		logger:   logger.With("task", name),
	}
}

func (t *Task) Name() string { return t.name }

// Fire starts a run in the background unless one is in flight. It reports
// whether a run was started.
func (t *Task) Fire(ctx context.Context) bool {
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		t.logger.Debug("previous run still in flight, skipping")
		return false
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.running.Store(false)
		t.run(ctx)
	}()
	return true
}

// Wait blocks until the in-flight run, if any, returns.
func (t *Task) Wait() { t.wg.Wait() }

func (t *Task) run(ctx context.Context) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	err := t.fn(ctx)

	t.mu.Lock()
	t.lastRun = start
	t.mu.Unlock()

	switch {
	case err == nil:
		t.runs.Add(1)
	case isSkip(err):
		t.skipped.Add(1)
	default:
		t.runs.Add(1)
		t.failures.Add(1)
		t.mu.Lock()
		t.lastErr = err.Error()
		t.mu.Unlock()
		t.logger.Warn("run failed", "err", err, "elapsed", time.Since(start))
	}
}

func (t *Task) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.Wait()

	t.Fire(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Fire(ctx)
		}
	}
}

type Stats struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     int64         `json:"runs"`
	Skipped  int64         `json:"skipped"`
	Failures int64         `json:"failures"`
	LastRun  time.Time     `json:"last_run"`
	LastErr  string        `json:"last_error,omitempty"`
}

func (t *Task) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Name:     t.name,
		Interval: t.interval,
		Runs:     t.runs.Load(),
		Skipped:  t.skipped.Load(),
		Failures: t.failures.Load(),
		LastRun:  t.lastRun,
		LastErr:  t.lastErr,
	}
}
