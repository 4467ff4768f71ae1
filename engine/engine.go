// Package engine runs the trading bot: it ingests quotes into the price
// history, feeds the strategy ensembles, and turns votes into orders under
// the risk governor.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/stockbot/broker"
	"github.com/rustyeddy/stockbot/ensemble"
	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/market"
	"github.com/rustyeddy/stockbot/risk"
)

// ErrTickInFlight is returned when a tick of the same action is still running.
var ErrTickInFlight = errors.New("tick already in flight")

const DefaultPeriod = 500 * time.Millisecond

type Engine struct {
	gw      broker.Gateway
	now     func() time.Time
	rng     *rand.Rand
	journal journal.Journal
	logger  *slog.Logger
	mirror  Mirror
	policy  risk.Policy
	warmup  int
	period  time.Duration

	startArmed bool
	governor   *risk.Governor

	// stateMu guards history writes and the ensemble book as one unit so a
	// decision never sees a half-applied ingest.
	stateMu sync.Mutex
	history *market.Store
	book    *ensemble.Book

	ingestMu sync.Mutex
	decideMu sync.Mutex

	seqMu         sync.Mutex
	ingestIssued  uint64
	ingestApplied uint64
	decideIssued  uint64
	decideApplied uint64

	listenMu  sync.RWMutex
	listeners []Listener

	ingests      atomic.Int64
	decisions    atomic.Int64
	stale        atomic.Int64
	lastIngest   atomic.Int64
	lastDecision atomic.Int64
}

// New builds an engine around a gateway. It starts disarmed unless
// WithArmed(true) is given.
func New(gw broker.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gw:      gw,
		now:     time.Now,
		journal: journal.Nop{},
		logger:  slog.Default(),
		policy:  risk.DefaultPolicy(),
		warmup:  ensemble.DefaultWarmup,
		period:  DefaultPeriod,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.now().UnixNano()))
	}

	e.history = market.NewStore(e.period)
	e.book = ensemble.NewBook(e.warmup)
	e.governor = risk.NewGovernor(e.policy)
	if e.startArmed {
		e.governor.Arm()
	}
	return e
}

// Arm lets computed orders reach the gateway.
func (e *Engine) Arm() {
	e.governor.Arm()
	e.logger.Warn("engine armed, orders will be submitted")
	e.emit(Event{Type: EventArm, Armed: true})
}

// Disarm turns orders back into simulated intents.
func (e *Engine) Disarm() {
	e.governor.Disarm()
	e.logger.Info("engine disarmed")
	e.emit(Event{Type: EventArm, Armed: false})
}

func (e *Engine) Armed() bool { return e.governor.Armed() }

// ResetDrawdownBrake sets the peak balance to the last observed balance.
func (e *Engine) ResetDrawdownBrake() error {
	if !e.governor.ResetBrake() {
		return errors.New("no balance observed yet")
	}
	st := e.governor.Status()
	e.logger.Info("drawdown brake reset", "peak", st.Peak)
	return nil
}

func (e *Engine) Policy() risk.Policy { return e.policy }

// Prices returns a copy of the instrument's price history.
func (e *Engine) Prices(instrument string) []float64 {
	return e.history.Prices(instrument)
}

// Vote returns the instrument's last ensemble vote.
func (e *Engine) Vote(instrument string) (int, bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	st, ok := e.book.Lookup(instrument)
	if !ok {
		return 0, false
	}
	return st.LastVote(), true
}

// Status is a point-in-time view of the engine for operators.
type Status struct {
	Armed        bool                `json:"armed"`
	Risk         risk.Status         `json:"risk"`
	Warmup       int                 `json:"warmup"`
	Ingests      int64               `json:"ingests"`
	Decisions    int64               `json:"decisions"`
	Stale        int64               `json:"stale_discarded"`
	LastIngest   time.Time           `json:"last_ingest,omitempty"`
	LastDecision time.Time           `json:"last_decision,omitempty"`
	History      map[string]int      `json:"history"`
	Ensembles    []ensemble.Snapshot `json:"ensembles"`
}

func (e *Engine) Status() Status {
	e.stateMu.Lock()
	hist := make(map[string]int)
	for _, name := range e.history.Instruments() {
		hist[name] = e.history.Len(name)
	}
	snaps := e.book.Snapshots()
	e.stateMu.Unlock()

	return Status{
		Armed:        e.governor.Armed(),
		Risk:         e.governor.Status(),
		Warmup:       e.book.Warmup(),
		Ingests:      e.ingests.Load(),
		Decisions:    e.decisions.Load(),
		Stale:        e.stale.Load(),
		LastIngest:   unixNano(e.lastIngest.Load()),
		LastDecision: unixNano(e.lastDecision.Load()),
		History:      hist,
		Ensembles:    snaps,
	}
}

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Restore reloads price history from the mirror and replays it through the
// strategies, so the ensembles resume where they left off.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.mirror == nil {
		return 0, nil
	}
	names, err := e.mirror.Instruments(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: list instruments: %w", err)
	}

	restored := 0
	for _, name := range names {
		points, err := e.mirror.Load(ctx, name)
		if err != nil {
			return restored, fmt.Errorf("restore %s: %w", name, err)
		}
		if len(points) == 0 {
			continue
		}

		e.stateMu.Lock()
		e.history.Restore(name, points)
		prices := e.history.Prices(name)
		for n := 1; n <= len(prices); n++ {
			e.book.Observe(name, prices[:n])
		}
		e.stateMu.Unlock()

		restored++
		e.logger.Info("history restored", "instrument", name, "points", len(prices))
	}
	return restored, nil
}

// next issues a sequence number for a tick.
func (e *Engine) next(issued *uint64) uint64 {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	*issued++
	return *issued
}

// claim reports whether results of tick seq may be applied: no later tick of
// the same action has applied its own results yet.
func (e *Engine) claim(applied *uint64, seq uint64) bool {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	if seq <= *applied {
		e.stale.Add(1)
		return false
	}
	*applied = seq
	return true
}

// refreshAborted reports whether a failed refresh should end the tick
// quietly. A 304 means there is nothing new to act on.
func refreshAborted(err error) bool {
	return errors.Is(err, broker.ErrNotModified)
}
