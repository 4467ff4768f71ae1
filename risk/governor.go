package risk

import (
	"sync"
	"sync/atomic"
	"time"
)

// BrakeState is the drawdown brake state of the last decision tick.
type BrakeState string

const (
	Normal BrakeState = "NORMAL"
	Braked BrakeState = "BRAKED"
)

// Gate is the governor's verdict for one decision tick.
type Gate int

const (
	// Proceed means orders may be computed this tick.
	Proceed Gate = iota
	// NoBalance means the account has not loaded yet. Nothing changed.
	NoBalance
	// BrakeTripped means the drawdown brake fired, the peak was reset and
	// this tick trades nothing.
	BrakeTripped
)

func (g Gate) String() string {
	switch g {
	case Proceed:
		return "proceed"
	case NoBalance:
		return "no-balance"
	case BrakeTripped:
		return "brake"
	}
	return "unknown"
}

// Governor tracks peak balance for the drawdown brake, whether orders are
// really sent, and when skipped sells were last reported.
type Governor struct {
	policy Policy
	armed  atomic.Bool

	mu          sync.Mutex
	peak        float64
	hasPeak     bool
	state       BrakeState
	brakes      int
	lastBrake   time.Time
	lastBalance float64
	skipCache   map[string]time.Time
}

// NewGovernor returns an unarmed governor.
func NewGovernor(p Policy) *Governor {
	return &Governor{
		policy:    p,
		state:     Normal,
		skipCache: make(map[string]time.Time),
	}
}

func (g *Governor) Policy() Policy { return g.policy }

// Observe runs the brake state machine for a freshly loaded balance.
func (g *Governor) Observe(balance float64, now time.Time) Gate {
	if balance == 0 {
		return NoBalance
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastBalance = balance
	if !g.hasPeak {
		g.peak = balance
		g.hasPeak = true
	}

	if balance < g.peak*(1-g.policy.MaxDrawdown) {
		g.peak = balance
		g.state = Braked
		g.brakes++
		g.lastBrake = now
		return BrakeTripped
	}

	g.state = Normal
	if balance > g.peak {
		g.peak = balance
	}
	return Proceed
}

// ResetBrake sets the peak to the last observed balance. It reports false
// when no balance has been observed yet.
func (g *Governor) ResetBrake() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastBalance == 0 {
		return false
	}
	g.peak = g.lastBalance
	g.hasPeak = true
	g.state = Normal
	return true
}

// ShouldWarnSkip reports whether a skipped order for instrument should be
// logged now, and if so remembers the time.
func (g *Governor) ShouldWarnSkip(instrument string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.skipCache[instrument]
	if ok && now.Sub(last) <= g.policy.SkipWarnInterval {
		return false
	}
	g.skipCache[instrument] = now
	return true
}

func (g *Governor) Arm() { g.armed.Store(true) }
func (g *Governor) Disarm() { g.armed.Store(false) }
func (g *Governor) Armed() bool { return g.armed.Load() }

// Status is a point-in-time copy of the governor's state.
type Status struct {
	Armed       bool       `json:"armed"`
	State       BrakeState `json:"state"`
	Peak        float64    `json:"peak"`
	Balance     float64    `json:"balance"`
	Drawdown    float64    `json:"drawdown"`
	Brakes      int        `json:"brakes"`
	LastBrakeAt time.Time  `json:"last_brake_at,omitempty"`
}

func (g *Governor) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := Status{
		Armed:       g.armed.Load(),
		State:       g.state,
		Peak:        g.peak,
		Balance:     g.lastBalance,
		Brakes:      g.brakes,
		LastBrakeAt: g.lastBrake,
	}
	if g.peak > 0 {
		st.Drawdown = 1 - g.lastBalance/g.peak
	}
	return st
}
