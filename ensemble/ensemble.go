// Package ensemble weights the strategy set of each instrument by trailing
// Sharpe ratio and combines their signals into a single vote.
package ensemble

import (
	"math"

	"github.com/rustyeddy/stockbot/indicators"
	"github.com/rustyeddy/stockbot/strategies"
)

// WeightFloor is the smallest positive Sharpe total that is normalised.
// At or below it the weights fall back to a uniform split.
const WeightFloor = 1e-8

// State is the ensemble of one instrument.
type State struct {
	set      []strategies.Strategy
	sharpe   []float64
	weights  []float64
	lastVote int
	halfLife float64
	updates  int
}

// NewState creates an ensemble over a fresh strategy set with uniform weights.
func NewState() *State {
	set := strategies.NewSet()
	s := &State{
		set:      set,
		sharpe:   make([]float64, len(set)),
		weights:  make([]float64, len(set)),
		halfLife: indicators.DefaultHalfLife,
	}
	s.uniform()
	return s
}

// Update feeds prices to every strategy, refreshes the Sharpe of each one
// that produced a sample and reweights.
func (s *State) Update(prices []float64) {
	for i, strat := range s.set {
		if _, ok := strat.Update(prices); ok {
			s.sharpe[i] = indicators.RollingSharpe(strat.Returns(), s.halfLife)
		}
	}
	s.updates++
	s.Reweight()
}

// Reweight sets each weight to max(sharpe, 0) / sum(max(sharpe, 0)).
func (s *State) Reweight() {
	total := 0.0
	for _, sh := range s.sharpe {
		total += math.Max(sh, 0)
	}
	if total <= WeightFloor || math.IsNaN(total) || math.IsInf(total, 0) {
		s.uniform()
		return
	}
	for i, sh := range s.sharpe {
		s.weights[i] = math.Max(sh, 0) / total
	}
}

func (s *State) uniform() {
	w := 1 / float64(len(s.weights))
	for i := range s.weights {
		s.weights[i] = w
	}
}

// Vote combines the weighted signals into -1, 0 or +1 and remembers it.
func (s *State) Vote() int {
	sum := 0.0
	for i, strat := range s.set {
		sum += s.weights[i] * float64(strat.Signal())
	}
	switch {
	case sum > 0:
		s.lastVote = 1
	case sum < 0:
		s.lastVote = -1
	default:
		s.lastVote = 0
	}
	return s.lastVote
}

func (s *State) LastVote() int { return s.lastVote }

// Updates counts how many times the strategies were fed.
func (s *State) Updates() int { return s.updates }

func (s *State) Weights() []float64 {
	out := make([]float64, len(s.weights))
	copy(out, s.weights)
	return out
}

func (s *State) Sharpes() []float64 {
	out := make([]float64, len(s.sharpe))
	copy(out, s.sharpe)
	return out
}

func (s *State) Signals() []int {
	out := make([]int, len(s.set))
	for i, strat := range s.set {
		out[i] = strat.Signal()
	}
	return out
}

// Returns is each strategy's return buffer, aligned with Weights.
func (s *State) Returns() [][]float64 {
	out := make([][]float64, len(s.set))
	for i, strat := range s.set {
		out[i] = strat.Returns()
	}
	return out
}

// Snapshot describes a State for status reporting.
type Snapshot struct {
	Instrument string             `json:"instrument"`
	LastVote   int                `json:"last_vote"`
	Updates    int                `json:"updates"`
	Weights    map[string]float64 `json:"weights"`
	Sharpe     map[string]float64 `json:"sharpe"`
	Signals    map[string]int     `json:"signals"`
}

func (s *State) Snapshot(instrument string) Snapshot {
	snap := Snapshot{
		Instrument: instrument,
		LastVote:   s.lastVote,
		Updates:    s.updates,
		Weights:    make(map[string]float64, len(s.set)),
		Sharpe:     make(map[string]float64, len(s.set)),
		Signals:    make(map[string]int, len(s.set)),
	}
	for i, strat := range s.set {
		name := strat.Kind().String()
		snap.Weights[name] = s.weights[i]
		snap.Sharpe[name] = s.sharpe[i]
		snap.Signals[name] = strat.Signal()
	}
	return snap
}
