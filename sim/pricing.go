package sim

import (
	"errors"
	"math"
	"sync"
)

// PriceModel is a sine wave around a core value:
// core + amplitude*sin((step+phase)/period), rounded to cents.
type PriceModel struct {
	Core      float64 `json:"core" yaml:"core"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Period    float64 `json:"period" yaml:"period"`
	Phase     float64 `json:"phase" yaml:"phase"`
}

// MinPrice is the lowest price the simulator quotes.
const MinPrice = 0.01

// At returns the model price at step, with a relative shock applied.
func (m PriceModel) At(step int, shock float64) float64 {
	period := m.Period
	if period == 0 {
		period = 1
	}
	p := m.Core + m.Amplitude*math.Sin((float64(step)+m.Phase)/period)
	p *= 1 + shock
	p = math.Round(100*p) / 100
	return math.Max(p, MinPrice)
}

var errPriceNotFound = errors.New("price not found")

// PriceStore holds the current quote of every instrument.
type PriceStore struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewPriceStore() *PriceStore {
	return &PriceStore{prices: make(map[string]float64)}
}

func (ps *PriceStore) Set(instrument string, price float64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.prices[instrument] = price
}

func (ps *PriceStore) Get(instrument string) (float64, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.prices[instrument]
	if !ok {
		return 0, errPriceNotFound
	}
	return p, nil
}
