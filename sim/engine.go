// Package sim is an in-memory exchange implementing broker.Gateway. Prices
// follow a sine wave per instrument with bounded random noise.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/stockbot/broker"
	"github.com/rustyeddy/stockbot/internal/id"
)

type InstrumentSpec struct {
	Name      string     `json:"name" yaml:"name"`
	Model     PriceModel `json:"model" yaml:"model"`
	Available int        `json:"available" yaml:"available"`
}

type Config struct {
	Balance     float64          `json:"balance" yaml:"balance"`
	Noise       float64          `json:"noise" yaml:"noise"` // max relative shock per step
	Seed        int64            `json:"seed" yaml:"seed"`
	Instruments []InstrumentSpec `json:"instruments" yaml:"instruments"`
}

func DefaultConfig() Config {
	return Config{
		Balance: 10000,
		Noise:   0.01,
		Seed:    1,
		Instruments: []InstrumentSpec{
			{Name: "ACME", Model: PriceModel{Core: 50, Amplitude: 8, Period: 12, Phase: 0}, Available: 5000},
			{Name: "BOLT", Model: PriceModel{Core: 12, Amplitude: 3, Period: 7, Phase: 3}, Available: 8000},
			{Name: "CRUX", Model: PriceModel{Core: 230, Amplitude: 20, Period: 25, Phase: 11}, Available: 1000},
		},
	}
}

// Fill is an executed order.
type Fill struct {
	ID         string
	Instrument string
	Qty        int
	Price      float64
	Time       time.Time
}

type Engine struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]int
	available map[string]int
	specs     []InstrumentSpec
	prices    *PriceStore
	noise     float64
	rng       *rand.Rand
	step      int
	fills     []Fill
	now       func() time.Time
}

var _ broker.Gateway = (*Engine)(nil)

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cash:      cfg.Balance,
		positions: make(map[string]int),
		available: make(map[string]int),
		specs:     append([]InstrumentSpec(nil), cfg.Instruments...),
		prices:    NewPriceStore(),
		noise:     cfg.Noise,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		now:       time.Now,
	}
	for _, s := range e.specs {
		e.available[s.Name] = s.Available
		e.prices.Set(s.Name, s.Model.At(0, 0))
	}
	return e
}

func (e *Engine) Prices() *PriceStore { return e.prices }

// Step advances every instrument's price by one step.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.step++
	for _, s := range e.specs {
		shock := 0.0
		if e.noise > 0 {
			shock = (e.rng.Float64()*2 - 1) * e.noise
		}
		e.prices.Set(s.Name, s.Model.At(e.step, shock))
	}
}

// StepCount is the number of steps taken so far.
func (e *Engine) StepCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

func (e *Engine) ListInstruments(ctx context.Context) ([]broker.Instrument, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Instrument, 0, len(e.specs))
	for _, s := range e.specs {
		p, _ := e.prices.Get(s.Name)
		out = append(out, broker.Instrument{
			Name:      s.Name,
			Price:     p,
			Available: e.available[s.Name],
		})
	}
	return out, nil
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := make(map[string]int, len(e.positions))
	for k, v := range e.positions {
		if v != 0 {
			pos[k] = v
		}
	}
	return broker.Account{Balance: e.cash, Positions: pos}, nil
}

// SubmitOrder fills at the current price or rejects the way the backend
// does: unknown instrument, insufficient funds, not enough shares.
func (e *Engine) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if err := broker.ValidateOrder(req); err != nil {
		return broker.OrderResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.prices.Get(req.Instrument)
	if err != nil {
		return broker.OrderResult{}, reject(req.Instrument, "unknown stock")
	}

	if req.Qty > 0 {
		cost := float64(req.Qty) * price
		if req.Qty > e.available[req.Instrument] {
			return broker.OrderResult{}, reject(req.Instrument,
				fmt.Sprintf("only %d shares available", e.available[req.Instrument]))
		}
		if cost > e.cash {
			return broker.OrderResult{}, reject(req.Instrument, "insufficient funds")
		}
		e.cash -= cost
	} else {
		owned := e.positions[req.Instrument]
		if -req.Qty > owned {
			return broker.OrderResult{}, reject(req.Instrument,
				fmt.Sprintf("only %d shares owned", owned))
		}
		e.cash += float64(-req.Qty) * price
	}

	e.positions[req.Instrument] += req.Qty
	e.available[req.Instrument] -= req.Qty
	e.fills = append(e.fills, Fill{
		ID:         id.New(),
		Instrument: req.Instrument,
		Qty:        req.Qty,
		Price:      price,
		Time:       e.now(),
	})

	return broker.OrderResult{Instrument: req.Instrument, Qty: req.Qty, Accepted: true}, nil
}

func reject(instrument, reason string) error {
	return &broker.GatewayError{
		Op:         "submit",
		Instrument: instrument,
		Status:     422,
		Reason:     reason,
		Err:        broker.ErrRejected,
	}
}

// Fills returns every executed order, oldest first.
func (e *Engine) Fills() []Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Fill(nil), e.fills...)
}

// Equity is cash plus the market value of all positions.
func (e *Engine) Equity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	eq := e.cash
	names := make([]string, 0, len(e.positions))
	for name := range e.positions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := e.prices.Get(name)
		if err != nil {
			continue
		}
		eq += float64(e.positions[name]) * p
	}
	return eq
}
