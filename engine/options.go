package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/market"
	"github.com/rustyeddy/stockbot/risk"
)

// Mirror persists price history outside the process. market.RedisMirror
// implements it.
type Mirror interface {
	Append(ctx context.Context, instrument string, p market.PricePoint) error
	Load(ctx context.Context, instrument string) ([]market.PricePoint, error)
	Instruments(ctx context.Context) ([]string, error)
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRand sets the source of the randomized order clip.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

func WithJournal(j journal.Journal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMirror(m Mirror) Option {
	return func(e *Engine) { e.mirror = m }
}

func WithPolicy(p risk.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithWarmup sets how many history points an instrument needs before its
// strategies are fed.
func WithWarmup(n int) Option {
	return func(e *Engine) { e.warmup = n }
}

// WithPeriod sets the ingest period used to bucket price timestamps.
func WithPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.period = d
		}
	}
}

// WithListener registers a callback for engine events.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// WithArmed starts the engine armed.
func WithArmed(armed bool) Option {
	return func(e *Engine) { e.startArmed = armed }
}
