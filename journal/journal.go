package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeLive      Mode = "live"
)

type Status string

const (
	StatusSimulated Status = "simulated"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Intent is one order the engine decided on, whether or not it was sent.
type Intent struct {
	ID         string
	Time       time.Time
	Instrument string
	Qty        int
	Price      float64
	Notional   decimal.Decimal
	Vote       int
	Target     int
	Owned      int
	Mode       Mode
	Status     Status
	Reason     string
}

// EquitySnapshot is the account state seen by the drawdown governor.
type EquitySnapshot struct {
	Time     time.Time
	Balance  float64
	Peak     float64
	Drawdown float64
	State    string
}

type Journal interface {
	RecordIntent(ctx context.Context, in Intent) error
	RecordEquity(ctx context.Context, e EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordIntent(context.Context, Intent) error         { return nil }
func (Nop) RecordEquity(context.Context, EquitySnapshot) error { return nil }
func (Nop) Close() error                                       { return nil }

// Multi fans every record out to all journals. Errors are joined; a failing
// sink does not stop the others.
type Multi []Journal

func (m Multi) RecordIntent(ctx context.Context, in Intent) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordIntent(ctx, in))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordEquity(ctx, e))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
