package broker

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// NoSelection is the instrument name the dashboard uses for "nothing
// selected". It is never traded.
const NoSelection = "-"

// MaxInstrumentName is the longest instrument name the backend accepts.
const MaxInstrumentName = 50

// Gateway is the quote and account API the bot trades against.
type Gateway interface {
	ListInstruments(ctx context.Context) ([]Instrument, error)
	GetAccount(ctx context.Context) (Account, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

type Instrument struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available int     `json:"available"`
}

// Account is a read model of the backend ledger, replaced wholesale on
// every refresh.
type Account struct {
	Balance   float64        `json:"balance"`
	Positions map[string]int `json:"positions"`
}

// Owned returns the quantity held of instrument.
func (a Account) Owned(instrument string) int {
	return a.Positions[instrument]
}

// OrderRequest buys when Qty is positive and sells when it is negative.
type OrderRequest struct {
	Instrument string `json:"instrument"`
	Qty        int    `json:"qty"`
}

type OrderResult struct {
	Instrument string `json:"instrument"`
	Qty        int    `json:"qty"`
	Accepted   bool   `json:"accepted"`
}

// Gateway error classes. Every GatewayError wraps exactly one of them.
var (
	ErrNetwork     = errors.New("network failure")
	ErrRejected    = errors.New("order rejected")
	ErrServerFault = errors.New("server fault")
	ErrNotModified = errors.New("no new data")
)

type GatewayError struct {
	Op         string
	Instrument string
	Status     int
	Reason     string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Op
	if e.Instrument != "" {
		msg += " " + e.Instrument
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	msg += ": " + e.Err.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ValidateOrder applies the backend's own order rules locally so obviously
// bad orders never reach the wire.
func ValidateOrder(req OrderRequest) error {
	n := utf8.RuneCountInString(req.Instrument)
	switch {
	case n == 0:
		return &GatewayError{Op: "submit", Err: ErrRejected, Reason: "instrument name is empty"}
	case req.Instrument == NoSelection:
		return &GatewayError{Op: "submit", Instrument: req.Instrument, Err: ErrRejected, Reason: "no instrument selected"}
	case n > MaxInstrumentName:
		return &GatewayError{Op: "submit", Instrument: req.Instrument, Err: ErrRejected,
			Reason: fmt.Sprintf("instrument name longer than %d characters", MaxInstrumentName)}
	case req.Qty == 0:
		return &GatewayError{Op: "submit", Instrument: req.Instrument, Err: ErrRejected, Reason: "quantity must be non-zero"}
	}
	return nil
}

// Find returns the instrument called name.
func Find(list []Instrument, name string) (Instrument, bool) {
	for _, in := range list {
		if in.Name == name {
			return in, true
		}
	}
	return Instrument{}, false
}
