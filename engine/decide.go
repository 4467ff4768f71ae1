package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/stockbot/broker"
	"github.com/rustyeddy/stockbot/internal/id"
	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/risk"
)

// Decide runs one decision tick: refresh account and quotes, run the
// drawdown brake, then size and gate an order for every instrument.
// Account or quote failures abort the tick and are returned. Failures for a
// single instrument are logged and journaled only.
func (e *Engine) Decide(ctx context.Context) error {
	if !e.decideMu.TryLock() {
		return ErrTickInFlight
	}
	defer e.decideMu.Unlock()

	seq := e.next(&e.decideIssued)

	acct, err := e.gw.GetAccount(ctx)
	if err != nil {
		if refreshAborted(err) {
			return nil
		}
		return fmt.Errorf("decide: account: %w", err)
	}
	quotes, err := e.gw.ListInstruments(ctx)
	if err != nil {
		if refreshAborted(err) {
			return nil
		}
		return fmt.Errorf("decide: quotes: %w", err)
	}
	if !e.claim(&e.decideApplied, seq) {
		e.logger.Debug("discarding stale account", "seq", seq)
		return nil
	}

	now := e.now()
	e.decisions.Add(1)
	e.lastDecision.Store(now.UnixNano())

	switch e.governor.Observe(acct.Balance, now) {
	case risk.NoBalance:
		e.logger.Debug("account not loaded, skipping tick")
		return nil
	case risk.BrakeTripped:
		st := e.governor.Status()
		e.recordEquity(ctx, now, st)
		e.logger.Warn("drawdown brake tripped, skipping tick",
			"balance", acct.Balance,
			"peak", st.Peak,
		)
		e.emit(Event{Type: EventBrake, Time: now, Balance: acct.Balance})
		return nil
	}
	e.recordEquity(ctx, now, e.governor.Status())

	book := newLedger(acct)
	for _, q := range quotes {
		if q.Name == broker.NoSelection {
			continue
		}
		e.decideInstrument(ctx, now, q, book)
	}
	return nil
}

// ledger is the tick's working copy of the account. Accepted orders are
// applied to it so later instruments see the spent cash.
type ledger struct {
	balance   float64
	positions map[string]int
}

func newLedger(a broker.Account) *ledger {
	l := &ledger{balance: a.Balance, positions: make(map[string]int, len(a.Positions))}
	for k, v := range a.Positions {
		l.positions[k] = v
	}
	return l
}

func (l *ledger) fill(instrument string, qty int, price float64) {
	l.positions[instrument] += qty
	l.balance -= float64(qty) * price
}

func (e *Engine) decideInstrument(ctx context.Context, now time.Time, q broker.Instrument, book *ledger) {
	name := q.Name

	e.stateMu.Lock()
	st, ok := e.book.Lookup(name)
	if !ok {
		e.stateMu.Unlock()
		return
	}
	vote := st.Vote()
	weights := st.Weights()
	returns := st.Returns()
	e.stateMu.Unlock()

	e.emit(Event{Type: EventVote, Time: now, Instrument: name, Vote: vote})
	if vote == 0 || q.Price <= 0 {
		return
	}

	kelly := risk.Calculate(e.policy, risk.Inputs{
		Returns: returns,
		Weights: weights,
		Balance: book.balance,
		Price:   q.Price,
	})
	owned := book.positions[name]
	target := risk.Target(kelly.Shares, vote)

	delta, d := risk.CheckDelta(target, owned)
	if !d.Allowed {
		return
	}
	qty := risk.ClipOrder(e.policy, delta, e.rng.Float64())
	price := q.Price

	intent := journal.Intent{
		ID:         id.At(now),
		Time:       now,
		Instrument: name,
		Vote:       vote,
		Target:     target,
		Owned:      owned,
	}

	if qty < 0 {
		if d := risk.CheckSell(-qty, owned); !d.Allowed {
			intent.Qty = qty
			intent.Price = price
			e.skip(ctx, intent, d)
			return
		}
	} else {
		// buys are priced from a fresh quote
		live, err := e.gw.ListInstruments(ctx)
		if err != nil {
			e.logger.Warn("price refresh failed", "instrument", name, "err", err)
			return
		}
		if inst, ok := broker.Find(live, name); ok {
			price = inst.Price
		} else {
			price = 0
		}
		capped, d := risk.CapBuy(e.policy, qty, book.balance, price)
		if !d.Allowed {
			intent.Qty = qty
			intent.Price = price
			e.skip(ctx, intent, d)
			return
		}
		qty = capped
	}

	if qty > 0 {
		qty = risk.CapOrder(e.policy, qty)
	} else {
		qty = -risk.CapOrder(e.policy, -qty)
	}

	intent.Qty = qty
	intent.Price = price
	intent.Notional = risk.Notional(abs(qty), price)

	if !e.governor.Armed() {
		intent.Mode = journal.ModeSimulated
		intent.Status = journal.StatusSimulated
		e.logger.Info("simulated order",
			"instrument", name,
			"qty", qty,
			"price", price,
			"vote", vote,
			"target", target,
			"owned", owned,
		)
		e.record(ctx, intent)
		e.emit(Event{Type: EventIntent, Time: now, Instrument: name, Qty: qty, Price: price, Vote: vote, Status: string(intent.Status)})
		return
	}

	intent.Mode = journal.ModeLive
	_, err := e.gw.SubmitOrder(ctx, broker.OrderRequest{Instrument: name, Qty: qty})
	switch {
	case err == nil:
		intent.Status = journal.StatusAccepted
		book.fill(name, qty, price)
		e.logger.Info("order accepted",
			"instrument", name,
			"qty", qty,
			"price", price,
			"vote", vote,
		)
	case errors.Is(err, broker.ErrRejected):
		intent.Status = journal.StatusRejected
		intent.Reason = reason(err)
		e.logger.Warn("order rejected", "instrument", name, "qty", qty, "err", err)
	default:
		intent.Status = journal.StatusFailed
		intent.Reason = reason(err)
		e.logger.Error("order failed", "instrument", name, "qty", qty, "err", err)
	}
	e.record(ctx, intent)
	e.emit(Event{
		Type:       EventOrder,
		Time:       now,
		Instrument: name,
		Qty:        qty,
		Price:      price,
		Vote:       vote,
		Status:     string(intent.Status),
		Reason:     intent.Reason,
	})
}

// skip reports a policy-dropped order, at most once per instrument per
// SkipWarnInterval.
func (e *Engine) skip(ctx context.Context, intent journal.Intent, d risk.Decision) {
	if !e.governor.ShouldWarnSkip(intent.Instrument, intent.Time) {
		return
	}
	intent.Mode = journal.ModeSimulated
	if e.governor.Armed() {
		intent.Mode = journal.ModeLive
	}
	intent.Status = journal.StatusSkipped
	intent.Reason = d.Code() + ": " + d.Reason()
	intent.Notional = risk.Notional(abs(intent.Qty), intent.Price)

	e.logger.Warn("order skipped",
		"instrument", intent.Instrument,
		"qty", intent.Qty,
		"owned", intent.Owned,
		"code", d.Code(),
		"reason", d.Reason(),
	)
	e.record(ctx, intent)
	e.emit(Event{
		Type:       EventSkip,
		Time:       intent.Time,
		Instrument: intent.Instrument,
		Qty:        intent.Qty,
		Status:     d.Code(),
		Reason:     d.Reason(),
	})
}

func (e *Engine) record(ctx context.Context, in journal.Intent) {
	if err := e.journal.RecordIntent(ctx, in); err != nil {
		e.logger.Error("journal intent failed", "instrument", in.Instrument, "err", err)
	}
}

func (e *Engine) recordEquity(ctx context.Context, now time.Time, st risk.Status) {
	err := e.journal.RecordEquity(ctx, journal.EquitySnapshot{
		Time:     now,
		Balance:  st.Balance,
		Peak:     st.Peak,
		Drawdown: st.Drawdown,
		State:    string(st.State),
	})
	if err != nil {
		e.logger.Error("journal equity failed", "err", err)
	}
}

func reason(err error) string {
	var ge *broker.GatewayError
	if errors.As(err, &ge) && ge.Reason != "" {
		return ge.Reason
	}
	return err.Error()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
