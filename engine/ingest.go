package engine

import (
	"context"
	"fmt"

	"github.com/rustyeddy/stockbot/broker"
	"github.com/rustyeddy/stockbot/market"
)

// Ingest fetches the current quotes, appends one point per instrument to the
// history and feeds the ensembles of instruments past warmup.
func (e *Engine) Ingest(ctx context.Context) error {
	if !e.ingestMu.TryLock() {
		return ErrTickInFlight
	}
	defer e.ingestMu.Unlock()

	seq := e.next(&e.ingestIssued)
	list, err := e.gw.ListInstruments(ctx)
	if err != nil {
		if refreshAborted(err) {
			e.logger.Debug("quotes not modified")
			return nil
		}
		return fmt.Errorf("ingest: %w", err)
	}
	if !e.claim(&e.ingestApplied, seq) {
		e.logger.Debug("discarding stale quotes", "seq", seq)
		return nil
	}

	now := e.now()
	recorded := make(map[string]market.PricePoint, len(list))

	e.stateMu.Lock()
	for _, inst := range list {
		if inst.Name == broker.NoSelection || inst.Price <= 0 {
			continue
		}
		recorded[inst.Name] = e.history.Record(inst.Name, inst.Price, now)
		e.book.Observe(inst.Name, e.history.Prices(inst.Name))
	}
	e.stateMu.Unlock()

	if e.mirror != nil {
		for name, p := range recorded {
			if err := e.mirror.Append(ctx, name, p); err != nil {
				e.logger.Warn("history mirror append failed", "instrument", name, "err", err)
			}
		}
	}

	e.ingests.Add(1)
	e.lastIngest.Store(now.UnixNano())
	e.emit(Event{Type: EventIngest, Time: now, Count: len(recorded)})
	return nil
}
