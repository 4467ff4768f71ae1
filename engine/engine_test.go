package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/stockbot/broker"
	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/market"
	"github.com/rustyeddy/stockbot/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	names     []string
	prices    map[string]float64
	balance   float64
	positions map[string]int
	submitted []broker.OrderRequest

	listErr    error
	listCalls  int
	onList     func(call int) // runs under the lock
	accountErr error
	submitErr  error

	// when set, GetAccount signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeGateway(balance float64, names ...string) *fakeGateway {
	g := &fakeGateway{
		names:     append([]string{broker.NoSelection}, names...),
		prices:    map[string]float64{broker.NoSelection: 0},
		balance:   balance,
		positions: map[string]int{},
	}
	for _, n := range names {
		g.prices[n] = 1
	}
	return g
}

func (g *fakeGateway) setPrice(name string, p float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[name] = p
}

func (g *fakeGateway) ListInstruments(ctx context.Context) ([]broker.Instrument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	g.listCalls++
	if g.onList != nil {
		g.onList(g.listCalls)
	}
	out := make([]broker.Instrument, 0, len(g.names))
	for _, n := range g.names {
		out = append(out, broker.Instrument{Name: n, Price: g.prices[n], Available: 1000000})
	}
	return out, nil
}

func (g *fakeGateway) GetAccount(ctx context.Context) (broker.Account, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accountErr != nil {
		return broker.Account{}, g.accountErr
	}
	pos := make(map[string]int, len(g.positions))
	for k, v := range g.positions {
		pos[k] = v
	}
	return broker.Account{Balance: g.balance, Positions: pos}, nil
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = append(g.submitted, req)
	if g.submitErr != nil {
		return broker.OrderResult{}, g.submitErr
	}
	g.positions[req.Instrument] += req.Qty
	g.balance -= float64(req.Qty) * g.prices[req.Instrument]
	return broker.OrderResult{Instrument: req.Instrument, Qty: req.Qty, Accepted: true}, nil
}

func (g *fakeGateway) orders() []broker.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]broker.OrderRequest(nil), g.submitted...)
}

type memJournal struct {
	mu      sync.Mutex
	intents []journal.Intent
	equity  []journal.EquitySnapshot
}

func (j *memJournal) RecordIntent(_ context.Context, in journal.Intent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.intents = append(j.intents, in)
	return nil
}

func (j *memJournal) RecordEquity(_ context.Context, e journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, e)
	return nil
}

func (j *memJournal) Close() error { return nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances by half a second per call so every tick gets its own bucket.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(500 * time.Millisecond)
	return c.now
}

func newTestEngine(t *testing.T, gw broker.Gateway, opts ...Option) (*Engine, *memJournal) {
	t.Helper()
	j := &memJournal{}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)}
	base := []Option{
		WithClock(clock.Now),
		WithRand(rand.New(rand.NewSource(1))),
		WithJournal(j),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(gw, append(base, opts...)...), j
}

// feed ingests n quotes rising by step from start.
func feed(t *testing.T, e *Engine, gw *fakeGateway, name string, n int, start, step float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		gw.setPrice(name, start+float64(i)*step)
		require.NoError(t, e.Ingest(context.Background()))
	}
}

// A slow steady rise leaves the trend follower as the only strategy with a
// positive Sharpe and a non-zero signal, so the vote is +1.
func feedBuyVote(t *testing.T, e *Engine, gw *fakeGateway) {
	t.Helper()
	feed(t, e, gw, "ACME", 45, 1.0, 0.005)
}

// A fast rise makes the noise breaker dominate with a sell signal.
func feedSellVote(t *testing.T, e *Engine, gw *fakeGateway) {
	t.Helper()
	feed(t, e, gw, "ACME", 45, 100, 0.02)
}

func TestIngestRecordsHistory(t *testing.T) {
	gw := newFakeGateway(1000, "ACME", "BOLT")
	e, _ := newTestEngine(t, gw)

	var events []Event
	e.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, e.Ingest(context.Background()))
	require.NoError(t, e.Ingest(context.Background()))

	st := e.Status()
	assert.Equal(t, map[string]int{"ACME": 2, "BOLT": 2}, st.History, "the sentinel is never recorded")
	assert.Equal(t, int64(2), st.Ingests)
	require.Len(t, events, 2)
	assert.Equal(t, EventIngest, events[0].Type)
	assert.Equal(t, 2, events[0].Count)
}

func TestIngestWarmupGate(t *testing.T) {
	gw := newFakeGateway(1000, "ACME")
	e, _ := newTestEngine(t, gw, WithWarmup(30))

	feed(t, e, gw, "ACME", 29, 10, 0.01)
	snaps := e.Status().Ensembles
	require.Len(t, snaps, 1)
	assert.Equal(t, 0, snaps[0].Updates)

	feed(t, e, gw, "ACME", 2, 10.29, 0.01)
	assert.Equal(t, 2, e.Status().Ensembles[0].Updates)
}

func TestIngestError(t *testing.T) {
	gw := newFakeGateway(1000, "ACME")
	gw.listErr = &broker.GatewayError{Op: "list instruments", Err: broker.ErrNetwork}
	e, _ := newTestEngine(t, gw)

	err := e.Ingest(context.Background())
	assert.ErrorIs(t, err, broker.ErrNetwork)

	gw.listErr = broker.ErrNotModified
	assert.NoError(t, e.Ingest(context.Background()))
	assert.Empty(t, e.Status().History)
}

func TestDecideUnarmedNeverSubmits(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	e, j := newTestEngine(t, gw)
	feedBuyVote(t, e, gw)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Decide(context.Background()))
	}

	assert.Empty(t, gw.orders())
	require.NotEmpty(t, j.intents)
	for _, in := range j.intents {
		assert.Equal(t, journal.StatusSimulated, in.Status)
		assert.Equal(t, journal.ModeSimulated, in.Mode)
		assert.Equal(t, 500, in.Qty)
		assert.Equal(t, 1, in.Vote)
	}
	assert.Len(t, j.equity, 3)
}

func TestDecideArmedBuys(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	e, j := newTestEngine(t, gw, WithArmed(true))
	feedBuyVote(t, e, gw)

	require.NoError(t, e.Decide(context.Background()))

	vote, ok := e.Vote("ACME")
	require.True(t, ok)
	assert.Equal(t, 1, vote)

	orders := gw.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, broker.OrderRequest{Instrument: "ACME", Qty: 500}, orders[0])

	require.Len(t, j.intents, 1)
	in := j.intents[0]
	assert.Equal(t, journal.StatusAccepted, in.Status)
	assert.Equal(t, journal.ModeLive, in.Mode)
	assert.Equal(t, risk.Notional(500, in.Price).String(), in.Notional.String())
	assert.NotEmpty(t, in.ID)
}

func TestDecideBuyRespectsAffordability(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	e, j := newTestEngine(t, gw, WithArmed(true))
	feedBuyVote(t, e, gw)

	// the price jumps between the quote refresh and the buy re-fetch
	base := gw.listCalls
	gw.onList = func(call int) {
		if call == base+2 {
			gw.prices["ACME"] = 10000
		}
	}
	require.NoError(t, e.Decide(context.Background()))

	orders := gw.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 95, orders[0].Qty, "floor(1e6 * 0.95 / 10000)")
	require.Len(t, j.intents, 1)
	assert.Equal(t, 10000.0, j.intents[0].Price)
	assert.Equal(t, "950000.00", j.intents[0].Notional.StringFixed(2))
}

func TestDecideSellSkippedWhenNothingOwned(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	e, j := newTestEngine(t, gw, WithArmed(true))
	feedSellVote(t, e, gw)

	for i := 0; i < 4; i++ {
		require.NoError(t, e.Decide(context.Background()))
	}

	vote, _ := e.Vote("ACME")
	assert.Equal(t, -1, vote)
	assert.Empty(t, gw.orders())

	require.Len(t, j.intents, 1, "skips are reported once per interval")
	assert.Equal(t, journal.StatusSkipped, j.intents[0].Status)
	assert.Contains(t, j.intents[0].Reason, risk.SellExceedsOwned)
}

func TestDecideSellsOwnedShares(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	gw.positions["ACME"] = 1000

	// a fixed clip keeps floor(0.9 * (owned + desired)) within what is owned
	policy := risk.DefaultPolicy()
	policy.ClipHigh = policy.ClipLow
	e, j := newTestEngine(t, gw, WithArmed(true), WithPolicy(policy))
	feedSellVote(t, e, gw)

	require.NoError(t, e.Decide(context.Background()))

	orders := gw.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, -500, orders[0].Qty)
	require.Len(t, j.intents, 1)
	assert.Equal(t, 1000, j.intents[0].Owned)
	assert.Less(t, j.intents[0].Target, 0)
}

func TestDecideFlatMarketVotesZero(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	e, j := newTestEngine(t, gw, WithArmed(true))
	feed(t, e, gw, "ACME", 45, 10, 0)

	require.NoError(t, e.Decide(context.Background()))

	vote, ok := e.Vote("ACME")
	require.True(t, ok)
	assert.Equal(t, 0, vote)
	assert.Empty(t, gw.orders())
	assert.Empty(t, j.intents)
}

func TestDecideZeroBalanceSkipsTick(t *testing.T) {
	gw := newFakeGateway(0, "ACME")
	e, j := newTestEngine(t, gw, WithArmed(true))
	feedBuyVote(t, e, gw)

	require.NoError(t, e.Decide(context.Background()))
	assert.Empty(t, gw.orders())
	assert.Empty(t, j.equity)
	assert.Equal(t, risk.Normal, e.Status().Risk.State)
}

func TestDecideDrawdownBrake(t *testing.T) {
	gw := newFakeGateway(1000, "ACME")
	e, j := newTestEngine(t, gw, WithArmed(true))

	var brakes int
	e.Subscribe(func(ev Event) {
		if ev.Type == EventBrake {
			brakes++
		}
	})

	require.NoError(t, e.Decide(context.Background()))
	gw.balance = 701
	require.NoError(t, e.Decide(context.Background()))
	assert.Equal(t, risk.Normal, e.Status().Risk.State)

	gw.balance = 699
	require.NoError(t, e.Decide(context.Background()))
	st := e.Status().Risk
	assert.Equal(t, risk.Braked, st.State)
	assert.Equal(t, 699.0, st.Peak)
	assert.Equal(t, 1, brakes)
	require.Len(t, j.equity, 3)
	assert.Equal(t, "BRAKED", j.equity[2].State)

	// self-healing: the next tick runs from the new peak
	require.NoError(t, e.Decide(context.Background()))
	assert.Equal(t, risk.Normal, e.Status().Risk.State)
}

func TestResetDrawdownBrake(t *testing.T) {
	gw := newFakeGateway(1000, "ACME")
	e, _ := newTestEngine(t, gw)

	assert.Error(t, e.ResetDrawdownBrake())

	require.NoError(t, e.Decide(context.Background()))
	gw.balance = 800
	require.NoError(t, e.Decide(context.Background()))
	assert.Equal(t, 1000.0, e.Status().Risk.Peak)

	require.NoError(t, e.ResetDrawdownBrake())
	assert.Equal(t, 800.0, e.Status().Risk.Peak)
}

func TestDecideAccountFailureAbortsTick(t *testing.T) {
	gw := newFakeGateway(1000, "ACME")
	gw.accountErr = &broker.GatewayError{Op: "get user", Err: broker.ErrServerFault, Status: 500}
	e, j := newTestEngine(t, gw)

	err := e.Decide(context.Background())
	assert.ErrorIs(t, err, broker.ErrServerFault)
	assert.Empty(t, j.equity)
}

func TestDecideRejectedOrderIsJournaled(t *testing.T) {
	gw := newFakeGateway(1e6, "ACME")
	gw.submitErr = &broker.GatewayError{Op: "submit", Instrument: "ACME", Status: 422, Reason: "insufficient funds", Err: broker.ErrRejected}
	e, j := newTestEngine(t, gw, WithArmed(true))
	feedBuyVote(t, e, gw)

	require.NoError(t, e.Decide(context.Background()))
	require.Len(t, j.intents, 1)
	assert.Equal(t, journal.StatusRejected, j.intents[0].Status)
	assert.Equal(t, "insufficient funds", j.intents[0].Reason)
	assert.Equal(t, risk.Normal, e.Status().Risk.State)

	gw.submitErr = &broker.GatewayError{Op: "submit", Err: broker.ErrNetwork}
	require.NoError(t, e.Decide(context.Background()))
	require.Len(t, j.intents, 2)
	assert.Equal(t, journal.StatusFailed, j.intents[1].Status)
}

func TestDecideTickInFlight(t *testing.T) {
	gw := newFakeGateway(1000, "ACME")
	gw.entered = make(chan struct{})
	gw.release = make(chan struct{})
	e, _ := newTestEngine(t, gw)

	done := make(chan error, 1)
	go func() { done <- e.Decide(context.Background()) }()
	<-gw.entered

	assert.ErrorIs(t, e.Decide(context.Background()), ErrTickInFlight)
	assert.NoError(t, e.Ingest(context.Background()), "ingest is a separate action")

	close(gw.release)
	require.NoError(t, <-done)
}

func TestStaleResultsDiscarded(t *testing.T) {
	e, _ := newTestEngine(t, newFakeGateway(1000))

	first := e.next(&e.decideIssued)
	second := e.next(&e.decideIssued)

	assert.True(t, e.claim(&e.decideApplied, second))
	assert.False(t, e.claim(&e.decideApplied, first))
	assert.Equal(t, int64(1), e.Status().Stale)
}

func TestArmDisarm(t *testing.T) {
	var got []bool
	e, _ := newTestEngine(t, newFakeGateway(1000), WithListener(func(ev Event) {
		if ev.Type == EventArm {
			got = append(got, ev.Armed)
		}
	}))

	assert.False(t, e.Armed(), "engines start disarmed")
	e.Arm()
	assert.True(t, e.Armed())
	assert.True(t, e.Status().Armed)
	e.Disarm()
	assert.False(t, e.Armed())
	assert.Equal(t, []bool{true, false}, got)
}

type memMirror struct {
	points map[string][]market.PricePoint
}

func (m *memMirror) Append(_ context.Context, inst string, p market.PricePoint) error {
	m.points[inst] = append(m.points[inst], p)
	return nil
}

func (m *memMirror) Load(_ context.Context, inst string) ([]market.PricePoint, error) {
	return m.points[inst], nil
}

func (m *memMirror) Instruments(context.Context) ([]string, error) {
	var out []string
	for k := range m.points {
		out = append(out, k)
	}
	return out, nil
}

func TestRestoreReplaysHistory(t *testing.T) {
	mirror := &memMirror{points: map[string][]market.PricePoint{}}

	gw := newFakeGateway(1e6, "ACME")
	first, _ := newTestEngine(t, gw, WithMirror(mirror))
	feedBuyVote(t, first, gw)
	require.Len(t, mirror.points["ACME"], 45)

	second, _ := newTestEngine(t, gw, WithMirror(mirror))
	n, err := second.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, first.Prices("ACME"), second.Prices("ACME"))
	a, b := first.Status().Ensembles[0], second.Status().Ensembles[0]
	assert.Equal(t, a.Updates, b.Updates)
	assert.Equal(t, a.Weights, b.Weights)
}

func TestRestoreWithoutMirror(t *testing.T) {
	e, _ := newTestEngine(t, newFakeGateway(1000))
	n, err := e.Restore(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestGatewayErrorReason(t *testing.T) {
	assert.Equal(t, "bad", reason(&broker.GatewayError{Reason: "bad", Err: broker.ErrRejected}))
	assert.Equal(t, "boom", reason(errors.New("boom")))
}
