package journal

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	a := testIntent("1", ts, "ACME", 10)
	b := testIntent("2", ts, "BOLT", -4)
	b.Status = StatusAccepted
	c := testIntent("3", ts, "ACME", -2)
	c.Status = StatusRejected

	equity := []EquitySnapshot{
		{Balance: 1000, State: "NORMAL"},
		{Balance: 650, Drawdown: 0.35, State: "BRAKED"},
		{Balance: 660, State: "NORMAL"},
	}

	r := Summarize(ts, ts.Add(24*time.Hour), []Intent{a, b, c}, equity)
	assert.Equal(t, 3, r.Intents)
	assert.Equal(t, 1, r.Simulated)
	assert.Equal(t, 1, r.Accepted)
	assert.Equal(t, 1, r.Rejected)
	assert.Equal(t, 1, r.Buys)
	assert.Equal(t, 2, r.Sells)
	assert.Equal(t, "197.44", r.Notional.StringFixed(2))
	assert.InDelta(t, 1000, r.StartBalance, 1e-9)
	assert.InDelta(t, 660, r.EndBalance, 1e-9)
	assert.InDelta(t, 0.35, r.MaxDrawdown, 1e-9)
	assert.Equal(t, 1, r.Brakes)

	require.Len(t, r.ByInstrument, 2)
	assert.Equal(t, "ACME", r.ByInstrument[0].Instrument)
	assert.Equal(t, 8, r.ByInstrument[0].NetQty)
	assert.Equal(t, "BOLT", r.ByInstrument[1].Instrument)
}

func TestReportWriteOrg(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := Summarize(ts, ts.Add(48*time.Hour), []Intent{testIntent("1", ts, "ACME", 1)}, nil)

	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* JOURNAL 2024-03-15 .. 2024-03-17")
	assert.Contains(t, out, ":INTENTS:     1")
	assert.Contains(t, out, "| ACME | 1 | 1 | 12.34 |")
}

func TestReportEmpty(t *testing.T) {
	t.Parallel()

	r := Summarize(time.Time{}, time.Time{}, nil, nil)
	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	assert.NotContains(t, buf.String(), "By Instrument")
	assert.Equal(t, "0.00", r.Notional.StringFixed(2))
}
