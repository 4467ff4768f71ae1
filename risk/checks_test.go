package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  int
		owned   int
		delta   int
		allowed bool
	}{
		{"buy from flat", 50, 0, 50, true},
		{"already there", 20, 20, 0, false},
		{"sell vote closes long", -30, 10, -40, true},
		{"reduce", 5, 10, -5, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			delta, d := CheckDelta(tt.target, tt.owned)
			assert.Equal(t, tt.delta, delta)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, DeltaBelowOne, d.Code())
			}
		})
	}
}

func TestTarget(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 50, Target(50, 1))
	assert.Equal(t, -50, Target(50, -1))
	assert.Equal(t, 0, Target(50, 0))
}

func TestClipOrder(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	tests := []struct {
		name  string
		delta int
		u     float64
		want  int
	}{
		{"low end", 50, 0, 45},
		{"middle", 50, 0.5, 50},
		{"high end", 50, 0.999999, 54},
		{"sell keeps sign", -50, 0, -45},
		{"never below one share", 1, 0, 1},
		{"never below one share sell", -1, 0, -1},
		{"zero stays zero", 0, 0.5, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClipOrder(p, tt.delta, tt.u))
		})
	}
}

func TestClipOrderRange(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		got := ClipOrder(p, 50, r.Float64())
		require.GreaterOrEqual(t, got, 45)
		require.LessOrEqual(t, got, 55)
	}
}

func TestCheckSell(t *testing.T) {
	t.Parallel()

	assert.True(t, CheckSell(5, 5).Allowed)
	assert.True(t, CheckSell(1, 10).Allowed)

	d := CheckSell(6, 5)
	assert.False(t, d.Allowed)
	assert.Equal(t, SellExceedsOwned, d.Code())
	assert.Contains(t, d.Reason(), "own 5")
}

func TestCapBuy(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	tests := []struct {
		name    string
		amount  int
		balance float64
		price   float64
		want    int
		code    string
	}{
		{"within budget", 50, 1000, 10, 50, ""},
		{"capped to 95 percent", 200, 1000, 10, 95, ""},
		{"cannot afford one share", 5, 100, 200, 0, Unaffordable},
		{"no price", 5, 1000, 0, 0, NoPrice},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, d := CapBuy(p, tt.amount, tt.balance, tt.price)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.code, d.Code())
			assert.Equal(t, tt.code == "", d.Allowed)
		})
	}
}

func TestMaxAffordableIsExact(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	assert.Equal(t, 95, MaxAffordable(p, 1000, 10))
	assert.Equal(t, 57, MaxAffordable(p, 600, 10))
	assert.Equal(t, 0, MaxAffordable(p, 0, 10))
}

func TestCapOrder(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	assert.Equal(t, 500, CapOrder(p, 501))
	assert.Equal(t, 500, CapOrder(p, 500))
	assert.Equal(t, 12, CapOrder(p, 12))
}

func TestBuyScenario(t *testing.T) {
	t.Parallel()

	// price 10, owned 0, vote +1, desired 50, balance 1000
	p := DefaultPolicy()
	delta, d := CheckDelta(Target(50, 1), 0)
	require.True(t, d.Allowed)

	amount, d := CapBuy(p, delta, 1000, 10)
	require.True(t, d.Allowed)
	assert.Equal(t, 50, CapOrder(p, amount))

	clipped := ClipOrder(p, delta, 0.37)
	assert.GreaterOrEqual(t, clipped, 45)
	assert.LessOrEqual(t, clipped, 55)
}

func TestOrderGatesNeverOverreach(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 2000; i++ {
		owned := r.Intn(200)
		target := r.Intn(2000) - 1000
		balance := r.Float64() * 50000
		price := 0.5 + r.Float64()*300

		delta, d := CheckDelta(target, owned)
		if !d.Allowed {
			continue
		}
		clipped := ClipOrder(p, delta, r.Float64())
		amount := clipped
		if amount < 0 {
			amount = -amount
			if !CheckSell(amount, owned).Allowed {
				continue
			}
			amount = CapOrder(p, amount)
			require.LessOrEqual(t, amount, owned)
		} else {
			capped, d := CapBuy(p, amount, balance, price)
			if !d.Allowed {
				continue
			}
			amount = CapOrder(p, capped)
			require.LessOrEqual(t, float64(amount)*price, 0.95*balance+1e-6)
		}
		require.LessOrEqual(t, amount, p.MaxSharesPerOrder)
		require.GreaterOrEqual(t, amount, 1)
	}
}

func TestNotional(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "123.46", Notional(10, 12.3456).StringFixed(2))
}
