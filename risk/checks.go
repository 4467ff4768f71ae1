package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Violation codes. A violation drops the order; none of them is an error.
const (
	DeltaBelowOne    = "DELTA_BELOW_ONE"
	SellExceedsOwned = "SELL_EXCEEDS_OWNED"
	NoPrice          = "NO_PRICE"
	Unaffordable     = "UNAFFORDABLE"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation
}

func allow() Decision { return Decision{Allowed: true} }

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Code is the first violation code, or "" when allowed.
func (d Decision) Code() string {
	if len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Code
}

func (d Decision) Reason() string {
	if len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Msg
}

// Target is the signed position the ensemble wants: desired shares in the
// direction of the vote.
func Target(desired, vote int) int {
	return desired * vote
}

// CheckDelta computes target - owned and rejects moves smaller than a share.
func CheckDelta(target, owned int) (int, Decision) {
	d := allow()
	delta := target - owned
	if delta > -1 && delta < 1 {
		d.add(DeltaBelowOne, fmt.Sprintf("target %d equals owned %d", target, owned))
	}
	return delta, d
}

// ClipOrder randomises an order size: max(1, floor(|delta| * f)) in the
// direction of delta, where f = ClipLow + (ClipHigh-ClipLow)*u for u in [0, 1).
func ClipOrder(p Policy, delta int, u float64) int {
	if delta == 0 {
		return 0
	}
	f := p.ClipLow + (p.ClipHigh-p.ClipLow)*u
	n := int(math.Floor(math.Abs(float64(delta)) * f))
	if n < 1 {
		n = 1
	}
	if delta < 0 {
		return -n
	}
	return n
}

// CheckSell allows selling amount shares only when that many are owned.
func CheckSell(amount, owned int) Decision {
	d := allow()
	if amount > owned {
		d.add(SellExceedsOwned, fmt.Sprintf("sell %d but own %d", amount, owned))
	}
	return d
}

// CapBuy limits a buy to what AffordableFraction of balance pays for at price.
// Orders that cannot afford a single share are dropped.
func CapBuy(p Policy, amount int, balance, price float64) (int, Decision) {
	d := allow()
	if price <= 0 || !finite(price) {
		d.add(NoPrice, fmt.Sprintf("no usable price (%v)", price))
		return 0, d
	}

	affordable := MaxAffordable(p, balance, price)
	if amount > affordable {
		amount = affordable
	}
	if amount < 1 {
		d.add(Unaffordable, fmt.Sprintf("balance %.2f buys no share at %.4f", balance, price))
		return 0, d
	}
	return amount, d
}

// MaxAffordable is floor(balance * AffordableFraction / price), computed in
// decimal so exact multiples are not lost to float rounding.
func MaxAffordable(p Policy, balance, price float64) int {
	if price <= 0 || balance <= 0 {
		return 0
	}
	n := decimal.NewFromFloat(balance).
		Mul(decimal.NewFromFloat(p.AffordableFraction)).
		Div(decimal.NewFromFloat(price)).
		Floor()
	return int(n.IntPart())
}

// CapOrder applies the per-order share limit to a positive amount.
func CapOrder(p Policy, amount int) int {
	if amount > p.MaxSharesPerOrder {
		return p.MaxSharesPerOrder
	}
	return amount
}

// Notional is qty * price rounded to cents.
func Notional(qty int, price float64) decimal.Decimal {
	return decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(price)).Round(2)
}
