// Package indicators provides the numeric primitives used by the strategies
// and the ensemble: moving averages, RSI and exponentially weighted
// mean/variance.
package indicators

import "fmt"

// Floors applied wherever a ratio could otherwise divide by zero. They are
// the only places the package clamps a value.
const (
	// VolatilityFloor is the smallest volatility used as a Sharpe denominator.
	VolatilityFloor = 1e-8

	// RSIFloor replaces a mean gain or mean loss of exactly zero.
	RSIFloor = 0.001
)

func errNotEnough(need, got int) error {
	return fmt.Errorf("not enough prices: need %d, got %d", need, got)
}
