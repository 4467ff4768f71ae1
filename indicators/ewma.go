package indicators

import (
	"fmt"
	"math"
)

// DefaultHalfLife is the Sharpe half-life in samples.
const DefaultHalfLife = 20

// MinSharpeSamples is the fewest returns a Sharpe estimate is made from.
const MinSharpeSamples = 5

// HalfLifeLambda returns the decay factor 0.5^(1/halfLife).
func HalfLifeLambda(halfLife float64) float64 {
	return math.Pow(0.5, 1/halfLife)
}

// EWMA is a streaming exponentially weighted mean and variance, both
// starting at zero.
type EWMA struct {
	halfLife float64
	lambda   float64
	mean     float64
	variance float64
	count    int
}

// NewEWMA creates an EWMA with the given half-life in samples.
func NewEWMA(halfLife float64) *EWMA {
	return &EWMA{
		halfLife: halfLife,
		lambda:   HalfLifeLambda(halfLife),
	}
}

func (e *EWMA) Name() string {
	return fmt.Sprintf("EWMA(%g)", e.halfLife)
}

func (e *EWMA) Reset() {
	e.mean = 0
	e.variance = 0
	e.count = 0
}

// Update folds r in. The variance uses the already updated mean.
func (e *EWMA) Update(r float64) {
	e.mean = e.lambda*e.mean + (1-e.lambda)*r
	d := r - e.mean
	e.variance = e.lambda*e.variance + (1-e.lambda)*d*d
	e.count++
}

func (e *EWMA) Count() int { return e.count }
func (e *EWMA) Mean() float64 { return e.mean }
func (e *EWMA) Variance() float64 { return e.variance }

// Volatility is sqrt(variance), never below VolatilityFloor.
func (e *EWMA) Volatility() float64 {
	return math.Max(math.Sqrt(e.variance), VolatilityFloor)
}

// Sharpe is mean / volatility.
func (e *EWMA) Sharpe() float64 {
	return e.mean / e.Volatility()
}

// RollingSharpe computes the EWMA Sharpe ratio of returns, oldest first.
// Fewer than MinSharpeSamples returns yield 0.
func RollingSharpe(returns []float64, halfLife float64) float64 {
	if len(returns) < MinSharpeSamples {
		return 0
	}
	e := NewEWMA(halfLife)
	for _, r := range returns {
		e.Update(r)
	}
	s := e.Sharpe()
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}
