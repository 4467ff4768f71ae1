package risk

import "math"

// ZeroPayoffDenominator replaces avgWin*avgLoss in the Kelly fraction when
// either average is zero.
const ZeroPayoffDenominator = 1.0

// Inputs are the per-strategy statistics a position is sized from.
// Returns and Weights are aligned by strategy.
type Inputs struct {
	Returns [][]float64
	Weights []float64
	Balance float64
	Price   float64
}

type Result struct {
	Shares       int
	Fraction     float64 // clipped Kelly fraction
	RawFraction  float64
	AvgWin       float64
	AvgLoss      float64
	WinProb      float64
	Contributing int
}

// Calculate sizes a position with the weighted Kelly criterion. Only
// strategies with at least MinKellySamples returns contribute; with none
// contributing the size is 0. Shares is never negative.
func Calculate(p Policy, in Inputs) Result {
	var res Result

	for i, rets := range in.Returns {
		if len(rets) < p.MinKellySamples || i >= len(in.Weights) {
			continue
		}
		w := in.Weights[i]

		var wins, losses, sumWin, sumLoss float64
		for _, r := range rets {
			switch {
			case r > 0:
				wins++
				sumWin += r
			case r < 0:
				losses++
				sumLoss -= r
			}
		}
		meanWin, meanLoss := 0.0, 0.0
		if wins > 0 {
			meanWin = sumWin / wins
		}
		if losses > 0 {
			meanLoss = sumLoss / losses
		}

		res.AvgWin += w * meanWin
		res.AvgLoss += w * meanLoss
		res.WinProb += w * wins / float64(len(rets))
		res.Contributing++
	}

	if res.Contributing == 0 {
		return res
	}

	denom := res.AvgWin * res.AvgLoss
	if denom == 0 {
		denom = ZeroPayoffDenominator
	}
	res.RawFraction = (res.AvgWin*res.WinProb - res.AvgLoss*(1-res.WinProb)) / denom
	res.Fraction = clamp(res.RawFraction, 0, p.MaxKelly)

	if in.Price <= 0 || in.Balance <= 0 {
		return res
	}
	shares := math.Floor(p.MaxPositionFraction * in.Balance * res.Fraction / in.Price)
	if finite(shares) && shares > 0 {
		res.Shares = int(shares)
	}
	return res
}

// DesiredShares is Calculate(p, in).Shares.
func DesiredShares(p Policy, in Inputs) int {
	return Calculate(p, in).Shares
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
