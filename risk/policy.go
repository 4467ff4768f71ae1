package risk

import "time"

type Policy struct {
	// Sizing
	MaxPositionFraction float64 // 0.25 of balance in one instrument
	MaxKelly            float64 // 0.25
	MinKellySamples     int     // 10 returns before a strategy counts

	// Drawdown brake
	MaxDrawdown float64 // 0.30

	// Order limits
	MaxSharesPerOrder  int     // 500
	AffordableFraction float64 // 0.95 of balance per buy

	// Randomised clip range [ClipLow, ClipHigh)
	ClipLow  float64 // 0.9
	ClipHigh float64 // 1.1

	// At most one skipped-sell warning per instrument per interval
	SkipWarnInterval time.Duration // 60s
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPositionFraction: 0.25,
		MaxKelly:            0.25,
		MinKellySamples:     10,
		MaxDrawdown:         0.30,
		MaxSharesPerOrder:   500,
		AffordableFraction:  0.95,
		ClipLow:             0.9,
		ClipHigh:            1.1,
		SkipWarnInterval:    60 * time.Second,
	}
}
