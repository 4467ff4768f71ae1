package strategies

import "github.com/rustyeddy/stockbot/indicators"

const (
	cycleMinPoints  = 20
	cycleRSIWindow  = 10
	cycleOverbought = 70
	cycleOversold   = 30
	cycleReturnUnit = 0.01
)

// CycleDetection is a contrarian RSI reader: overbought sells, oversold buys.
// The recorded sample is signal * 0.01 so its Sharpe is comparable with the
// other strategies.
type CycleDetection struct {
	returns Returns
	lastRSI float64
}

func (c *CycleDetection) Kind() Kind { return CycleDetector }

func (c *CycleDetection) Update(prices []float64) (float64, bool) {
	if len(prices) < cycleMinPoints {
		return 0, false
	}
	rsi, err := indicators.RSI(prices, cycleRSIWindow)
	if err != nil {
		return 0, false
	}
	c.lastRSI = rsi

	sig := 0
	switch {
	case rsi > cycleOverbought:
		sig = -1
	case rsi < cycleOversold:
		sig = 1
	}
	r := float64(sig) * cycleReturnUnit
	c.returns.Push(r)
	return r, true
}

// Signal reads the sign back out of the last recorded sample.
func (c *CycleDetection) Signal() int {
	r, ok := c.returns.Last()
	if !ok {
		return 0
	}
	return sign(r)
}

// LastRSI is the RSI computed by the most recent update.
func (c *CycleDetection) LastRSI() float64 { return c.lastRSI }

func (c *CycleDetection) Returns() []float64 { return c.returns.Values() }
