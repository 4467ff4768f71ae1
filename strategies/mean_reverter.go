package strategies

import "github.com/rustyeddy/stockbot/indicators"

const (
	meanReversionPeriod    = 20
	meanReversionThreshold = 0.01
)

// MeanReversion expects price to revert to its 20-point SMA. Its sample is
// (sma - last) / last, so a price below average yields a positive sample.
type MeanReversion struct {
	returns Returns
}

func (m *MeanReversion) Kind() Kind { return MeanReverter }

func (m *MeanReversion) Update(prices []float64) (float64, bool) {
	if len(prices) < meanReversionPeriod {
		return 0, false
	}
	sma, err := indicators.SMA(prices, meanReversionPeriod)
	if err != nil {
		return 0, false
	}
	last := prices[len(prices)-1]
	if last == 0 {
		return 0, false
	}
	r := (sma - last) / last
	m.returns.Push(r)
	return r, true
}

func (m *MeanReversion) Signal() int {
	r, ok := m.returns.Last()
	if !ok {
		return 0
	}
	switch {
	case r > meanReversionThreshold:
		return 1
	case r < -meanReversionThreshold:
		return -1
	}
	return 0
}

func (m *MeanReversion) Returns() []float64 { return m.returns.Values() }
