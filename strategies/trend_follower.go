package strategies

import "github.com/rustyeddy/stockbot/indicators"

const (
	trendMinPoints = 10
	trendAlpha     = 0.2
	trendThreshold = 0.005
)

// TrendFollowing measures momentum as the distance of the last price from an
// EMA over the whole window.
type TrendFollowing struct {
	returns Returns
}

func (s *TrendFollowing) Kind() Kind { return TrendFollower }

func (s *TrendFollowing) Update(prices []float64) (float64, bool) {
	if len(prices) < trendMinPoints {
		return 0, false
	}
	ema, err := indicators.EMA(prices, trendAlpha)
	if err != nil || ema == 0 {
		return 0, false
	}
	mom := (prices[len(prices)-1] - ema) / ema
	s.returns.Push(mom)
	return mom, true
}

func (s *TrendFollowing) Signal() int {
	m, ok := s.returns.Last()
	if !ok {
		return 0
	}
	switch {
	case m > trendThreshold:
		return 1
	case m < -trendThreshold:
		return -1
	}
	return 0
}

func (s *TrendFollowing) Returns() []float64 { return s.returns.Values() }
