package indicators

import "fmt"

// SMA calculates the Simple Moving Average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, errNotEnough(period, len(prices))
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// EMA calculates an Exponential Moving Average over the whole series,
// seeded with the first price and smoothed with factor alpha.
func EMA(prices []float64, alpha float64) (float64, error) {
	if alpha <= 0 || alpha > 1 {
		return 0, fmt.Errorf("alpha must be in (0, 1], got %v", alpha)
	}
	if len(prices) == 0 {
		return 0, errNotEnough(1, 0)
	}

	ema := prices[0]
	for _, p := range prices[1:] {
		ema = alpha*p + (1-alpha)*ema
	}
	return ema, nil
}
