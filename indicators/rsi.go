package indicators

import "fmt"

// RSI computes the relative strength index over the deltas of the last
// window prices. A mean gain or loss of zero is replaced by RSIFloor.
func RSI(prices []float64, window int) (float64, error) {
	if window < 2 {
		return 0, fmt.Errorf("window must be at least 2, got %d", window)
	}
	if len(prices) < window {
		return 0, errNotEnough(window, len(prices))
	}

	tail := prices[len(prices)-window:]
	var gain, loss float64
	for i := 1; i < len(tail); i++ {
		d := tail[i] - tail[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}

	n := float64(len(tail) - 1)
	avgGain := gain / n
	if avgGain == 0 {
		avgGain = RSIFloor
	}
	avgLoss := loss / n
	if avgLoss == 0 {
		avgLoss = RSIFloor
	}

	return 100 - 100/(1+avgGain/avgLoss), nil
}
