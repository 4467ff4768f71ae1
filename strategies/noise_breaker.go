package strategies

import "math"

const (
	noiseMinPoints = 10
	noiseClip      = 0.02
	noiseThreshold = 0.01
)

// NoiseBreaking fades the most recent price move. The sample is the last
// price delta clipped to +/-0.02.
type NoiseBreaking struct {
	returns Returns
}

func (n *NoiseBreaking) Kind() Kind { return NoiseBreaker }

func (n *NoiseBreaking) Update(prices []float64) (float64, bool) {
	if len(prices) < noiseMinPoints {
		return 0, false
	}
	d := prices[len(prices)-1] - prices[len(prices)-2]
	d = math.Max(-noiseClip, math.Min(noiseClip, d))
	n.returns.Push(d)
	return d, true
}

func (n *NoiseBreaking) Signal() int {
	d, ok := n.returns.Last()
	if !ok {
		return 0
	}
	switch {
	case d > noiseThreshold:
		return -1
	case d < -noiseThreshold:
		return 1
	}
	return 0
}

func (n *NoiseBreaking) Returns() []float64 { return n.returns.Values() }
