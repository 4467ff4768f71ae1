package strategies

// MaxReturns is the number of return samples a strategy keeps.
const MaxReturns = 100

// Returns is a bounded FIFO of return samples.
type Returns struct {
	vals []float64
}

// Push appends r, evicting the oldest sample once full.
func (b *Returns) Push(r float64) {
	b.vals = append(b.vals, r)
	if len(b.vals) > MaxReturns {
		copy(b.vals, b.vals[1:])
		b.vals = b.vals[:MaxReturns]
	}
}

func (b *Returns) Len() int { return len(b.vals) }

// Last returns the newest sample.
func (b *Returns) Last() (float64, bool) {
	if len(b.vals) == 0 {
		return 0, false
	}
	return b.vals[len(b.vals)-1], true
}

func (b *Returns) Values() []float64 {
	out := make([]float64, len(b.vals))
	copy(out, b.vals)
	return out
}
