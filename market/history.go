package market

import "time"

// MaxHistory is the number of points kept per instrument.
const MaxHistory = 200

// PricePoint is one observed price. It is never modified after it is recorded.
type PricePoint struct {
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`
	Bucket int64     `json:"bucket"`
}

// TimeBucket aligns ts to the decision cadence: floor(ts / period).
func TimeBucket(ts time.Time, period time.Duration) int64 {
	if period <= 0 {
		return ts.UnixMilli()
	}
	n := ts.UnixNano()
	p := int64(period)
	b := n / p
	if n%p != 0 && n < 0 {
		b--
	}
	return b
}

// History is a bounded, chronologically ordered series of price points.
// When full, the oldest point is evicted.
type History struct {
	limit  int
	points []PricePoint
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = MaxHistory
	}
	return &History{
		limit:  limit,
		points: make([]PricePoint, 0, limit),
	}
}

// Append adds p and reports whether the oldest point was evicted.
func (h *History) Append(p PricePoint) bool {
	h.points = append(h.points, p)
	if len(h.points) <= h.limit {
		return false
	}
	// shift in place so the backing array does not grow
	copy(h.points, h.points[1:])
	h.points = h.points[:h.limit]
	return true
}

func (h *History) Len() int { return len(h.points) }

func (h *History) Limit() int { return h.limit }

// Last returns the most recent point.
func (h *History) Last() (PricePoint, bool) {
	if len(h.points) == 0 {
		return PricePoint{}, false
	}
	return h.points[len(h.points)-1], true
}

// Points returns a copy of the series, oldest first.
func (h *History) Points() []PricePoint {
	out := make([]PricePoint, len(h.points))
	copy(out, h.points)
	return out
}

// Prices returns the price column, oldest first.
func (h *History) Prices() []float64 {
	out := make([]float64, len(h.points))
	for i, p := range h.points {
		out[i] = p.Price
	}
	return out
}
