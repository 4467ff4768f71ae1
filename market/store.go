package market

import (
	"sort"
	"sync"
	"time"
)

// Store owns the price history of every instrument seen so far.
// Unknown instruments simply have an empty history.
type Store struct {
	mu     sync.RWMutex
	period time.Duration
	limit  int
	series map[string]*History
}

// NewStore returns a store bucketing timestamps by period.
func NewStore(period time.Duration) *Store {
	return &Store{
		period: period,
		limit:  MaxHistory,
		series: make(map[string]*History),
	}
}

func (s *Store) Period() time.Duration { return s.period }

// Record appends a price observed at now and returns the stored point.
func (s *Store) Record(instrument string, price float64, now time.Time) PricePoint {
	p := PricePoint{
		Time:   now,
		Price:  price,
		Bucket: TimeBucket(now, s.period),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyLocked(instrument).Append(p)
	return p
}

// Restore replaces an instrument's history with points, keeping the newest
// ones when there are more than the store holds.
func (s *Store) Restore(instrument string, points []PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := NewHistory(s.limit)
	if len(points) > s.limit {
		points = points[len(points)-s.limit:]
	}
	for _, p := range points {
		h.Append(p)
	}
	s.series[instrument] = h
}

// Snapshot returns a read-only copy of an instrument's history.
func (s *Store) Snapshot(instrument string) []PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.series[instrument]
	if !ok {
		return nil
	}
	return h.Points()
}

// Prices returns the instrument's prices, oldest first.
func (s *Store) Prices(instrument string) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.series[instrument]
	if !ok {
		return nil
	}
	return h.Prices()
}

func (s *Store) Len(instrument string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.series[instrument]
	if !ok {
		return 0
	}
	return h.Len()
}

// Latest returns the most recent price recorded for instrument.
func (s *Store) Latest(instrument string) (PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.series[instrument]
	if !ok {
		return PricePoint{}, false
	}
	return h.Last()
}

// Instruments lists every instrument with a history, sorted by name.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for name := range s.series {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Store) historyLocked(instrument string) *History {
	h, ok := s.series[instrument]
	if !ok {
		h = NewHistory(s.limit)
		s.series[instrument] = h
	}
	return h
}
