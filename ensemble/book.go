package ensemble

import "sort"

// DefaultWarmup is the history length below which strategies are not fed.
const DefaultWarmup = 30

// Book holds one State per instrument, created the first time the
// instrument is seen. It is not safe for concurrent use.
type Book struct {
	warmup int
	states map[string]*State
}

func NewBook(warmup int) *Book {
	if warmup <= 0 {
		warmup = DefaultWarmup
	}
	return &Book{
		warmup: warmup,
		states: make(map[string]*State),
	}
}

func (b *Book) Warmup() int { return b.warmup }

// State returns the instrument's ensemble, creating it if needed.
func (b *Book) State(instrument string) *State {
	s, ok := b.states[instrument]
	if !ok {
		s = NewState()
		b.states[instrument] = s
	}
	return s
}

// Lookup returns the instrument's ensemble without creating one.
func (b *Book) Lookup(instrument string) (*State, bool) {
	s, ok := b.states[instrument]
	return s, ok
}

// Observe records that instrument's history changed. Strategies are only fed
// once the history holds at least Warmup points. It reports whether they were.
func (b *Book) Observe(instrument string, prices []float64) bool {
	s := b.State(instrument)
	if len(prices) < b.warmup {
		return false
	}
	s.Update(prices)
	return true
}

func (b *Book) Instruments() []string {
	out := make([]string, 0, len(b.states))
	for name := range b.states {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Snapshots describes every instrument, sorted by name.
func (b *Book) Snapshots() []Snapshot {
	names := b.Instruments()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, b.states[name].Snapshot(name))
	}
	return out
}
