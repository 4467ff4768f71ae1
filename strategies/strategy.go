package strategies

import (
	"fmt"
	"strings"
)

// Kind identifies one of the signal generators. The set is closed: every
// instrument runs exactly one strategy of each kind, in Kinds order.
type Kind int

const (
	MeanReverter Kind = iota
	TrendFollower
	CycleDetector
	NoiseBreaker
	OrderImpactProbe
)

// Kinds is the strategy set, in the order weights are aligned to.
var Kinds = []Kind{
	MeanReverter,
	TrendFollower,
	CycleDetector,
	NoiseBreaker,
	OrderImpactProbe,
}

func (k Kind) String() string {
	switch k {
	case MeanReverter:
		return "mean-reverter"
	case TrendFollower:
		return "trend-follower"
	case CycleDetector:
		return "cycle-detector"
	case NoiseBreaker:
		return "noise-breaker"
	case OrderImpactProbe:
		return "order-impact-probe"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindByName parses a Kind from its String form.
func KindByName(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range Kinds {
		if k.String() == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// Strategy turns an instrument's price history into a return sample and a
// discrete trade signal.
type Strategy interface {
	Kind() Kind

	// Update consumes the full price history, oldest first. It reports false
	// and records nothing when there are not enough prices yet.
	Update(prices []float64) (float64, bool)

	// Signal returns -1 (sell), 0 (hold) or +1 (buy) based on the most recent
	// recorded sample.
	Signal() int

	// Returns is a copy of the recorded samples, oldest first.
	Returns() []float64
}

// New returns a fresh strategy of kind k.
func New(k Kind) (Strategy, error) {
	switch k {
	case MeanReverter:
		return &MeanReversion{}, nil
	case TrendFollower:
		return &TrendFollowing{}, nil
	case CycleDetector:
		return &CycleDetection{}, nil
	case NoiseBreaker:
		return &NoiseBreaking{}, nil
	case OrderImpactProbe:
		return &ImpactProbe{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %d", int(k))
	}
}

// NewSet returns one fresh strategy per kind, aligned with Kinds.
func NewSet() []Strategy {
	set := make([]Strategy, len(Kinds))
	for i, k := range Kinds {
		s, err := New(k)
		if err != nil {
			panic(err)
		}
		set[i] = s
	}
	return set
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
