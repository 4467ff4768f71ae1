package strategies

// ImpactProbe is reserved for measuring the price impact of our own orders.
// Until then it records a zero sample on every update and never signals.
type ImpactProbe struct {
	returns Returns
}

func (p *ImpactProbe) Kind() Kind { return OrderImpactProbe }

func (p *ImpactProbe) Update(prices []float64) (float64, bool) {
	p.returns.Push(0)
	return 0, true
}

func (p *ImpactProbe) Signal() int { return 0 }

func (p *ImpactProbe) Returns() []float64 { return p.returns.Values() }
