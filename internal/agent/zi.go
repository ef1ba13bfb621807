package agent

import (
	"math"
	"math/rand"
)

// TypeZI is the agent type tag for zero-intelligence traders.
const TypeZI = "ZIAgent"

// ZIBuyer draws a uniform random bid between the configured floor and the
// marginal unit value (budget constrained, Gode-Sunder style).
type ZIBuyer struct {
	IgnoreBudget bool
}

func (s ZIBuyer) Quote(a *Agent, r *rand.Rand) (float64, bool) {
	v, ok := a.UnitValue()
	if !ok {
		return 0, false
	}
	limit := v
	if s.IgnoreBudget {
		limit = a.MaxPrice
	}
	return drawPrice(r, a.MinPrice, limit, a.Integer)
}

// ZISeller draws a uniform random ask between the marginal unit cost and the
// configured ceiling.
type ZISeller struct {
	IgnoreBudget bool
}

func (s ZISeller) Quote(a *Agent, r *rand.Rand) (float64, bool) {
	c, ok := a.UnitCost()
	if !ok {
		return 0, false
	}
	floor := c
	if s.IgnoreBudget {
		floor = a.MinPrice
	}
	return drawPrice(r, floor, a.MaxPrice, a.Integer)
}

func drawPrice(r *rand.Rand, lo, hi float64, integer bool) (float64, bool) {
	if hi < lo {
		return 0, false
	}
	if integer {
		return math.Floor(r.Float64()*(hi-lo+1)) + lo, true
	}
	return lo + r.Float64()*(hi-lo), true
}
