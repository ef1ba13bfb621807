// Package agent provides the trading agent pool consumed by the simulation
// driver: per-period initialization, Poisson wake scheduling, synchronous
// and cooperative execution up to a horizon, and end-of-period settlement.
package agent

import (
	"math/rand"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
)

// SubmitFunc delivers a normalized order to the venue and drains matching.
// Each agent is constructed with its own bound submission capability.
type SubmitFunc func(o model.Order) error

// Strategy prices the agent's next order. ok=false skips this wake.
type Strategy interface {
	Quote(a *Agent, r *rand.Rand) (price float64, ok bool)
}

// Options configures a new agent.
type Options struct {
	ID         int
	Side       enum.Side
	Type       string
	Rate       float64
	MinPrice   float64
	MaxPrice   float64
	Integer    bool
	KeepOrders bool
	Submit     SubmitFunc
	Strategy   Strategy
	Rand       *rand.Rand
}

// Agent holds one trader's identity, schedule, and per-period inventory.
// Inventory X counts units bought (positive) or sold (negative); Money
// accumulates cash flow and, after settlement, realized profit.
type Agent struct {
	ID   int
	Type string
	Side enum.Side

	Rate       float64
	MinPrice   float64
	MaxPrice   float64
	Integer    bool
	KeepOrders bool

	Values []float64
	Costs  []float64

	X     int
	Money float64

	PeriodNumber int
	PeriodStart  float64
	PeriodEnd    float64
	WakeTime     float64

	submit   SubmitFunc
	strategy Strategy
	rng      *rand.Rand
}

func New(opt Options) (*Agent, error) {
	if opt.Side != enum.SideBuy && opt.Side != enum.SideSell {
		return nil, errors.Errorf("agent %d: invalid side %v", opt.ID, opt.Side)
	}
	if opt.Submit == nil {
		return nil, errors.Errorf("agent %d: submit capability required", opt.ID)
	}
	if opt.Strategy == nil {
		return nil, errors.Errorf("agent %d: strategy required", opt.ID)
	}
	if opt.Rand == nil {
		return nil, errors.Errorf("agent %d: rand source required", opt.ID)
	}
	rate := opt.Rate
	if rate <= 0 {
		rate = 1
	}
	return &Agent{
		ID:         opt.ID,
		Type:       opt.Type,
		Side:       opt.Side,
		Rate:       rate,
		MinPrice:   opt.MinPrice,
		MaxPrice:   opt.MaxPrice,
		Integer:    opt.Integer,
		KeepOrders: opt.KeepOrders,
		submit:     opt.Submit,
		strategy:   opt.Strategy,
		rng:        opt.Rand,
	}, nil
}

// InitPeriod resets inventory and reschedules the first wake of the period.
func (a *Agent) InitPeriod(number int, duration float64) {
	a.PeriodNumber = number
	a.PeriodStart = float64(number) * duration
	a.PeriodEnd = a.PeriodStart + duration
	a.X = 0
	a.Money = 0
	a.WakeTime = a.PeriodStart + a.rng.ExpFloat64()/a.Rate
}

// UnitValue returns the marginal value of the next unit bought given the
// current inventory.
func (a *Agent) UnitValue() (float64, bool) {
	if a.X < 0 || a.X >= len(a.Values) {
		return 0, false
	}
	return a.Values[a.X], true
}

// UnitCost returns the marginal cost of the next unit sold. Sellers carry
// negative inventory, so -X counts units already sold.
func (a *Agent) UnitCost() (float64, bool) {
	sold := -a.X
	if sold < 0 || sold >= len(a.Costs) {
		return 0, false
	}
	return a.Costs[sold], true
}

// Wake lets the agent act once at its scheduled wake time, then reschedules.
func (a *Agent) Wake() error {
	defer func() {
		a.WakeTime += a.rng.ExpFloat64() / a.Rate
	}()
	price, ok := a.strategy.Quote(a, a.rng)
	if !ok {
		return nil
	}
	o := model.Order{
		T:       a.WakeTime,
		AgentID: a.ID,
		Side:    a.Side,
		Cancel:  !a.KeepOrders,
		Qty:     1,
	}
	if a.Side == enum.SideBuy {
		o.BuyPrice = price
	} else {
		o.SellPrice = price
	}
	if err := a.submit(o); err != nil {
		return errors.Wrapf(err, "agent %d submit", a.ID)
	}
	return nil
}

// Settle applies one side of a single-unit trade to the agent's inventory.
func (a *Agent) Settle(side enum.Side, price float64) {
	if side == enum.SideBuy {
		a.X++
		a.Money -= price
	} else {
		a.X--
		a.Money += price
	}
}

// EndPeriod converts inventory into money: buyers redeem each unit bought
// at its assigned value, sellers pay the production cost of each unit sold.
// After this, Money holds the agent's realized profit for the period.
func (a *Agent) EndPeriod() {
	if a.Side == enum.SideBuy {
		for i := 0; i < a.X && i < len(a.Values); i++ {
			a.Money += a.Values[i]
		}
		return
	}
	for i := 0; i < -a.X && i < len(a.Costs); i++ {
		a.Money -= a.Costs[i]
	}
}
