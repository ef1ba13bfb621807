package agent

import (
	"context"
	"runtime"
	"sort"

	"github.com/yanun0323/errors"

	"main/internal/model/enum"
)

// Pool schedules a set of agents through trading periods. All agents of one
// simulation share a pool; a pool is never shared across simulations.
type Pool struct {
	agents   []*Agent
	byID     map[int]*Agent
	duration float64
	period   int
}

func NewPool(periodDuration float64) *Pool {
	if periodDuration <= 0 {
		periodDuration = 1000
	}
	return &Pool{byID: make(map[int]*Agent), duration: periodDuration}
}

func (p *Pool) Push(a *Agent) {
	p.agents = append(p.agents, a)
	p.byID[a.ID] = a
}

func (p *Pool) Agents() []*Agent { return p.agents }

func (p *Pool) AgentByID(id int) (*Agent, bool) {
	a, ok := p.byID[id]
	return a, ok
}

// Distribute deals the aggregate values (buyers) or costs (sellers) across
// the sub-population card-style: entry i goes to agent i mod n. Buyer value
// lists sort descending and seller cost lists ascending so marginal units
// worsen as inventory accumulates.
func (p *Pool) Distribute(side enum.Side, amounts []float64) {
	var members []*Agent
	for _, a := range p.agents {
		if a.Side == side {
			members = append(members, a)
		}
	}
	if len(members) == 0 {
		return
	}
	for _, a := range members {
		a.Values = nil
		a.Costs = nil
	}
	for i, amount := range amounts {
		a := members[i%len(members)]
		if side == enum.SideBuy {
			a.Values = append(a.Values, amount)
		} else {
			a.Costs = append(a.Costs, amount)
		}
	}
	for _, a := range members {
		if side == enum.SideBuy {
			sort.Sort(sort.Reverse(sort.Float64Slice(a.Values)))
		} else {
			sort.Float64s(a.Costs)
		}
	}
}

// InitPeriod resets every agent for the given period number.
func (p *Pool) InitPeriod(number int) {
	p.period = number
	for _, a := range p.agents {
		a.InitPeriod(number, p.duration)
	}
}

// EndTime reports the natural schedule horizon of the current period.
func (p *Pool) EndTime() float64 {
	return float64(p.period)*p.duration + p.duration
}

func (p *Pool) nextWaker(until float64) *Agent {
	var next *Agent
	for _, a := range p.agents {
		if a.WakeTime < until && (next == nil || a.WakeTime < next.WakeTime) {
			next = a
		}
	}
	return next
}

// SyncRun wakes agents in schedule order until no wake remains strictly
// before the horizon. It blocks until done.
func (p *Pool) SyncRun(until float64) error {
	for {
		a := p.nextWaker(until)
		if a == nil {
			return nil
		}
		if err := a.Wake(); err != nil {
			return err
		}
	}
}

// Run advances towards the horizon like SyncRun but yields the processor
// between batches of wakes so other simulations can interleave. The batch
// size bounds work done per increment.
func (p *Pool) Run(ctx context.Context, until float64, batch int) error {
	if batch <= 0 {
		batch = 10
	}
	for {
		for i := 0; i < batch; i++ {
			a := p.nextWaker(until)
			if a == nil {
				return nil
			}
			if err := a.Wake(); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "pool run")
		default:
			runtime.Gosched()
		}
	}
}

// Trade settles a single-unit trade between buyer and seller.
func (p *Pool) Trade(buyerID, sellerID int, price float64) error {
	buyer, ok := p.byID[buyerID]
	if !ok {
		return errors.Errorf("pool trade: unknown buyer %d", buyerID)
	}
	seller, ok := p.byID[sellerID]
	if !ok {
		return errors.Errorf("pool trade: unknown seller %d", sellerID)
	}
	buyer.Settle(enum.SideBuy, price)
	seller.Settle(enum.SideSell, price)
	return nil
}

// EndPeriod runs settlement for every agent.
func (p *Pool) EndPeriod() {
	for _, a := range p.agents {
		a.EndPeriod()
	}
}
