// Package telemetry captures per-event records of a simulation run and
// reduces each completed period into summary statistics. The same aggregator
// serves every execution mode so logged output is mode-independent.
package telemetry

import (
	"math"
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/agent"
	"main/internal/clock"
	"main/internal/logsink"
	"main/internal/model"
	"main/internal/model/enum"
)

// Blank is the sentinel for a cell that does not apply to a row. It is
// distinct from missing data, which would be a bug.
const Blank = ""

// VenueView is the read-only venue surface the aggregator snapshots.
type VenueView interface {
	BestBid() (float64, bool)
	BestAsk() (float64, bool)
	LastTradePrice() (float64, bool)
	OrderOwner(slot int) (int, bool)
}

// PoolView resolves agent identity for captured events.
type PoolView interface {
	AgentByID(id int) (*agent.Agent, bool)
}

// Settlement is the resolved outcome of a captured trade, to be applied to
// the agent pool by the caller.
type Settlement struct {
	BuyerID  int
	SellerID int
	Price    float64
}

// PeriodStats is the reduction of one completed period.
type PeriodStats struct {
	CaseID    int
	Period    int
	BeginTime float64
	EndTime   float64
	EndReason enum.EndReason

	HasTrades bool
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int
	P25       float64
	Median    float64
	P75       float64
	Mean      float64
	SD        float64

	Gini float64

	HasEfficiency bool
	Efficiency    float64
}

// Config configures an aggregator for one run.
type Config struct {
	CaseID           int
	PeriodDuration   float64
	WithoutOrderLogs bool
	BuyerValues      []float64
	SellerCosts      []float64
}

// Aggregator owns the run's log sinks and the inactivity-clock bookkeeping.
// It is exclusively owned by one simulation instance.
type Aggregator struct {
	cfg   Config
	sinks map[string]logsink.Sink

	lastBuyOrder  clock.Stamp
	lastSellOrder clock.Stamp
	lastTrade     clock.Stamp

	periodTradePrices []float64

	maxGains    float64
	maxGainsSet bool
}

// New builds the aggregator and its sinks, writing fixed header rows.
func New(cfg Config, factory logsink.Factory) (*Aggregator, error) {
	if factory == nil {
		return nil, errors.New("telemetry: sink factory required")
	}
	g := &Aggregator{cfg: cfg, sinks: make(map[string]logsink.Sink)}
	for _, name := range LogNames {
		if cfg.WithoutOrderLogs && isOrderLog(name) {
			continue
		}
		sink, err := factory(name)
		if err != nil {
			return nil, errors.Wrapf(err, "telemetry: create %s sink", name)
		}
		g.sinks[name] = sink
		if header, ok := Headers[name]; ok {
			if err := sink.Write(header); err != nil {
				return nil, errors.Wrapf(err, "telemetry: write %s header", name)
			}
		}
	}
	return g, nil
}

func isOrderLog(name string) bool {
	switch name {
	case LogBuyOrder, LogSellOrder, LogRejectBuyOrder, LogRejectSellOrder:
		return true
	}
	return false
}

// InitProfitHeader writes the population-dependent profit log header.
func (g *Aggregator) InitProfitHeader(agentIDs []int) error {
	sink, ok := g.sinks[LogProfit]
	if !ok {
		return nil
	}
	header := []string{"caseid", "period"}
	for _, id := range agentIDs {
		header = append(header, "y"+strconv.Itoa(id))
	}
	return sink.Write(header)
}

// ClockState exposes the event bookkeeping consumed by clock.Decide.
func (g *Aggregator) ClockState(period int) clock.State {
	return clock.State{
		PeriodNumber:   period,
		PeriodDuration: g.cfg.PeriodDuration,
		LastBuyOrder:   g.lastBuyOrder,
		LastSellOrder:  g.lastSellOrder,
		LastTrade:      g.lastTrade,
	}
}

// CaptureOrder records an accepted order with the venue snapshot taken just
// before the order was considered.
func (g *Aggregator) CaptureOrder(period int, o model.Order, venue VenueView, pool PoolView) error {
	if err := g.writeOrderRow(period, o, venue, pool, false); err != nil {
		return err
	}
	stamp := clock.Stamp{Period: period, T: o.T}
	if o.Side == enum.SideBuy {
		g.lastBuyOrder = stamp
	} else {
		g.lastSellOrder = stamp
	}
	return nil
}

// CaptureReject records a rejected order on the reject stream. Rejected
// orders never re-arm the order clock.
func (g *Aggregator) CaptureReject(period int, o model.Order, venue VenueView, pool PoolView) error {
	return g.writeOrderRow(period, o, venue, pool, true)
}

func (g *Aggregator) writeOrderRow(period int, o model.Order, venue VenueView, pool PoolView, rejected bool) error {
	side := o.Side
	if side == enum.SideUnknown {
		// Nothing to log for a sideless submission; the venue has already
		// routed it to the reject stream's handler.
		return nil
	}
	a, ok := pool.AgentByID(o.AgentID)
	if !ok {
		return errors.Errorf("order capture: unknown agent %d", o.AgentID)
	}

	name := LogBuyOrder
	if side == enum.SideSell {
		name = LogSellOrder
	}
	if rejected {
		name = "reject" + name
	}
	sink, active := g.sinks[name]
	if !active {
		return nil
	}

	row := []string{
		strconv.Itoa(g.cfg.CaseID),
		strconv.Itoa(period),
		num(o.T),
		num(o.T - float64(period)*g.cfg.PeriodDuration),
		optNum(venue.BestBid()),
		optNum(venue.BestAsk()),
		optNum(venue.LastTradePrice()),
		strconv.Itoa(o.AgentID),
		strconv.Itoa(a.X),
	}
	if side == enum.SideBuy {
		v, okV := a.UnitValue()
		row = append(row, num(o.BuyPrice), optNum(v, okV), a.Type, Blank, Blank, Blank)
	} else {
		c, okC := a.UnitCost()
		row = append(row, Blank, Blank, Blank, num(o.SellPrice), optNum(c, okC), a.Type)
	}
	return sink.Write(row)
}

// CaptureTrade validates and records a venue trade event. It requires
// exactly one buy-side and one sell-side unit; any other shape is fatal.
// The returned settlement has not yet been applied to the pool.
func (g *Aggregator) CaptureTrade(period int, tr model.Trade, venue VenueView, pool PoolView) (Settlement, error) {
	if tr.TotalQ != 1 || len(tr.BuySlots) != 1 || len(tr.SellSlots) != 1 {
		return Settlement{}, errors.Errorf("trade capture: single unit trades required, got totalQ=%d", tr.TotalQ)
	}
	if tr.Price == 0 || math.IsNaN(tr.Price) {
		return Settlement{}, errors.New("trade capture: missing trade price")
	}
	buyerID, ok := venue.OrderOwner(tr.BuySlots[0])
	if !ok {
		return Settlement{}, errors.Errorf("trade capture: cannot resolve buyer from slot %d", tr.BuySlots[0])
	}
	sellerID, ok := venue.OrderOwner(tr.SellSlots[0])
	if !ok {
		return Settlement{}, errors.Errorf("trade capture: cannot resolve seller from slot %d", tr.SellSlots[0])
	}
	buyer, ok := pool.AgentByID(buyerID)
	if !ok {
		return Settlement{}, errors.Errorf("trade capture: unknown buyer %d", buyerID)
	}
	seller, ok := pool.AgentByID(sellerID)
	if !ok {
		return Settlement{}, errors.Errorf("trade capture: unknown seller %d", sellerID)
	}

	buyerValue, ok := buyer.UnitValue()
	if !ok {
		return Settlement{}, errors.Errorf("trade capture: buyer %d has no marginal value", buyerID)
	}
	sellerCost, ok := seller.UnitCost()
	if !ok {
		return Settlement{}, errors.Errorf("trade capture: seller %d has no marginal cost", sellerID)
	}
	buyerProfit := buyerValue - tr.Price
	sellerProfit := tr.Price - sellerCost

	if sink, ok := g.sinks[LogTrade]; ok {
		row := []string{
			strconv.Itoa(g.cfg.CaseID),
			strconv.Itoa(period),
			num(tr.T),
			num(tr.T - float64(period)*g.cfg.PeriodDuration),
			num(tr.Price),
			strconv.Itoa(buyerID),
			buyer.Type,
			num(buyerValue),
			num(buyerProfit),
			strconv.Itoa(sellerID),
			seller.Type,
			num(sellerCost),
			num(sellerProfit),
		}
		if err := sink.Write(row); err != nil {
			return Settlement{}, errors.Wrap(err, "trade capture")
		}
	}

	g.periodTradePrices = append(g.periodTradePrices, tr.Price)
	g.lastTrade = clock.Stamp{Period: period, T: tr.T}
	return Settlement{BuyerID: buyerID, SellerID: sellerID, Price: tr.Price}, nil
}

// TradePrices returns the current period's buffered trade prices.
func (g *Aggregator) TradePrices() []float64 { return g.periodTradePrices }
