package telemetry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/agent"
	"main/internal/clock"
	"main/internal/logsink"
	"main/internal/model"
	"main/internal/model/enum"
)

type fakeVenue struct {
	bid, ask, last          float64
	hasBid, hasAsk, hasLast bool
	owners                  map[int]int
}

func (v fakeVenue) BestBid() (float64, bool)        { return v.bid, v.hasBid }
func (v fakeVenue) BestAsk() (float64, bool)        { return v.ask, v.hasAsk }
func (v fakeVenue) LastTradePrice() (float64, bool) { return v.last, v.hasLast }
func (v fakeVenue) OrderOwner(slot int) (int, bool) {
	id, ok := v.owners[slot]
	return id, ok
}

func newAgent(t *testing.T, id int, side enum.Side) *agent.Agent {
	t.Helper()
	var strategy agent.Strategy
	if side == enum.SideBuy {
		strategy = agent.ZIBuyer{}
	} else {
		strategy = agent.ZISeller{}
	}
	a, err := agent.New(agent.Options{
		ID:       id,
		Side:     side,
		Type:     agent.TypeZI,
		Rate:     1,
		MinPrice: 1,
		MaxPrice: 100,
		Submit:   func(model.Order) error { return nil },
		Strategy: strategy,
		Rand:     rand.New(rand.NewSource(int64(id))),
	})
	require.NoError(t, err)
	return a
}

func newFixture(t *testing.T, cfg Config) (*Aggregator, func(string) *logsink.Memory, *agent.Pool, *agent.Agent, *agent.Agent) {
	t.Helper()
	factory, lookup := logsink.MemoryFactory()
	g, err := New(cfg, factory)
	require.NoError(t, err)

	pool := agent.NewPool(cfg.PeriodDuration)
	buyer := newAgent(t, 1, enum.SideBuy)
	seller := newAgent(t, 2, enum.SideSell)
	buyer.Values = []float64{1000}
	seller.Costs = []float64{1}
	pool.Push(buyer)
	pool.Push(seller)
	return g, lookup, pool, buyer, seller
}

func TestHeadersWrittenOnCreate(t *testing.T) {
	g, lookup, _, _, _ := newFixture(t, Config{CaseID: 7, PeriodDuration: 1000})
	defer func() { _ = g.Close() }()

	for _, name := range []string{LogTrade, LogBuyOrder, LogOHLC, LogEffAlloc} {
		rows := lookup(name).Rows()
		require.Len(t, rows, 1, name)
		assert.Equal(t, Headers[name], rows[0], name)
	}

	require.NoError(t, g.InitProfitHeader([]int{1, 2}))
	assert.Equal(t, []string{"caseid", "period", "y1", "y2"}, lookup(LogProfit).Last())
}

func TestCaptureOrderBuySideBlanksSellColumns(t *testing.T) {
	g, lookup, pool, _, _ := newFixture(t, Config{CaseID: 7, PeriodDuration: 1000})
	venue := fakeVenue{bid: 40, hasBid: true}

	o := model.Order{T: 1250, AgentID: 1, Side: enum.SideBuy, Qty: 1, BuyPrice: 55}
	require.NoError(t, g.CaptureOrder(1, o, venue, pool))

	row := lookup(LogBuyOrder).Last()
	assert.Equal(t, []string{
		"7", "1", "1250", "250",
		"40", Blank, Blank,
		"1", "0",
		"55", "1000", "ZIAgent",
		Blank, Blank, Blank,
	}, row)

	// the accepted order re-armed the buy-order clock stamp
	st := g.ClockState(1)
	assert.Equal(t, clock.Stamp{Period: 1, T: 1250}, st.LastBuyOrder)
	assert.Equal(t, clock.Stamp{}, st.LastSellOrder)
}

func TestCaptureRejectRoutesToRejectStreamWithoutStamp(t *testing.T) {
	g, lookup, pool, _, _ := newFixture(t, Config{CaseID: 7, PeriodDuration: 1000})
	o := model.Order{T: 1300, AgentID: 2, Side: enum.SideSell, Qty: 1, SellPrice: 500}
	require.NoError(t, g.CaptureReject(1, o, fakeVenue{}, pool))

	require.Len(t, lookup(LogRejectSellOrder).Rows(), 2)
	assert.Len(t, lookup(LogSellOrder).Rows(), 1) // header only
	assert.Equal(t, clock.Stamp{}, g.ClockState(1).LastSellOrder)
}

func TestCaptureTradeProfitIdentity(t *testing.T) {
	g, lookup, pool, _, _ := newFixture(t, Config{
		CaseID: 7, PeriodDuration: 1000,
		BuyerValues: []float64{1000}, SellerCosts: []float64{1},
	})
	venue := fakeVenue{owners: map[int]int{0: 1, 1: 2}}
	tr := model.Trade{T: 1400, Price: 600, TotalQ: 1, BuySlots: []int{0}, SellSlots: []int{1}}

	st, err := g.CaptureTrade(1, tr, venue, pool)
	require.NoError(t, err)
	assert.Equal(t, Settlement{BuyerID: 1, SellerID: 2, Price: 600}, st)

	row := lookup(LogTrade).Last()
	assert.Equal(t, []string{
		"7", "1", "1400", "400", "600",
		"1", "ZIAgent", "1000", "400",
		"2", "ZIAgent", "1", "599",
	}, row)
	assert.Equal(t, []float64{600}, g.TradePrices())
	assert.Equal(t, clock.Stamp{Period: 1, T: 1400}, g.ClockState(1).LastTrade)
}

func TestCaptureTradeSingleUnitInvariant(t *testing.T) {
	g, _, pool, _, _ := newFixture(t, Config{CaseID: 7, PeriodDuration: 1000})
	venue := fakeVenue{owners: map[int]int{0: 1, 1: 2}}

	_, err := g.CaptureTrade(1, model.Trade{T: 1, Price: 5, TotalQ: 2,
		BuySlots: []int{0}, SellSlots: []int{1}}, venue, pool)
	require.Error(t, err)

	_, err = g.CaptureTrade(1, model.Trade{T: 1, Price: 0, TotalQ: 1,
		BuySlots: []int{0}, SellSlots: []int{1}}, venue, pool)
	require.Error(t, err)
}

func TestClosePeriodNoTrades(t *testing.T) {
	cfg := Config{
		CaseID: 1234, PeriodDuration: 1000,
		BuyerValues: []float64{10, 9, 8}, SellerCosts: []float64{20, 40},
	}
	factory, lookup := logsink.MemoryFactory()
	g, err := New(cfg, factory)
	require.NoError(t, err)

	pool := agent.NewPool(1000)
	agents := []*agent.Agent{
		newAgent(t, 1, enum.SideBuy),
		newAgent(t, 2, enum.SideSell),
	}
	for _, a := range agents {
		pool.Push(a)
	}

	decision := clock.Decision{EndTime: 1500, Reason: enum.EndReasonTradeClock}
	ps, err := g.ClosePeriod(1, decision, agents)
	require.NoError(t, err)

	assert.False(t, ps.HasTrades)
	assert.Equal(t, 0, ps.Volume)
	assert.Equal(t, 0.0, ps.Gini)

	assert.Equal(t, []string{
		"1234", "1", "1000", "1500", "1",
		Blank, Blank, Blank, Blank, "0",
		Blank, Blank, Blank, Blank, Blank, "0",
	}, lookup(LogOHLC).Last())

	// all values below all costs: zero max surplus, so no effalloc record
	assert.False(t, ps.HasEfficiency)
	assert.Len(t, lookup(LogEffAlloc).Rows(), 1)

	assert.Equal(t, []string{"1234", "1", "0", "0"}, lookup(LogProfit).Last())
}

func TestClosePeriodWithTradesAndEfficiency(t *testing.T) {
	g, lookup, pool, buyer, seller := newFixture(t, Config{
		CaseID: 7890, PeriodDuration: 1000,
		BuyerValues: []float64{1000}, SellerCosts: []float64{1},
	})
	venue := fakeVenue{owners: map[int]int{0: 1, 1: 2}}
	tr := model.Trade{T: 1400, Price: 600, TotalQ: 1, BuySlots: []int{0}, SellSlots: []int{1}}
	st, err := g.CaptureTrade(1, tr, venue, pool)
	require.NoError(t, err)
	require.NoError(t, pool.Trade(st.BuyerID, st.SellerID, st.Price))
	pool.EndPeriod()

	ps, err := g.ClosePeriod(1, clock.Decision{EndTime: 2000}, pool.Agents())
	require.NoError(t, err)

	assert.True(t, ps.HasTrades)
	assert.Equal(t, 600.0, ps.Open)
	assert.Equal(t, 600.0, ps.Close)
	assert.Equal(t, 1, ps.Volume)
	require.True(t, ps.HasEfficiency)
	assert.Equal(t, 100.0, ps.Efficiency)
	assert.Equal(t, []string{"7890", "1", "100"}, lookup(LogEffAlloc).Last())

	// profit identity: buyer 400 + seller 599 = value 1000 - cost 1
	assert.Equal(t, 400.0, buyer.Money)
	assert.Equal(t, 599.0, seller.Money)

	// buffer cleared for the next period
	assert.Empty(t, g.TradePrices())
}

func TestNumCellsUsePlainDecimalNotation(t *testing.T) {
	assert.Equal(t, "0", num(0))
	assert.Equal(t, "55", num(55))
	assert.Equal(t, "599.5", num(599.5))
	assert.Equal(t, "1000000", num(1e6))
	assert.Equal(t, "123456789", num(123456789))
	assert.Equal(t, "1234567.5", num(1234567.5))
	assert.Equal(t, "0.000001", num(1e-6))
	assert.Equal(t, "1e+21", num(1e21))
}

func TestMaximumPossibleGainsGreedyAndCached(t *testing.T) {
	factory, _ := logsink.MemoryFactory()
	g, err := New(Config{
		PeriodDuration: 1000,
		BuyerValues:    []float64{30, 100, 50},
		SellerCosts:    []float64{60, 10, 20},
	}, factory)
	require.NoError(t, err)

	// pairs: (100,10)=90, (50,20)=30, (30,60) unprofitable
	assert.Equal(t, 120.0, g.MaximumPossibleGainsFromTrade())
	assert.Equal(t, 120.0, g.MaximumPossibleGainsFromTrade())
}
