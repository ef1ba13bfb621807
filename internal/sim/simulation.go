package sim

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/agent"
	"main/internal/logsink"
	"main/internal/market"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/telemetry"
)

// Simulation wires one venue, one agent pool, and one telemetry aggregator
// into a repeatable multi-period run. A Simulation is owned by a single
// goroutine at a time; concurrent runs need separate instances.
type Simulation struct {
	ID  uuid.UUID
	cfg Config

	venue     *market.Book
	pool      *agent.Pool
	telemetry *telemetry.Aggregator
	metrics   *obs.Metrics

	memLookup func(name string) *logsink.Memory

	period           int
	targetPeriods    int
	requestedPeriods int
	periodStats      []telemetry.PeriodStats

	realtimeActive bool
	periodStarted  time.Time

	rng *rand.Rand
}

// Option adjusts optional simulation wiring.
type Option func(*Simulation)

// WithMetrics attaches a metrics container, shared across simulations.
func WithMetrics(m *obs.Metrics) Option {
	return func(s *Simulation) { s.metrics = m }
}

// New validates cfg and builds a ready-to-run simulation. A nil sink
// factory keeps all logs in memory, retrievable via MemoryLog.
func New(cfg Config, factory logsink.Factory, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "new simulation")
	}

	s := &Simulation{
		ID:               uuid.New(),
		cfg:              cfg,
		targetPeriods:    cfg.Periods,
		requestedPeriods: cfg.Periods,
	}
	for _, opt := range opts {
		opt(s)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))

	if factory == nil {
		factory, s.memLookup = logsink.MemoryFactory()
	}
	agg, err := telemetry.New(telemetry.Config{
		CaseID:           cfg.CaseID,
		PeriodDuration:   cfg.PeriodDuration,
		WithoutOrderLogs: cfg.WithoutOrderLogs,
		BuyerValues:      cfg.BuyerValues,
		SellerCosts:      cfg.SellerCosts,
	}, factory)
	if err != nil {
		return nil, errors.Wrap(err, "new simulation")
	}
	s.telemetry = agg

	s.venue = market.New(market.Config{
		MinPrice:    cfg.L,
		MaxPrice:    cfg.H,
		BuyImprove:  cfg.BuyImprove,
		SellImprove: cfg.SellImprove,
	}, market.Handlers{
		PreOrder: s.onOrder,
		Reject:   s.onReject,
		Trade:    s.onTrade,
	})

	if err := s.buildPool(); err != nil {
		return nil, errors.Wrap(err, "new simulation")
	}

	ids := make([]int, 0, len(s.pool.Agents()))
	for _, a := range s.pool.Agents() {
		ids = append(ids, a.ID)
	}
	if err := s.telemetry.InitProfitHeader(ids); err != nil {
		return nil, errors.Wrap(err, "new simulation")
	}

	if !cfg.Silent {
		logs.Infof("simulation %s: case %d, %d buyers, %d sellers, %d periods",
			s.ID, cfg.CaseID, cfg.numberOfBuyers(), cfg.numberOfSellers(), cfg.Periods)
	}
	return s, nil
}

func (s *Simulation) buildPool() error {
	s.pool = agent.NewPool(s.cfg.PeriodDuration)

	submit := func(o model.Order) error {
		s.venue.Submit(o)
		return s.venue.Drain()
	}

	nb, ns := s.cfg.numberOfBuyers(), s.cfg.numberOfSellers()
	for i := 0; i < nb; i++ {
		a, err := agent.New(agent.Options{
			ID:         i + 1,
			Side:       enum.SideBuy,
			Type:       agent.TypeZI,
			Rate:       rateFor(s.cfg.BuyerRate, i),
			MinPrice:   s.cfg.L,
			MaxPrice:   s.cfg.H,
			Integer:    s.cfg.Integer,
			KeepOrders: s.cfg.KeepPreviousOrders,
			Submit:     submit,
			Strategy:   agent.ZIBuyer{IgnoreBudget: s.cfg.IgnoreBudgetConstraint},
			Rand:       s.rng,
		})
		if err != nil {
			return err
		}
		s.pool.Push(a)
	}
	for i := 0; i < ns; i++ {
		a, err := agent.New(agent.Options{
			ID:         nb + i + 1,
			Side:       enum.SideSell,
			Type:       agent.TypeZI,
			Rate:       rateFor(s.cfg.SellerRate, i),
			MinPrice:   s.cfg.L,
			MaxPrice:   s.cfg.H,
			Integer:    s.cfg.Integer,
			KeepOrders: s.cfg.KeepPreviousOrders,
			Submit:     submit,
			Strategy:   agent.ZISeller{IgnoreBudget: s.cfg.IgnoreBudgetConstraint},
			Rand:       s.rng,
		})
		if err != nil {
			return err
		}
		s.pool.Push(a)
	}

	s.pool.Distribute(enum.SideBuy, s.cfg.BuyerValues)
	s.pool.Distribute(enum.SideSell, s.cfg.SellerCosts)
	return nil
}

func (s *Simulation) onOrder(o model.Order) error {
	s.metrics.IncOrderAccepted()
	return s.telemetry.CaptureOrder(s.period, o, s.venue, s.pool)
}

func (s *Simulation) onReject(o model.Order) error {
	s.metrics.IncOrderRejected()
	return s.telemetry.CaptureReject(s.period, o, s.venue, s.pool)
}

func (s *Simulation) onTrade(tr model.Trade) error {
	settle, err := s.telemetry.CaptureTrade(s.period, tr, s.venue, s.pool)
	if err != nil {
		return err
	}
	s.metrics.IncTrade()
	return s.pool.Trade(settle.BuyerID, settle.SellerID, settle.Price)
}

// Config returns the simulation's configuration.
func (s *Simulation) Config() Config { return s.cfg }

// CompletedPeriods reports how many periods have finished.
func (s *Simulation) CompletedPeriods() int { return s.period }

// RequestedPeriods reports the period count originally asked for,
// unchanged by deadline truncation.
func (s *Simulation) RequestedPeriods() int { return s.requestedPeriods }

// TargetPeriods reports the period count the run will actually execute.
// It only differs from RequestedPeriods after deadline truncation.
func (s *Simulation) TargetPeriods() int { return s.targetPeriods }

// PeriodStats returns the reductions of every completed period, in order.
func (s *Simulation) PeriodStats() []telemetry.PeriodStats {
	out := make([]telemetry.PeriodStats, len(s.periodStats))
	copy(out, s.periodStats)
	return out
}

// Agents exposes the agent pool, primarily for inspection after a run.
func (s *Simulation) Agents() []*agent.Agent { return s.pool.Agents() }

// MemoryLog returns the in-memory sink for a log name, or nil when the
// simulation writes through an external sink factory.
func (s *Simulation) MemoryLog(name string) *logsink.Memory {
	if s.memLookup == nil {
		return nil
	}
	return s.memLookup(name)
}

// Close flushes and closes the log sinks.
func (s *Simulation) Close() error { return s.telemetry.Close() }
