package sim

import (
	"github.com/yanun0323/errors"
)

// Config describes one simulation: the trading venue, the agent
// population, the period schedule, and the inactivity clocks. Zero values
// disable optional behavior.
type Config struct {
	// CaseID tags every logged row of this simulation.
	CaseID int `json:"caseid" yaml:"caseid"`

	// Periods is the number of trading periods requested.
	Periods int `json:"periods" yaml:"periods"`

	// PeriodDuration is the length of one period in simulated time units.
	PeriodDuration float64 `json:"periodDuration" yaml:"periodDuration"`

	// OrderClock ends a period early when neither side has submitted an
	// accepted order within this window. Zero disables.
	OrderClock float64 `json:"orderClock" yaml:"orderClock"`

	// TradeClock ends a period early when no trade has occurred within
	// this window. Zero disables.
	TradeClock float64 `json:"tradeClock" yaml:"tradeClock"`

	// L and H bound admissible prices.
	L float64 `json:"L" yaml:"L"`
	H float64 `json:"H" yaml:"H"`

	// NumberOfBuyers and NumberOfSellers may be zero, in which case they
	// are inferred from the length of BuyerValues / SellerCosts.
	NumberOfBuyers  int `json:"numberOfBuyers" yaml:"numberOfBuyers"`
	NumberOfSellers int `json:"numberOfSellers" yaml:"numberOfSellers"`

	// BuyerValues and SellerCosts are the aggregate unit valuations and
	// costs dealt out across the respective side each period.
	BuyerValues []float64 `json:"buyerValues" yaml:"buyerValues"`
	SellerCosts []float64 `json:"sellerCosts" yaml:"sellerCosts"`

	// BuyerRate and SellerRate are Poisson arrival rates, cycled over the
	// agents of each side. Empty defaults to rate 1 for every agent.
	BuyerRate  []float64 `json:"buyerRate" yaml:"buyerRate"`
	SellerRate []float64 `json:"sellerRate" yaml:"sellerRate"`

	// Integer restricts quotes to whole-number prices.
	Integer bool `json:"integer" yaml:"integer"`

	// IgnoreBudgetConstraint lets agents quote beyond their marginal
	// valuation or cost.
	IgnoreBudgetConstraint bool `json:"ignoreBudgetConstraint" yaml:"ignoreBudgetConstraint"`

	// KeepPreviousOrders disables the implicit cancel-replace on each
	// new order.
	KeepPreviousOrders bool `json:"keepPreviousOrders" yaml:"keepPreviousOrders"`

	// BuyImprove and SellImprove require new orders to improve on the
	// current best quote of their side.
	BuyImprove  bool `json:"buyImprove" yaml:"buyImprove"`
	SellImprove bool `json:"sellImprove" yaml:"sellImprove"`

	// Realtime paces each period against the wall clock, one simulated
	// time unit per second. Incompatible with the inactivity clocks.
	Realtime bool `json:"realtime" yaml:"realtime"`

	// WithoutOrderLogs suppresses the four order logs.
	WithoutOrderLogs bool `json:"withoutOrderLogs" yaml:"withoutOrderLogs"`

	// Silent suppresses per-period progress logging.
	Silent bool `json:"silent" yaml:"silent"`

	// Seed fixes the random source for reproducible runs. Zero seeds
	// from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
}

func (c Config) numberOfBuyers() int {
	if c.NumberOfBuyers > 0 {
		return c.NumberOfBuyers
	}
	return len(c.BuyerValues)
}

func (c Config) numberOfSellers() int {
	if c.NumberOfSellers > 0 {
		return c.NumberOfSellers
	}
	return len(c.SellerCosts)
}

// Validate rejects configurations that cannot produce a well-defined run.
func (c Config) Validate() error {
	if c.Periods <= 0 {
		return errors.New("config: periods must be positive").With("periods", c.Periods)
	}
	if c.PeriodDuration <= 0 {
		return errors.New("config: periodDuration must be positive").With("periodDuration", c.PeriodDuration)
	}
	if c.numberOfBuyers() <= 0 {
		return errors.New("config: unable to determine numberOfBuyers")
	}
	if c.numberOfSellers() <= 0 {
		return errors.New("config: unable to determine numberOfSellers")
	}
	if c.H < c.L {
		return errors.New("config: price bounds inverted").With("L", c.L).With("H", c.H)
	}
	if c.OrderClock < 0 || c.TradeClock < 0 {
		return errors.New("config: inactivity clocks must be non-negative")
	}
	if c.Realtime && (c.OrderClock > 0 || c.TradeClock > 0) {
		return errors.New("config: inactivity clocks unsupported in realtime mode")
	}
	return nil
}

func rateFor(rates []float64, i int) float64 {
	if len(rates) == 0 {
		return 1
	}
	r := rates[i%len(rates)]
	if r <= 0 {
		return 1
	}
	return r
}
