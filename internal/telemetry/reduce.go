package telemetry

import (
	"math"
	"sort"
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/agent"
	"main/internal/clock"
	"main/internal/stats"
)

// ClosePeriod reduces the completed period into profit, ohlc and effalloc
// rows, returns the derived stats, and clears the trade-price buffer. The
// decision is the final end-of-period decision for the period.
func (g *Aggregator) ClosePeriod(period int, decision clock.Decision, agents []*agent.Agent) (PeriodStats, error) {
	finalMoney := make([]float64, len(agents))
	for i, a := range agents {
		finalMoney[i] = a.Money
	}

	ps := PeriodStats{
		CaseID:    g.cfg.CaseID,
		Period:    period,
		BeginTime: float64(period) * g.cfg.PeriodDuration,
		EndTime:   decision.EndTime,
		EndReason: decision.Reason,
		Volume:    len(g.periodTradePrices),
		Gini:      stats.Gini(finalMoney),
	}
	if prices := g.periodTradePrices; len(prices) > 0 {
		ps.HasTrades = true
		ps.Open = prices[0]
		ps.Close = prices[len(prices)-1]
		ps.High, ps.Low = prices[0], prices[0]
		for _, p := range prices {
			if p > ps.High {
				ps.High = p
			}
			if p < ps.Low {
				ps.Low = p
			}
		}
		ps.Median = stats.Median(prices)
		ps.Mean = stats.Mean(prices)
		ps.SD = stats.Stdev(prices)
		ps.P25 = stats.Percentile(prices, 0.25)
		ps.P75 = stats.Percentile(prices, 0.75)
	}

	if sink, ok := g.sinks[LogProfit]; ok {
		row := []string{strconv.Itoa(ps.CaseID), strconv.Itoa(period)}
		for _, m := range finalMoney {
			row = append(row, num(m))
		}
		if err := sink.Write(row); err != nil {
			return PeriodStats{}, errors.Wrap(err, "close period: profit")
		}
	}

	if sink, ok := g.sinks[LogOHLC]; ok {
		if err := sink.Write(g.ohlcRow(ps)); err != nil {
			return PeriodStats{}, errors.Wrap(err, "close period: ohlc")
		}
	}

	// Efficiency is reported only against a strictly positive theoretical
	// maximum; 0/0 yields no record rather than a degenerate value.
	if maxGains := g.MaximumPossibleGainsFromTrade(); maxGains > 0 {
		total := 0.0
		for _, m := range finalMoney {
			total += m
		}
		ps.HasEfficiency = true
		ps.Efficiency = 100 * total / maxGains
		if sink, ok := g.sinks[LogEffAlloc]; ok {
			row := []string{strconv.Itoa(ps.CaseID), strconv.Itoa(period), num(ps.Efficiency)}
			if err := sink.Write(row); err != nil {
				return PeriodStats{}, errors.Wrap(err, "close period: effalloc")
			}
		}
	}

	g.periodTradePrices = g.periodTradePrices[:0]
	return ps, nil
}

func (g *Aggregator) ohlcRow(ps PeriodStats) []string {
	row := []string{
		strconv.Itoa(ps.CaseID),
		strconv.Itoa(ps.Period),
		num(ps.BeginTime),
		num(ps.EndTime),
		strconv.Itoa(int(ps.EndReason)),
	}
	if ps.HasTrades {
		row = append(row, num(ps.Open), num(ps.High), num(ps.Low), num(ps.Close))
	} else {
		row = append(row, Blank, Blank, Blank, Blank)
	}
	row = append(row, strconv.Itoa(ps.Volume))
	if ps.HasTrades {
		row = append(row, num(ps.P25), num(ps.Median), num(ps.P75), num(ps.Mean), num(ps.SD))
	} else {
		row = append(row, Blank, Blank, Blank, Blank, Blank)
	}
	return append(row, num(ps.Gini))
}

// MaximumPossibleGainsFromTrade computes the theoretical maximum surplus by
// pairing the highest-value buyers with the lowest-cost sellers. Computed
// once per run and cached.
func (g *Aggregator) MaximumPossibleGainsFromTrade() float64 {
	if g.maxGainsSet {
		return g.maxGains
	}
	values := append([]float64(nil), g.cfg.BuyerValues...)
	costs := append([]float64(nil), g.cfg.SellerCosts...)
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	sort.Float64s(costs)
	result := 0.0
	for i := 0; i < len(values) && i < len(costs) && values[i] > costs[i]; i++ {
		result += values[i] - costs[i]
	}
	g.maxGains = result
	g.maxGainsSet = true
	return result
}

// Close closes every sink.
func (g *Aggregator) Close() error {
	var firstErr error
	for _, name := range LogNames {
		sink, ok := g.sinks[name]
		if !ok {
			continue
		}
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close %s sink", name)
		}
	}
	return firstErr
}

// num renders a cell the way dynamic-language runtimes print numbers:
// plain decimal notation up to 1e21, exponent notation only beyond it or
// below 1e-6.
func num(v float64) string {
	if av := math.Abs(v); av != 0 && (av >= 1e21 || av < 1e-6) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v float64, ok bool) string {
	if !ok {
		return Blank
	}
	return num(v)
}
