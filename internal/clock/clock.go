// Package clock computes the earliest admissible end time of a trading
// period from the period schedule and the configured inactivity windows.
package clock

import "main/internal/model/enum"

// Stamp records the most recent event seen on one telemetry stream.
type Stamp struct {
	Period int
	T      float64
}

// Decision is a potential end of period and the rule that produced it.
type Decision struct {
	EndTime float64
	Reason  enum.EndReason
}

// Windows holds the optional inactivity windows. A zero or negative window
// disables that clock.
type Windows struct {
	Order float64
	Trade float64
}

// State is the per-period bookkeeping consumed by Decide.
type State struct {
	PeriodNumber   int
	PeriodDuration float64
	LastBuyOrder   Stamp
	LastSellOrder  Stamp
	LastTrade      Stamp
}

// lastT returns the stream's last event time, falling back to the period
// start when the stream has not produced an event in the current period.
func (s State) lastT(stamp Stamp) float64 {
	if stamp.Period != s.PeriodNumber {
		return s.PeriodDuration * float64(s.PeriodNumber)
	}
	return stamp.T
}

// Decide returns the earliest potential end of period given the natural
// schedule horizon reported by the agent pool.
//
// Evaluation order is duration, then order clock, then trade clock, and a
// later stage only wins on a strict improvement. When two clocks tie the
// earlier-evaluated reason is reported.
func Decide(scheduledHorizon float64, w Windows, s State) Decision {
	d := Decision{EndTime: scheduledHorizon, Reason: enum.EndReasonDuration}

	if w.Order > 0 {
		candidate := w.Order + s.lastT(s.LastBuyOrder)
		if alt := w.Order + s.lastT(s.LastSellOrder); alt > candidate {
			candidate = alt
		}
		if candidate < d.EndTime {
			d.EndTime = candidate
			d.Reason = enum.EndReasonOrderClock
		}
	}

	if w.Trade > 0 {
		candidate := w.Trade + s.lastT(s.LastTrade)
		if candidate < d.EndTime {
			d.EndTime = candidate
			d.Reason = enum.EndReasonTradeClock
		}
	}

	return d
}
