package sim

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/clock"
)

// steppedBatch is how many agent wakes a cooperative step executes before
// yielding the scheduler.
const steppedBatch = 100

// realtimeTick is the wall-clock pacing interval of realtime periods.
const realtimeTick = 40 * time.Millisecond

// potentialEndOfPeriod evaluates the three period-end clocks against the
// events recorded so far. The scheduled horizon never moves within a
// period; only the inactivity clocks can pull the decision earlier.
func (s *Simulation) potentialEndOfPeriod() clock.Decision {
	return clock.Decide(s.pool.EndTime(), clock.Windows{
		Order: s.cfg.OrderClock,
		Trade: s.cfg.TradeClock,
	}, s.telemetry.ClockState(s.period))
}

// stepExecutor advances the agent pool to a simulated-time horizon. The
// fixed-point search in runPeriod is executor-agnostic, so every mode
// produces identical telemetry for identical event streams.
type stepExecutor interface {
	step(ctx context.Context, until float64) error
}

type syncExecutor struct{ s *Simulation }

func (e syncExecutor) step(ctx context.Context, until float64) error {
	_ = ctx
	return e.s.pool.SyncRun(until)
}

type steppedExecutor struct{ s *Simulation }

func (e steppedExecutor) step(ctx context.Context, until float64) error {
	return e.s.pool.Run(ctx, until, steppedBatch)
}

// runPeriod opens the next period and drives it to a stable end time:
// advance to the current decision's horizon, re-evaluate the clocks with
// the new events, and repeat until the decision stops moving forward.
func (s *Simulation) runPeriod(ctx context.Context, exec stepExecutor) error {
	s.openPeriod()

	prev := clock.Decision{}
	cur := s.potentialEndOfPeriod()
	for prev.EndTime < cur.EndTime {
		if err := exec.step(ctx, cur.EndTime); err != nil {
			return errors.Wrapf(err, "period %d", s.period)
		}
		prev, cur = cur, s.potentialEndOfPeriod()
	}
	return s.finishPeriod(cur)
}

// runPeriodRealtime paces one period against the wall clock, one simulated
// time unit per second. The horizon is fixed up front: inactivity clocks
// are rejected by Validate, so nothing can move it.
func (s *Simulation) runPeriodRealtime(ctx context.Context) error {
	if s.cfg.OrderClock > 0 || s.cfg.TradeClock > 0 {
		return errors.New("realtime period: inactivity clocks unsupported")
	}
	if s.realtimeActive {
		return errors.New("realtime period: timer already registered").
			With("period", s.period)
	}
	s.realtimeActive = true
	defer func() { s.realtimeActive = false }()

	s.openPeriod()
	base := float64(s.period) * s.cfg.PeriodDuration
	horizon := s.pool.EndTime()
	start := time.Now()

	ticker := time.NewTicker(realtimeTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "realtime period %d", s.period)
		case <-ticker.C:
			now := base + time.Since(start).Seconds()
			if now >= horizon {
				if err := s.pool.SyncRun(horizon); err != nil {
					return errors.Wrapf(err, "realtime period %d", s.period)
				}
				return s.finishPeriod(s.potentialEndOfPeriod())
			}
			if err := s.pool.SyncRun(now); err != nil {
				return errors.Wrapf(err, "realtime period %d", s.period)
			}
		}
	}
}

func (s *Simulation) openPeriod() {
	s.period++
	s.periodStarted = time.Now()
	s.venue.Clear()
	s.pool.InitPeriod(s.period)
	if !s.cfg.Silent {
		logs.Infof("simulation %s: period %d/%d starting", s.ID, s.period, s.targetPeriods)
	}
}

func (s *Simulation) finishPeriod(decision clock.Decision) error {
	s.pool.EndPeriod()
	ps, err := s.telemetry.ClosePeriod(s.period, decision, s.pool.Agents())
	if err != nil {
		return errors.Wrapf(err, "close period %d", s.period)
	}
	s.periodStats = append(s.periodStats, ps)
	s.metrics.ObservePeriod(decision.Reason, time.Since(s.periodStarted))
	if !s.cfg.Silent {
		logs.Infof("simulation %s: period %d ended at t=%v (%s), volume %d",
			s.ID, s.period, ps.EndTime, ps.EndReason, ps.Volume)
	}
	return nil
}
