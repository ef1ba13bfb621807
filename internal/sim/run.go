package sim

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// defaultAsyncDelay separates periods of an asynchronous run so other
// goroutines get scheduled between them.
const defaultAsyncDelay = 20 * time.Millisecond

// RunOptions controls a multi-period run.
type RunOptions struct {
	// Update, when non-nil, is called after each completed period.
	Update func(*Simulation)

	// Deadline truncates the run at the first period boundary past this
	// wall-clock instant. Zero disables truncation.
	Deadline time.Time

	// Delay is the pause between periods of an asynchronous run.
	// Zero means defaultAsyncDelay.
	Delay time.Duration
}

// Run executes all remaining periods synchronously on the calling
// goroutine and closes the log sinks.
func (s *Simulation) Run(ctx context.Context, opt RunOptions) error {
	started := time.Now()
	for s.period < s.targetPeriods {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "run")
		}
		if err := s.runPeriod(ctx, syncExecutor{s}); err != nil {
			return err
		}
		s.afterPeriod(opt)
	}
	s.metrics.ObserveRun(s.Truncated(), time.Since(started))
	return s.Close()
}

// RunAsync executes the remaining periods on a new goroutine and delivers
// the terminal error (or nil) exactly once on the returned channel. The
// first period starts immediately; the pause applies only between periods.
// Realtime simulations pace each period against the wall clock; all others
// step cooperatively.
func (s *Simulation) RunAsync(ctx context.Context, opt RunOptions) <-chan error {
	done := make(chan error, 1)
	delay := opt.Delay
	if delay <= 0 {
		delay = defaultAsyncDelay
	}
	started := time.Now()
	go func() {
		for s.period < s.targetPeriods {
			if err := ctx.Err(); err != nil {
				done <- errors.Wrap(err, "run async")
				return
			}
			var err error
			if s.cfg.Realtime {
				err = s.runPeriodRealtime(ctx)
			} else {
				err = s.runPeriod(ctx, steppedExecutor{s})
			}
			if err != nil {
				done <- err
				return
			}
			s.afterPeriod(opt)
			if s.period >= s.targetPeriods {
				break
			}
			select {
			case <-ctx.Done():
				done <- errors.Wrap(ctx.Err(), "run async")
				return
			case <-time.After(delay):
			}
		}
		s.metrics.ObserveRun(s.Truncated(), time.Since(started))
		done <- s.Close()
	}()
	return done
}

// afterPeriod applies the update hook and the deadline check that both run
// modes share. Truncation happens only at period boundaries so no period
// is ever left partially logged.
func (s *Simulation) afterPeriod(opt RunOptions) {
	if opt.Update != nil {
		opt.Update(s)
	}
	if !opt.Deadline.IsZero() && !time.Now().Before(opt.Deadline) && s.period < s.targetPeriods {
		logs.Infof("simulation %s: deadline reached, truncating after period %d of %d",
			s.ID, s.period, s.targetPeriods)
		s.targetPeriods = s.period
	}
}

// Truncated reports whether a deadline cut the run short.
func (s *Simulation) Truncated() bool {
	return s.targetPeriods < s.requestedPeriods
}
