package obs

import (
	"sync/atomic"
	"time"

	"main/internal/model/enum"
)

const maxEndReason = int(enum.EndReasonOrderClock)

// Metrics collects lightweight counters and latency stats across one or
// more simulation runs. All methods are safe on a nil receiver so callers
// can leave instrumentation unwired.
type Metrics struct {
	ordersAccepted uint64
	ordersRejected uint64
	trades         uint64
	periods        uint64
	endReasons     [maxEndReason + 1]uint64
	runsCompleted  uint64
	runsTruncated  uint64

	periodLatency LatencyStats
	runLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	OrdersAccepted uint64
	OrdersRejected uint64
	Trades         uint64
	Periods        uint64
	EndReasons     map[enum.EndReason]uint64
	RunsCompleted  uint64
	RunsTruncated  uint64
	PeriodLatency  LatencySnapshot
	RunLatency     LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncOrderAccepted records an order that passed venue admission.
func (m *Metrics) IncOrderAccepted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersAccepted, 1)
}

// IncOrderRejected records an order that failed venue admission.
func (m *Metrics) IncOrderRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersRejected, 1)
}

// IncTrade records an executed trade.
func (m *Metrics) IncTrade() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.trades, 1)
}

// ObservePeriod records a completed period, its end reason, and its
// wall-clock duration.
func (m *Metrics) ObservePeriod(reason enum.EndReason, d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.periods, 1)
	idx := int(reason)
	if idx >= 0 && idx < len(m.endReasons) {
		atomic.AddUint64(&m.endReasons[idx], 1)
	}
	m.periodLatency.Observe(d)
}

// ObserveRun records a finished run. Truncated marks runs cut short by a
// wall-clock deadline.
func (m *Metrics) ObserveRun(truncated bool, d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.runsCompleted, 1)
	if truncated {
		atomic.AddUint64(&m.runsTruncated, 1)
	}
	m.runLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	reasons := make(map[enum.EndReason]uint64)
	for i := range m.endReasons {
		if v := atomic.LoadUint64(&m.endReasons[i]); v > 0 {
			reasons[enum.EndReason(i)] = v
		}
	}
	return Snapshot{
		OrdersAccepted: atomic.LoadUint64(&m.ordersAccepted),
		OrdersRejected: atomic.LoadUint64(&m.ordersRejected),
		Trades:         atomic.LoadUint64(&m.trades),
		Periods:        atomic.LoadUint64(&m.periods),
		EndReasons:     reasons,
		RunsCompleted:  atomic.LoadUint64(&m.runsCompleted),
		RunsTruncated:  atomic.LoadUint64(&m.runsTruncated),
		PeriodLatency:  m.periodLatency.Snapshot(),
		RunLatency:     m.runLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
