package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"main/internal/model/enum"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.IncOrderAccepted()
	m.IncOrderAccepted()
	m.IncOrderRejected()
	m.IncTrade()
	m.ObservePeriod(enum.EndReasonOrderClock, 5*time.Millisecond)
	m.ObservePeriod(enum.EndReasonDuration, 15*time.Millisecond)
	m.ObserveRun(true, 20*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.OrdersAccepted)
	assert.Equal(t, uint64(1), snap.OrdersRejected)
	assert.Equal(t, uint64(1), snap.Trades)
	assert.Equal(t, uint64(2), snap.Periods)
	assert.Equal(t, uint64(1), snap.EndReasons[enum.EndReasonOrderClock])
	assert.Equal(t, uint64(1), snap.EndReasons[enum.EndReasonDuration])
	assert.Equal(t, uint64(1), snap.RunsCompleted)
	assert.Equal(t, uint64(1), snap.RunsTruncated)

	assert.Equal(t, uint64(2), snap.PeriodLatency.Count)
	assert.Equal(t, 5*time.Millisecond, snap.PeriodLatency.Min)
	assert.Equal(t, 15*time.Millisecond, snap.PeriodLatency.Max)
	assert.Equal(t, 10*time.Millisecond, snap.PeriodLatency.Avg)
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.IncOrderAccepted()
	m.IncTrade()
	m.ObservePeriod(enum.EndReasonDuration, time.Millisecond)
	m.ObserveRun(false, time.Millisecond)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
