package sim

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
	"main/internal/telemetry"
)

func singleUnitConfig() Config {
	return Config{
		CaseID:         7,
		Periods:        1,
		PeriodDuration: 1000,
		OrderClock:     200,
		L:              1,
		H:              1000,
		BuyerValues:    []float64{1000},
		SellerCosts:    []float64{1},
		Integer:        true,
		Silent:         true,
		Seed:           42,
	}
}

func TestRunSingleUnitScenario(t *testing.T) {
	s, err := New(singleUnitConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), RunOptions{}))

	stats := s.PeriodStats()
	require.Len(t, stats, 1)
	ps := stats[0]

	assert.Equal(t, 1, ps.Volume)
	require.True(t, ps.HasTrades)
	assert.GreaterOrEqual(t, ps.Close, 1.0)
	assert.LessOrEqual(t, ps.Close, 1000.0)

	// One unit worth 1000 trading against cost 1: all 999 of surplus is
	// realized, split between the two traders at the trade price.
	agents := s.Agents()
	require.Len(t, agents, 2)
	assert.InDelta(t, 999, agents[0].Money+agents[1].Money, 1e-9)
	require.True(t, ps.HasEfficiency)
	assert.InDelta(t, 100, ps.Efficiency, 1e-9)

	eff := s.MemoryLog(telemetry.LogEffAlloc)
	require.NotNil(t, eff)
	assert.Equal(t, []string{"7", "1", "100"}, eff.Last())
}

func TestRunOrderClockEndsPeriodEarly(t *testing.T) {
	s, err := New(singleUnitConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), RunOptions{}))

	ps := s.PeriodStats()[0]
	// Both traders exhaust their single unit, quoting stops, and the
	// order inactivity clock fires well before the scheduled horizon.
	assert.Equal(t, enum.EndReasonOrderClock, ps.EndReason)
	assert.Less(t, ps.EndTime, 2000.0)
}

func TestRunDurationReason(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.OrderClock = 0
	s, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), RunOptions{}))

	ps := s.PeriodStats()[0]
	assert.Equal(t, enum.EndReasonDuration, ps.EndReason)
	assert.Equal(t, 2000.0, ps.EndTime)
}

func TestRunDeadlineTruncatesAtPeriodBoundary(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.Periods = 10
	s, err := New(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), RunOptions{Deadline: time.Now()}))

	assert.Equal(t, 1, s.CompletedPeriods())
	assert.Equal(t, 10, s.RequestedPeriods())
	assert.Equal(t, 1, s.TargetPeriods())
	assert.True(t, s.Truncated())
	require.Len(t, s.PeriodStats(), 1)
}

func TestRunUpdateHookPerPeriod(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.Periods = 3
	s, err := New(cfg, nil)
	require.NoError(t, err)

	var seen []int
	require.NoError(t, s.Run(context.Background(), RunOptions{
		Update: func(s *Simulation) { seen = append(seen, s.CompletedPeriods()) },
	}))
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.False(t, s.Truncated())
}

func TestRunAcceptsZeroPriceFloor(t *testing.T) {
	// Integer pricing over [0, H] lets a buyer legitimately bid zero; the
	// run must log it as a buy order instead of aborting.
	cfg := singleUnitConfig()
	cfg.L = 0
	cfg.H = 10
	cfg.BuyerValues = []float64{10}
	cfg.SellerCosts = []float64{1}
	cfg.Seed = 1
	s, err := New(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), RunOptions{}))
	require.Len(t, s.PeriodStats(), 1)
}

func TestNewRejectsRealtimeWithClocks(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.Realtime = true
	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestNewRejectsUndeterminableCounts(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.BuyerValues = nil
	_, err := New(cfg, nil)
	require.Error(t, err)

	cfg = singleUnitConfig()
	cfg.SellerCosts = nil
	cfg.NumberOfSellers = 0
	_, err = New(cfg, nil)
	require.Error(t, err)
}

func TestRealtimePeriodPacesWallClock(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.OrderClock = 0
	cfg.PeriodDuration = 0.2
	cfg.Realtime = true
	s, err := New(cfg, nil)
	require.NoError(t, err)

	started := time.Now()
	require.NoError(t, <-s.RunAsync(context.Background(), RunOptions{Delay: time.Millisecond}))
	elapsed := time.Since(started)

	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Equal(t, 1, s.CompletedPeriods())
	require.Len(t, s.PeriodStats(), 1)
	assert.Equal(t, 0.4, s.PeriodStats()[0].EndTime)
}

func TestRealtimePeriodRejectsReentrantTimer(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.OrderClock = 0
	cfg.Realtime = true
	s, err := New(cfg, nil)
	require.NoError(t, err)

	s.realtimeActive = true
	err = s.runPeriodRealtime(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRunAsyncConcurrentSimulations(t *testing.T) {
	sims := make([]*Simulation, 3)
	results := make([]<-chan error, 3)
	for i := range sims {
		cfg := singleUnitConfig()
		cfg.CaseID = 100 + i
		cfg.Periods = 2
		cfg.Seed = int64(1000 + i)
		s, err := New(cfg, nil)
		require.NoError(t, err)
		sims[i] = s
		results[i] = s.RunAsync(context.Background(), RunOptions{Delay: time.Millisecond})
	}

	for i, done := range results {
		require.NoError(t, <-done)
		s := sims[i]
		assert.Equal(t, 2, s.CompletedPeriods())

		ohlc := s.MemoryLog(telemetry.LogOHLC)
		require.NotNil(t, ohlc)
		// header plus one reduction row per period
		rows := ohlc.Rows()
		require.Len(t, rows, 3)
		assert.Equal(t, strconv.Itoa(100+i), rows[1][0])
		assert.Equal(t, "1", rows[1][1])
		assert.Equal(t, "2", rows[2][1])
	}
}

func TestRunAsyncDelaysOnlyBetweenPeriods(t *testing.T) {
	s, err := New(singleUnitConfig(), nil)
	require.NoError(t, err)

	started := time.Now()
	require.NoError(t, <-s.RunAsync(context.Background(), RunOptions{Delay: 500 * time.Millisecond}))

	// A single period never waits on the inter-period delay.
	assert.Less(t, time.Since(started), 250*time.Millisecond)
	assert.Equal(t, 1, s.CompletedPeriods())
}

func TestRunAsyncContextCancel(t *testing.T) {
	cfg := singleUnitConfig()
	cfg.Periods = 50
	s, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := s.RunAsync(ctx, RunOptions{Delay: 5 * time.Millisecond})
	cancel()
	require.Error(t, <-done)
}
