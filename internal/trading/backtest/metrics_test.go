package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Alias1177/CycleTrader/internal/model"
)

func TestCalculateMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{name: "empty", equity: nil, want: 0},
		{name: "only rising", equity: []float64{100, 110, 120}, want: 0},
		{name: "single dip", equity: []float64{100, 120, 90, 130}, want: -0.25},
		{name: "deepest of two", equity: []float64{100, 80, 100, 200, 120}, want: -0.4},
		{name: "wiped out", equity: []float64{100, 0}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateMaxDrawdown(tt.equity), 1e-12)
		})
	}
}

func TestCalculatePerformanceMetricsDegenerate(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("flat equity has no sharpe", func(t *testing.T) {
		m := calculatePerformanceMetrics(metricsInput{
			Start: start, End: start.AddDate(1, 0, 0),
			Equity:         []float64{100, 100, 100},
			Returns:        []float64{0, 0, 0},
			InitialCapital: 100,
			PeriodsPerYear: tradingDaysPerYear,
		})
		assert.Zero(t, m.Volatility)
		assert.Zero(t, m.SharpeRatio)
		assert.Zero(t, m.TotalReturn)
		assert.Zero(t, m.WinRate)
	})

	t.Run("same day has no annualised return", func(t *testing.T) {
		m := calculatePerformanceMetrics(metricsInput{
			Start: start, End: start.Add(6 * time.Hour),
			Equity:         []float64{100, 110},
			Returns:        []float64{0.1},
			InitialCapital: 100,
			PeriodsPerYear: tradingDaysPerYear,
		})
		assert.InDelta(t, 0.1, m.TotalReturn, 1e-12)
		assert.Zero(t, m.AnnualizedReturn)
	})

	t.Run("annualised over whole years", func(t *testing.T) {
		m := calculatePerformanceMetrics(metricsInput{
			Start: start, End: start.Add(time.Duration(2*daysPerYear*24) * time.Hour),
			Equity:         []float64{100, 121},
			Returns:        []float64{0.1, 0.1},
			InitialCapital: 100,
			PeriodsPerYear: tradingDaysPerYear,
			RiskFreeRate:   0.02,
		})
		assert.InDelta(t, 0.1, m.AnnualizedReturn, 1e-3)
		assert.Zero(t, m.SharpeRatio)
	})
}

func TestCalculateTradeStats(t *testing.T) {
	trades := []model.Trade{{ReturnPct: 10}, {ReturnPct: -4}, {ReturnPct: 0}, {ReturnPct: 6}}

	var cycle model.Metrics
	calculateTradeStats(&cycle, trades, false)
	assert.Equal(t, 4, cycle.TotalTrades)
	assert.InDelta(t, 0.5, cycle.WinRate, 1e-12)
	assert.InDelta(t, 8, cycle.AverageWin, 1e-12)
	assert.InDelta(t, -4, cycle.AverageLoss, 1e-12)
	assert.InDelta(t, 3, cycle.AverageReturn, 1e-12)
	assert.Equal(t, 10.0, cycle.BestTrade)
	assert.Equal(t, -4.0, cycle.WorstTrade)

	var swing model.Metrics
	calculateTradeStats(&swing, trades, true)
	assert.InDelta(t, -2, swing.AverageLoss, 1e-12)
	assert.InDelta(t, 0.5, swing.WinRate, 1e-12)
}
