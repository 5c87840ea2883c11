package backtest

import (
	"math"
	"time"

	"github.com/Alias1177/CycleTrader/internal/model"
)

const (
	tradingDaysPerYear = 252
	daysPerYear        = 365.25
)

// metricsInput is everything a performance snapshot is computed from
type metricsInput struct {
	Start, End     time.Time
	Equity         []float64
	Returns        []float64
	InitialCapital float64
	PeriodsPerYear float64
	RiskFreeRate   float64
	Trades         []model.Trade
	// FlatIsLoss counts zero-return trades towards the average loss
	FlatIsLoss bool
}

// calculatePerformanceMetrics computes the return, risk and trade statistics of a run
func calculatePerformanceMetrics(in metricsInput) model.Metrics {
	var m model.Metrics
	if len(in.Equity) == 0 || in.InitialCapital == 0 {
		return m
	}

	final := in.Equity[len(in.Equity)-1]
	m.FinalValue = final
	m.TotalReturn = final/in.InitialCapital - 1

	// Whole elapsed calendar days, as a date difference would report
	days := math.Floor(in.End.Sub(in.Start).Hours() / 24)
	if years := days / daysPerYear; years > 0 {
		m.AnnualizedReturn = math.Pow(final/in.InitialCapital, 1/years) - 1
	}

	m.Volatility = calculateStdDev(in.Returns, calculateMean(in.Returns)) * math.Sqrt(in.PeriodsPerYear)
	if m.Volatility > 0 {
		m.SharpeRatio = (m.AnnualizedReturn - in.RiskFreeRate) / m.Volatility
	}

	m.MaxDrawdown = calculateMaxDrawdown(in.Equity)

	calculateTradeStats(&m, in.Trades, in.FlatIsLoss)
	return m
}

// calculateMaxDrawdown returns the deepest fall from a running peak as a
// fraction in [-1, 0]
func calculateMaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := equity[0]
	for _, value := range equity {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			drawdown := (value - peak) / peak
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return math.Max(maxDrawdown, -1)
}

func calculateTradeStats(m *model.Metrics, trades []model.Trade, flatIsLoss bool) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var wins, losses, all []float64
	m.BestTrade = trades[0].ReturnPct
	m.WorstTrade = trades[0].ReturnPct
	for _, trade := range trades {
		r := trade.ReturnPct
		all = append(all, r)
		switch {
		case r > 0:
			wins = append(wins, r)
		case r < 0 || flatIsLoss:
			losses = append(losses, r)
		}
		m.BestTrade = math.Max(m.BestTrade, r)
		m.WorstTrade = math.Min(m.WorstTrade, r)
	}

	m.WinRate = float64(len(wins)) / float64(len(trades))
	m.AverageWin = calculateMean(wins)
	m.AverageLoss = calculateMean(losses)
	m.AverageReturn = calculateMean(all)
}

// Helper functions
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
