package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// Strategy names reported on results
const (
	StrategyOriginal = "original"
	StrategyEnhanced = "enhanced"
	StrategySwing    = "swing"
)

// Observer is notified after every completed run
type Observer interface {
	RunCompleted(strategy string, metrics model.Metrics, trades []model.Trade, elapsed time.Duration)
}

// Engine runs backtests. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	logger   zerolog.Logger
	observer Observer
}

// NewEngine creates a new backtesting engine
func NewEngine() *Engine {
	return &Engine{
		logger: log.With().Str("component", "backtest_engine").Logger(),
	}
}

// WithObserver attaches an observer that receives run summaries
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// CycleResult is the outcome of one cycle backtest
type CycleResult struct {
	Strategy  string
	Rows      []model.CycleRow
	Trades    []model.Trade
	Metrics   model.Metrics
	Benchmark model.Metrics
}

// RecentTrades returns the last n closed trades
func (r *CycleResult) RecentTrades(n int) []model.Trade {
	return RecentTrades(r.Trades, n)
}

// BasicParams configures the stateless cycle strategy
type BasicParams struct {
	InitialCapital float64
	LongStages     []model.Stage
	ShortStages    []model.Stage
}

// DefaultBasicParams is long during Expansion and in cash otherwise
func DefaultBasicParams() BasicParams {
	return BasicParams{
		InitialCapital: 100000,
		LongStages:     []model.Stage{model.StageExpansion},
	}
}

// RunBasic holds a position on every day whose stage is in LongStages (or short
// for ShortStages) and cash otherwise. The position is decided per day with no
// memory of earlier days.
func (e *Engine) RunBasic(prices []model.Candle, regimes model.RegimeSeries, params BasicParams) (*CycleResult, error) {
	started := time.Now()
	if params.InitialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital %.2f", ErrInvalidParams, params.InitialCapital)
	}

	days, err := alignPrices(prices, regimes)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Interface("long_stages", params.LongStages).
		Interface("short_stages", params.ShortStages).
		Float64("initial_capital", params.InitialCapital).
		Time("from", days[0].Date).
		Time("to", days[len(days)-1].Date).
		Msg("Running cycle backtest")

	rows := make([]model.CycleRow, len(days))
	for i, day := range days {
		position := 0
		if containsStage(params.LongStages, day.Stage) {
			position = 1
		}
		if containsStage(params.ShortStages, day.Stage) {
			position = -1
		}
		rows[i] = newCycleRow(day, position)
	}

	result := e.finishCycle(StrategyOriginal, rows, params.InitialCapital, false)
	e.report(result.Strategy, result.Metrics, result.Trades, started)
	return result, nil
}

// finishCycle fills returns and equity curves, then derives trades and metrics
func (e *Engine) finishCycle(strategy string, rows []model.CycleRow, capital float64, withReason bool) *CycleResult {
	strategyReturns := make([]float64, len(rows))
	marketReturns := make([]float64, 0, len(rows))
	strategyEquity := make([]float64, len(rows))
	buyHoldEquity := make([]float64, len(rows))

	strategyValue, buyHoldValue := capital, capital
	for i := range rows {
		row := &rows[i]
		row.MarketReturn = math.NaN()
		if i > 0 {
			row.MarketReturn = row.Price/rows[i-1].Price - 1
			// Yesterday's position earns today's move
			row.StrategyReturn = float64(rows[i-1].Position) * row.MarketReturn
			marketReturns = append(marketReturns, row.MarketReturn)

			strategyValue *= 1 + row.StrategyReturn
			buyHoldValue *= 1 + row.MarketReturn
		}
		row.StrategyValue = strategyValue
		row.BuyHoldValue = buyHoldValue

		strategyReturns[i] = row.StrategyReturn
		strategyEquity[i] = strategyValue
		buyHoldEquity[i] = buyHoldValue
	}

	trades := extractTrades(rows, withReason)
	start, end := rows[0].Date, rows[len(rows)-1].Date

	result := &CycleResult{
		Strategy: strategy,
		Rows:     rows,
		Trades:   trades,
		Metrics: calculatePerformanceMetrics(metricsInput{
			Start: start, End: end,
			Equity:         strategyEquity,
			Returns:        strategyReturns,
			InitialCapital: capital,
			PeriodsPerYear: tradingDaysPerYear,
			Trades:         trades,
		}),
		Benchmark: calculatePerformanceMetrics(metricsInput{
			Start: start, End: end,
			Equity:         buyHoldEquity,
			Returns:        marketReturns,
			InitialCapital: capital,
			PeriodsPerYear: tradingDaysPerYear,
		}),
	}

	for _, trade := range trades {
		e.logger.Debug().
			Time("entry", trade.EntryTime).
			Time("exit", trade.ExitTime).
			Float64("return_pct", trade.ReturnPct).
			Str("exit_reason", string(trade.ExitReason)).
			Msg("Trade closed")
	}

	return result
}

func (e *Engine) report(strategy string, m model.Metrics, trades []model.Trade, started time.Time) {
	elapsed := time.Since(started)
	e.logger.Info().
		Str("strategy", strategy).
		Float64("total_return", m.TotalReturn).
		Float64("sharpe", m.SharpeRatio).
		Float64("max_drawdown", m.MaxDrawdown).
		Int("trades", m.TotalTrades).
		Dur("elapsed", elapsed).
		Msg("Backtest completed")

	if e.observer != nil {
		e.observer.RunCompleted(strategy, m, trades, elapsed)
	}
}

func newCycleRow(day alignedDay, position int) model.CycleRow {
	return model.CycleRow{
		Date:           day.Date,
		Price:          day.Price,
		Stage:          day.Stage,
		Position:       position,
		EntryPrice:     math.NaN(),
		PeakSinceEntry: math.NaN(),
		StopLossLevel:  math.NaN(),
	}
}

func containsStage(stages []model.Stage, stage model.Stage) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

// calendarDays counts whole days between two timestamps
func calendarDays(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}
