package backtest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/timeseries"
	"github.com/Alias1177/CycleTrader/internal/trading/risk"
)

// Condition is a named rule evaluated on one enriched bar
type Condition func(bar model.EnrichedBar, rsiThreshold float64) bool

// EntryConditions are the registered entry rules
var EntryConditions = map[string]Condition{
	"bb_rsi": func(bar model.EnrichedBar, rsi float64) bool {
		return bar.Close < bar.BBLower && bar.RSI < rsi
	},
	"kc_rsi": func(bar model.EnrichedBar, rsi float64) bool {
		return bar.Close < bar.KCLower && bar.RSI < rsi
	},
	"squeeze": func(bar model.EnrichedBar, rsi float64) bool {
		return bar.Squeeze && bar.RSI < rsi && bar.Close < bar.BBLower
	},
}

// ExitConditions are the registered technical exit rules
var ExitConditions = map[string]Condition{
	"bb_upper": func(bar model.EnrichedBar, _ float64) bool {
		return bar.Close > bar.BBUpper
	},
	"bb_middle": func(bar model.EnrichedBar, _ float64) bool {
		return bar.Close > bar.BBMiddle
	},
	"rsi": func(bar model.EnrichedBar, rsi float64) bool {
		return bar.RSI > rsi
	},
	"kc_upper": func(bar model.EnrichedBar, _ float64) bool {
		return bar.Close > bar.KCUpper
	},
}

// SwingParams configures a swing backtest
type SwingParams struct {
	Entry          string
	Exit           string
	RSIEntry       float64
	RSIExit        float64
	ProfitTarget   *float64
	StopLoss       float64
	Filter         *timeseries.BoolSeries
	InitialCapital float64
	PositionSize   float64
	BarsPerDay     int
	RiskFreeRate   float64
}

// DefaultSwingParams buys closes under the lower Bollinger Band with RSI below 30
// and sells above the upper band, with a 2% stop
func DefaultSwingParams() SwingParams {
	return SwingParams{
		Entry:          "bb_rsi",
		Exit:           "bb_upper",
		RSIEntry:       30,
		RSIExit:        70,
		StopLoss:       0.02,
		InitialCapital: 100000,
		PositionSize:   1.0,
		BarsPerDay:     13,
		RiskFreeRate:   0.02,
	}
}

func (p SwingParams) validate() (entry, exit Condition, err error) {
	entry, ok := EntryConditions[p.Entry]
	if !ok {
		return nil, nil, fmt.Errorf("%w: entry %q (have %s)", ErrUnknownCondition, p.Entry, conditionNames(EntryConditions))
	}
	exit, ok = ExitConditions[p.Exit]
	if !ok {
		return nil, nil, fmt.Errorf("%w: exit %q (have %s)", ErrUnknownCondition, p.Exit, conditionNames(ExitConditions))
	}
	switch {
	case p.InitialCapital <= 0:
		return nil, nil, fmt.Errorf("%w: initial capital %.2f", ErrInvalidParams, p.InitialCapital)
	case p.StopLoss < 0:
		return nil, nil, fmt.Errorf("%w: stop-loss %.4f", ErrInvalidParams, p.StopLoss)
	case p.BarsPerDay <= 0:
		return nil, nil, fmt.Errorf("%w: bars per day %d", ErrInvalidParams, p.BarsPerDay)
	case p.PositionSize <= 0 || p.PositionSize > 1:
		return nil, nil, fmt.Errorf("%w: position size %.2f", ErrInvalidParams, p.PositionSize)
	}
	return entry, exit, nil
}

// SwingResult is the outcome of one swing backtest
type SwingResult struct {
	Rows    []model.SwingRow
	Trades  []model.Trade
	Metrics model.Metrics
}

// RecentTrades returns the last n closed trades
func (r *SwingResult) RecentTrades(n int) []model.Trade {
	return RecentTrades(r.Trades, n)
}

// regimeGate is the filter verdict for one bar
type regimeGate int

const (
	gateUnresolved regimeGate = iota
	gateOpen
	gateClosed
)

func resolveGate(filter *timeseries.BoolSeries, t time.Time) regimeGate {
	if filter == nil {
		return gateOpen
	}
	open, ok := filter.AsOf(timeseries.TruncateDay(t))
	switch {
	case !ok:
		return gateUnresolved
	case open:
		return gateOpen
	}
	return gateClosed
}

// swingState is carried from one bar to the next
type swingState struct {
	cash      decimal.Decimal
	shares    int64
	entry     float64
	entryTime time.Time
	highest   float64
}

func (s *swingState) equity(price float64) float64 {
	return risk.MarkToMarket(s.cash, s.shares, price).InexactFloat64()
}

// exitReason checks the exit rules in priority order
func (s *swingState) exitReason(bar model.EnrichedBar, params SwingParams, exit Condition, gate regimeGate) model.ExitReason {
	change := risk.ChangeFraction(s.entry, bar.Close)
	switch {
	case change <= -params.StopLoss:
		return model.ExitSwingStop
	case params.ProfitTarget != nil && change >= *params.ProfitTarget:
		return model.ExitProfitTarget
	case exit(bar, params.RSIExit):
		return model.ExitTechnical
	case gate == gateClosed:
		return model.ExitEconomic
	}
	return ""
}

func (s *swingState) closePosition(bar model.EnrichedBar, reason model.ExitReason) model.Trade {
	trade := model.Trade{
		EntryTime:  s.entryTime,
		ExitTime:   bar.Time,
		EntryPrice: s.entry,
		ExitPrice:  bar.Close,
		ReturnPct:  risk.ChangeFraction(s.entry, bar.Close) * 100,
		DaysHeld:   calendarDays(s.entryTime, bar.Time),
		Held:       bar.Time.Sub(s.entryTime),
		ExitReason: reason,
		Shares:     s.shares,
		Profit:     (bar.Close - s.entry) * float64(s.shares),
	}

	s.cash = risk.MarkToMarket(s.cash, s.shares, bar.Close)
	s.shares = 0
	s.entry = 0
	s.highest = 0
	return trade
}

// RunSwing walks intraday bars in order holding at most one long position. Bars
// whose RSI or lower Bollinger Band is not ready are recorded without a signal.
// When a regime filter is set, new positions need a true value as of the bar's
// date; an explicit false closes an open position, a missing value does not.
func (e *Engine) RunSwing(bars []model.EnrichedBar, params SwingParams) (*SwingResult, error) {
	started := time.Now()
	entry, exit, err := params.validate()
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("bars: %w: %s follows %s", timeseries.ErrUnordered,
				bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	if len(bars) < minAlignedRows {
		return nil, fmt.Errorf("%w: %d intraday bars", ErrInsufficientData, len(bars))
	}

	e.logger.Info().
		Str("entry", params.Entry).
		Str("exit", params.Exit).
		Float64("rsi_entry", params.RSIEntry).
		Float64("rsi_exit", params.RSIExit).
		Float64("stop_loss", params.StopLoss).
		Bool("regime_filter", params.Filter != nil).
		Int("bars", len(bars)).
		Msg("Running swing backtest")

	state := swingState{cash: decimal.NewFromFloat(params.InitialCapital)}
	rows := make([]model.SwingRow, len(bars))
	equity := make([]float64, len(bars))
	var trades []model.Trade

	for i, bar := range bars {
		row := model.SwingRow{
			Time:     bar.Time,
			Close:    bar.Close,
			RSI:      bar.RSI,
			BBUpper:  bar.BBUpper,
			BBMiddle: bar.BBMiddle,
			BBLower:  bar.BBLower,
			KCUpper:  bar.KCUpper,
			KCLower:  bar.KCLower,
		}

		if !math.IsNaN(bar.RSI) && !math.IsNaN(bar.BBLower) {
			gate := resolveGate(params.Filter, bar.Time)

			if state.shares == 0 {
				if gate == gateOpen && entry(bar, params.RSIEntry) {
					size := risk.CalculatePositionSize(state.cash, bar.Close, params.PositionSize)
					if size.Shares > 0 {
						state.cash = size.Remaining
						state.shares = size.Shares
						state.entry = bar.Close
						state.entryTime = bar.Time
						state.highest = bar.Close
						row.Signal = "BUY"
					}
				}
			} else {
				state.highest = math.Max(state.highest, bar.Close)
				if reason := state.exitReason(bar, params, exit, gate); reason != "" {
					trade := state.closePosition(bar, reason)
					trades = append(trades, trade)
					row.Signal = "SELL_" + string(reason)

					e.logger.Debug().
						Time("entry", trade.EntryTime).
						Time("exit", trade.ExitTime).
						Int64("shares", trade.Shares).
						Float64("return_pct", trade.ReturnPct).
						Str("exit_reason", string(reason)).
						Msg("Trade closed")
				}
			}
		}

		row.Position = state.shares
		row.Equity = state.equity(bar.Close)
		rows[i] = row
		equity[i] = row.Equity
	}

	returns := make([]float64, 0, len(equity))
	for i := 1; i < len(equity); i++ {
		if equity[i-1] != 0 {
			returns = append(returns, equity[i]/equity[i-1]-1)
		}
	}

	result := &SwingResult{
		Rows:   rows,
		Trades: trades,
		Metrics: calculatePerformanceMetrics(metricsInput{
			Start:          bars[0].Time,
			End:            bars[len(bars)-1].Time,
			Equity:         equity,
			Returns:        returns,
			InitialCapital: params.InitialCapital,
			PeriodsPerYear: float64(tradingDaysPerYear * params.BarsPerDay),
			RiskFreeRate:   params.RiskFreeRate,
			Trades:         trades,
			FlatIsLoss:     true,
		}),
	}

	e.report(StrategySwing, result.Metrics, result.Trades, started)
	return result, nil
}

func conditionNames(conditions map[string]Condition) string {
	names := make([]string, 0, len(conditions))
	for name := range conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
