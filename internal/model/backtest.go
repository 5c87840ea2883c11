package model

import "time"

// ExitReason tags why a position was closed
type ExitReason string

const (
	ExitCycleChange  ExitReason = "Cycle change"
	ExitStopLoss     ExitReason = "Stop-loss"
	ExitSwingStop    ExitReason = "STOP_LOSS"
	ExitProfitTarget ExitReason = "PROFIT_TARGET"
	ExitTechnical    ExitReason = "TECHNICAL"
	ExitEconomic     ExitReason = "ECONOMIC"
)

// Trade is a closed round trip reconstructed from a position series
type Trade struct {
	EntryTime  time.Time     `json:"entry_time"`
	ExitTime   time.Time     `json:"exit_time"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	ReturnPct  float64       `json:"return_pct"`
	DaysHeld   int           `json:"days_held"`
	Held       time.Duration `json:"held"`
	ExitReason ExitReason    `json:"exit_reason,omitempty"`
	EntryStage Stage         `json:"entry_cycle,omitempty"`
	ExitStage  Stage         `json:"exit_cycle,omitempty"`
	Shares     int64         `json:"shares,omitempty"`
	Profit     float64       `json:"profit,omitempty"`
}

// Metrics is a snapshot of one completed run. Returns, volatility, drawdown and
// win rate are fractions (0.05 == 5%); trade averages are percent returns.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	FinalValue       float64 `json:"final_value"`

	TotalTrades int     `json:"total_trades"`
	WinRate     float64 `json:"win_rate"`
	AverageWin  float64 `json:"avg_win"`
	AverageLoss float64 `json:"avg_loss"`

	// Enhanced cycle runs
	StopLossTriggers int     `json:"stop_loss_triggers,omitempty"`
	StopLossExits    int     `json:"stop_loss_exits,omitempty"`
	StopLossExitPct  float64 `json:"stop_loss_exit_pct,omitempty"`

	// Swing runs
	AverageReturn float64 `json:"avg_return,omitempty"`
	BestTrade     float64 `json:"best_trade,omitempty"`
	WorstTrade    float64 `json:"worst_trade,omitempty"`
}

// CycleRow is one day of a cycle backtest
type CycleRow struct {
	Date           time.Time `json:"date"`
	Price          float64   `json:"price"`
	Stage          Stage     `json:"cycle"`
	Position       int       `json:"position"`
	MarketReturn   float64   `json:"market_return"`
	StrategyReturn float64   `json:"strategy_return"`
	StrategyValue  float64   `json:"strategy_value"`
	BuyHoldValue   float64   `json:"buyhold_value"`

	// Enhanced runs only; NaN when flat
	EntryPrice     float64 `json:"entry_price"`
	PeakSinceEntry float64 `json:"peak_since_entry"`
	StopLossLevel  float64 `json:"stop_loss_level"`
	StopLossHit    bool    `json:"stop_loss_hit"`
}

// SwingRow is one bar of a swing backtest
type SwingRow struct {
	Time     time.Time `json:"timestamp"`
	Close    float64   `json:"close"`
	Position int64     `json:"position"`
	Equity   float64   `json:"equity"`
	Signal   string    `json:"signal,omitempty"`
	RSI      float64   `json:"rsi"`
	BBUpper  float64   `json:"bb_upper"`
	BBMiddle float64   `json:"bb_middle"`
	BBLower  float64   `json:"bb_lower"`
	KCUpper  float64   `json:"kc_upper"`
	KCLower  float64   `json:"kc_lower"`
}
