package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// EnhancedParams configures the stateful cycle strategy with trailing stops
type EnhancedParams struct {
	InitialCapital    float64
	StayInPeak        bool
	PeakStopLoss      float64
	ExpansionStopLoss float64
	IncludeRecovery   bool
}

// DefaultEnhancedParams stays invested through Peak and Recovery with a 15% stop
// in Peak and 20% otherwise
func DefaultEnhancedParams() EnhancedParams {
	return EnhancedParams{
		InitialCapital:    100000,
		StayInPeak:        true,
		PeakStopLoss:      0.15,
		ExpansionStopLoss: 0.20,
		IncludeRecovery:   true,
	}
}

func (p EnhancedParams) validate() error {
	if p.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital %.2f", ErrInvalidParams, p.InitialCapital)
	}
	if p.PeakStopLoss < 0 || p.PeakStopLoss >= 1 || p.ExpansionStopLoss < 0 || p.ExpansionStopLoss >= 1 {
		return fmt.Errorf("%w: stop-loss must be in [0, 1), got peak %.2f expansion %.2f",
			ErrInvalidParams, p.PeakStopLoss, p.ExpansionStopLoss)
	}
	return nil
}

// stance is what today's stage asks for: be long or not, and which trailing stop applies
func (p EnhancedParams) stance(stage model.Stage) (long bool, stop float64) {
	switch stage {
	case model.StageExpansion:
		return true, p.ExpansionStopLoss
	case model.StagePeak:
		return p.StayInPeak, p.PeakStopLoss
	case model.StageRecovery:
		return p.IncludeRecovery, p.ExpansionStopLoss
	}
	return false, p.ExpansionStopLoss
}

// enhancedState is carried from one day to the next
type enhancedState struct {
	position       int
	entryPrice     float64
	peakSinceEntry float64
	stopTriggers   int
}

// step applies one day to the state and returns the day's row
func (s *enhancedState) step(day alignedDay, params EnhancedParams) model.CycleRow {
	row := newCycleRow(day, 0)
	shouldBeLong, stopPct := params.stance(day.Stage)

	stopTriggered := false
	if s.position == 1 {
		s.peakSinceEntry = math.Max(s.peakSinceEntry, day.Price)
		row.StopLossLevel = s.peakSinceEntry * (1 - stopPct)
		if day.Price <= row.StopLossLevel {
			stopTriggered = true
			row.StopLossHit = true
			s.stopTriggers++
		}
	}

	switch {
	case s.position == 0 && shouldBeLong && !stopTriggered:
		s.position = 1
		s.entryPrice = day.Price
		s.peakSinceEntry = day.Price
		row.EntryPrice = s.entryPrice
	case s.position == 1 && (!shouldBeLong || stopTriggered):
		s.position = 0
		s.entryPrice = math.NaN()
		s.peakSinceEntry = math.NaN()
	case s.position == 1:
		row.EntryPrice = s.entryPrice
		row.PeakSinceEntry = s.peakSinceEntry
	}

	row.Position = s.position
	return row
}

// RunEnhanced walks the days in order carrying an open position until the stage
// stops supporting it or the trailing stop from the highest close since entry is
// hit. A stop on a given day blocks re-entry on that day.
func (e *Engine) RunEnhanced(prices []model.Candle, regimes model.RegimeSeries, params EnhancedParams) (*CycleResult, error) {
	started := time.Now()
	if err := params.validate(); err != nil {
		return nil, err
	}

	days, err := alignPrices(prices, regimes)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Bool("stay_in_peak", params.StayInPeak).
		Float64("peak_stop_loss", params.PeakStopLoss).
		Float64("expansion_stop_loss", params.ExpansionStopLoss).
		Bool("include_recovery", params.IncludeRecovery).
		Float64("initial_capital", params.InitialCapital).
		Time("from", days[0].Date).
		Time("to", days[len(days)-1].Date).
		Msg("Running enhanced cycle backtest")

	state := enhancedState{entryPrice: math.NaN(), peakSinceEntry: math.NaN()}
	rows := make([]model.CycleRow, len(days))
	for i, day := range days {
		rows[i] = state.step(day, params)
	}

	result := e.finishCycle(StrategyEnhanced, rows, params.InitialCapital, true)

	result.Metrics.StopLossTriggers = state.stopTriggers
	for _, trade := range result.Trades {
		if trade.ExitReason == model.ExitStopLoss {
			result.Metrics.StopLossExits++
		}
	}
	if len(result.Trades) > 0 {
		result.Metrics.StopLossExitPct = float64(result.Metrics.StopLossExits) / float64(len(result.Trades))
	}

	e.logger.Info().Int("stop_loss_triggers", state.stopTriggers).Msg("Stop-loss summary")
	e.report(result.Strategy, result.Metrics, result.Trades, started)
	return result, nil
}
