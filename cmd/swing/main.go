package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/analysis/technical"
	"github.com/Alias1177/CycleTrader/internal/app"
	"github.com/Alias1177/CycleTrader/internal/config"
	"github.com/Alias1177/CycleTrader/internal/dataset"
	"github.com/Alias1177/CycleTrader/internal/trading/backtest"
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := app.SetupSignalHandling(context.Background())
	defer cancel()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	app.SetupLogging(cfg.LogLevel)
	log.Info().Msg("Starting swing backtest")

	// 3. Print configuration
	printConfig(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Swing backtest failed")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// 4. Load and enrich intraday bars
	candles, err := a.IntradayBars(ctx)
	if err != nil {
		return fmt.Errorf("loading intraday bars: %w", err)
	}
	bars := technical.CalculateAllIndicators(candles, cfg.Preset.IndicatorParams())
	log.Info().Str("symbol", cfg.Symbol).Str("interval", cfg.Interval).Int("bars", len(bars)).Msg("Bars enriched")

	// 5. Optional expansion filter from the economic cycle
	params := cfg.Preset.SwingParams()
	if cfg.Preset.Swing.ExpansionFilter {
		regimes, err := a.Regimes(ctx)
		if err != nil {
			return fmt.Errorf("building expansion filter (disable with swing.expansion_filter: false): %w", err)
		}
		filter := dataset.ExpansionFilter(regimes)
		params.Filter = &filter
		log.Info().Str("current_stage", string(regimes.CurrentStage())).Msg("Expansion filter enabled")
	}

	// 6. Run
	result, err := a.Engine.RunSwing(bars, params)
	if err != nil {
		return err
	}

	fmt.Println(backtest.FormatSwingResults(result))
	fmt.Println("\nRecent trades:")
	fmt.Print(backtest.FormatTrades(result.RecentTrades(cfg.RecentTradeCount)))

	// 7. Outputs
	if err := a.SaveLedger("trades_swing.csv", result.Trades, backtest.LedgerSwing); err != nil {
		return err
	}
	if err := saveResultTable(cfg.OutputDir, result); err != nil {
		return err
	}
	start, end := bars[0].Time, bars[len(bars)-1].Time
	archived := params
	archived.Filter = nil
	if err := a.ArchiveRun(ctx, backtest.StrategySwing, start, end, archived, result.Metrics, result.Trades); err != nil {
		return err
	}

	return a.FlushMetrics()
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	s := cfg.Preset.Swing
	event := log.Info().
		Str("Symbol", cfg.Symbol).
		Str("Interval", cfg.Interval).
		Int("SwingDays", cfg.SwingDays).
		Str("IntradayFile", cfg.IntradayFile).
		Str("Entry", s.Entry).
		Str("Exit", s.Exit).
		Float64("RSIEntry", s.RSIEntry).
		Float64("RSIExit", s.RSIExit).
		Float64("StopLoss", s.StopLoss).
		Float64("PositionSize", s.PositionSize).
		Bool("ExpansionFilter", s.ExpansionFilter).
		Bool("MarketHoursOnly", cfg.MarketHoursOnly)
	if s.ProfitTarget != nil {
		event = event.Float64("ProfitTarget", *s.ProfitTarget)
	}
	event.Msg("Configuration loaded")
}

func saveResultTable(dir string, result *backtest.SwingResult) (err error) {
	if dir == "" {
		return nil
	}
	f, err := os.Create(filepath.Join(dir, "results_swing.csv"))
	if err != nil {
		return fmt.Errorf("creating result table: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return backtest.WriteSwingRowsCSV(f, result.Rows)
}
