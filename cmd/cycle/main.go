package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/app"
	"github.com/Alias1177/CycleTrader/internal/config"
	"github.com/Alias1177/CycleTrader/internal/model"
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
	log.Info().Msg("Starting economic cycle backtest")

	// 3. Print configuration
	printConfig(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Cycle backtest failed")
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

	// 4. Load data
	regimes, err := a.Regimes(ctx)
	if err != nil {
		return fmt.Errorf("loading cycle stages: %w", err)
	}
	printCycleSummary(regimes)

	prices, err := a.DailyPrices(ctx)
	if err != nil {
		return fmt.Errorf("loading prices: %w", err)
	}
	log.Info().Str("symbol", cfg.Symbol).Int("bars", len(prices)).Msg("Prices loaded")

	// 5. Run both strategies over the same inputs
	basic, enhanced := cfg.Preset.BasicParams(), cfg.Preset.EnhancedParams()
	comparison, err := a.Engine.Compare(ctx, prices, regimes, basic, enhanced)
	if err != nil {
		return err
	}

	// 6. Report
	fmt.Println(backtest.FormatResults(comparison.Original))
	fmt.Println(backtest.FormatResults(comparison.Enhanced))
	fmt.Println(backtest.FormatComparison(comparison))
	fmt.Println("\nRecent enhanced trades:")
	fmt.Print(backtest.FormatTrades(comparison.Enhanced.RecentTrades(cfg.RecentTradeCount)))

	// 7. Outputs
	for _, result := range []*backtest.CycleResult{comparison.Original, comparison.Enhanced} {
		if err := a.SaveLedger("trades_"+result.Strategy+".csv", result.Trades, result.LedgerFormat().Kind); err != nil {
			return err
		}
		if err := saveResultTable(cfg.OutputDir, result); err != nil {
			return err
		}
	}

	rows := comparison.Original.Rows
	start, end := rows[0].Date, rows[len(rows)-1].Date
	if err := a.ArchiveRun(ctx, backtest.StrategyOriginal, start, end, basic, comparison.Original.Metrics, comparison.Original.Trades); err != nil {
		return err
	}
	if err := a.ArchiveRun(ctx, backtest.StrategyEnhanced, start, end, enhanced, comparison.Enhanced.Metrics, comparison.Enhanced.Trades); err != nil {
		return err
	}

	return a.FlushMetrics()
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Str("Symbol", cfg.Symbol).
		Time("StartDate", cfg.StartDate).
		Time("EndDate", cfg.End()).
		Str("PriceFile", cfg.PriceFile).
		Str("IndicatorFile", cfg.IndicatorFile).
		Str("RegimeFile", cfg.RegimeFile).
		Float64("InitialCapital", cfg.Preset.Cycle.InitialCapital).
		Strs("LongStages", cfg.Preset.Cycle.LongStages).
		Bool("StayInPeak", cfg.Preset.Cycle.StayInPeak).
		Float64("PeakStopLoss", cfg.Preset.Cycle.PeakStopLoss).
		Float64("ExpansionStopLoss", cfg.Preset.Cycle.ExpansionStopLoss).
		Bool("IncludeRecovery", cfg.Preset.Cycle.IncludeRecovery).
		Bool("Cache", cfg.RedisAddr != "").
		Bool("Archive", cfg.DBHost != "").
		Msg("Configuration loaded")
}

// printCycleSummary outputs the current stage, stage distribution and recent changes
func printCycleSummary(regimes model.RegimeSeries) {
	fmt.Println("\n===== ECONOMIC CYCLE =====")
	fmt.Printf("Current stage: %s\n", regimes.CurrentStage())

	fmt.Println("\nDistribution:")
	for _, share := range regimes.Distribution() {
		fmt.Printf("  %-12s %6d days (%5.1f%%)\n", share.Stage, share.Days, share.Percent)
	}

	changes := regimes.CycleChanges()
	if len(changes) > 5 {
		changes = changes[len(changes)-5:]
	}
	fmt.Println("\nRecent cycle changes:")
	for _, c := range changes {
		prev := string(c.PrevStage)
		if prev == "" {
			prev = "-"
		}
		fmt.Printf("  %s  %s -> %s\n", c.Date.Format("2006-01-02"), prev, c.Stage)
	}
}

func saveResultTable(dir string, result *backtest.CycleResult) (err error) {
	if dir == "" {
		return nil
	}
	f, err := os.Create(filepath.Join(dir, "results_"+result.Strategy+".csv"))
	if err != nil {
		return fmt.Errorf("creating result table: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return backtest.WriteCycleRowsCSV(f, result.Rows, result.Strategy == backtest.StrategyEnhanced)
}
