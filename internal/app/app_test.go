package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/CycleTrader/internal/config"
	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/trading/backtest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	var prices, regimes strings.Builder
	prices.WriteString("date,close\n")
	regimes.WriteString("date,cycle\n")
	for i := 0; i < 60; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		fmt.Fprintf(&prices, "%s,%.2f\n", day, 100+float64(i%10))
		stage := model.StageExpansion
		if i < 5 || i >= 30 {
			stage = model.StageContraction
		}
		fmt.Fprintf(&regimes, "%s,%s\n", day, stage)
	}

	return &config.Config{
		Symbol:           "SPY",
		StartDate:        start,
		EndDate:          start.AddDate(0, 0, 59),
		PriceFile:        writeFile(t, dir, "prices.csv", prices.String()),
		RegimeFile:       writeFile(t, dir, "regimes.csv", regimes.String()),
		OutputDir:        filepath.Join(dir, "out"),
		MetricsFile:      filepath.Join(dir, "backtest.prom"),
		LedgerDelimiter:  ",",
		RecentTradeCount: 5,
		Preset:           config.DefaultPreset(),
	}
}

func TestFileBackedCycleRun(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Cache)
	assert.Nil(t, a.Archive)

	prices, err := a.DailyPrices(ctx)
	require.NoError(t, err)
	assert.Len(t, prices, 60)

	regimes, err := a.Regimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StageContraction, regimes.CurrentStage())

	comparison, err := a.Engine.Compare(ctx, prices, regimes, cfg.Preset.BasicParams(), cfg.Preset.EnhancedParams())
	require.NoError(t, err)
	require.Len(t, comparison.Enhanced.Trades, 1)

	require.NoError(t, a.SaveLedger("trades_enhanced.csv", comparison.Enhanced.Trades, backtest.LedgerEnhanced))
	ledger, err := os.ReadFile(filepath.Join(cfg.OutputDir, "trades_enhanced.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(ledger), "Cycle change,Expansion,Contraction")

	require.NoError(t, a.ArchiveRun(ctx, backtest.StrategyEnhanced, prices[0].Time, prices[59].Time, nil, comparison.Enhanced.Metrics, nil))
	require.NoError(t, a.FlushMetrics())
	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `backtest_runs_total{strategy="enhanced"} 1`)
	assert.Contains(t, string(metrics), `backtest_runs_total{strategy="original"} 1`)
}

func TestNoSourceConfigured(t *testing.T) {
	a, err := New(context.Background(), &config.Config{LedgerDelimiter: ",", Preset: config.DefaultPreset()})
	require.NoError(t, err)

	_, err = a.DailyPrices(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
	_, err = a.IntradayBars(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
	_, err = a.Regimes(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)

	assert.NoError(t, a.SaveLedger("x.csv", nil, backtest.LedgerBasic))
	assert.NoError(t, a.FlushMetrics())
}

func TestIntradayCacheKeyTracksHour(t *testing.T) {
	cfg := &config.Config{Symbol: "SPY", Interval: "15min", SwingDays: 90}
	morning := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	afternoon := time.Date(2024, 3, 4, 19, 30, 0, 0, time.UTC)

	assert.NotEqual(t,
		intradayKey(cfg, morning.AddDate(0, 0, -cfg.SwingDays), morning),
		intradayKey(cfg, afternoon.AddDate(0, 0, -cfg.SwingDays), afternoon))
	assert.Contains(t, intradayKey(cfg, morning.AddDate(0, 0, -cfg.SwingDays), morning), "SPY,15min")
}

func TestIntradayBarsMarketHours(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bars.csv", "timestamp,close\n"+
		"2024-03-04T13:00:00Z,500\n"+ // 08:00 New York
		"2024-03-04T15:00:00Z,501\n"+ // 10:00
		"2024-03-04T20:30:00Z,502\n") // 15:30

	cfg := &config.Config{IntradayFile: path, MarketHoursOnly: true, LedgerDelimiter: ",", Preset: config.DefaultPreset()}
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	bars, err := a.IntradayBars(context.Background())
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 501.0, bars[0].Close)
}
