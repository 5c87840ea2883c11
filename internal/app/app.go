// Package app wires configuration, data sources and outputs for the command
// line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/analysis/market"
	"github.com/Alias1177/CycleTrader/internal/api/fred"
	"github.com/Alias1177/CycleTrader/internal/api/twelvedata"
	"github.com/Alias1177/CycleTrader/internal/cache"
	"github.com/Alias1177/CycleTrader/internal/config"
	"github.com/Alias1177/CycleTrader/internal/database"
	"github.com/Alias1177/CycleTrader/internal/dataset"
	"github.com/Alias1177/CycleTrader/internal/metrics"
	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/trading/backtest"
)

// ErrNoSource is returned when neither a file nor an API key is configured
var ErrNoSource = errors.New("no data source configured")

// App defines the application structure and its dependencies. Cache, Archive
// and the API clients are nil when not configured.
type App struct {
	Config     *config.Config
	Engine     *backtest.Engine
	Classifier *market.Classifier
	Recorder   *metrics.Recorder
	Cache      *cache.Cache
	Archive    *database.DB
	Twelve     *twelvedata.Client
	Fred       *fred.Client

	logger zerolog.Logger
}

// New creates the application and connects the optional backends
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:     cfg,
		Classifier: market.NewClassifier(),
		Recorder:   metrics.NewRecorder(),
		logger:     log.With().Str("component", "app").Logger(),
	}
	a.Engine = backtest.NewEngine().WithObserver(a.Recorder)

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if cfg.TwelveAPIKey != "" {
		a.Twelve = twelvedata.NewClient(twelvedata.ClientOptions{
			APIKey:         cfg.TwelveAPIKey,
			RequestTimeout: timeout,
			RequestsPerSec: cfg.RequestsPerSec,
			MaxRetries:     cfg.MaxRetries,
		})
	}
	if cfg.FredAPIKey != "" {
		a.Fred = fred.NewClient(fred.ClientOptions{
			APIKey:         cfg.FredAPIKey,
			RequestTimeout: timeout,
			RequestsPerSec: cfg.RequestsPerSec,
			MaxRetries:     cfg.MaxRetries,
		})
	}

	if cfg.RedisAddr != "" {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			// Runs proceed uncached
			a.logger.Warn().Err(err).Msg("Redis unavailable, caching disabled")
		} else {
			a.Cache = c
		}
	}

	if cfg.DBHost != "" {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening run archive: %w", err)
		}
		a.Archive = db
	}

	return a, nil
}

// Close releases backend connections
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Closing cache")
		}
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Closing archive")
		}
	}
}

// DailyPrices loads daily bars for the configured symbol and date range
func (a *App) DailyPrices(ctx context.Context) ([]model.Candle, error) {
	cfg := a.Config
	if cfg.PriceFile != "" {
		return dataset.LoadPricesFile(cfg.PriceFile, time.UTC)
	}
	if a.Twelve == nil {
		return nil, fmt.Errorf("daily prices: %w (set PRICE_FILE or TWELVE_API_KEY)", ErrNoSource)
	}

	start, end := cfg.StartDate, cfg.End()
	fetch := func(ctx context.Context) ([]model.Candle, error) {
		return a.Twelve.GetTimeSeries(ctx, cfg.Symbol, "1day", start, end)
	}
	if a.Cache == nil {
		return fetch(ctx)
	}
	return a.Cache.Candles(ctx, cache.Key("candles", []string{cfg.Symbol, "1day"}, start, end), fetch)
}

// IntradayBars loads intraday bars for the last SwingDays days, limited to
// regular market hours when configured
func (a *App) IntradayBars(ctx context.Context) ([]model.Candle, error) {
	cfg := a.Config
	var (
		candles []model.Candle
		err     error
	)

	switch {
	case cfg.IntradayFile != "":
		candles, err = dataset.LoadPricesFile(cfg.IntradayFile, time.UTC)
	case a.Twelve != nil:
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -cfg.SwingDays)
		fetch := func(ctx context.Context) ([]model.Candle, error) {
			return a.Twelve.GetTimeSeries(ctx, cfg.Symbol, cfg.Interval, start, end)
		}
		if a.Cache == nil {
			candles, err = fetch(ctx)
		} else {
			candles, err = a.Cache.Candles(ctx, intradayKey(cfg, start, end), fetch)
		}
	default:
		return nil, fmt.Errorf("intraday bars: %w (set INTRADAY_FILE or TWELVE_API_KEY)", ErrNoSource)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MarketHoursOnly {
		before := len(candles)
		if candles, err = dataset.FilterMarketHours(candles); err != nil {
			return nil, err
		}
		a.logger.Debug().Int("before", before).Int("after", len(candles)).Msg("Filtered to market hours")
	}
	return candles, nil
}

func intradayKey(cfg *config.Config, start, end time.Time) string {
	return cache.IntradayKey("candles", []string{cfg.Symbol, cfg.Interval}, start, end)
}

// Indicators loads the macro indicator table
func (a *App) Indicators(ctx context.Context) (model.IndicatorTable, error) {
	cfg := a.Config
	if cfg.IndicatorFile != "" {
		return dataset.LoadIndicatorsFile(cfg.IndicatorFile)
	}
	if a.Fred == nil {
		return model.IndicatorTable{}, fmt.Errorf("indicators: %w (set INDICATOR_FILE or FRED_API_KEY)", ErrNoSource)
	}

	fetch := func(ctx context.Context) (model.IndicatorTable, error) {
		return a.Fred.FetchIndicators(ctx, fred.DefaultSeries, cfg.StartDate)
	}
	if a.Cache == nil {
		return fetch(ctx)
	}
	return a.Cache.Indicators(ctx, cache.Key("indicators", []string{"fred"}, cfg.StartDate, cfg.End()), fetch)
}

// Regimes returns the daily cycle stages, read from REGIME_FILE or classified
// from the indicator table
func (a *App) Regimes(ctx context.Context) (model.RegimeSeries, error) {
	if path := a.Config.RegimeFile; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return model.RegimeSeries{}, err
		}
		defer f.Close()
		return dataset.LoadRegimes(f)
	}

	table, err := a.Indicators(ctx)
	if err != nil {
		return model.RegimeSeries{}, err
	}
	return a.Classifier.Classify(table)
}

// SaveLedger writes trades to OUTPUT_DIR/name when an output directory is set
func (a *App) SaveLedger(name string, trades []model.Trade, kind backtest.LedgerKind) error {
	if a.Config.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.Config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(a.Config.OutputDir, name)
	format := backtest.LedgerFormat{Kind: kind, Comma: a.Config.Delimiter()}
	if err := backtest.SaveTradesCSV(path, trades, format); err != nil {
		return err
	}
	a.logger.Info().Str("path", path).Int("trades", len(trades)).Msg("Trade ledger saved")
	return nil
}

// ArchiveRun stores a run in Postgres when the archive is configured
func (a *App) ArchiveRun(ctx context.Context, strategy string, start, end time.Time, params any, m model.Metrics, trades []model.Trade) error {
	if a.Archive == nil {
		return nil
	}
	run := database.NewRun(strategy, a.Config.Symbol, start, end, params, m, trades)
	return a.Archive.SaveRun(ctx, run)
}

// FlushMetrics writes the Prometheus textfile when configured
func (a *App) FlushMetrics() error {
	if a.Config.MetricsFile == "" {
		return nil
	}
	return a.Recorder.WriteToTextfile(a.Config.MetricsFile)
}
