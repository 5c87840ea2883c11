package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Alias1177/CycleTrader/internal/analysis/technical"
	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/trading/backtest"
)

// Config holds all application configuration
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Market data
	Symbol           string    `env:"SYMBOL" envDefault:"SPY"`
	Interval         string    `env:"INTERVAL" envDefault:"30min"`
	StartDate        time.Time `env:"START_DATE" envDefault:"2000-01-01"`
	EndDate          time.Time `env:"END_DATE"`
	SwingDays        int       `env:"SWING_DAYS" envDefault:"90"`
	MarketHoursOnly  bool      `env:"MARKET_HOURS_ONLY" envDefault:"true"`
	PriceFile        string    `env:"PRICE_FILE"`
	IntradayFile     string    `env:"INTRADAY_FILE"`
	IndicatorFile    string    `env:"INDICATOR_FILE"`
	RegimeFile       string    `env:"REGIME_FILE"`
	TwelveAPIKey     string    `env:"TWELVE_API_KEY"`
	FredAPIKey       string    `env:"FRED_API_KEY"`
	RequestTimeout   int       `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec   int       `env:"REQUESTS_PER_SEC" envDefault:"5"`
	MaxRetries       int       `env:"MAX_RETRIES" envDefault:"5"`
	StrategyPreset   string    `env:"STRATEGY_PRESET"`
	OutputDir        string    `env:"OUTPUT_DIR"`
	LedgerDelimiter  string    `env:"LEDGER_DELIMITER" envDefault:","`
	RecentTradeCount int       `env:"RECENT_TRADES" envDefault:"10"`

	// Redis cache of fetched series; disabled when REDIS_ADDR is empty
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Postgres run archive; disabled when DB_HOST is empty
	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"cycletrader"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Prometheus textfile output; disabled when empty
	MetricsFile string `env:"METRICS_FILE"`

	Preset Preset
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	var err error

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.Symbol = getEnvWithDefault("SYMBOL", "SPY")
	cfg.Interval = getEnvWithDefault("INTERVAL", "30min")
	if cfg.StartDate, err = getEnvDateWithDefault("START_DATE", "2000-01-01"); err != nil {
		return nil, err
	}
	if cfg.EndDate, err = getEnvDateWithDefault("END_DATE", ""); err != nil {
		return nil, err
	}
	cfg.SwingDays = getEnvIntWithDefault("SWING_DAYS", 90)
	cfg.MarketHoursOnly = getEnvBoolWithDefault("MARKET_HOURS_ONLY", true)
	cfg.PriceFile = os.Getenv("PRICE_FILE")
	cfg.IntradayFile = os.Getenv("INTRADAY_FILE")
	cfg.IndicatorFile = os.Getenv("INDICATOR_FILE")
	cfg.RegimeFile = os.Getenv("REGIME_FILE")
	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.FredAPIKey = os.Getenv("FRED_API_KEY")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.MaxRetries = getEnvIntWithDefault("MAX_RETRIES", 5)
	cfg.StrategyPreset = os.Getenv("STRATEGY_PRESET")
	cfg.OutputDir = os.Getenv("OUTPUT_DIR")
	cfg.LedgerDelimiter = getEnvWithDefault("LEDGER_DELIMITER", ",")
	cfg.RecentTradeCount = getEnvIntWithDefault("RECENT_TRADES", 10)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvIntWithDefault("REDIS_DB", 0)
	cfg.CacheTTL = getEnvDurationWithDefault("CACHE_TTL", 24*time.Hour)

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "cycletrader")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.MetricsFile = os.Getenv("METRICS_FILE")

	cfg.Preset = DefaultPreset()
	if cfg.StrategyPreset != "" {
		if cfg.Preset, err = LoadPreset(cfg.StrategyPreset); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("END_DATE %s must be after START_DATE %s",
			c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}
	if len([]rune(c.LedgerDelimiter)) != 1 {
		return fmt.Errorf("LEDGER_DELIMITER must be a single character, got %q", c.LedgerDelimiter)
	}
	return nil
}

// End returns the configured end date, or today when none is set
func (c *Config) End() time.Time {
	if c.EndDate.IsZero() {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return c.EndDate
}

// Delimiter is the ledger field separator
func (c *Config) Delimiter() rune {
	return []rune(c.LedgerDelimiter)[0]
}

// Preset is the strategy parameter file
type Preset struct {
	Cycle CyclePreset `yaml:"cycle"`
	Swing SwingPreset `yaml:"swing"`
}

// CyclePreset holds the basic and enhanced cycle strategy parameters
type CyclePreset struct {
	InitialCapital    float64  `yaml:"initial_capital"`
	LongStages        []string `yaml:"long_stages"`
	ShortStages       []string `yaml:"short_stages"`
	StayInPeak        bool     `yaml:"stay_in_peak"`
	PeakStopLoss      float64  `yaml:"peak_stop_loss"`
	ExpansionStopLoss float64  `yaml:"expansion_stop_loss"`
	IncludeRecovery   bool     `yaml:"include_recovery"`
}

// SwingPreset holds the swing strategy and indicator parameters
type SwingPreset struct {
	Entry           string   `yaml:"entry"`
	Exit            string   `yaml:"exit"`
	RSIEntry        float64  `yaml:"rsi_entry"`
	RSIExit         float64  `yaml:"rsi_exit"`
	ProfitTarget    *float64 `yaml:"profit_target"`
	StopLoss        float64  `yaml:"stop_loss"`
	InitialCapital  float64  `yaml:"initial_capital"`
	PositionSize    float64  `yaml:"position_size"`
	BarsPerDay      int      `yaml:"bars_per_day"`
	RiskFreeRate    float64  `yaml:"risk_free_rate"`
	ExpansionFilter bool     `yaml:"expansion_filter"`

	BBPeriod     int     `yaml:"bb_period"`
	BBStdDev     float64 `yaml:"bb_std"`
	KCPeriod     int     `yaml:"kc_period"`
	KCMultiplier float64 `yaml:"kc_atr_mult"`
	RSIPeriod    int     `yaml:"rsi_period"`
}

// DefaultPreset mirrors the engine defaults
func DefaultPreset() Preset {
	basic := backtest.DefaultBasicParams()
	enhanced := backtest.DefaultEnhancedParams()
	swing := backtest.DefaultSwingParams()
	ind := technical.DefaultParams()

	return Preset{
		Cycle: CyclePreset{
			InitialCapital:    basic.InitialCapital,
			LongStages:        stageNames(basic.LongStages),
			StayInPeak:        enhanced.StayInPeak,
			PeakStopLoss:      enhanced.PeakStopLoss,
			ExpansionStopLoss: enhanced.ExpansionStopLoss,
			IncludeRecovery:   enhanced.IncludeRecovery,
		},
		Swing: SwingPreset{
			Entry:           swing.Entry,
			Exit:            swing.Exit,
			RSIEntry:        swing.RSIEntry,
			RSIExit:         swing.RSIExit,
			StopLoss:        swing.StopLoss,
			InitialCapital:  swing.InitialCapital,
			PositionSize:    swing.PositionSize,
			BarsPerDay:      swing.BarsPerDay,
			RiskFreeRate:    swing.RiskFreeRate,
			ExpansionFilter: true,
			BBPeriod:        ind.BBPeriod,
			BBStdDev:        ind.BBStdDev,
			KCPeriod:        ind.KCPeriod,
			KCMultiplier:    ind.KCMultiplier,
			RSIPeriod:       ind.RSIPeriod,
		},
	}
}

// LoadPreset reads a YAML preset. Keys left out keep their defaults.
func LoadPreset(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("reading preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset decodes a YAML preset over the defaults
func ParsePreset(data []byte) (Preset, error) {
	preset := DefaultPreset()
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return Preset{}, fmt.Errorf("parsing preset: %w", err)
	}
	if _, err := parseStages(preset.Cycle.LongStages); err != nil {
		return Preset{}, err
	}
	if _, err := parseStages(preset.Cycle.ShortStages); err != nil {
		return Preset{}, err
	}
	return preset, nil
}

// BasicParams builds the basic cycle strategy parameters
func (p Preset) BasicParams() backtest.BasicParams {
	long, _ := parseStages(p.Cycle.LongStages)
	short, _ := parseStages(p.Cycle.ShortStages)
	return backtest.BasicParams{
		InitialCapital: p.Cycle.InitialCapital,
		LongStages:     long,
		ShortStages:    short,
	}
}

// EnhancedParams builds the enhanced cycle strategy parameters
func (p Preset) EnhancedParams() backtest.EnhancedParams {
	return backtest.EnhancedParams{
		InitialCapital:    p.Cycle.InitialCapital,
		StayInPeak:        p.Cycle.StayInPeak,
		PeakStopLoss:      p.Cycle.PeakStopLoss,
		ExpansionStopLoss: p.Cycle.ExpansionStopLoss,
		IncludeRecovery:   p.Cycle.IncludeRecovery,
	}
}

// SwingParams builds the swing strategy parameters without a regime filter
func (p Preset) SwingParams() backtest.SwingParams {
	s := p.Swing
	return backtest.SwingParams{
		Entry:          s.Entry,
		Exit:           s.Exit,
		RSIEntry:       s.RSIEntry,
		RSIExit:        s.RSIExit,
		ProfitTarget:   s.ProfitTarget,
		StopLoss:       s.StopLoss,
		InitialCapital: s.InitialCapital,
		PositionSize:   s.PositionSize,
		BarsPerDay:     s.BarsPerDay,
		RiskFreeRate:   s.RiskFreeRate,
	}
}

// IndicatorParams builds the indicator settings used for swing bars
func (p Preset) IndicatorParams() technical.Params {
	params := technical.DefaultParams()
	params.BBPeriod = p.Swing.BBPeriod
	params.BBStdDev = p.Swing.BBStdDev
	params.KCPeriod = p.Swing.KCPeriod
	params.KCMultiplier = p.Swing.KCMultiplier
	params.RSIPeriod = p.Swing.RSIPeriod
	return params
}

func parseStages(names []string) ([]model.Stage, error) {
	var stages []model.Stage
	for _, name := range names {
		stage, ok := model.ParseStage(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown cycle stage %q", name)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func stageNames(stages []model.Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDateWithDefault(key, defaultValue string) (time.Time, error) {
	value := getEnvWithDefault(key, defaultValue)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
