package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the key/value connection string understood by lib/pq
func (p ConnectionParams) DSN() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, sslMode,
	)
}

// New creates a new database connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres at %s:%s: %w", params.Host, params.Port, err)
	}

	// Create tables if they don't exist
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, logger: log.With().Str("component", "run_archive").Logger()}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id UUID PRIMARY KEY,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			period_start TIMESTAMPTZ NOT NULL,
			period_end TIMESTAMPTZ NOT NULL,
			params JSONB NOT NULL,
			metrics JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			exit_time TIMESTAMPTZ NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION NOT NULL,
			return_pct DOUBLE PRECISION NOT NULL,
			exit_reason TEXT,
			entry_cycle TEXT,
			exit_cycle TEXT,
			shares BIGINT,
			profit DOUBLE PRECISION,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS backtest_runs_symbol_idx ON backtest_runs (symbol, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// Run is one archived backtest
type Run struct {
	ID          uuid.UUID
	Strategy    string
	Symbol      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Params      any
	Metrics     model.Metrics
	Trades      []model.Trade
	CreatedAt   time.Time
}

// NewRun stamps a run with a fresh ID and creation time
func NewRun(strategy, symbol string, start, end time.Time, params any, metrics model.Metrics, trades []model.Trade) Run {
	return Run{
		ID:          uuid.New(),
		Strategy:    strategy,
		Symbol:      symbol,
		PeriodStart: start,
		PeriodEnd:   end,
		Params:      params,
		Metrics:     metrics,
		Trades:      trades,
		CreatedAt:   time.Now().UTC(),
	}
}

// SaveRun stores the run and its trades in one transaction
func (db *DB) SaveRun(ctx context.Context, run Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, strategy, symbol, period_start, period_end, params, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.Strategy, run.Symbol, run.PeriodStart, run.PeriodEnd, params, metrics, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("backtest_trades",
		"run_id", "seq", "entry_time", "exit_time", "entry_price", "exit_price",
		"return_pct", "exit_reason", "entry_cycle", "exit_cycle", "shares", "profit"))
	if err != nil {
		return fmt.Errorf("preparing trade copy: %w", err)
	}
	for i, t := range run.Trades {
		if _, err := stmt.ExecContext(ctx, run.ID, i, t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice,
			t.ReturnPct, string(t.ExitReason), string(t.EntryStage), string(t.ExitStage), t.Shares, t.Profit); err != nil {
			stmt.Close()
			return fmt.Errorf("copying trade %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing trades: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("closing trade copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().
		Str("run_id", run.ID.String()).
		Str("strategy", run.Strategy).
		Str("symbol", run.Symbol).
		Int("trades", len(run.Trades)).
		Msg("Archived backtest run")
	return nil
}

// RunSummary is a stored run without its trades
type RunSummary struct {
	ID        uuid.UUID
	Strategy  string
	Symbol    string
	Metrics   model.Metrics
	CreatedAt time.Time
}

// RecentRuns lists the latest runs for a symbol, newest first
func (db *DB) RecentRuns(ctx context.Context, symbol string, limit int) ([]RunSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, strategy, symbol, metrics, created_at
		FROM backtest_runs
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r       RunSummary
			metrics []byte
		)
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Symbol, &metrics, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
			return nil, fmt.Errorf("decoding metrics of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
