// Package metrics exports backtest run statistics in Prometheus format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// Recorder collects run statistics on its own registry. It satisfies the
// backtest engine's observer contract.
type Recorder struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	trades       *prometheus.CounterVec
	totalReturn  *prometheus.GaugeVec
	sharpe       *prometheus.GaugeVec
	maxDrawdown  *prometheus.GaugeVec
	winRate      *prometheus.GaugeVec
	stopTriggers *prometheus.GaugeVec
}

// NewRecorder registers the backtest metrics on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Total number of completed backtest runs",
		}, []string{"strategy"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a backtest run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"strategy"}),
		trades: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Closed trades by exit reason",
		}, []string{"strategy", "exit_reason"}),
		totalReturn: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_total_return_ratio",
			Help: "Total return of the last run as a fraction",
		}, []string{"strategy"}),
		sharpe: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_sharpe_ratio",
			Help: "Sharpe ratio of the last run",
		}, []string{"strategy"}),
		maxDrawdown: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_max_drawdown_ratio",
			Help: "Maximum drawdown of the last run as a fraction",
		}, []string{"strategy"}),
		winRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_win_rate_ratio",
			Help: "Share of winning trades in the last run",
		}, []string{"strategy"}),
		stopTriggers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_stop_loss_triggers",
			Help: "Stop-loss triggers in the last run",
		}, []string{"strategy"}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RunCompleted records one finished run
func (r *Recorder) RunCompleted(strategy string, m model.Metrics, trades []model.Trade, elapsed time.Duration) {
	r.runs.WithLabelValues(strategy).Inc()
	r.runDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())

	for _, t := range trades {
		reason := string(t.ExitReason)
		if reason == "" {
			reason = "none"
		}
		r.trades.WithLabelValues(strategy, reason).Inc()
	}

	r.totalReturn.WithLabelValues(strategy).Set(m.TotalReturn)
	r.sharpe.WithLabelValues(strategy).Set(m.SharpeRatio)
	r.maxDrawdown.WithLabelValues(strategy).Set(m.MaxDrawdown)
	r.winRate.WithLabelValues(strategy).Set(m.WinRate)
	r.stopTriggers.WithLabelValues(strategy).Set(float64(m.StopLossTriggers))
}

// WriteToTextfile dumps the registry for the node exporter textfile collector
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
