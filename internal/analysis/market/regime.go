package market

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// ErrEmptyTable is returned when the indicator table has no calendar days
var ErrEmptyTable = errors.New("indicator table has no days")

// Smoothing windows, in calendar days
const (
	longWindow      = 90
	longMinPeriods  = 30
	trendLag        = 90
	curveWindow     = 30
	curveMinPeriods = 10
)

// Classification thresholds, in percentage points
const (
	unemploymentRisingTrend  = 0.3
	unemploymentFallingTrend = -0.1
	unemploymentElevated     = 6.0
	gdpSlowingTrend          = -0.5
	inflationHot             = 3.5
	yieldCurveInverted       = -0.2
	gdpRecoveryCeiling       = 2.0
)

// Snapshot is the smoothed view of the economy on one day. Missing inputs are NaN.
type Snapshot struct {
	GDPGrowth         float64
	GDPTrend          float64
	Unemployment      float64
	UnemploymentTrend float64
	Inflation         float64
	YieldCurve        float64
}

// Classifier assigns a cycle stage to every day of an indicator table
type Classifier struct {
	logger zerolog.Logger
}

// NewClassifier creates a classifier with a component logger
func NewClassifier() *Classifier {
	return &Classifier{
		logger: log.With().Str("component", "cycle_classifier").Logger(),
	}
}

// Classify labels every calendar day of the table, then forward-fills days that
// could not be classified from the last known stage.
func (c *Classifier) Classify(table model.IndicatorTable) (model.RegimeSeries, error) {
	if len(table.Days) == 0 {
		return model.RegimeSeries{}, ErrEmptyTable
	}
	for name, values := range table.Series {
		if len(values) != len(table.Days) {
			return model.RegimeSeries{}, fmt.Errorf("indicator %s has %d values for %d days", name, len(values), len(table.Days))
		}
	}

	snapshots := Smooth(table)
	stages := make([]model.Stage, len(snapshots))
	last := model.StageUnknown
	for i, snap := range snapshots {
		if stage := ClassifySnapshot(snap); stage.Known() {
			last = stage
		}
		stages[i] = last
	}

	regimes := model.RegimeSeries{Times: table.Days, Stages: stages}

	c.logger.Info().
		Int("days", regimes.Len()).
		Str("from", table.Days[0].Format("2006-01-02")).
		Str("to", table.Days[len(table.Days)-1].Format("2006-01-02")).
		Str("current", string(regimes.CurrentStage())).
		Msg("Classified economic cycle")
	for _, share := range regimes.Distribution() {
		c.logger.Debug().
			Str("stage", string(share.Stage)).
			Int("days", share.Days).
			Float64("percent", share.Percent).
			Msg("Cycle distribution")
	}

	return regimes, nil
}

// Smooth computes the per-day snapshots the rule cascade runs on. Indicators absent
// from the table yield NaN fields.
func Smooth(table model.IndicatorTable) []Snapshot {
	n := len(table.Days)
	column := func(name string) []float64 {
		if values, ok := table.Column(name); ok {
			return values
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = timeseries.Missing
		}
		return out
	}

	gdp := timeseries.RollingMean(column(model.IndicatorGDPGrowth), longWindow, longMinPeriods)
	unemployment := timeseries.RollingMean(column(model.IndicatorUnemployment), longWindow, longMinPeriods)
	gdpTrend := timeseries.Diff(gdp, trendLag)
	unemploymentTrend := timeseries.Diff(unemployment, trendLag)
	inflation := timeseries.RollingMean(column(model.IndicatorInflation), longWindow, longMinPeriods)
	curve := timeseries.RollingMean(column(model.IndicatorYieldCurve), curveWindow, curveMinPeriods)

	snapshots := make([]Snapshot, n)
	for i := range snapshots {
		snapshots[i] = Snapshot{
			GDPGrowth:         gdp[i],
			GDPTrend:          gdpTrend[i],
			Unemployment:      unemployment[i],
			UnemploymentTrend: unemploymentTrend[i],
			Inflation:         inflation[i],
			YieldCurve:        curve[i],
		}
	}
	return snapshots
}

// ClassifySnapshot runs the ordered rule cascade; the first matching rule wins.
// Comparisons against a missing value are false.
func ClassifySnapshot(s Snapshot) model.Stage {
	missing := 0
	for _, v := range []float64{s.GDPGrowth, s.Unemployment, s.Inflation} {
		if timeseries.IsMissing(v) {
			missing++
		}
	}
	if missing > 1 {
		return model.StageUnknown
	}

	switch {
	case s.GDPGrowth < 0 || s.UnemploymentTrend > unemploymentRisingTrend:
		return model.StageContraction
	case (s.GDPTrend < gdpSlowingTrend && s.Inflation > inflationHot) || s.YieldCurve < yieldCurveInverted:
		return model.StagePeak
	case s.GDPGrowth >= 0 && s.GDPGrowth < gdpRecoveryCeiling &&
		s.Unemployment > unemploymentElevated && s.UnemploymentTrend < unemploymentFallingTrend:
		return model.StageRecovery
	case s.GDPGrowth >= 0 && s.UnemploymentTrend <= 0:
		return model.StageExpansion
	case s.GDPGrowth > 0:
		return model.StageExpansion
	}
	return model.StageUnknown
}
