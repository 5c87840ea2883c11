package model

import (
	"errors"
	"sort"
	"time"

	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// Indicator names used in an IndicatorTable
const (
	IndicatorGDPGrowth    = "GDP_GROWTH"
	IndicatorUnemployment = "UNEMPLOYMENT"
	IndicatorInflation    = "INFLATION_RATE"
	IndicatorYieldCurve   = "YIELD_CURVE"
	IndicatorCPI          = "CPI"
	IndicatorTreasury10Y  = "TREASURY_10Y"
	IndicatorTreasury2Y   = "TREASURY_2Y"
)

// ErrNoIndicators is returned when no indicator series were supplied
var ErrNoIndicators = errors.New("no indicator series")

// IndicatorTable holds macro series on one continuous calendar-day index.
// Missing observations are NaN.
type IndicatorTable struct {
	Days   []time.Time
	Series map[string][]float64
}

// Column returns the named series if present
func (t IndicatorTable) Column(name string) ([]float64, bool) {
	values, ok := t.Series[name]
	return values, ok
}

// Names returns the indicator names in sorted order
func (t IndicatorTable) Names() []string {
	names := make([]string, 0, len(t.Series))
	for name := range t.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildIndicatorTable resamples raw observations of mixed frequency onto a daily
// calendar with forward fill and derives the yield-curve spread and the
// year-over-year inflation rate.
func BuildIndicatorTable(raw map[string]timeseries.Series) (IndicatorTable, error) {
	var start, end time.Time
	for _, s := range raw {
		if s.Empty() {
			continue
		}
		if start.IsZero() || s.Start().Before(start) {
			start = s.Start()
		}
		if s.End().After(end) {
			end = s.End()
		}
	}
	if start.IsZero() {
		return IndicatorTable{}, ErrNoIndicators
	}

	days := timeseries.CalendarDays(start, end)
	table := IndicatorTable{Days: days, Series: make(map[string][]float64, len(raw)+2)}

	for name, s := range raw {
		table.Series[name] = s.Reindex(days).Values
	}

	if cpi, ok := raw[IndicatorCPI]; ok && cpi.Len() > 12 {
		if _, exists := raw[IndicatorInflation]; !exists {
			inflation := cpi.WithValues(IndicatorInflation, scale(timeseries.PctChange(cpi.Values, 12), 100))
			table.Series[IndicatorInflation] = inflation.Reindex(days).Values
		}
	}

	tenYear, okLong := table.Series[IndicatorTreasury10Y]
	twoYear, okShort := table.Series[IndicatorTreasury2Y]
	if _, exists := table.Series[IndicatorYieldCurve]; !exists && okLong && okShort {
		spread := make([]float64, len(days))
		for i := range days {
			spread[i] = tenYear[i] - twoYear[i]
		}
		table.Series[IndicatorYieldCurve] = spread
	}

	return table, nil
}

func scale(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}
	return out
}
