package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// LoadIndicators reads a wide table of macro observations: a date column and one
// column per indicator, named as in the model package (GDP_GROWTH, UNEMPLOYMENT,
// CPI, ...). Empty cells are missing. The result is resampled to calendar days
// with yield curve and inflation derived when their inputs are present.
func LoadIndicators(in io.Reader) (model.IndicatorTable, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	names, err := r.Read()
	if err != nil {
		return model.IndicatorTable{}, fmt.Errorf("reading header: %w", err)
	}
	dateCol := -1
	for i, name := range names {
		names[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if strings.EqualFold(names[i], "date") {
			dateCol = i
		}
	}
	if dateCol < 0 {
		return model.IndicatorTable{}, fmt.Errorf("%w: date", ErrMissingColumn)
	}

	var times []time.Time
	columns := make(map[string][]float64, len(names)-1)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.IndicatorTable{}, fmt.Errorf("line %d: %w", line, err)
		}

		t, err := parseTime(rec[dateCol], time.UTC)
		if err != nil {
			return model.IndicatorTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		times = append(times, timeseries.TruncateDay(t))

		for i, name := range names {
			if i == dateCol {
				continue
			}
			v := math.NaN()
			if i < len(rec) {
				if v, err = parseFloat(rec[i]); err != nil {
					return model.IndicatorTable{}, fmt.Errorf("line %d: %s: %w", line, name, err)
				}
			}
			columns[name] = append(columns[name], v)
		}
	}

	raw := make(map[string]timeseries.Series, len(columns))
	for name, values := range columns {
		s, err := timeseries.New(name, times, values)
		if err != nil {
			return model.IndicatorTable{}, err
		}
		raw[name] = s
	}
	return model.BuildIndicatorTable(raw)
}

// LoadIndicatorsFile reads a macro table from a CSV file
func LoadIndicatorsFile(path string) (model.IndicatorTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.IndicatorTable{}, err
	}
	defer f.Close()

	table, err := LoadIndicators(f)
	if err != nil {
		return model.IndicatorTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// LoadRegimes reads a date,cycle table as written by WriteRegimes. Blank or
// unrecognised labels are kept as unclassified days.
func LoadRegimes(in io.Reader) (model.RegimeSeries, error) {
	r := csv.NewReader(in)
	h, err := readHeader(r)
	if err != nil {
		return model.RegimeSeries{}, err
	}
	dateCol, err := h.require("date")
	if err != nil {
		return model.RegimeSeries{}, err
	}
	stageCol, err := h.require("cycle", "cycle_stage", "stage")
	if err != nil {
		return model.RegimeSeries{}, err
	}

	var regimes model.RegimeSeries
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.RegimeSeries{}, fmt.Errorf("line %d: %w", line, err)
		}
		t, err := parseTime(rec[dateCol], time.UTC)
		if err != nil {
			return model.RegimeSeries{}, fmt.Errorf("line %d: %w", line, err)
		}
		stage, _ := model.ParseStage(strings.TrimSpace(rec[stageCol]))
		regimes.Times = append(regimes.Times, timeseries.TruncateDay(t))
		regimes.Stages = append(regimes.Stages, stage)
	}

	if _, err := timeseries.NewBool(regimes.Times, make([]bool, len(regimes.Times))); err != nil {
		return model.RegimeSeries{}, fmt.Errorf("regimes: %w", err)
	}
	return regimes, nil
}

// WriteRegimes writes one date,cycle row per day
func WriteRegimes(out io.Writer, regimes model.RegimeSeries) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"date", "cycle"}); err != nil {
		return err
	}
	for i, t := range regimes.Times {
		if err := w.Write([]string{t.Format("2006-01-02"), string(regimes.Stages[i])}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExpansionFilter flags the days classified as Expansion. Unclassified days are
// left out so lookups resolve to the last classified day.
func ExpansionFilter(regimes model.RegimeSeries) timeseries.BoolSeries {
	return regimes.InStages(model.StageExpansion)
}
