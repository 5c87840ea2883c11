package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// minAlignedRows is the shortest aligned history a run accepts. Annualisation
// needs at least two dated rows.
const minAlignedRows = 2

type alignedDay struct {
	Date  time.Time
	Price float64
	Stage model.Stage
}

// alignPrices joins closes with the regime in force on each priced day. Days with
// no close or no known stage at or before them are dropped.
func alignPrices(prices []model.Candle, regimes model.RegimeSeries) ([]alignedDay, error) {
	if err := validateCandles(prices); err != nil {
		return nil, err
	}
	if len(regimes.Times) != len(regimes.Stages) {
		return nil, fmt.Errorf("%w: regime series has %d dates for %d stages",
			ErrInvalidParams, len(regimes.Times), len(regimes.Stages))
	}

	days := make([]alignedDay, 0, len(prices))
	for _, c := range prices {
		if math.IsNaN(c.Close) {
			continue
		}
		stage := stageAsOf(regimes, timeseries.TruncateDay(c.Time))
		if !stage.Known() {
			continue
		}
		days = append(days, alignedDay{Date: c.Time, Price: c.Close, Stage: stage})
	}

	if len(days) < minAlignedRows {
		return nil, fmt.Errorf("%w: %d rows after joining prices %s with regimes %s",
			ErrInsufficientData, len(days), candleSpan(prices), regimeSpan(regimes))
	}
	return days, nil
}

func stageAsOf(regimes model.RegimeSeries, day time.Time) model.Stage {
	i := sort.Search(len(regimes.Times), func(i int) bool { return regimes.Times[i].After(day) })
	if i == 0 {
		return model.StageUnknown
	}
	return regimes.Stages[i-1]
}

func validateCandles(candles []model.Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return fmt.Errorf("prices: %w: %s follows %s", timeseries.ErrUnordered,
				candles[i].Time.Format(time.RFC3339), candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

func candleSpan(candles []model.Candle) string {
	if len(candles) == 0 {
		return "[empty]"
	}
	return fmt.Sprintf("[%s..%s]", candles[0].Time.Format("2006-01-02"), candles[len(candles)-1].Time.Format("2006-01-02"))
}

func regimeSpan(regimes model.RegimeSeries) string {
	if len(regimes.Times) == 0 {
		return "[empty]"
	}
	return fmt.Sprintf("[%s..%s]", regimes.Times[0].Format("2006-01-02"), regimes.Times[len(regimes.Times)-1].Format("2006-01-02"))
}
