package technical

import (
	"math"

	"github.com/Alias1177/CycleTrader/internal/model"
	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// BollingerBands holds the band columns for a price series
type BollingerBands struct {
	Upper     []float64
	Middle    []float64
	Lower     []float64
	Bandwidth []float64
	PercentB  []float64
}

// CalculateBollingerBands calculates Bollinger Bands over closes. The first
// period-1 rows are NaN.
func CalculateBollingerBands(closes []float64, period int, stdDev float64) BollingerBands {
	middle := timeseries.RollingMean(closes, period, period)
	sd := timeseries.RollingStd(closes, period, period)

	bands := BollingerBands{
		Upper:     make([]float64, len(closes)),
		Middle:    middle,
		Lower:     make([]float64, len(closes)),
		Bandwidth: make([]float64, len(closes)),
		PercentB:  make([]float64, len(closes)),
	}
	for i := range closes {
		bands.Upper[i] = middle[i] + sd[i]*stdDev
		bands.Lower[i] = middle[i] - sd[i]*stdDev
		bands.Bandwidth[i] = ratio(bands.Upper[i]-bands.Lower[i], middle[i])
		bands.PercentB[i] = ratio(closes[i]-bands.Lower[i], bands.Upper[i]-bands.Lower[i])
	}

	return bands
}

// KeltnerChannel holds the channel columns for a price series
type KeltnerChannel struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// CalculateKeltnerChannel calculates an EMA midline with bands at atrMult times
// the ATR of the same period.
func CalculateKeltnerChannel(candles []model.Candle, period int, atrMult float64) KeltnerChannel {
	middle := timeseries.EMA(model.Closes(candles), period)
	atr := CalculateATR(candles, period)

	kc := KeltnerChannel{
		Upper:  make([]float64, len(candles)),
		Middle: middle,
		Lower:  make([]float64, len(candles)),
	}
	for i := range candles {
		kc.Upper[i] = middle[i] + atr[i]*atrMult
		kc.Lower[i] = middle[i] - atr[i]*atrMult
	}

	return kc
}

// CalculateTrueRange returns the greatest of high-low, |high-prevClose| and
// |low-prevClose| per bar. The first bar has no previous close and uses high-low.
func CalculateTrueRange(candles []model.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		highLow := c.High - c.Low
		if i == 0 {
			tr[i] = highLow
			continue
		}
		prevClose := candles[i-1].Close
		highPrevClose := math.Abs(c.High - prevClose)
		lowPrevClose := math.Abs(c.Low - prevClose)

		tr[i] = math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
	}
	return tr
}

// CalculateATR calculates Average True Range as an EMA of the true range
func CalculateATR(candles []model.Candle, period int) []float64 {
	return timeseries.EMA(CalculateTrueRange(candles), period)
}

// CalculateSqueeze flags bars where the Bollinger Bands sit fully inside the
// Keltner Channel. Bars with an undefined band are not in a squeeze.
func CalculateSqueeze(bb BollingerBands, kc KeltnerChannel) []bool {
	squeeze := make([]bool, len(bb.Lower))
	for i := range squeeze {
		// NaN comparisons are false
		squeeze[i] = bb.Lower[i] > kc.Lower[i] && bb.Upper[i] < kc.Upper[i]
	}
	return squeeze
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return timeseries.Missing
	}
	return num / den
}
