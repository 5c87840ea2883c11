package technical

import (
	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// CalculateRSI calculates the Relative Strength Index using simple rolling means
// of gains and losses. Rows with zero average loss have no defined RSI and are NaN.
func CalculateRSI(closes []float64, period int) []float64 {
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else if change < 0 {
			losses[i] = -change
		}
	}

	avgGain := timeseries.RollingMean(gains, period, period)
	avgLoss := timeseries.RollingMean(losses, period, period)

	rsi := make([]float64, len(closes))
	for i := range rsi {
		if avgLoss[i] == 0 || timeseries.IsMissing(avgLoss[i]) || timeseries.IsMissing(avgGain[i]) {
			rsi[i] = timeseries.Missing
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		rsi[i] = 100.0 - (100.0 / (1.0 + rs))
	}

	return rsi
}

// CalculateStochRSI calculates the stochastic oscillator of RSI, smoothed into
// %K and %D lines. Values are in [0, 1].
func CalculateStochRSI(closes []float64, period, smoothK, smoothD int) (k, d []float64) {
	rsi := CalculateRSI(closes, period)
	lowest := timeseries.RollingMin(rsi, period)
	highest := timeseries.RollingMax(rsi, period)

	stoch := make([]float64, len(rsi))
	for i := range stoch {
		stoch[i] = ratio(rsi[i]-lowest[i], highest[i]-lowest[i])
	}

	k = timeseries.RollingMean(stoch, smoothK, smoothK)
	d = timeseries.RollingMean(k, smoothD, smoothD)
	return k, d
}

// MACD holds the MACD line, its signal line and the histogram
type MACD struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateMACD calculates MACD from fast and slow EMAs of closes
func CalculateMACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) MACD {
	fast := timeseries.EMA(closes, fastPeriod)
	slow := timeseries.EMA(closes, slowPeriod)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := timeseries.EMA(line, signalPeriod)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}

	return MACD{Line: line, Signal: signal, Histogram: hist}
}
