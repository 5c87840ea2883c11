package technical

import "github.com/Alias1177/CycleTrader/internal/model"

// Params configures the indicator set computed by CalculateAllIndicators
type Params struct {
	BBPeriod      int
	BBStdDev      float64
	KCPeriod      int
	KCMultiplier float64
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	StochSmoothK int
	StochSmoothD int
}

// DefaultParams returns the swing-trading indicator defaults
func DefaultParams() Params {
	return Params{
		BBPeriod:     20,
		BBStdDev:     2.0,
		KCPeriod:     20,
		KCMultiplier: 1.5,
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		StochSmoothK: 3,
		StochSmoothD: 3,
	}
}

// CalculateAllIndicators computes every indicator for a set of candles and returns
// one enriched bar per candle. Short input yields NaN indicators, never an error.
// A single Keltner Channel backs the reported KC columns, the ATR column and the
// squeeze flag, so kc_rsi entries and kc_upper exits trade the squeeze channel.
func CalculateAllIndicators(candles []model.Candle, params Params) []model.EnrichedBar {
	closes := model.Closes(candles)

	bb := CalculateBollingerBands(closes, params.BBPeriod, params.BBStdDev)
	kc := CalculateKeltnerChannel(candles, params.KCPeriod, params.KCMultiplier)
	atr := CalculateATR(candles, params.KCPeriod)
	rsi := CalculateRSI(closes, params.RSIPeriod)
	macd := CalculateMACD(closes, params.MACDFast, params.MACDSlow, params.MACDSignal)
	stochK, stochD := CalculateStochRSI(closes, params.RSIPeriod, params.StochSmoothK, params.StochSmoothD)
	squeeze := CalculateSqueeze(bb, kc)

	bars := make([]model.EnrichedBar, len(candles))
	for i, c := range candles {
		bars[i] = model.EnrichedBar{
			Candle:      c,
			BBUpper:     bb.Upper[i],
			BBMiddle:    bb.Middle[i],
			BBLower:     bb.Lower[i],
			BBBandwidth: bb.Bandwidth[i],
			BBPercent:   bb.PercentB[i],
			KCUpper:     kc.Upper[i],
			KCMiddle:    kc.Middle[i],
			KCLower:     kc.Lower[i],
			ATR:         atr[i],
			RSI:         rsi[i],
			MACD:        macd.Line[i],
			MACDSignal:  macd.Signal[i],
			MACDHist:    macd.Histogram[i],
			StochRSIK:   stochK[i],
			StochRSID:   stochD[i],
			Squeeze:     squeeze[i],
		}
	}

	return bars
}
