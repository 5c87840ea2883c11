package technical

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/CycleTrader/internal/model"
)

func generateTestCandles(count int, generator func(i int) model.Candle) []model.Candle {
	candles := make([]model.Candle, count)
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		candles[i] = generator(i)
		candles[i].Time = start.Add(time.Duration(i) * 30 * time.Minute)
	}
	return candles
}

func TestCalculateBollingerBands(t *testing.T) {
	bb := CalculateBollingerBands([]float64{1, 2, 3, 4, 5}, 3, 2)

	assert.True(t, math.IsNaN(bb.Middle[0]))
	assert.True(t, math.IsNaN(bb.Upper[1]))
	assert.InDelta(t, 2.0, bb.Middle[2], 1e-9)
	assert.InDelta(t, 4.0, bb.Upper[2], 1e-9)
	assert.InDelta(t, 0.0, bb.Lower[2], 1e-9)
	assert.InDelta(t, 2.0, bb.Bandwidth[2], 1e-9)
	assert.InDelta(t, 0.75, bb.PercentB[2], 1e-9)
	assert.InDelta(t, 4.0, bb.Middle[4], 1e-9)
}

func TestBollingerFlatPriceHasUndefinedPercentB(t *testing.T) {
	bb := CalculateBollingerBands([]float64{5, 5, 5, 5}, 3, 2)

	assert.InDelta(t, 5.0, bb.Upper[3], 1e-9)
	assert.True(t, math.IsNaN(bb.PercentB[3]))
	assert.InDelta(t, 0.0, bb.Bandwidth[3], 1e-9)
}

func TestCalculateRSI(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		period   int
		expected []float64
	}{
		{
			name:     "alternating moves balance out",
			closes:   []float64{10, 11, 10, 11, 10},
			period:   2,
			expected: []float64{math.NaN(), math.NaN(), 50, 50, 50},
		},
		{
			name:     "no losses leaves RSI undefined",
			closes:   []float64{1, 2, 3, 4, 5},
			period:   2,
			expected: []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		},
		{
			name:     "only losses gives zero",
			closes:   []float64{5, 4, 3},
			period:   2,
			expected: []float64{math.NaN(), 0, 0},
		},
		{
			name:     "short input",
			closes:   []float64{1},
			period:   14,
			expected: []float64{math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi := CalculateRSI(tt.closes, tt.period)
			require.Len(t, rsi, len(tt.expected))
			for i, want := range tt.expected {
				if math.IsNaN(want) {
					assert.True(t, math.IsNaN(rsi[i]), "row %d: got %v", i, rsi[i])
					continue
				}
				assert.InDelta(t, want, rsi[i], 1e-9, "row %d", i)
			}
		})
	}
}

func TestCalculateTrueRangeAndATR(t *testing.T) {
	candles := []model.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 11, Close: 11.5},
		{High: 11, Low: 10, Close: 10.5},
	}

	tr := CalculateTrueRange(candles)
	assert.Equal(t, []float64{2, 3, 1.5}, tr)

	// Span 1 gives alpha 1, so ATR tracks the true range
	assert.Equal(t, tr, CalculateATR(candles, 1))

	atr := CalculateATR(candles, 3)
	assert.InDelta(t, 2.0, atr[0], 1e-9)
	assert.InDelta(t, 2.5, atr[1], 1e-9)
	assert.InDelta(t, 2.0, atr[2], 1e-9)
}

func TestCalculateKeltnerChannel(t *testing.T) {
	candles := generateTestCandles(30, func(i int) model.Candle {
		return model.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	})

	kc := CalculateKeltnerChannel(candles, 20, 2)
	assert.InDelta(t, 100.0, kc.Middle[29], 1e-9)
	assert.InDelta(t, 104.0, kc.Upper[29], 1e-9)
	assert.InDelta(t, 96.0, kc.Lower[29], 1e-9)
}

func TestCalculateMACDOnConstantPrice(t *testing.T) {
	macd := CalculateMACD([]float64{3, 3, 3, 3}, 12, 26, 9)
	for i := range macd.Line {
		assert.Zero(t, macd.Line[i])
		assert.Zero(t, macd.Signal[i])
		assert.Zero(t, macd.Histogram[i])
	}
}

func TestCalculateSqueeze(t *testing.T) {
	nan := math.NaN()
	bb := BollingerBands{Upper: []float64{nan, 105, 110, 105}, Lower: []float64{nan, 95, 90, 94}}
	kc := KeltnerChannel{Upper: []float64{nan, 106, 106, 105}, Lower: []float64{nan, 94, 94, 93}}

	assert.Equal(t, []bool{false, true, false, false}, CalculateSqueeze(bb, kc))
}

func TestCalculateStochRSIStaysInRange(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3) + float64(i)*0.1
	}

	k, d := CalculateStochRSI(closes, 14, 3, 3)
	require.Len(t, k, len(closes))
	assert.True(t, math.IsNaN(k[0]))

	defined := 0
	for i := range k {
		if math.IsNaN(k[i]) {
			continue
		}
		defined++
		assert.GreaterOrEqual(t, k[i], 0.0)
		assert.LessOrEqual(t, k[i], 1.0)
		if !math.IsNaN(d[i]) {
			assert.GreaterOrEqual(t, d[i], 0.0)
			assert.LessOrEqual(t, d[i], 1.0)
		}
	}
	assert.Positive(t, defined)
}

func TestCalculateAllIndicatorsShortInput(t *testing.T) {
	candles := generateTestCandles(3, func(i int) model.Candle {
		return model.Candle{Open: 10, High: 11, Low: 9, Close: 10 + float64(i)}
	})

	bars := CalculateAllIndicators(candles, DefaultParams())
	require.Len(t, bars, 3)
	for _, bar := range bars {
		assert.True(t, math.IsNaN(bar.BBLower))
		assert.True(t, math.IsNaN(bar.RSI))
		assert.False(t, bar.Squeeze)
		assert.False(t, math.IsNaN(bar.KCMiddle))
	}
	assert.Equal(t, candles[2].Close, bars[2].Close)

	assert.Empty(t, CalculateAllIndicators(nil, DefaultParams()))
}

func TestCalculateAllIndicatorsSharesSqueezeChannel(t *testing.T) {
	candles := generateTestCandles(60, func(i int) model.Candle {
		c := 100 + math.Sin(float64(i))
		return model.Candle{Open: c, High: c + 1, Low: c - 1, Close: c}
	})
	params := DefaultParams()
	require.Equal(t, 1.5, params.KCMultiplier)

	bars := CalculateAllIndicators(candles, params)
	kc := CalculateKeltnerChannel(candles, 20, 1.5)
	atr := CalculateATR(candles, 20)
	wide := CalculateKeltnerChannel(candles, 20, 2.0)

	last := len(bars) - 1
	assert.InDelta(t, kc.Upper[last], bars[last].KCUpper, 1e-9)
	assert.InDelta(t, kc.Lower[last], bars[last].KCLower, 1e-9)
	assert.InDelta(t, atr[last], bars[last].ATR, 1e-9)
	assert.Greater(t, wide.Upper[last], bars[last].KCUpper)

	// The squeeze flag agrees with the reported columns on every bar
	for i, bar := range bars {
		want := bar.BBLower > bar.KCLower && bar.BBUpper < bar.KCUpper
		assert.Equal(t, want, bar.Squeeze, "bar %d", i)
	}
	assert.False(t, math.IsNaN(bars[last].RSI))
	assert.False(t, math.IsNaN(bars[last].BBUpper))
}
