package dataset

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/CycleTrader/internal/model"
)

func TestLoadPrices(t *testing.T) {
	csvData := "Date,Open,High,Low,Close,Volume\n" +
		"2020-01-03,322.0,323.6,321.2,322.4,77709700\n" +
		"2020-01-02,321.3,323.3,321.0,323.8,59151200\n"

	candles, err := LoadPrices(strings.NewReader(csvData), nil)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), candles[0].Time)
	assert.Equal(t, 323.8, candles[0].Close)
	assert.Equal(t, 321.0, candles[0].Low)
	assert.Equal(t, int64(77709700), candles[1].Volume)
}

func TestLoadPricesCloseOnly(t *testing.T) {
	candles, err := LoadPrices(strings.NewReader("timestamp,close\n2024-01-02 09:30:00,471.1\n2024-01-02 10:00:00,\n"), time.UTC)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 471.1, candles[0].High)
	assert.True(t, math.IsNaN(candles[1].Close))
}

func TestLoadPricesErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "no close", data: "date,open\n2020-01-02,1\n", wantErr: "missing column: close"},
		{name: "bad timestamp", data: "date,close\nyesterday,1\n", wantErr: "line 2"},
		{name: "bad number", data: "date,close\n2020-01-02,abc\n", wantErr: "close"},
		{name: "duplicate", data: "date,close\n2020-01-02,1\n2020-01-02,2\n", wantErr: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrices(strings.NewReader(tt.data), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFilterMarketHours(t *testing.T) {
	ny, err := time.LoadLocation(MarketZone)
	require.NoError(t, err)

	at := func(h, m int) model.Candle {
		return model.Candle{Time: time.Date(2024, 3, 4, h, m, 0, 0, ny).UTC()}
	}
	candles := []model.Candle{at(9, 0), at(9, 30), at(12, 0), at(16, 0), at(16, 30)}

	kept, err := FilterMarketHours(candles)
	require.NoError(t, err)
	require.Len(t, kept, 3)
	assert.Equal(t, 9, kept[0].Time.In(ny).Hour())
	assert.Equal(t, 16, kept[2].Time.In(ny).Hour())
}

func TestLoadIndicators(t *testing.T) {
	csvData := "date,UNEMPLOYMENT,TREASURY_10Y,TREASURY_2Y\n" +
		"2020-01-01,3.5,1.8,1.6\n" +
		"2020-02-01,,1.5,1.3\n"

	table, err := LoadIndicators(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, table.Days, 32)

	unemployment, ok := table.Column(model.IndicatorUnemployment)
	require.True(t, ok)
	assert.Equal(t, 3.5, unemployment[0])
	assert.Equal(t, 3.5, unemployment[30])

	curve, ok := table.Column(model.IndicatorYieldCurve)
	require.True(t, ok)
	assert.InDelta(t, 0.2, curve[31], 1e-9)

	_, err = LoadIndicators(strings.NewReader("when,X\n2020-01-01,1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestRegimesRoundTrip(t *testing.T) {
	day := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	regimes := model.RegimeSeries{
		Times:  []time.Time{day, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)},
		Stages: []model.Stage{model.StageUnknown, model.StageExpansion, model.StagePeak},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRegimes(&buf, regimes))
	assert.True(t, strings.HasPrefix(buf.String(), "date,cycle\n2021-06-01,\n"))

	loaded, err := LoadRegimes(&buf)
	require.NoError(t, err)
	assert.Equal(t, regimes.Stages, loaded.Stages)
	assert.True(t, loaded.Times[2].Equal(regimes.Times[2]))

	filter := ExpansionFilter(loaded)
	assert.Equal(t, []bool{true, false}, filter.Values)
	open, ok := filter.AsOf(day)
	assert.False(t, ok)
	assert.False(t, open)
}
