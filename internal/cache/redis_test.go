package cache

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/CycleTrader/internal/model"
)

type memoryStore struct {
	data    map[string][]byte
	failGet bool
}

func (m *memoryStore) get(_ context.Context, key string) ([]byte, error) {
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memoryStore) set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryStore) close() error { return nil }

func newMemoryCache() (*Cache, *memoryStore) {
	s := &memoryStore{data: map[string][]byte{}}
	return newCache(s, time.Hour), s
}

func TestKey(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "cycletrader:candles:SPY,1day:20200101:20201231",
		Key("candles", []string{"SPY", "1day"}, start, start.AddDate(0, 0, 365)))
}

func TestIntradayKeyChangesWithinDay(t *testing.T) {
	morning := time.Date(2024, 3, 4, 14, 5, 0, 0, time.UTC)
	afternoon := morning.Add(5 * time.Hour)
	later := morning.Add(40 * time.Minute)

	assert.Equal(t, "cycletrader:candles:SPY,15min:20240204T14:20240304T14",
		IntradayKey("candles", []string{"SPY", "15min"}, morning.AddDate(0, -1, 0), morning))
	assert.NotEqual(t,
		IntradayKey("candles", []string{"SPY", "15min"}, morning.AddDate(0, 0, -90), morning),
		IntradayKey("candles", []string{"SPY", "15min"}, afternoon.AddDate(0, 0, -90), afternoon))
	assert.Equal(t,
		IntradayKey("candles", []string{"SPY", "15min"}, morning.AddDate(0, 0, -90), morning),
		IntradayKey("candles", []string{"SPY", "15min"}, later.AddDate(0, 0, -90), later))
}

func TestCandlesFetchesOnce(t *testing.T) {
	c, _ := newMemoryCache()
	calls := 0
	fetch := func(context.Context) ([]model.Candle, error) {
		calls++
		return []model.Candle{{Time: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Close: 321.5}}, nil
	}

	for i := 0; i < 2; i++ {
		candles, err := c.Candles(context.Background(), "k", fetch)
		require.NoError(t, err)
		require.Len(t, candles, 1)
		assert.Equal(t, 321.5, candles[0].Close)
	}
	assert.Equal(t, 1, calls)
}

func TestCandlesReadFailureFallsBackToFetch(t *testing.T) {
	c, s := newMemoryCache()
	s.failGet = true

	candles, err := c.Candles(context.Background(), "k", func(context.Context) ([]model.Candle, error) {
		return []model.Candle{{Close: 1}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Contains(t, s.data, "k")
}

func TestIndicatorsRoundTripKeepsMissingValues(t *testing.T) {
	c, _ := newMemoryCache()
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	table := model.IndicatorTable{
		Days:   []time.Time{day, day.AddDate(0, 0, 1)},
		Series: map[string][]float64{model.IndicatorUnemployment: {math.NaN(), 3.6}},
	}

	fetched := 0
	fetch := func(context.Context) (model.IndicatorTable, error) {
		fetched++
		return table, nil
	}

	_, err := c.Indicators(context.Background(), "ind", fetch)
	require.NoError(t, err)
	cached, err := c.Indicators(context.Background(), "ind", fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, fetched)
	col, ok := cached.Column(model.IndicatorUnemployment)
	require.True(t, ok)
	assert.True(t, math.IsNaN(col[0]))
	assert.Equal(t, 3.6, col[1])
	assert.True(t, cached.Days[1].Equal(table.Days[1]))
}

func TestGetMiss(t *testing.T) {
	c, _ := newMemoryCache()
	var v []int
	assert.ErrorIs(t, c.Get(context.Background(), "missing", &v), ErrMiss)
}
