// Package dataset loads offline price, indicator and regime tables from CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// ErrMissingColumn is returned when a required CSV column is absent
var ErrMissingColumn = errors.New("missing column")

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads a timestamp; values without a zone are taken in loc
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// parseFloat reads a number; an empty cell is a missing value
func parseFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(value, 64)
}

// header maps lower-cased column names to positions
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	names, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h := make(header, len(names))
	for i, name := range names {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	return h, nil
}

// find returns the first present column among names
func (h header) find(names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := h[name]; ok {
			return i, true
		}
	}
	return 0, false
}

func (h header) require(names ...string) (int, error) {
	i, ok := h.find(names...)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(names, " or "))
	}
	return i, nil
}

// LoadPrices reads OHLCV bars. A time column (date, datetime or timestamp) and a
// close column are required; open, high and low default to the close. Rows are
// returned oldest first and duplicate timestamps are rejected.
func LoadPrices(in io.Reader, loc *time.Location) ([]model.Candle, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	timeCol, err := h.require("date", "datetime", "timestamp", "time")
	if err != nil {
		return nil, err
	}
	closeCol, err := h.require("close", "adj close", "adj_close")
	if err != nil {
		return nil, err
	}
	openCol, hasOpen := h.find("open")
	highCol, hasHigh := h.find("high")
	lowCol, hasLow := h.find("low")
	volumeCol, hasVolume := h.find("volume")

	var candles []model.Candle
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(i int) string {
			if i < len(rec) {
				return rec[i]
			}
			return ""
		}

		t, err := parseTime(field(timeCol), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c := model.Candle{Time: t}
		if c.Close, err = parseFloat(field(closeCol)); err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		c.Open, c.High, c.Low = c.Close, c.Close, c.Close
		for _, col := range []struct {
			ok  bool
			idx int
			dst *float64
		}{{hasOpen, openCol, &c.Open}, {hasHigh, highCol, &c.High}, {hasLow, lowCol, &c.Low}} {
			if !col.ok {
				continue
			}
			if *col.dst, err = parseFloat(field(col.idx)); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if hasVolume && strings.TrimSpace(field(volumeCol)) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(field(volumeCol)), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
			c.Volume = int64(v)
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	for i := 1; i < len(candles); i++ {
		if candles[i].Time.Equal(candles[i-1].Time) {
			return nil, fmt.Errorf("duplicate timestamp %s", candles[i].Time.Format(time.RFC3339))
		}
	}
	return candles, nil
}

// LoadPricesFile reads OHLCV bars from a CSV file
func LoadPricesFile(path string, loc *time.Location) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	candles, err := LoadPrices(f, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

// MarketZone is the exchange time zone of US equities
const MarketZone = "America/New_York"

// FilterMarketHours keeps bars stamped between 09:30 and 16:00 New York time,
// both ends included
func FilterMarketHours(candles []model.Candle) ([]model.Candle, error) {
	loc, err := time.LoadLocation(MarketZone)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", MarketZone, err)
	}

	const open, closing = 9*60 + 30, 16 * 60
	out := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		local := c.Time.In(loc)
		minute := local.Hour()*60 + local.Minute()
		if minute < open || minute > closing || (minute == closing && local.Second() > 0) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
