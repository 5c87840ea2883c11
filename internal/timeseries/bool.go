package timeseries

import (
	"fmt"
	"sort"
	"time"
)

// BoolSeries is a daily flag series, e.g. "economy in expansion".
type BoolSeries struct {
	Times  []time.Time
	Values []bool
}

// NewBool builds a flag series and validates the index.
func NewBool(times []time.Time, values []bool) (BoolSeries, error) {
	if len(times) != len(values) {
		return BoolSeries{}, fmt.Errorf("flag series: %d timestamps for %d values", len(times), len(values))
	}
	if err := validateIndex(times); err != nil {
		return BoolSeries{}, fmt.Errorf("flag series: %w", err)
	}
	return BoolSeries{Times: times, Values: values}, nil
}

// AsOf resolves t against the series: exact date match first, otherwise the most
// recent prior value. ok is false when nothing precedes t.
func (b BoolSeries) AsOf(t time.Time) (value bool, ok bool) {
	i := sort.Search(len(b.Times), func(i int) bool { return b.Times[i].After(t) })
	if i == 0 {
		return false, false
	}
	return b.Values[i-1], true
}
