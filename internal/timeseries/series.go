package timeseries

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrUnordered is returned when timestamps are not strictly increasing.
var ErrUnordered = errors.New("timestamps must be strictly increasing")

// Day is one calendar day.
const Day = 24 * time.Hour

// Series is a time-indexed sequence of float observations.
type Series struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// New builds a series from parallel slices and validates the index.
func New(name string, times []time.Time, values []float64) (Series, error) {
	if len(times) != len(values) {
		return Series{}, fmt.Errorf("series %s: %d timestamps for %d values", name, len(times), len(values))
	}
	if err := validateIndex(times); err != nil {
		return Series{}, fmt.Errorf("series %s: %w", name, err)
	}
	return Series{Name: name, Times: times, Values: values}, nil
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Times)
}

// Empty reports whether the series has no points.
func (s Series) Empty() bool {
	return len(s.Times) == 0
}

// Start returns the first timestamp, or the zero time.
func (s Series) Start() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Times[0]
}

// End returns the last timestamp, or the zero time.
func (s Series) End() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Times[len(s.Times)-1]
}

// Span describes the series for error messages.
func (s Series) Span() string {
	if s.Empty() {
		return fmt.Sprintf("%s [empty]", s.Name)
	}
	return fmt.Sprintf("%s [%s..%s]", s.Name, s.Start().Format("2006-01-02"), s.End().Format("2006-01-02"))
}

// WithValues returns a series sharing this index with the given values.
func (s Series) WithValues(name string, values []float64) Series {
	return Series{Name: name, Times: s.Times, Values: values}
}

// RollingMean applies RollingMean on the values.
func (s Series) RollingMean(window, minPeriods int) Series {
	return s.WithValues(s.Name, RollingMean(s.Values, window, minPeriods))
}

// Diff applies Diff on the values.
func (s Series) Diff(lag int) Series {
	return s.WithValues(s.Name, Diff(s.Values, lag))
}

// Index returns the position of t, or -1.
func (s Series) Index(t time.Time) int {
	i := sort.Search(len(s.Times), func(i int) bool { return !s.Times[i].Before(t) })
	if i < len(s.Times) && s.Times[i].Equal(t) {
		return i
	}
	return -1
}

// AsOf returns the most recent non-missing value at or before t.
func (s Series) AsOf(t time.Time) (float64, bool) {
	i := sort.Search(len(s.Times), func(i int) bool { return s.Times[i].After(t) })
	for j := i - 1; j >= 0; j-- {
		if !IsMissing(s.Values[j]) {
			return s.Values[j], true
		}
	}
	return Missing, false
}

// Reindex maps the series onto index using as-of lookup, so every target
// timestamp takes the latest value at or before it.
func (s Series) Reindex(index []time.Time) Series {
	values := make([]float64, len(index))
	for i, t := range index {
		v, ok := s.AsOf(t)
		if !ok {
			v = Missing
		}
		values[i] = v
	}
	return Series{Name: s.Name, Times: index, Values: values}
}

// CalendarDays returns every midnight-UTC day from start to end inclusive.
func CalendarDays(start, end time.Time) []time.Time {
	start = TruncateDay(start)
	end = TruncateDay(end)
	if end.Before(start) {
		return nil
	}

	days := make([]time.Time, 0, int(end.Sub(start)/Day)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// TruncateDay strips the clock part of t, keeping its calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateIndex(times []time.Time) error {
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return fmt.Errorf("%w: %s follows %s", ErrUnordered,
				times[i].Format(time.RFC3339), times[i-1].Format(time.RFC3339))
		}
	}
	return nil
}
