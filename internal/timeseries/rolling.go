package timeseries

import "math"

// Missing is the marker for "no observation".
var Missing = math.NaN()

// IsMissing reports whether v carries no observation.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// RollingMean calculates a trailing mean over window values. A row is defined once
// the window holds at least minPeriods observations; missing values inside the
// window are skipped.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		fillMissing(out)
		return out
	}
	if minPeriods <= 0 {
		minPeriods = 1
	}

	var sum float64
	count := 0
	for i, v := range values {
		if !IsMissing(v) {
			sum += v
			count++
		}
		if i >= window {
			old := values[i-window]
			if !IsMissing(old) {
				sum -= old
				count--
			}
		}

		if count >= minPeriods {
			out[i] = sum / float64(count)
		} else {
			out[i] = Missing
		}
	}

	return out
}

// RollingStd calculates a trailing sample standard deviation (n-1 denominator).
func RollingStd(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	if minPeriods < 2 {
		minPeriods = 2
	}

	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		var sum float64
		count := 0
		for j := start; j <= i; j++ {
			if !IsMissing(values[j]) {
				sum += values[j]
				count++
			}
		}
		if window <= 0 || count < minPeriods {
			out[i] = Missing
			continue
		}

		mean := sum / float64(count)
		var variance float64
		for j := start; j <= i; j++ {
			if !IsMissing(values[j]) {
				diff := values[j] - mean
				variance += diff * diff
			}
		}
		out[i] = math.Sqrt(variance / float64(count-1))
	}

	return out
}

// RollingMin returns the trailing minimum over a full window; any missing value
// inside the window leaves the row undefined.
func RollingMin(values []float64, window int) []float64 {
	return rollingExtreme(values, window, math.Min)
}

// RollingMax is the trailing maximum counterpart of RollingMin.
func RollingMax(values []float64, window int) []float64 {
	return rollingExtreme(values, window, math.Max)
}

func rollingExtreme(values []float64, window int, pick func(a, b float64) float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = Missing
		if window <= 0 || i < window-1 {
			continue
		}
		acc := values[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			acc = pick(acc, values[j])
		}
		// math.Min and math.Max propagate NaN
		out[i] = acc
	}
	return out
}

// EMA calculates an exponential moving average with alpha = 2/(span+1), seeded
// with the first observation and without bias adjustment. Missing inputs carry the
// previous average forward.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span < 1 {
		span = 1
	}
	alpha := 2.0 / (float64(span) + 1.0)

	ema := Missing
	for i, v := range values {
		switch {
		case IsMissing(v):
		case IsMissing(ema):
			ema = v
		default:
			ema = alpha*v + (1-alpha)*ema
		}
		out[i] = ema
	}

	return out
}

// Diff returns values[i] - values[i-lag].
func Diff(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if lag <= 0 || i < lag {
			out[i] = Missing
			continue
		}
		out[i] = values[i] - values[i-lag]
	}
	return out
}

// PctChange returns values[i]/values[i-lag] - 1.
func PctChange(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if lag <= 0 || i < lag || values[i-lag] == 0 {
			out[i] = Missing
			continue
		}
		out[i] = values[i]/values[i-lag] - 1
	}
	return out
}

// ForwardFill replaces missing values with the most recent observation.
// Leading missing values stay missing.
func ForwardFill(values []float64) []float64 {
	out := make([]float64, len(values))
	last := Missing
	for i, v := range values {
		if !IsMissing(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// StdDev returns the sample standard deviation of the non-missing values.
func StdDev(values []float64) float64 {
	mean := Mean(values)
	if IsMissing(mean) {
		return 0
	}

	var sumSquaredDiff float64
	count := 0
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		diff := v - mean
		sumSquaredDiff += diff * diff
		count++
	}
	if count < 2 {
		return 0
	}

	return math.Sqrt(sumSquaredDiff / float64(count-1))
}

// Mean returns the average of the non-missing values, or Missing for none.
func Mean(values []float64) float64 {
	var sum float64
	count := 0
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return Missing
	}
	return sum / float64(count)
}

func fillMissing(values []float64) {
	for i := range values {
		values[i] = Missing
	}
}
