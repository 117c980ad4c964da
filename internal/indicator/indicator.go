// Package indicator computes rolling technical indicators over OHLCV series.
// All functions are pure: they allocate fresh output slices and never touch
// shared state. Outputs inside the warm-up window are NaN, so callers can
// compare against thresholds without special-casing short series (NaN
// comparisons are always false).
package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"upbot/internal/market"
)

// SMA returns the trailing simple moving average. The first period-1 values
// are NaN.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nanSlice(len(values))
	}
	return maskWarmup(talib.Sma(values, period), period-1)
}

// StdDev returns the trailing rolling standard deviation in sample form
// (ddof=1). talib computes the population form, so its output is rescaled
// by sqrt(n/(n-1)). The first period-1 values are NaN; a window of 1 has no
// sample deviation and stays NaN throughout.
func StdDev(values []float64, period int) []float64 {
	if period <= 1 || len(values) < period {
		return nanSlice(len(values))
	}
	out := maskWarmup(talib.StdDev(values, period, 1.0), period-1)
	scale := math.Sqrt(float64(period) / float64(period-1))
	for i := period - 1; i < len(out); i++ {
		out[i] *= scale
	}
	return out
}

// Bands holds Bollinger band series aligned with the input.
type Bands struct {
	Upper    []float64
	Lower    []float64
	PercentB []float64
}

// BollingerBands computes upper/lower bands at k sample standard deviations
// around the rolling mean, plus percent-b = (v - lower) / (upper - lower).
// A flat window collapses the bands and leaves percent-b NaN.
func BollingerBands(values []float64, period int, k float64) Bands {
	n := len(values)
	if period <= 0 || n < period {
		return Bands{Upper: nanSlice(n), Lower: nanSlice(n), PercentB: nanSlice(n)}
	}
	mean := SMA(values, period)
	sd := StdDev(values, period)
	upper := make([]float64, n)
	lower := make([]float64, n)
	pb := make([]float64, n)
	for i := 0; i < n; i++ {
		upper[i] = mean[i] + k*sd[i]
		lower[i] = mean[i] - k*sd[i]
	}
	for i := 0; i < n; i++ {
		width := upper[i] - lower[i]
		if math.IsNaN(width) || width == 0 {
			pb[i] = math.NaN()
			continue
		}
		pb[i] = (values[i] - lower[i]) / width
	}
	return Bands{Upper: upper, Lower: lower, PercentB: pb}
}

// MFI computes the Money Flow Index over the series. Flow direction follows
// the sign of the typical-price first difference; the first bar carries no
// flow. A window with zero negative flow saturates at 100, zero positive
// flow yields 0, and a window with no flow at all stays NaN.
func MFI(s market.Series, period int) []float64 {
	n := s.Len()
	out := nanSlice(n)
	if period <= 0 || n < period {
		return out
	}
	tp := make([]float64, n)
	for i, c := range s {
		tp[i] = (c.High + c.Low + c.Close) / 3
	}
	posFlow := make([]float64, n)
	negFlow := make([]float64, n)
	for i := 1; i < n; i++ {
		raw := tp[i] * s[i].Volume
		switch {
		case tp[i] > tp[i-1]:
			posFlow[i] = raw
		case tp[i] < tp[i-1]:
			negFlow[i] = raw
		}
	}
	for i := period - 1; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			pos += posFlow[j]
			neg += negFlow[j]
		}
		switch {
		case neg == 0 && pos == 0:
			// no flow either way, leave NaN
		case neg == 0:
			out[i] = 100
		default:
			ratio := pos / neg
			out[i] = 100 - 100/(1+ratio)
		}
	}
	return out
}

// Latest returns the last value of a series, NaN when empty.
func Latest(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func maskWarmup(values []float64, warmup int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := 0; i < warmup && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}
