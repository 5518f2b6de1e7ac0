package timeseries

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func isNaN(v float64) bool { return math.IsNaN(v) }

// centeredBounds returns the inclusive index range of a centered window of
// the given width around position i, or ok=false when the full window does
// not fit inside [0, n).
func centeredBounds(i, n, window int) (lo, hi int, ok bool) {
	lo = i - (window-1)/2
	hi = lo + window - 1
	if lo < 0 || hi >= n {
		return 0, 0, false
	}
	return lo, hi, true
}

// RollingMeanCentered computes a centered rolling mean. Positions without
// a full window are NaN.
func RollingMeanCentered(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		lo, hi, ok := centeredBounds(i, len(x), window)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(x[lo:hi+1], nil)
	}
	return out
}

// RollingStdCentered computes a centered rolling sample standard
// deviation. Positions without a full window are NaN.
func RollingStdCentered(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		lo, hi, ok := centeredBounds(i, len(x), window)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(x[lo:hi+1], nil)
	}
	return out
}

// RollingMedianCentered computes a centered rolling median. Positions
// without a full window are NaN.
func RollingMedianCentered(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	buf := make([]float64, 0, window)
	for i := range x {
		lo, hi, ok := centeredBounds(i, len(x), window)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		buf = append(buf[:0], x[lo:hi+1]...)
		sort.Float64s(buf)
		mid := len(buf) / 2
		if len(buf)%2 == 0 {
			out[i] = (buf[mid-1] + buf[mid]) / 2
		} else {
			out[i] = buf[mid]
		}
	}
	return out
}

// RMSE is the root mean squared error between two equal-length series.
func RMSE(actual, predicted []float64) float64 {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return math.NaN()
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// Diff returns the first difference of x (length len(x)-1).
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// Mean is the arithmetic mean of x; NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Std is the sample standard deviation of x; NaN when fewer than two
// values are present.
func Std(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}
