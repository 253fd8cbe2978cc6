// Package stats holds the descriptive statistics used across the pipeline.
// NaN marks a missing observation everywhere in this package.
package stats

import (
	"math"
	"sort"
)

// Sorted returns the non-NaN values in ascending order.
func Sorted(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// Quantile interpolates linearly between the closest ranks of an already
// sorted slice. It returns NaN for an empty slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// QuantileLower returns the sample at rank floor(q*(n-1)) of an already
// sorted slice, so the result is always an observed value.
func QuantileLower(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(math.Floor(q*float64(len(sorted)-1)))]
}

// Median of the non-NaN values; NaN when there are none.
func Median(vals []float64) float64 {
	return Quantile(Sorted(vals), 0.5)
}

// Mean of the non-NaN values; NaN when there are none.
func Mean(vals []float64) float64 {
	// running mean via Welford, so large finite inputs cannot overflow
	var mean float64
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		n++
		mean += (v - mean) / float64(n)
	}
	if n == 0 {
		return math.NaN()
	}
	return mean
}

// MinMax of the non-NaN values. ok is false when there are none.
func MinMax(vals []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return lo, hi, true
}

// Pearson returns the correlation of x and y over the rows where both are
// present. It is NaN with fewer than two such rows or when either side has
// no variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	var mx, my float64
	cnt := 0
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		mx += x[i]
		my += y[i]
		cnt++
	}
	if cnt < 2 {
		return math.NaN()
	}
	mx /= float64(cnt)
	my /= float64(cnt)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
