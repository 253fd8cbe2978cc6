// Package outlier winsorizes numeric series with Tukey fences.
package outlier

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/listings-eda/internal/stats"
)

// DefaultK is the fence multiplier applied to the interquartile range.
const DefaultK = 1.5

// Method selects how the quartiles are taken.
type Method int

const (
	// Lower uses the observed sample at rank floor(q*(n-1)). Quartiles are
	// always data points, which keeps capping idempotent.
	Lower Method = iota
	// Linear interpolates between neighbouring ranks. Capping with it can
	// move the upper quartile on a second pass when n is small.
	Linear
)

func (m Method) String() string {
	if m == Linear {
		return "linear"
	}
	return "lower"
}

// ParseMethod accepts "lower" or "linear".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lower":
		return Lower, nil
	case "linear":
		return Linear, nil
	default:
		return Lower, fmt.Errorf("unknown quantile method %q (use lower|linear)", s)
	}
}

// Fences are the winsorization bounds of a series.
type Fences struct {
	Q1   float64 `json:"q1"`
	Q3   float64 `json:"q3"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Bounds returns the fences over the non-NaN values using Lower quartiles.
// ok is false when there is nothing to measure.
func Bounds(values []float64, k float64) (Fences, bool) {
	return BoundsWith(values, k, Lower)
}

// BoundsWith is Bounds with an explicit quartile method.
func BoundsWith(values []float64, k float64, m Method) (Fences, bool) {
	s := stats.Sorted(values)
	if len(s) == 0 {
		return Fences{Q1: math.NaN(), Q3: math.NaN(), Low: math.NaN(), High: math.NaN()}, false
	}
	q := stats.QuantileLower
	if m == Linear {
		q = stats.Quantile
	}
	q1, q3 := q(s, 0.25), q(s, 0.75)
	iqr := q3 - q1
	return Fences{Q1: q1, Q3: q3, Low: q1 - k*iqr, High: q3 + k*iqr}, true
}

// Cap clamps each value into its fences with Lower quartiles.
func Cap(values []float64, k float64) []float64 {
	return CapWith(values, k, Lower)
}

// CapWith clamps each value into BoundsWith(values, k, m). NaN passes
// through and the result has the input's length. The input is not
// modified. A zero interquartile range collapses every value onto the
// single fence value.
func CapWith(values []float64, k float64, m Method) []float64 {
	out := make([]float64, len(values))
	f, ok := BoundsWith(values, k, m)
	for i, v := range values {
		switch {
		case !ok || math.IsNaN(v):
			out[i] = v
		case v < f.Low:
			out[i] = f.Low
		case v > f.High:
			out[i] = f.High
		default:
			out[i] = v
		}
	}
	return out
}
