package outlier

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"
)

func TestCapReplacesOnlyTheExtreme(t *testing.T) {
	in := []float64{10, 20, 30, 1000}
	out := Cap(in, DefaultK)
	for i := 0; i < 3; i++ {
		if out[i] != in[i] {
			t.Errorf("Cap[%d] = %v; want %v", i, out[i], in[i])
		}
	}
	if !(out[3] < 1000) {
		t.Fatalf("1000 should be capped, got %v", out[3])
	}
	if out[3] != 60 {
		t.Errorf("upper fence = %v; want 60 (Q1=10, Q3=30)", out[3])
	}
	if in[3] != 1000 {
		t.Fatalf("input was modified")
	}
}

func TestCapLinearMatchesInterpolatedFences(t *testing.T) {
	f, ok := BoundsWith([]float64{10, 20, 30, 1000}, DefaultK, Linear)
	if !ok || f.Q1 != 17.5 || f.Q3 != 272.5 || f.High != 655 {
		t.Fatalf("linear fences = %+v", f)
	}
	out := CapWith([]float64{10, 20, 30, 1000}, DefaultK, Linear)
	if out[3] != 655 || out[0] != 10 {
		t.Fatalf("linear cap = %v", out)
	}
}

func randomSeries(r *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		switch r.IntN(10) {
		case 0:
			out[i] = r.Float64() * 10000
		case 1:
			out[i] = -r.Float64() * 500
		default:
			out[i] = math.Round(r.NormFloat64()*40 + 150)
		}
	}
	return out
}

func TestCapIsMonotonicAndIdempotent(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 200; trial++ {
		in := randomSeries(r, 1+r.IntN(60))
		out := Cap(in, DefaultK)
		again := Cap(out, DefaultK)
		for i := range out {
			if out[i] != again[i] {
				t.Fatalf("trial %d: not idempotent at %d: %v -> %v", trial, i, out[i], again[i])
			}
		}
		idx := make([]int, len(in))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return in[idx[a]] < in[idx[b]] })
		for j := 1; j < len(idx); j++ {
			if out[idx[j-1]] > out[idx[j]] {
				t.Fatalf("trial %d: order broken: %v > %v", trial, out[idx[j-1]], out[idx[j]])
			}
		}
	}
}

func TestCapDegenerate(t *testing.T) {
	out := Cap([]float64{5, 5, 5, 5, 100}, DefaultK)
	for i, v := range out {
		if v != 5 {
			t.Errorf("Cap[%d] = %v; want 5", i, v)
		}
	}
	if got := Cap(nil, DefaultK); len(got) != 0 {
		t.Errorf("Cap(nil) = %v", got)
	}
	if got := Cap([]float64{3}, DefaultK); got[0] != 3 {
		t.Errorf("single value changed: %v", got)
	}
}

func TestCapPassesNaN(t *testing.T) {
	out := Cap([]float64{1, math.NaN(), 2, 3, 400}, DefaultK)
	if len(out) != 5 || !math.IsNaN(out[1]) {
		t.Fatalf("NaN not preserved: %v", out)
	}
	all := Cap([]float64{math.NaN(), math.NaN()}, DefaultK)
	if !math.IsNaN(all[0]) || !math.IsNaN(all[1]) {
		t.Fatalf("all-NaN input should pass through: %v", all)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
		err  bool
	}{
		{"", Lower, false},
		{"LINEAR", Linear, false},
		{"lower", Lower, false},
		{"nearest", Lower, true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, %v", tt.in, got, err)
		}
	}
}
