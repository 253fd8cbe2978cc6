// Package analysis computes the read-only statistics and derived tables
// behind the dashboard. Every function here is pure: it only reads the view
// it is given, and column absence yields an unavailable Result.
package analysis

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/KaramelBytes/listings-eda/internal/schema"
	"github.com/KaramelBytes/listings-eda/internal/stats"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

const (
	DefaultTopN      = 10
	DefaultGeoMax    = 4000
	DefaultGeoSeed   = 42
	DefaultHistBins  = 50
	minCorrelationOf = 2
)

// Center is the typical nightly price of a view.
type Center struct {
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	N      int     `json:"n"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix. Undefined
// coefficients are NaN and encode as JSON null.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

func (m CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			vals[i][j] = &v
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, vals})
}

// Count is the number of rows in the view.
func Count(view *table.Table) int { return view.Len() }

// PriceCenter returns median and mean price.
func PriceCenter(view *table.Table) Result[Center] {
	vals, res := numeric[Center](view, schema.Price)
	if vals == nil {
		return res
	}
	return available(Center{Median: stats.Median(vals), Mean: stats.Mean(vals), N: len(vals)})
}

// MedianMinNights returns the median minimum stay.
func MedianMinNights(view *table.Table) Result[float64] {
	vals, res := numeric[float64](view, schema.MinimumNights)
	if vals == nil {
		return res
	}
	return available(stats.Median(vals))
}

// numeric returns the present values of a numeric column, or nil plus the
// reason they cannot be used.
func numeric[T any](view *table.Table, name string) ([]float64, Result[T]) {
	col, ok := view.Column(name)
	if !ok {
		return nil, missingColumns[T](name)
	}
	if col.Kind() != table.Number {
		return nil, unavailable[T](ReasonNotNumeric, name)
	}
	vals := col.Floats()
	if len(vals) == 0 {
		return nil, unavailable[T](ReasonNoValues, name)
	}
	return vals, Result[T]{}
}

// TopCategories counts the present values of column and keeps the n most
// frequent (ties broken by first appearance). The kept entries are returned
// in ascending count order, ready for a horizontal bar chart that puts the
// largest bar on top.
func TopCategories(view *table.Table, column string, n int) Result[[]CategoryCount] {
	col, ok := view.Column(column)
	if !ok {
		return missingColumns[[]CategoryCount](column)
	}
	if n <= 0 {
		n = DefaultTopN
	}
	pos := map[string]int{}
	var counts []CategoryCount
	for i := 0; i < col.Len(); i++ {
		v, ok := col.Text(i)
		if !ok {
			continue
		}
		j, seen := pos[v]
		if !seen {
			j = len(counts)
			pos[v] = j
			counts = append(counts, CategoryCount{Value: v})
		}
		counts[j].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > n {
		counts = counts[:n]
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count < counts[j].Count })
	if counts == nil {
		counts = []CategoryCount{}
	}
	return available(counts)
}

// CorrelationMatrix correlates the whitelisted numeric columns present in
// the view, using pairwise-complete rows.
func CorrelationMatrix(view *table.Table) Result[CorrMatrix] {
	var names []string
	var cols [][]float64
	for _, name := range schema.CorrelationColumns {
		col, ok := view.Column(name)
		if !ok || col.Kind() != table.Number {
			continue
		}
		vals := make([]float64, col.Len())
		for i := range vals {
			vals[i], _ = col.Float(i)
		}
		names = append(names, name)
		cols = append(cols, vals)
	}
	if len(names) < minCorrelationOf {
		var absent []string
		for _, name := range schema.CorrelationColumns {
			if col, ok := view.Column(name); !ok || col.Kind() != table.Number {
				absent = append(absent, name)
			}
		}
		return unavailable[CorrMatrix](ReasonInsufficientColumns, absent...)
	}
	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := stats.Pearson(cols[a], cols[b])
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return available(CorrMatrix{Columns: names, Values: mat})
}

// GeoSample draws up to maxRows rows that carry both coordinates, without
// replacement, from a PCG generator seeded with seed. The sample keeps view
// order, so the same view and seed always give the same table.
func GeoSample(view *table.Table, maxRows int, seed uint64) Result[*table.Table] {
	lat, okLat := view.Column(schema.Latitude)
	lon, okLon := view.Column(schema.Longitude)
	if !okLat || !okLon {
		return unavailable[*table.Table](ReasonNoGeoColumns, view.Missing(schema.Latitude, schema.Longitude)...)
	}
	if lat.Kind() != table.Number || lon.Kind() != table.Number {
		return unavailable[*table.Table](ReasonNotNumeric, schema.Latitude, schema.Longitude)
	}
	if maxRows <= 0 {
		maxRows = DefaultGeoMax
	}
	cand := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if lat.Valid(i) && lon.Valid(i) {
			cand = append(cand, i)
		}
	}
	if len(cand) > maxRows {
		r := rand.New(rand.NewPCG(seed, seed))
		for i := 0; i < maxRows; i++ {
			j := i + r.IntN(len(cand)-i)
			cand[i], cand[j] = cand[j], cand[i]
		}
		cand = cand[:maxRows]
		sort.Ints(cand)
	}
	if len(cand) == view.Len() {
		return available(view)
	}
	return available(view.Take(cand))
}
