package analysis

import (
	"math"

	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/outlier"
	"github.com/KaramelBytes/listings-eda/internal/schema"
	"github.com/KaramelBytes/listings-eda/internal/stats"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

// Bin is one histogram bucket covering [Low, High). The last bucket also
// includes High.
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// PriceHistogram splits the observed price range into equal-width bins.
func PriceHistogram(view *table.Table, bins int) Result[[]Bin] {
	vals, res := numeric[[]Bin](view, schema.Price)
	if vals == nil {
		return res
	}
	if bins <= 0 {
		bins = DefaultHistBins
	}
	lo, hi, _ := stats.MinMax(vals)
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return unavailable[[]Bin](ReasonNoValues, schema.Price)
	}
	if lo == hi {
		return available([]Bin{{Low: lo, High: hi, Count: len(vals)}})
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	out[bins-1].High = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return available(out)
}

// BoxStats summarizes one room type's capped prices the way a box plot
// draws them: quartiles, whiskers at the furthest points within 1.5 IQR,
// and the number of points beyond the whiskers.
type BoxStats struct {
	Category     string  `json:"category"`
	N            int     `json:"n"`
	Q1           float64 `json:"q1"`
	Median       float64 `json:"median"`
	Q3           float64 `json:"q3"`
	LowerWhisker float64 `json:"lower_whisker"`
	UpperWhisker float64 `json:"upper_whisker"`
	Outliers     int     `json:"outliers"`
}

// PriceByRoomType caps prices across the whole view, then summarizes them
// per room type. Room types come out in sorted order.
func PriceByRoomType(view *table.Table, k float64, m outlier.Method) Result[[]BoxStats] {
	if miss := view.Missing(schema.RoomType, schema.Price); len(miss) > 0 {
		return missingColumns[[]BoxStats](miss...)
	}
	room, _ := view.Column(schema.RoomType)
	price, _ := view.Column(schema.Price)
	if price.Kind() != table.Number {
		return unavailable[[]BoxStats](ReasonNotNumeric, schema.Price)
	}
	raw := make([]float64, view.Len())
	for i := range raw {
		raw[i], _ = price.Float(i)
	}
	capped := outlier.CapWith(raw, k, m)

	groups := map[string][]float64{}
	for i, v := range capped {
		rt, ok := room.Text(i)
		if !ok || math.IsNaN(v) {
			continue
		}
		groups[rt] = append(groups[rt], v)
	}
	out := []BoxStats{}
	for _, rt := range filter.Observe(view, 0).RoomTypes {
		vals := groups[rt]
		if len(vals) == 0 {
			continue
		}
		out = append(out, boxStats(rt, vals))
	}
	if len(out) == 0 {
		return unavailable[[]BoxStats](ReasonNoValues, schema.Price)
	}
	return available(out)
}

func boxStats(name string, vals []float64) BoxStats {
	s := stats.Sorted(vals)
	b := BoxStats{
		Category: name,
		N:        len(s),
		Q1:       stats.Quantile(s, 0.25),
		Median:   stats.Quantile(s, 0.5),
		Q3:       stats.Quantile(s, 0.75),
	}
	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = b.Q1, b.Q3
	for _, v := range s {
		if v >= lo {
			b.LowerWhisker = math.Min(b.LowerWhisker, v)
			break
		}
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] <= hi {
			b.UpperWhisker = math.Max(b.UpperWhisker, s[i])
			break
		}
	}
	for _, v := range s {
		if v < b.LowerWhisker || v > b.UpperWhisker {
			b.Outliers++
		}
	}
	return b
}

// GeoPoint is one map marker with its hover fields.
type GeoPoint struct {
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
	RoomType      string   `json:"room_type,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Name          string   `json:"name,omitempty"`
	Neighbourhood string   `json:"neighbourhood,omitempty"`
}

// GeoPoints flattens a geo sample into markers. Optional columns that are
// absent leave their fields empty.
func GeoPoints(sample *table.Table) []GeoPoint {
	lat, _ := sample.Column(schema.Latitude)
	lon, _ := sample.Column(schema.Longitude)
	if lat == nil || lon == nil {
		return []GeoPoint{}
	}
	room, _ := sample.Column(schema.RoomType)
	price, _ := sample.Column(schema.Price)
	name, _ := sample.Column(schema.Name)
	hood, _ := sample.Column(schema.Neighbourhood)
	text := func(c *table.Column, i int) string {
		if c == nil {
			return ""
		}
		s, _ := c.Text(i)
		return s
	}
	out := make([]GeoPoint, 0, sample.Len())
	for i := 0; i < sample.Len(); i++ {
		la, ok1 := lat.Float(i)
		lo, ok2 := lon.Float(i)
		if !ok1 || !ok2 {
			continue
		}
		p := GeoPoint{
			Lat:           la,
			Lon:           lo,
			RoomType:      text(room, i),
			Name:          text(name, i),
			Neighbourhood: text(hood, i),
		}
		if price != nil {
			if v, ok := price.Float(i); ok {
				p.Price = &v
			}
		}
		out = append(out, p)
	}
	return out
}

// NumSummary describes the present values of a numeric column.
type NumSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// ColumnSummary captures the inferred type and fill of one column.
type ColumnSummary struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	NonNull int         `json:"non_null"`
	Missing int         `json:"missing"`
	Numeric *NumSummary `json:"numeric,omitempty"`
}

// Profile summarizes every column of the view, in column order.
func Profile(view *table.Table) []ColumnSummary {
	out := make([]ColumnSummary, 0, view.Width())
	for _, c := range view.Columns() {
		miss := c.NullCount()
		s := ColumnSummary{Name: c.Name(), Kind: c.Kind().String(), NonNull: c.Len() - miss, Missing: miss}
		if c.Kind() == table.Number {
			vals := c.Floats()
			if lo, hi, ok := stats.MinMax(vals); ok && !math.IsInf(lo, 0) && !math.IsInf(hi, 0) {
				s.Numeric = &NumSummary{Count: len(vals), Min: lo, Max: hi, Mean: stats.Mean(vals)}
			}
		}
		out = append(out, s)
	}
	return out
}
