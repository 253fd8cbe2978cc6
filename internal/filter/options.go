package filter

import (
	"math"
	"sort"

	"github.com/KaramelBytes/listings-eda/internal/schema"
	"github.com/KaramelBytes/listings-eda/internal/stats"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

const (
	// DefaultSliderCap bounds the selectable price ceiling.
	DefaultSliderCap = 5000.0
	// DefaultPriceMax is the initial upper price bound.
	DefaultPriceMax = 500.0
	// fallbackSliderMax is used when there is no usable price column.
	fallbackSliderMax = 1000.0
)

// Options are the selectable values observed in a cleaned table.
type Options struct {
	RoomTypes []string `json:"room_types"`
	Boroughs  []string `json:"boroughs"`
	HasPrice  bool     `json:"has_price"`
	// Observed price range; zero when HasPrice is false.
	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`
	// SliderMax is min(observed max, slider cap).
	SliderMax float64 `json:"slider_max"`
}

// Observe collects the sorted distinct categories and the price range of t.
// A sliderCap <= 0 means DefaultSliderCap.
func Observe(t *table.Table, sliderCap float64) Options {
	if sliderCap <= 0 {
		sliderCap = DefaultSliderCap
	}
	o := Options{
		RoomTypes: distinct(t, schema.RoomType),
		Boroughs:  distinct(t, schema.Borough),
		SliderMax: fallbackSliderMax,
	}
	if col, ok := t.Column(schema.Price); ok {
		if lo, hi, ok := stats.MinMax(col.Floats()); ok {
			o.HasPrice = true
			o.PriceMin, o.PriceMax = lo, hi
			o.SliderMax = math.Min(hi, sliderCap)
		}
	}
	return o
}

// Full selects every observed category and the whole observed price range.
func (o Options) Full() Spec {
	s := Spec{
		RoomTypes: append([]string{}, o.RoomTypes...),
		Boroughs:  append([]string{}, o.Boroughs...),
		PriceMin:  math.Min(0, o.PriceMin),
		PriceMax:  o.PriceMax,
	}
	if !o.HasPrice {
		s.PriceMax = o.SliderMax
	}
	return s
}

// Default is the initial selection: every category and a price window
// from 0 to min(defaultMax, SliderMax). A defaultMax <= 0 means
// DefaultPriceMax.
func (o Options) Default(defaultMax float64) Spec {
	if defaultMax <= 0 {
		defaultMax = DefaultPriceMax
	}
	return Spec{
		RoomTypes: append([]string{}, o.RoomTypes...),
		Boroughs:  append([]string{}, o.Boroughs...),
		PriceMin:  0,
		PriceMax:  math.Min(defaultMax, o.SliderMax),
	}
}

func distinct(t *table.Table, name string) []string {
	col, ok := t.Column(name)
	if !ok {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for i := 0; i < col.Len(); i++ {
		v, ok := col.Text(i)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
