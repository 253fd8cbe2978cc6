// Package filter narrows a cleaned listings table to the rows a user has
// selected by room type, borough and nightly price.
package filter

import (
	"math"

	"github.com/KaramelBytes/listings-eda/internal/schema"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

// Spec is the user's current selection. A nil or empty category set
// selects nothing: it is a deselect-all, not "no restriction".
type Spec struct {
	RoomTypes []string `json:"room_types" yaml:"room_types"`
	Boroughs  []string `json:"boroughs" yaml:"boroughs"`
	PriceMin  float64  `json:"price_min" yaml:"price_min"`
	PriceMax  float64  `json:"price_max" yaml:"price_max" validate:"gtefield=PriceMin"`
}

// Apply returns the rows of t matching spec, in input order. A predicate
// whose column is absent from t always holds.
func Apply(t *table.Table, spec Spec) *table.Table {
	idx := Indices(t, spec)
	if len(idx) == t.Len() {
		return t
	}
	return t.Take(idx)
}

// Indices returns the matching row positions in ascending order.
func Indices(t *table.Table, spec Spec) []int {
	keep := make([]bool, t.Len())
	for i := range keep {
		keep[i] = true
	}
	if col, ok := t.Column(schema.RoomType); ok {
		member(col, spec.RoomTypes, keep)
	}
	if col, ok := t.Column(schema.Borough); ok {
		member(col, spec.Boroughs, keep)
	}
	if col, ok := t.Column(schema.Price); ok {
		between(col, spec.PriceMin, spec.PriceMax, keep)
	}
	idx := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return idx
}

// member clears keep[i] when row i's category is missing or not in set.
func member(col *table.Column, set []string, keep []bool) {
	if len(set) == 0 {
		for i := range keep {
			keep[i] = false
		}
		return
	}
	allowed := make(map[string]bool, len(set))
	for _, s := range set {
		allowed[s] = true
	}
	for i := range keep {
		if !keep[i] {
			continue
		}
		v, ok := col.Text(i)
		keep[i] = ok && allowed[v]
	}
}

// between clears keep[i] unless lo <= price <= hi. Missing and
// non-numeric prices never match.
func between(col *table.Column, lo, hi float64, keep []bool) {
	for i := range keep {
		if !keep[i] {
			continue
		}
		v, ok := col.Float(i)
		keep[i] = ok && !math.IsNaN(v) && v >= lo && v <= hi
	}
}
