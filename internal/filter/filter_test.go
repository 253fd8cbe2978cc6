package filter

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/KaramelBytes/listings-eda/internal/table"
)

// listings builds n rows: the first `entire` are "Entire home/apt", the rest
// alternate between private and shared rooms. Prices are 10, 20, 30, ...
func listings(n, entire int) *table.Table {
	rooms := make([]string, n)
	boroughs := make([]string, n)
	prices := make([]float64, n)
	ids := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case i < entire:
			rooms[i] = "Entire home/apt"
		case i%2 == 0:
			rooms[i] = "Private room"
		default:
			rooms[i] = "Shared room"
		}
		boroughs[i] = []string{"Brooklyn", "Manhattan", "Queens"}[i%3]
		prices[i] = float64(10 * (i + 1))
		ids[i] = float64(i)
	}
	return table.MustNew(
		table.NewNumber("id", ids, nil),
		table.NewText("room_type", rooms, nil),
		table.NewText("neighbourhood_group", boroughs, nil),
		table.NewNumber("price", prices, nil),
	)
}

func ids(t *testing.T, tb *table.Table) []float64 {
	t.Helper()
	col, ok := tb.Column("id")
	if !ok {
		t.Fatalf("id column missing")
	}
	return col.Floats()
}

func TestFullSpecIsIdentity(t *testing.T) {
	tb := listings(100, 60)
	view := Apply(tb, Observe(tb, 0).Full())
	if !view.Equal(tb) {
		t.Fatalf("full spec changed the table: %d rows", view.Len())
	}
}

func TestEmptyRoomTypesSelectNothing(t *testing.T) {
	tb := listings(100, 60)
	spec := Observe(tb, 0).Full()
	spec.RoomTypes = []string{}
	if got := Apply(tb, spec).Len(); got != 0 {
		t.Fatalf("empty room types kept %d rows", got)
	}
	spec.RoomTypes = nil
	if got := Apply(tb, spec).Len(); got != 0 {
		t.Fatalf("nil room types kept %d rows", got)
	}
	spec = Observe(tb, 0).Full()
	spec.Boroughs = nil
	if got := Apply(tb, spec).Len(); got != 0 {
		t.Fatalf("empty boroughs kept %d rows", got)
	}
}

func TestSingleRoomType(t *testing.T) {
	tb := listings(100, 60)
	spec := Observe(tb, 0).Full()
	spec.RoomTypes = []string{"Entire home/apt"}
	view := Apply(tb, spec)
	if view.Len() != 60 {
		t.Fatalf("rows = %d; want 60", view.Len())
	}
}

func TestPriceBoundsInclusive(t *testing.T) {
	tb := listings(10, 0)
	spec := Observe(tb, 0).Full()
	spec.PriceMin, spec.PriceMax = 30, 50
	got := ids(t, Apply(tb, spec))
	want := []float64{2, 3, 4}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("ids = %v; want %v", got, want)
	}
}

func TestOrderIsStable(t *testing.T) {
	tb := listings(30, 10)
	spec := Observe(tb, 0).Full()
	spec.Boroughs = []string{"Queens", "Brooklyn"}
	got := ids(t, Apply(tb, spec))
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("order broken at %d: %v", i, got)
		}
	}
	if len(got) != 20 {
		t.Fatalf("rows = %d; want 20", len(got))
	}
}

func TestAbsentColumnsAlwaysMatch(t *testing.T) {
	tb := table.MustNew(table.NewNumber("price", []float64{5, 50, 500}, nil))
	spec := Spec{PriceMin: 0, PriceMax: 100}
	if got := Apply(tb, spec).Len(); got != 2 {
		t.Fatalf("rows = %d; want 2 (category predicates skipped)", got)
	}
	noPrice := table.MustNew(table.NewText("room_type", []string{"Private room", "Shared room"}, nil))
	if got := Apply(noPrice, Spec{RoomTypes: []string{"Shared room"}}).Len(); got != 1 {
		t.Fatalf("rows = %d; want 1 (price predicate skipped)", got)
	}
}

func TestMissingValuesNeverMatch(t *testing.T) {
	tb := table.MustNew(
		table.NewText("room_type", []string{"Private room", "", "Private room"}, []bool{true, false, true}),
		table.NewNumber("price", []float64{10, 20, math.NaN()}, nil),
	)
	spec := Spec{RoomTypes: []string{"Private room"}, PriceMin: 0, PriceMax: 100}
	if got := Indices(tb, spec); len(got) != 1 || got[0] != 0 {
		t.Fatalf("indices = %v; want [0]", got)
	}
}

func TestObserveAndDefault(t *testing.T) {
	tb := listings(100, 60)
	o := Observe(tb, 0)
	if fmt.Sprint(o.RoomTypes) != "[Entire home/apt Private room Shared room]" {
		t.Fatalf("room types = %v", o.RoomTypes)
	}
	if o.PriceMin != 10 || o.PriceMax != 1000 || o.SliderMax != 1000 {
		t.Fatalf("price range = %+v", o)
	}
	d := o.Default(0)
	if d.PriceMin != 0 || d.PriceMax != 500 {
		t.Fatalf("default = %+v", d)
	}
	capped := Observe(tb, 300)
	if capped.SliderMax != 300 || capped.Default(0).PriceMax != 300 {
		t.Fatalf("slider cap not applied: %+v", capped)
	}
	empty := Observe(table.MustNew(table.NewText("x", []string{"a"}, nil)), 0)
	if empty.HasPrice || empty.SliderMax != 1000 || len(empty.RoomTypes) != 0 {
		t.Fatalf("no-price options = %+v", empty)
	}
}

func TestFullSpecKeepsNegativePrices(t *testing.T) {
	tb := table.MustNew(
		table.NewText("room_type", []string{"Private room", "Private room"}, nil),
		table.NewNumber("price", []float64{-20, 50}, nil),
	)
	full := Observe(tb, 0).Full()
	if full.PriceMin != -20 {
		t.Fatalf("full price_min = %v; want -20", full.PriceMin)
	}
	if got := Apply(tb, full).Len(); got != 2 {
		t.Fatalf("full spec kept %d rows; want 2", got)
	}
}

func TestApplyHundredThousandRows(t *testing.T) {
	tb := listings(100000, 60000)
	spec := Observe(tb, 0).Full()
	spec.RoomTypes = []string{"Entire home/apt"}
	spec.Boroughs = []string{"Manhattan"}

	start := time.Now()
	view := Apply(tb, spec)
	elapsed := time.Since(start)

	// entire homes are rows 0..59999; Manhattan is every i%3 == 1
	if view.Len() != 20000 {
		t.Fatalf("rows = %d; want 20000", view.Len())
	}
	got := ids(t, view)
	for k, id := range got {
		if want := float64(3*k + 1); id != want {
			t.Fatalf("row %d has id %v; want %v", k, id, want)
		}
	}
	if !testing.Short() && elapsed > time.Second {
		t.Fatalf("Apply over 100k rows took %v", elapsed)
	}
}

func BenchmarkApply100k(b *testing.B) {
	tb := listings(100000, 60000)
	spec := Observe(tb, 0).Full()
	spec.RoomTypes = []string{"Entire home/apt", "Private room"}
	spec.PriceMax = 500000
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Apply(tb, spec)
	}
}
