package cleaner

import (
	"math"
	"testing"

	"github.com/KaramelBytes/listings-eda/internal/table"
)

func raw() *table.Table {
	return table.MustNew(
		table.NewText("name", []string{"Loft", ""}, []bool{true, false}),
		table.NewText("host_name", []string{"", "Bob"}, []bool{false, true}),
		table.NewNumber("price", []float64{100, math.NaN()}, nil),
		table.NewText("last_review", []string{"2019-01-01", ""}, []bool{true, false}),
		table.NewNumber("reviews_per_month", []float64{0.5, math.NaN()}, nil),
	)
}

func TestCleanFillsAndDrops(t *testing.T) {
	in := raw()
	out := Clean(in)
	if out.Len() != in.Len() {
		t.Fatalf("row count changed: %d -> %d", in.Len(), out.Len())
	}
	if out.Has("last_review") || out.Has("reviews_per_month") {
		t.Fatalf("review columns not dropped: %v", out.Names())
	}
	name, _ := out.Column("name")
	host, _ := out.Column("host_name")
	if s, _ := name.Text(1); s != "Unknown" {
		t.Errorf("name[1] = %q; want Unknown", s)
	}
	if s, _ := host.Text(0); s != "Unknown" {
		t.Errorf("host_name[0] = %q; want Unknown", s)
	}
	price, _ := out.Column("price")
	if price.NullCount() != 1 {
		t.Errorf("price nulls = %d; other columns must be untouched", price.NullCount())
	}
	if !in.Has("last_review") {
		t.Fatalf("input table was modified")
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	once := Clean(raw())
	twice := Clean(once)
	if !once.Equal(twice) {
		t.Fatalf("second clean changed the table")
	}
}

func TestCleanToleratesMissingColumns(t *testing.T) {
	in := table.MustNew(table.NewNumber("price", []float64{1, 2}, nil))
	out := Clean(in)
	if !out.Equal(in) {
		t.Fatalf("table without target columns should pass through")
	}
}

func TestCleanWithCustomRules(t *testing.T) {
	out := CleanWith(raw(), Rules{FillColumns: []string{"name"}, FillValue: "n/a"})
	name, _ := out.Column("name")
	if s, _ := name.Text(1); s != "n/a" {
		t.Errorf("name[1] = %q; want n/a", s)
	}
	if !out.Has("last_review") {
		t.Errorf("no drop rules means nothing is dropped")
	}
}
