package chart

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleDashboard(t *testing.T, withGeo bool) *analysis.Dashboard {
	t.Helper()
	cols := []*table.Column{
		table.NewText("neighbourhood", []string{"Harlem", "Harlem", "Astoria", "Williamsburg", "Harlem"}, nil),
		table.NewText("room_type", []string{"Private room", "Entire home/apt", "Private room", "Shared room", "Private room"}, nil),
		table.NewNumber("price", []float64{80, 220, 65, 40, 95}, nil),
		table.NewNumber("minimum_nights", []float64{1, 3, 2, 1, 5}, nil),
		table.NewNumber("number_of_reviews", []float64{10, 4, 0, 22, 7}, nil),
	}
	if withGeo {
		cols = append(cols,
			table.NewNumber("latitude", []float64{40.81, 40.80, 40.76, 40.71, 40.82}, nil),
			table.NewNumber("longitude", []float64{-73.95, -73.94, -73.92, -73.96, -73.95}, nil),
		)
	}
	tb, err := table.New(cols...)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	return analysis.Summarize("test", tb, filter.Observe(tb, 0).Full(), analysis.DefaultSettings())
}

func TestRenderEveryKind(t *testing.T) {
	d := sampleDashboard(t, true)
	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, k, d, Options{Width: 640, Height: 360}); err != nil {
				t.Fatalf("Render(%s): %v", k, err)
			}
			if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
				t.Fatalf("output is not a PNG")
			}
		})
	}
}

func TestRenderUnavailable(t *testing.T) {
	d := sampleDashboard(t, false)
	var buf bytes.Buffer
	err := Render(&buf, Geo, d, Options{})
	var ue *UnavailableError
	if !errors.As(err, &ue) || ue.Kind != Geo {
		t.Fatalf("Render(geo) = %v; want UnavailableError", err)
	}
}

func TestRenderHistogramSingleBin(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistogram(&buf, []analysis.Bin{{Low: 100, High: 100, Count: 3}}, Options{}); err != nil {
		t.Fatalf("RenderHistogram: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Fatalf("output is not a PNG")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Geo "); err != nil || k != Geo {
		t.Fatalf("ParseKind = %q, %v", k, err)
	}
	if _, err := ParseKind("pie"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ParseKind(pie) = %v", err)
	}
}

func TestRenderCorrelationsUndefinedCells(t *testing.T) {
	m := analysis.CorrMatrix{
		Columns: []string{"price", "minimum_nights"},
		Values:  [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
	}
	var buf bytes.Buffer
	if err := RenderCorrelations(&buf, m, Options{Width: 480, Height: 320}); err != nil {
		t.Fatalf("RenderCorrelations: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Fatalf("output is not a PNG")
	}
}

func TestRenderBoxUnavailableWithoutRoomType(t *testing.T) {
	tb := table.MustNew(table.NewNumber("price", []float64{10, 20}, nil))
	d := analysis.Summarize("test", tb, filter.Observe(tb, 0).Full(), analysis.DefaultSettings())
	for _, k := range []Kind{Box, Correlations} {
		var buf bytes.Buffer
		var ue *UnavailableError
		if err := Render(&buf, k, d, Options{}); !errors.As(err, &ue) || ue.Kind != k {
			t.Fatalf("Render(%s) = %v; want UnavailableError", k, err)
		}
	}
}
