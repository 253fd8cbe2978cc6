package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/outlier"
	"github.com/KaramelBytes/listings-eda/internal/schema"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

// Settings tune the dashboard computations.
type Settings struct {
	TopN      int
	Bins      int
	GeoMax    int
	GeoSeed   uint64
	CapK      float64
	CapMethod outlier.Method
}

// DefaultSettings returns the dashboard defaults.
func DefaultSettings() Settings {
	return Settings{
		TopN:    DefaultTopN,
		Bins:    DefaultHistBins,
		GeoMax:  DefaultGeoMax,
		GeoSeed: DefaultGeoSeed,
		CapK:    outlier.DefaultK,
	}
}

// KPIs are the headline numbers of a view.
type KPIs struct {
	Rows            int             `json:"rows"`
	Price           Result[Center]  `json:"price"`
	MedianMinNights Result[float64] `json:"median_minimum_nights"`
}

// GeoSummary is the map layer: the sampled markers plus how many rows
// were eligible.
type GeoSummary struct {
	Eligible int        `json:"eligible"`
	Seed     uint64     `json:"seed"`
	Points   []GeoPoint `json:"points"`
}

// Dashboard bundles every statistic and chart input for one view.
type Dashboard struct {
	Source            string                  `json:"source"`
	TotalRows         int                     `json:"total_rows"`
	Filter            filter.Spec             `json:"filter"`
	KPIs              KPIs                    `json:"kpis"`
	Histogram         Result[[]Bin]           `json:"price_histogram"`
	RoomTypeBoxes     Result[[]BoxStats]      `json:"price_by_room_type"`
	TopNeighbourhoods Result[[]CategoryCount] `json:"top_neighbourhoods"`
	Correlations      Result[CorrMatrix]      `json:"correlations"`
	Geo               Result[GeoSummary]      `json:"geo"`
	Schema            []ColumnSummary         `json:"schema"`
	Notes             []string                `json:"notes,omitempty"`
}

// Summarize filters clean by spec and computes the full dashboard.
func Summarize(source string, clean *table.Table, spec filter.Spec, s Settings) *Dashboard {
	view := filter.Apply(clean, spec)
	d := &Dashboard{
		Source:    source,
		TotalRows: clean.Len(),
		Filter:    spec,
		KPIs: KPIs{
			Rows:            Count(view),
			Price:           PriceCenter(view),
			MedianMinNights: MedianMinNights(view),
		},
		Histogram:         PriceHistogram(view, s.Bins),
		RoomTypeBoxes:     PriceByRoomType(view, s.CapK, s.CapMethod),
		TopNeighbourhoods: TopCategories(view, schema.Neighbourhood, s.TopN),
		Correlations:      CorrelationMatrix(view),
		Schema:            Profile(view),
	}
	geo := GeoSample(view, s.GeoMax, s.GeoSeed)
	if geo.Available {
		d.Geo = available(GeoSummary{Eligible: eligibleGeoRows(view), Seed: s.GeoSeed, Points: GeoPoints(geo.Value)})
	} else {
		d.Geo = Result[GeoSummary]{Reason: geo.Reason, Missing: geo.Missing}
	}

	for _, n := range []string{
		d.KPIs.Price.Note("price"),
		d.KPIs.MedianMinNights.Note("minimum nights"),
		d.Histogram.Note("price distribution"),
		d.RoomTypeBoxes.Note("price by room type"),
		d.TopNeighbourhoods.Note("top neighbourhoods"),
		d.Correlations.Note("correlations"),
		d.Geo.Note("map"),
	} {
		if n != "" {
			d.Notes = append(d.Notes, n)
		}
	}
	return d
}

func eligibleGeoRows(view *table.Table) int {
	lat, _ := view.Column(schema.Latitude)
	lon, _ := view.Column(schema.Longitude)
	n := 0
	for i := 0; i < view.Len(); i++ {
		if lat.Valid(i) && lon.Valid(i) {
			n++
		}
	}
	return n
}

// Markdown renders a compact text report of the dashboard.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[DASHBOARD]\n")
	if d.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", d.Source))
	}
	b.WriteString(fmt.Sprintf("Rows: %d (visible %d)\n", d.TotalRows, d.KPIs.Rows))
	b.WriteString(fmt.Sprintf("Room types: %s\n", joinOrNone(d.Filter.RoomTypes)))
	b.WriteString(fmt.Sprintf("Boroughs: %s\n", joinOrNone(d.Filter.Boroughs)))
	b.WriteString(fmt.Sprintf("Price: %.0f to %.0f\n\n", d.Filter.PriceMin, d.Filter.PriceMax))

	b.WriteString("[KPIS]\n")
	b.WriteString(fmt.Sprintf("- Rows (filtered view): %d\n", d.KPIs.Rows))
	if p := d.KPIs.Price; p.Available {
		b.WriteString(fmt.Sprintf("- Median price: $%.0f\n", p.Value.Median))
		b.WriteString(fmt.Sprintf("- Mean price: $%.0f\n", p.Value.Mean))
	}
	if m := d.KPIs.MedianMinNights; m.Available {
		b.WriteString(fmt.Sprintf("- Minimum nights (median): %.0f\n", m.Value))
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range d.Schema {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		if c.Numeric != nil {
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g", c.Numeric.Min, c.Numeric.Max, c.Numeric.Mean))
		}
		b.WriteString("\n")
	}

	if h := d.Histogram; h.Available {
		b.WriteString("\n[PRICE DISTRIBUTION]\n")
		for _, bin := range h.Value {
			if bin.Count == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("- %.0f to %.0f: %d\n", bin.Low, bin.High, bin.Count))
		}
	}
	if bx := d.RoomTypeBoxes; bx.Available {
		b.WriteString("\n[PRICE BY ROOM TYPE]\n")
		for _, s := range bx.Value {
			b.WriteString(fmt.Sprintf("- %s (n=%d): median %.0f, IQR %.0f to %.0f, whiskers %.0f to %.0f\n",
				safeVal(s.Category), s.N, s.Median, s.Q1, s.Q3, s.LowerWhisker, s.UpperWhisker))
		}
	}
	if top := d.TopNeighbourhoods; top.Available && len(top.Value) > 0 {
		b.WriteString("\n[TOP NEIGHBOURHOODS]\n")
		for i := len(top.Value) - 1; i >= 0; i-- {
			kv := top.Value[i]
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(kv.Value), kv.Count))
		}
	}
	if c := d.Correlations; c.Available {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(c.Value.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				r := c.Value.Values[i][j]
				if math.IsNaN(r) {
					continue
				}
				pairs = append(pairs, pr{A: c.Value.Columns[i], B: c.Value.Columns[j], R: r})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if g := d.Geo; g.Available {
		b.WriteString("\n[MAP SAMPLE]\n")
		b.WriteString(fmt.Sprintf("Points: %d of %d geotagged rows (seed %d)\n", len(g.Value.Points), g.Value.Eligible, g.Value.Seed))
	}
	if len(d.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range d.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func joinOrNone(vals []string) string {
	if len(vals) == 0 {
		return "(none)"
	}
	return strings.Join(vals, ", ")
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
