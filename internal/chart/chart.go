// Package chart renders dashboard outputs as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
)

// Kind names a renderable chart.
type Kind string

const (
	Histogram      Kind = "histogram"
	Neighbourhoods Kind = "neighbourhoods"
	Geo            Kind = "geo"
	Box            Kind = "box"
	Correlations   Kind = "correlations"
)

// Kinds lists every chart kind in display order.
var Kinds = []Kind{Histogram, Box, Neighbourhoods, Correlations, Geo}

// ErrUnknownKind is returned for a chart name outside Kinds.
var ErrUnknownKind = errors.New("unknown chart kind")

// UnavailableError reports a chart whose underlying output could not be
// computed for the view.
type UnavailableError struct {
	Kind Kind
	Note string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s chart unavailable: %s", e.Kind, e.Note)
}

// ParseKind validates a chart name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Options size the image.
type Options struct {
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 480
	}
	return w, h
}

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
}

// Render draws the chart of the given kind from a dashboard.
func Render(w io.Writer, kind Kind, d *analysis.Dashboard, opts Options) error {
	switch kind {
	case Histogram:
		if !d.Histogram.Available {
			return &UnavailableError{Kind: kind, Note: d.Histogram.Note("price distribution")}
		}
		return RenderHistogram(w, d.Histogram.Value, opts)
	case Neighbourhoods:
		if !d.TopNeighbourhoods.Available {
			return &UnavailableError{Kind: kind, Note: d.TopNeighbourhoods.Note("top neighbourhoods")}
		}
		if len(d.TopNeighbourhoods.Value) == 0 {
			return &UnavailableError{Kind: kind, Note: "no neighbourhoods in view"}
		}
		return RenderCategories(w, "Top neighbourhoods by listings", d.TopNeighbourhoods.Value, opts)
	case Box:
		if !d.RoomTypeBoxes.Available {
			return &UnavailableError{Kind: kind, Note: d.RoomTypeBoxes.Note("price by room type")}
		}
		return RenderBoxes(w, d.RoomTypeBoxes.Value, opts)
	case Correlations:
		if !d.Correlations.Available {
			return &UnavailableError{Kind: kind, Note: d.Correlations.Note("correlations")}
		}
		return RenderCorrelations(w, d.Correlations.Value, opts)
	case Geo:
		if !d.Geo.Available {
			return &UnavailableError{Kind: kind, Note: d.Geo.Note("map")}
		}
		if len(d.Geo.Value.Points) == 0 {
			return &UnavailableError{Kind: kind, Note: "no geotagged rows in view"}
		}
		return RenderGeo(w, d.Geo.Value.Points, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// RenderHistogram draws the price distribution as bars. Only every few
// bins carry a label so the axis stays readable.
func RenderHistogram(w io.Writer, bins []analysis.Bin, opts Options) error {
	if len(bins) == 0 {
		return errors.New("histogram: no bins")
	}
	width, height := opts.size()
	every := int(math.Ceil(float64(len(bins)) / 10))
	bars := make([]gochart.Value, len(bins))
	top := 1.0
	for i, b := range bins {
		bars[i] = gochart.Value{Value: float64(b.Count), Style: gochart.Style{FillColor: palette[0], StrokeColor: palette[0]}}
		if i%every == 0 {
			bars[i].Label = fmt.Sprintf("%.0f", b.Low)
		}
		top = math.Max(top, float64(b.Count))
	}
	return renderBars(w, "Price distribution", bars, top, width, height)
}

// RenderCategories draws one bar per category, in the given order.
func RenderCategories(w io.Writer, title string, counts []analysis.CategoryCount, opts Options) error {
	if len(counts) == 0 {
		return errors.New("categories: no values")
	}
	width, height := opts.size()
	bars := make([]gochart.Value, len(counts))
	top := 1.0
	for i, c := range counts {
		col := palette[i%len(palette)]
		bars[i] = gochart.Value{Label: c.Value, Value: float64(c.Count), Style: gochart.Style{FillColor: col, StrokeColor: col}}
		top = math.Max(top, float64(c.Count))
	}
	return renderBars(w, title, bars, top, width, height)
}

func renderBars(w io.Writer, title string, bars []gochart.Value, top float64, width, height int) error {
	spacing := 4
	barWidth := (width-120)/len(bars) - spacing
	if barWidth < 1 {
		barWidth, spacing = 1, 1
	}
	bc := gochart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: top * 1.05}},
		Bars:       bars,
	}
	if err := bc.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", strings.ToLower(title), err)
	}
	return nil
}

// RenderGeo draws the sampled markers as a longitude/latitude scatter, one
// series per room type.
func RenderGeo(w io.Writer, points []analysis.GeoPoint, opts Options) error {
	if len(points) == 0 {
		return errors.New("geo: no points")
	}
	width, height := opts.size()
	groups := map[string]*gochart.ContinuousSeries{}
	latLo, latHi := math.Inf(1), math.Inf(-1)
	lonLo, lonHi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		name := p.RoomType
		if name == "" {
			name = "listing"
		}
		s, ok := groups[name]
		if !ok {
			s = &gochart.ContinuousSeries{Name: name}
			groups[name] = s
		}
		s.XValues = append(s.XValues, p.Lon)
		s.YValues = append(s.YValues, p.Lat)
		latLo, latHi = math.Min(latLo, p.Lat), math.Max(latHi, p.Lat)
		lonLo, lonHi = math.Min(lonLo, p.Lon), math.Max(lonHi, p.Lon)
	}
	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)
	series := make([]gochart.Series, 0, len(names))
	for i, n := range names {
		s := groups[n]
		s.Style = pointStyle(palette[i%len(palette)])
		series = append(series, *s)
	}

	ch := gochart.Chart{
		Title:      "Listings map sample",
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: "longitude", Range: padded(lonLo, lonHi)},
		YAxis:      gochart.YAxis{Name: "latitude", Range: padded(latLo, latHi)},
		Series:     series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render geo: %w", err)
	}
	return nil
}

// RenderBoxes draws one box per room type: the Q1..Q3 box, a median bar
// and whiskers out to the furthest non-outlier prices.
func RenderBoxes(w io.Writer, boxes []analysis.BoxStats, opts Options) error {
	if len(boxes) == 0 {
		return errors.New("box: no groups")
	}
	width, height := opts.size()
	lo, hi := math.Inf(1), math.Inf(-1)
	var series []gochart.Series
	ticks := make([]gochart.Tick, 0, len(boxes))
	for i, b := range boxes {
		x := float64(i + 1)
		l, r := x-0.3, x+0.3
		line := gochart.Style{StrokeColor: palette[i%len(palette)], StrokeWidth: 2}
		series = append(series,
			gochart.ContinuousSeries{Style: line, XValues: []float64{x, x}, YValues: []float64{b.LowerWhisker, b.Q1}},
			gochart.ContinuousSeries{Style: line, XValues: []float64{x, x}, YValues: []float64{b.Q3, b.UpperWhisker}},
			gochart.ContinuousSeries{Style: line, XValues: []float64{l, r, r, l, l}, YValues: []float64{b.Q1, b.Q1, b.Q3, b.Q3, b.Q1}},
			gochart.ContinuousSeries{
				Style:   gochart.Style{StrokeColor: palette[i%len(palette)], StrokeWidth: 4},
				XValues: []float64{l, r},
				YValues: []float64{b.Median, b.Median},
			},
		)
		ticks = append(ticks, gochart.Tick{Value: x, Label: fmt.Sprintf("%s (n=%d)", b.Category, b.N)})
		lo, hi = math.Min(lo, b.LowerWhisker), math.Max(hi, b.UpperWhisker)
	}
	ch := gochart.Chart{
		Title:      "Price by room type (outliers capped)",
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Range: &gochart.ContinuousRange{Min: 0.5, Max: float64(len(boxes)) + 0.5}, Ticks: ticks},
		YAxis:      gochart.YAxis{Name: "price", Range: padded(lo, hi)},
		Series:     series,
	}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render box: %w", err)
	}
	return nil
}

// RenderCorrelations draws the matrix as a heatmap: red for positive,
// blue for negative, grey for undefined coefficients.
func RenderCorrelations(w io.Writer, m analysis.CorrMatrix, opts Options) error {
	n := len(m.Columns)
	if n == 0 {
		return errors.New("correlations: no columns")
	}
	width, height := opts.size()
	r, err := gochart.PNG(width, height)
	if err != nil {
		return fmt.Errorf("render correlations: %w", err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("render correlations: %w", err)
	}
	r.SetFont(font)
	fillRect(r, 0, 0, width, height, drawing.ColorWhite)

	const left, top = 230, 60
	cell := (width - left - 20) / n
	if c := (height - top - 20) / n; c < cell {
		cell = c
	}
	if cell < 1 {
		cell = 1
	}

	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(14)
	r.Text("Correlations", left, 28)
	r.SetFontSize(10)
	for i, name := range m.Columns {
		y := top + i*cell
		label := fit(r, name, left-16)
		r.SetFontColor(drawing.ColorBlack)
		r.Text(label, left-8-r.MeasureText(label).Width(), y+cell/2+4)
		head := fit(r, name, cell-4)
		r.Text(head, left+i*cell+(cell-r.MeasureText(head).Width())/2, top-8)
		for j := range m.Columns {
			v := math.NaN()
			if i < len(m.Values) && j < len(m.Values[i]) {
				v = m.Values[i][j]
			}
			x := left + j*cell
			fillRect(r, x, y, x+cell-1, y+cell-1, heat(v))
			txt := "n/a"
			if !math.IsNaN(v) {
				txt = fmt.Sprintf("%.2f", v)
			}
			r.SetFontColor(drawing.ColorBlack)
			if math.Abs(v) > 0.6 {
				r.SetFontColor(drawing.ColorWhite)
			}
			r.Text(txt, x+(cell-r.MeasureText(txt).Width())/2, y+cell/2+4)
		}
	}
	if err := r.Save(w); err != nil {
		return fmt.Errorf("render correlations: %w", err)
	}
	return nil
}

func fillRect(r gochart.Renderer, x0, y0, x1, y1 int, col drawing.Color) {
	r.SetFillColor(col)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	r.Fill()
}

// heat blends white toward red (positive) or blue (negative) by |v|.
func heat(v float64) drawing.Color {
	if math.IsNaN(v) {
		return drawing.ColorFromHex("dcdcdc")
	}
	base := palette[3]
	if v < 0 {
		base = palette[0]
	}
	t := math.Min(math.Abs(v), 1)
	mix := func(c uint8) uint8 { return uint8(255 - t*(255-float64(c))) }
	return drawing.Color{R: mix(base.R), G: mix(base.G), B: mix(base.B), A: 255}
}

// fit trims s until it renders within limit pixels.
func fit(r gochart.Renderer, s string, limit int) string {
	out := s
	for len(out) > 1 && r.MeasureText(out).Width() > limit {
		out = out[:len(out)-1]
	}
	return out
}

// pointStyle renders points only, without connecting lines.
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

// padded widens [lo, hi] by 2% on each side, or by a fixed margin when the
// range is a single point.
func padded(lo, hi float64) *gochart.ContinuousRange {
	pad := (hi - lo) * 0.02
	if pad == 0 {
		pad = 0.01
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
