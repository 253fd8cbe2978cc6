package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/cleaner"
	cfgpkg "github.com/KaramelBytes/listings-eda/internal/config"
	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/loader"
	"github.com/KaramelBytes/listings-eda/internal/outlier"
	"github.com/KaramelBytes/listings-eda/internal/table"
	"github.com/spf13/cobra"
)

// viewFlags are the filter and parsing flags shared by every command that
// builds a filtered view.
type viewFlags struct {
	roomTypes []string
	boroughs  []string
	priceMin  float64
	priceMax  float64
	fullRange bool
	delimiter string
	sheet     string
}

func addViewFlags(c *cobra.Command, f *viewFlags) {
	c.Flags().StringSliceVar(&f.roomTypes, "room-type", nil, "room types to keep (repeatable; --room-type= selects none; default all)")
	c.Flags().StringSliceVar(&f.boroughs, "borough", nil, "boroughs (neighbourhood_group) to keep (repeatable; --borough= selects none; default all)")
	c.Flags().Float64Var(&f.priceMin, "price-min", 0, "minimum nightly price (inclusive)")
	c.Flags().Float64Var(&f.priceMax, "price-max", 0, "maximum nightly price (inclusive; default min(500, slider max))")
	c.Flags().BoolVar(&f.fullRange, "full-range", false, "start from the full observed price range instead of the default window")
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|'")
	c.Flags().StringVar(&f.sheet, "sheet", "", "XLSX: sheet name to analyze (default first sheet)")
}

// spec starts from the default (or full) selection and applies the flags
// the user actually set.
func (f *viewFlags) spec(c *cobra.Command, opts filter.Options) filter.Spec {
	g := settings()
	var s filter.Spec
	if f.fullRange {
		s = opts.Full()
	} else {
		s = opts.Default(g.DefaultPriceMax)
	}
	fl := c.Flags()
	if fl.Changed("room-type") {
		s.RoomTypes = append([]string{}, f.roomTypes...)
	}
	if fl.Changed("borough") {
		s.Boroughs = append([]string{}, f.boroughs...)
	}
	if fl.Changed("price-min") {
		s.PriceMin = f.priceMin
	}
	if fl.Changed("price-max") {
		s.PriceMax = f.priceMax
	}
	return s
}

func (f *viewFlags) loaderOptions() (loader.Options, error) {
	g := settings()
	delim := f.delimiter
	if delim == "" {
		delim = g.Delimiter
	}
	sheet := f.sheet
	if sheet == "" {
		sheet = g.Sheet
	}
	opts := loader.Options{Sheet: sheet}
	switch delim {
	case "":
	case ",":
		opts.Delimiter = ','
	case "\t", "tab":
		opts.Delimiter = '\t'
	case ";":
		opts.Delimiter = ';'
	case "|":
		opts.Delimiter = '|'
	default:
		return opts, fmt.Errorf("unsupported --delimiter: %s", delim)
	}
	return opts, nil
}

// resolveInput returns the explicit path, or the first configured data
// path that exists.
func resolveInput(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	g := settings()
	for _, p := range g.DataPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no input file given and none of the configured data paths exist (%s)", strings.Join(g.DataPaths, ", "))
}

// cleanRules applies the configured fill value to the default rules.
func cleanRules() cleaner.Rules {
	r := cleaner.DefaultRules()
	if v := settings().FillValue; v != "" {
		r.FillValue = v
	}
	return r
}

// openClean loads and cleans path and observes its filter options.
func openClean(path string, f *viewFlags) (*table.Table, filter.Options, error) {
	lo, err := f.loaderOptions()
	if err != nil {
		return nil, filter.Options{}, err
	}
	raw, err := loader.New(lo, logger).Load(loader.FromPath(path))
	if err != nil {
		return nil, filter.Options{}, err
	}
	clean := cleaner.CleanWith(raw, cleanRules())
	return clean, filter.Observe(clean, settings().PriceSliderCap), nil
}

// dashboardSettings maps the global configuration onto analysis settings.
func dashboardSettings(g *cfgpkg.Global) (analysis.Settings, error) {
	m, err := outlier.ParseMethod(g.CapMethod)
	if err != nil {
		return analysis.Settings{}, err
	}
	return analysis.Settings{
		TopN:      g.TopN,
		Bins:      g.HistogramBins,
		GeoMax:    g.GeoSampleMax,
		GeoSeed:   g.GeoSampleSeed,
		CapK:      g.CapK,
		CapMethod: m,
	}, nil
}

// baseName strips the directory and extension from path.
func baseName(path string) string {
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
