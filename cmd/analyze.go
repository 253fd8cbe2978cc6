package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaView      viewFlags
	anaFormat    string
	anaOutput    string
	anaTopN      int
	anaGeoMax    int
	anaSeed      uint64
	anaBins      int
	anaCapMethod string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Clean, filter and summarize a listings CSV/TSV/XLSX",
	Long: `Analyze loads a listings file (or the first existing configured data path),
fills missing names, drops sparse review columns, applies the filter flags and
prints the dashboard as a sectioned report or JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveInput(args)
		if err != nil {
			return err
		}
		g := *settings()
		if cmd.Flags().Changed("top-n") {
			g.TopN = anaTopN
		}
		if cmd.Flags().Changed("geo-max") {
			g.GeoSampleMax = anaGeoMax
		}
		if cmd.Flags().Changed("seed") {
			g.GeoSampleSeed = anaSeed
		}
		if cmd.Flags().Changed("bins") {
			g.HistogramBins = anaBins
		}
		if cmd.Flags().Changed("cap-method") {
			g.CapMethod = anaCapMethod
		}
		format := g.OutputFormat
		if cmd.Flags().Changed("format") {
			format = strings.ToLower(anaFormat)
		}
		if format != "markdown" && format != "json" {
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", format)
		}
		s, err := dashboardSettings(&g)
		if err != nil {
			return err
		}

		clean, opts, err := openClean(path, &anaView)
		if err != nil {
			return err
		}
		spec := anaView.spec(cmd, opts)
		logger.Debug("analyzing", "path", path, "rows", clean.Len(), "room_types", spec.RoomTypes, "boroughs", spec.Boroughs)
		d := analysis.Summarize(path, clean, spec, s)

		var out []byte
		if format == "json" {
			out, err = utils.PrettyJSON(d)
			if err != nil {
				return err
			}
		} else {
			out = []byte(d.Markdown())
		}
		if anaOutput != "" {
			if err := utils.SafeWriteFile(anaOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote dashboard to %s (%d of %d rows visible)\n", anaOutput, d.KPIs.Rows, d.TotalRows)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addViewFlags(analyzeCmd, &anaView)
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "output format: markdown|json")
	analyzeCmd.Flags().StringVarP(&anaOutput, "output", "o", "", "write the report to this file instead of stdout")
	analyzeCmd.Flags().IntVar(&anaTopN, "top-n", analysis.DefaultTopN, "number of neighbourhoods in the top list")
	analyzeCmd.Flags().IntVar(&anaGeoMax, "geo-max", analysis.DefaultGeoMax, "maximum map sample size")
	analyzeCmd.Flags().Uint64Var(&anaSeed, "seed", analysis.DefaultGeoSeed, "map sample seed")
	analyzeCmd.Flags().IntVar(&anaBins, "bins", analysis.DefaultHistBins, "price histogram bins")
	analyzeCmd.Flags().StringVar(&anaCapMethod, "cap-method", "lower", "quantile method for price capping: lower|linear")
}
