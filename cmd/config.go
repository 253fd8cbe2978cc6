package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/listings-eda/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set listings-eda configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "data_paths: %s\n", strings.Join(cfg.DataPaths, ","))
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", cfg.Sheet)
		}
		fmt.Fprintf(out, "fill_value: %s\n", cfg.FillValue)
		fmt.Fprintf(out, "cap_k: %.3f\n", cfg.CapK)
		fmt.Fprintf(out, "cap_method: %s\n", cfg.CapMethod)
		fmt.Fprintf(out, "top_n: %d\n", cfg.TopN)
		fmt.Fprintf(out, "histogram_bins: %d\n", cfg.HistogramBins)
		fmt.Fprintf(out, "geo_sample_max: %d\n", cfg.GeoSampleMax)
		fmt.Fprintf(out, "geo_sample_seed: %d\n", cfg.GeoSampleSeed)
		fmt.Fprintf(out, "price_slider_cap: %g\n", cfg.PriceSliderCap)
		fmt.Fprintf(out, "default_price_max: %g\n", cfg.DefaultPriceMax)
		fmt.Fprintf(out, "output_format: %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		if cfg.LogFile != "" {
			fmt.Fprintf(out, "log_file: %s\n", cfg.LogFile)
		}
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "upload_max_mb: %d\n", cfg.UploadMaxMB)
		fmt.Fprintf(out, "rate_limit_rps: %g\n", cfg.RateLimitRPS)
		fmt.Fprintf(out, "rate_limit_burst: %d\n", cfg.RateLimitBurst)
		fmt.Fprintf(out, "postgres_dsn: %s\n", mask(cfg.PostgresDSN))
		fmt.Fprintf(out, "postgres_table: %s\n", cfg.PostgresTable)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "data_paths":
			var paths []string
			for _, p := range strings.Split(val, ",") {
				if p = strings.TrimSpace(p); p != "" {
					paths = append(paths, p)
				}
			}
			cfg.DataPaths = paths
		case "delimiter":
			cfg.Delimiter = val
		case "sheet":
			cfg.Sheet = val
		case "fill_value":
			cfg.FillValue = val
		case "cap_k":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for cap_k: %w", err)
			}
			cfg.CapK = f
		case "cap_method":
			cfg.CapMethod = strings.ToLower(val)
		case "top_n":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for top_n: %w", err)
			}
			cfg.TopN = i
		case "histogram_bins":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for histogram_bins: %w", err)
			}
			cfg.HistogramBins = i
		case "geo_sample_max":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for geo_sample_max: %w", err)
			}
			cfg.GeoSampleMax = i
		case "geo_sample_seed":
			u, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for geo_sample_seed: %w", err)
			}
			cfg.GeoSampleSeed = u
		case "price_slider_cap":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for price_slider_cap: %w", err)
			}
			cfg.PriceSliderCap = f
		case "default_price_max":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for default_price_max: %w", err)
			}
			cfg.DefaultPriceMax = f
		case "output_format":
			cfg.OutputFormat = strings.ToLower(val)
		case "output_dir":
			cfg.OutputDir = val
		case "log_level":
			cfg.LogLevel = strings.ToLower(val)
		case "log_format":
			cfg.LogFormat = strings.ToLower(val)
		case "log_file":
			cfg.LogFile = val
		case "server_addr":
			cfg.ServerAddr = val
		case "upload_max_mb":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for upload_max_mb: %w", err)
			}
			cfg.UploadMaxMB = i
		case "rate_limit_rps":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for rate_limit_rps: %w", err)
			}
			cfg.RateLimitRPS = f
		case "rate_limit_burst":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for rate_limit_burst: %w", err)
			}
			cfg.RateLimitBurst = i
		case "postgres_dsn":
			cfg.PostgresDSN = val
		case "postgres_table":
			cfg.PostgresTable = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// mask hides credentials embedded in a DSN.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
