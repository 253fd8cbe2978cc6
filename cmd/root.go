package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/listings-eda/internal/config"
	"github.com/KaramelBytes/listings-eda/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global

	logger    = logging.Discard()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "listings-eda",
	Short: "Explore NYC Airbnb listings: clean, filter, summarize",
	Long: `listings-eda loads an Airbnb listings CSV or XLSX file, applies light cleaning,
filters it by room type, borough and price, and reports the dashboard statistics
(KPIs, price distribution, top neighbourhoods, correlations and a map sample).`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.listings-eda/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.SilenceErrors = true
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
	l, closer, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, File: cfg.LogFile, Output: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		return
	}
	logger, logCloser = l, closer
	slog.SetDefault(logger)
}

// settings returns the loaded config, or defaults when loading was skipped.
func settings() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Default()
	}
	return cfg
}
