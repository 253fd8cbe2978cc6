package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/listings-eda/internal/loader"
	"github.com/KaramelBytes/listings-eda/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := settings()
		s, err := dashboardSettings(g)
		if err != nil {
			return err
		}
		lo, err := (&viewFlags{}).loaderOptions()
		if err != nil {
			return err
		}
		addr := g.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		srv := server.New(server.Config{
			Settings:        s,
			Rules:           cleanRules(),
			SliderCap:       g.PriceSliderCap,
			DefaultPriceMax: g.DefaultPriceMax,
			DataPaths:       g.DataPaths,
			UploadMaxBytes:  int64(g.UploadMaxMB) << 20,
			RateLimitRPS:    g.RateLimitRPS,
			RateLimitBurst:  g.RateLimitBurst,
		}, loader.New(lo, logger), logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on %s (Ctrl+C to stop)\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8501", "listen address (overrides server_addr)")
}
