package cmd

import (
	"fmt"

	"github.com/KaramelBytes/listings-eda/internal/export"
	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/utils"
	"github.com/spf13/cobra"
)

var (
	expView   viewFlags
	expTo     string
	expOutput string
	expDSN    string
	expTable  string
	expBOM    bool
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the cleaned, filtered view to CSV, XLSX or PostgreSQL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(expTo)
		if err != nil {
			return err
		}
		path, err := resolveInput(args)
		if err != nil {
			return err
		}
		clean, opts, err := openClean(path, &expView)
		if err != nil {
			return err
		}
		spec := expView.spec(cmd, opts)
		v := filter.Apply(clean, spec)
		run := export.NewRun(path, spec)

		var (
			sink export.Sink
			dest string
		)
		switch format {
		case export.Postgres:
			g := settings()
			dsn := expDSN
			if dsn == "" {
				dsn = g.PostgresDSN
			}
			if dsn == "" {
				return fmt.Errorf("postgres export needs --dsn or postgres_dsn in config")
			}
			table := expTable
			if table == "" {
				table = g.PostgresTable
			}
			ps, err := export.NewPostgresSink(cmd.Context(), export.PostgresOptions{DSN: dsn, Table: table}, logger)
			if err != nil {
				return err
			}
			sink, dest = ps, "postgres table "+table
		default:
			dest = expOutput
			if dest == "" {
				dir := settings().OutputDir
				if err := utils.EnsureDir(dir); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				dest, _ = utils.FreePath(dir, baseName(path)+".view", format.Ext(), nil)
			}
			sink = &export.FileSink{Path: dest, Format: format, CSV: export.CSVOptions{BOM: expBOM}}
		}
		defer sink.Close()

		n, err := sink.Write(cmd.Context(), run, v)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d of %d rows to %s (run %s)\n", n, clean.Len(), dest, run.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addViewFlags(exportCmd, &expView)
	exportCmd.Flags().StringVar(&expTo, "to", "csv", "destination: csv|xlsx|postgres")
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output file for csv/xlsx (default <output_dir>/<name>.view.<ext>)")
	exportCmd.Flags().StringVar(&expDSN, "dsn", "", "PostgreSQL connection string (overrides postgres_dsn)")
	exportCmd.Flags().StringVar(&expTable, "table", "", "PostgreSQL table name (overrides postgres_table)")
	exportCmd.Flags().BoolVar(&expBOM, "bom", false, "CSV: prefix a UTF-8 byte order mark")
}
