package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abView   viewFlags
	abOutDir string
	abJobs   int
	abFormat string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Summarize multiple listings files concurrently",
	Long: `Analyze-batch expands the given paths and globs, summarizes each file with the
same filter flags, and writes one summary per file to --out-dir. Existing
summaries are never overwritten: a __N suffix is added instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		s, err := dashboardSettings(settings())
		if err != nil {
			return err
		}
		outDir := abOutDir
		if outDir == "" {
			outDir = settings().OutputDir
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		ext := ".summary.md"
		if abFormat == "json" {
			ext = ".summary.json"
		} else if abFormat != "markdown" {
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", abFormat)
		}

		out := cmd.OutOrStdout()
		var mu sync.Mutex
		say := func(format string, a ...interface{}) {
			if abQuiet {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, format, a...)
		}

		// Output names are fixed up front so concurrent jobs never race on them.
		reserved := map[string]bool{}
		targets := make([]string, len(files))
		for i, path := range files {
			target, moved := utils.FreePath(outDir, baseName(path), ext, reserved)
			if moved {
				say("⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(target))
			}
			targets[i] = target
		}

		jobs := abJobs
		if jobs <= 0 {
			jobs = 1
		}
		total := len(files)
		var started atomic.Int32
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(jobs)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				say("[%d/%d] Processing %s...\n", started.Add(1), total, filepath.Base(path))
				clean, opts, err := openClean(path, &abView)
				if err != nil {
					return err
				}
				d := analysis.Summarize(path, clean, abView.spec(cmd, opts), s)
				var body []byte
				if abFormat == "json" {
					if body, err = utils.PrettyJSON(d); err != nil {
						return err
					}
				} else {
					body = []byte(d.Markdown())
				}
				if err := utils.SafeWriteFile(targets[i], body); err != nil {
					return fmt.Errorf("write summary for %s: %w", path, err)
				}
				say("✓ %s: %d of %d rows visible → %s\n", filepath.Base(path), d.KPIs.Rows, d.TotalRows, filepath.Base(targets[i]))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		say("✓ Wrote %d summaries to %s\n", total, outDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	addViewFlags(analyzeBatchCmd, &abView)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for summaries (default output_dir from config)")
	analyzeBatchCmd.Flags().IntVar(&abJobs, "jobs", 4, "files processed concurrently")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "markdown", "summary format: markdown|json")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
