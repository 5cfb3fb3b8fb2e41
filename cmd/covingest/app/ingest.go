package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zjy-dev/covingest/internal/ingest"
	"github.com/zjy-dev/covingest/internal/logger"
	"github.com/zjy-dev/covingest/internal/report"
	"github.com/zjy-dev/covingest/internal/store"
)

// NewIngestCommand creates the "ingest" subcommand.
func NewIngestCommand() *cobra.Command {
	var (
		format   string
		workers  int
		patterns []string
		exclude  []string
		save     bool
		dsn      string
		outDir   string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Find and parse every coverage report under a directory.",
		Long: `Walk a directory, select coverage reports by glob pattern and parse them
concurrently.

Patterns use doublestar syntax and are matched against paths relative to the
directory. By default the usual output names of go test, JaCoCo and LCOV
tools are selected.

Configuration:
  Default values are loaded from config.yaml under the 'ingest' and 'store'
  sections. Command line flags override the config file values.

Examples:
  # List every report in a monorepo
  covingest ingest .

  # Store all reports in the configured database
  covingest ingest --save ./build

  # Only LCOV files, written as markdown summaries
  covingest ingest --pattern '**/*.info' --out-dir reports --output markdown .`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("format") {
				format = cfg.Ingest.Format
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Ingest.Workers
			}
			if !cmd.Flags().Changed("pattern") {
				patterns = cfg.Ingest.Patterns
			}
			if !cmd.Flags().Changed("exclude") {
				exclude = cfg.Ingest.Exclude
			}
			if !cmd.Flags().Changed("dsn") {
				dsn = cfg.Store.DSN
			}

			var writer report.Writer
			if outDir != "" {
				if writer, err = report.New(output); err != nil {
					return err
				}
			}

			var reports *store.Store
			if save {
				reports, err = store.Open(store.Options{DSN: dsn, AuthToken: cfg.Store.AuthToken, Debug: cfg.Store.Debug})
				if err != nil {
					return fmt.Errorf("failed to open store: %w", err)
				}
				defer reports.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			root := args[0]
			results, err := ingest.Batch(ctx, root, ingest.Options{
				Patterns: patterns,
				Exclude:  exclude,
				Format:   format,
				Workers:  workers,
				Progress: func(completed, total int, path string) {
					logger.Debug("[%d/%d] %s", completed, total, path)
				},
			})
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", root, err)
			}

			return summarize(ctx, cmd, root, results, reports, writer, outDir)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", ingest.FormatAuto, "Report format: auto, go, jacoco or lcov")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Number of files parsed concurrently (0 = GOMAXPROCS)")
	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "Glob selecting report files (repeatable)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Glob excluding files (repeatable)")
	cmd.Flags().BoolVar(&save, "save", false, "Store every parsed report in the database")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database file or libSQL URL")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write one rendered report per file into this directory")
	cmd.Flags().StringVarP(&output, "output", "o", report.OutputMarkdown, "Format for --out-dir: text, json, msgpack or markdown")

	return cmd
}

func summarize(ctx context.Context, cmd *cobra.Command, root string, results []ingest.FileResult, reports *store.Store, writer report.Writer, outDir string) error {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	out := cmd.OutOrStdout()

	failed := 0
	for _, r := range results {
		rel, err := filepath.Rel(root, r.Path)
		if err != nil {
			rel = r.Path
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", bad("FAIL"), rel, r.Err)
			continue
		}

		line := fmt.Sprintf("%s %s: %s, %d regions", ok("OK"), rel, r.Result.Format, len(r.Result.Report.Regions))
		if reports != nil {
			id, err := reports.Save(ctx, rel, r.Result.Format, r.Result.Report)
			if err != nil {
				return fmt.Errorf("failed to save %s: %w", rel, err)
			}
			line += ", id " + id
		}
		if writer != nil {
			path, err := report.Save(outDir, writer, report.NewDocument(rel, r.Result.Format, r.Result.Report))
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", rel, err)
			}
			line += ", wrote " + path
		}
		fmt.Fprintln(out, line)
	}

	logger.Info("ingested %d of %d reports under %s", len(results)-failed, len(results), root)
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(results))
	}
	return nil
}
