package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covingest/internal/ingest"
	"github.com/zjy-dev/covingest/internal/logger"
	"github.com/zjy-dev/covingest/internal/report"
)

// NewParseCommand creates the "parse" subcommand.
func NewParseCommand() *cobra.Command {
	var (
		format string
		output string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse one coverage report and print it.",
		Long: `Parse a single coverage report and print the converted regions.

The report is read from the given file, or from standard input when the file
is "-" or omitted. Without --format the format is detected by trying Go,
JaCoCo and LCOV in that order.

Examples:
  # Print a per-file summary of a Go profile
  covingest parse coverage.out

  # Convert an LCOV file to JSON
  covingest parse --output json coverage/lcov.info

  # Read from a pipe, forcing the format
  cat jacoco.xml | covingest parse --format jacoco`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = cfg.Ingest.Format
			}

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			raw, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			if name == "" {
				name = reportName(path)
			}

			writer, err := report.New(output)
			if err != nil {
				return err
			}

			result, err := ingest.ParseNamed(format, raw)
			if err != nil {
				var invalid *ingest.InvalidReportError
				if errors.As(err, &invalid) {
					logger.Debug("%s: %s", path, invalid.Detail())
				}
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			logger.Debug("%s parsed as %s with %d regions", path, result.Format, len(result.Report.Regions))

			return writer.Write(cmd.OutOrStdout(), report.NewDocument(name, result.Format, result.Report))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", ingest.FormatAuto, "Report format: auto, go, jacoco or lcov")
	cmd.Flags().StringVarP(&output, "output", "o", report.OutputText, "Output: text, json, msgpack or markdown")
	cmd.Flags().StringVar(&name, "name", "", "Report name (default: the file name)")

	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return raw, nil
}

func reportName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}
