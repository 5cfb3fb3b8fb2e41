package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covingest/internal/report"
	"github.com/zjy-dev/covingest/internal/store"
)

// NewShowCommand creates the "show" subcommand.
func NewShowCommand() *cobra.Command {
	var (
		dsn    string
		output string
		name   string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a stored report, or list stored reports.",
		Long: `Without an ID, list the stored reports, newest first. With an ID, print
that report.

Examples:
  # List the ten most recent reports of one service
  covingest show --name svc/api/coverage.out --limit 10

  # Print a stored report as JSON
  covingest show -o json 0b7d7f0e-6f0c-4c1e-9a65-1f0f5e0f2a11`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dsn") {
				dsn = cfg.Store.DSN
			}

			reports, err := store.Open(store.Options{DSN: dsn, AuthToken: cfg.Store.AuthToken, Debug: cfg.Store.Debug})
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer reports.Close()

			if len(args) == 0 {
				entries, err := reports.List(cmd.Context(), name, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.ID, e.Name, e.Format,
						strconv.FormatUint(uint64(e.RegionCount), 10),
						e.CreatedAt.Format(time.RFC3339),
					})
				}
				return report.WriteTable(cmd.OutOrStdout(), []string{"ID", "NAME", "FORMAT", "REGIONS", "CREATED"}, rows)
			}

			writer, err := report.New(output)
			if err != nil {
				return err
			}
			stored, err := reports.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writer.Write(cmd.OutOrStdout(), report.NewDocument(stored.Name, stored.Format, stored.Report))
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "Database file or libSQL URL")
	cmd.Flags().StringVarP(&output, "output", "o", report.OutputText, "Output: text, json, msgpack or markdown")
	cmd.Flags().StringVar(&name, "name", "", "Only list reports with this name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of reports to list (0 = all)")

	return cmd
}
