package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/zjy-dev/covingest/internal/api"
	"github.com/zjy-dev/covingest/internal/logger"
	"github.com/zjy-dev/covingest/internal/store"
)

// NewServeCommand creates the "serve" subcommand.
func NewServeCommand() *cobra.Command {
	var (
		addr         string
		dsn          string
		maxBodyBytes int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report ingestion HTTP API.",
		Long: `Start the HTTP API.

Endpoints:
  GET    /v0/ping
  POST   /v0/parse                          parse without storing
  POST   /v0/reports?name=<n>[&format=<f>]  parse and store
  GET    /v0/reports[?name=<n>&limit=<k>]   list stored reports
  GET    /v0/reports/<id>                   stored regions
  DELETE /v0/reports/<id>

Configuration:
  Default values are loaded from config.yaml under the 'server' and 'store'
  sections. Command line flags override the config file values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("dsn") {
				dsn = cfg.Store.DSN
			}
			if !cmd.Flags().Changed("max-body-bytes") {
				maxBodyBytes = cfg.Server.MaxBodyBytes
			}
			if maxBodyBytes <= 0 {
				return fmt.Errorf("max-body-bytes must be positive, got %d", maxBodyBytes)
			}
			cfg.Server.Addr = addr

			if gin.IsDebugging() {
				gin.SetMode(gin.ReleaseMode)
			}

			reports, err := store.Open(store.Options{DSN: dsn, AuthToken: cfg.Store.AuthToken, Debug: cfg.Store.Debug})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer reports.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = api.Serve(ctx, api.NewRouter(reports, maxBodyBytes), cfg.Server)
			logger.Info("server shutting down")
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database file or libSQL URL")
	cmd.Flags().Int64Var(&maxBodyBytes, "max-body-bytes", 0, "Largest accepted report in bytes")

	return cmd
}
