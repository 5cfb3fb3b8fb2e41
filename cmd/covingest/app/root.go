package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covingest/internal/config"
	"github.com/zjy-dev/covingest/internal/logger"
)

// NewCovingestCommand creates the root command for the covingest tool.
func NewCovingestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covingest",
		Short: "Read Go, JaCoCo and LCOV coverage reports into one model.",
		Long: `covingest detects the format of coverage reports written by Go, JVM and
gcov/llvm-cov/JavaScript toolchains and converts them into a single list of
covered source regions. Reports can be printed, stored, or served over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to a config file (default: configs/config.yaml if present)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().Bool("no-color", false, "Disable coloured log output")

	cmd.AddCommand(NewParseCommand())
	cmd.AddCommand(NewIngestCommand())
	cmd.AddCommand(NewShowCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}

// loadConfig reads the configuration and applies the logging flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("no-color") {
		noColor, _ := cmd.Flags().GetBool("no-color")
		cfg.Log.Color = !noColor
	}

	logger.SetLevel(cfg.Log.Level)
	logger.SetColorEnable(cfg.Log.Color)
	return cfg, nil
}
