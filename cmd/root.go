package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
	"github.com/kidoz/insightvm-workflow-go/internal/logging"
	"github.com/kidoz/insightvm-workflow-go/internal/telemetry"
)

var (
	cfgFile      string
	verbose      bool
	cfg          *config.Config
	log          *zap.Logger
	otelShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "ivw",
	Short: "InsightVM Workflow - automated report distribution for InsightVM",
	Long: `InsightVM Workflow (IVW) automates the report lifecycle of a
Rapid7 InsightVM console.

It triggers report generation over the console REST API, downloads the
finished CSV and XML exports, condenses them into remediation and
vulnerability summaries, and mails the results to the receivers defined
in a rotating schedule. It can also export the aggregated software
inventory of asset groups and sites.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that handle their own config
		if cmd.Name() == "version" {
			return nil
		}

		// Initialize logger
		log = logging.NewConsole(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Initialize OpenTelemetry
		otelShutdown, err = telemetry.Init(context.Background(), &cfg.Telemetry, verbose)
		if err != nil {
			return fmt.Errorf("failed to init telemetry: %w", err)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			_ = log.Sync()
		}
		if otelShutdown != nil {
			return otelShutdown(context.Background())
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.FindConfigPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func GetConfig() *config.Config {
	return cfg
}

func GetLogger() *zap.Logger {
	return log
}
