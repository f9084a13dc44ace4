package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/logging"
)

var checkCmd = &cobra.Command{
	Use:   "check <csv-report-id> <xml-report-id> <receiver>",
	Short: "Run one report pair outside the schedule",
	Long: `Run the full generate/download/process/deliver cycle for an
explicit report pair and receiver, without reading or advancing the
schedule counter. Useful for verifying a new pair before adding it to
the schedule.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportA, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid report ID %q", args[0])
		}
		reportB, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid report ID %q", args[1])
		}
		receiver := args[2]

		cfg := GetConfig()
		if err := cfg.ValidateEmail(); err != nil {
			return err
		}

		wlog, closeLog, err := logging.NewActivity(GetLogger(), cfg.Workflow.LogDir, logging.WorkflowLog, verbose)
		if err != nil {
			return err
		}
		defer closeLog()

		genLog, closeGen, err := logging.NewActivity(GetLogger(), cfg.Workflow.LogDir, logging.GenerateLog, verbose)
		if err != nil {
			return err
		}
		defer closeGen()

		dlLog, closeDl, err := logging.NewActivity(GetLogger(), cfg.Workflow.LogDir, logging.DownloadLog, verbose)
		if err != nil {
			return err
		}
		defer closeDl()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := initWorkflow(cfg, wlog)
		if err != nil {
			return fmt.Errorf("failed to initialize workflow: %w", err)
		}
		w.WithActivityLogs(genLog, dlLog)

		result, err := w.RunCheck(ctx, reportA, reportB, receiver)
		if err != nil {
			return fmt.Errorf("check run failed: %w", err)
		}

		wlog.Info("Check run completed",
			zap.Ints("pair", []int{reportA, reportB}),
			zap.Strings("delivered", result.Delivered),
			zap.Strings("files", result.Files),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
