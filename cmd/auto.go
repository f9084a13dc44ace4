package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/logging"
	"github.com/kidoz/insightvm-workflow-go/internal/report"
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Run the next scheduled report entry",
	Long: `Run one full cycle for the schedule entry the progress counter
points at.

This command:
1. Loads the schedule and the persistent position counter
2. Triggers generation of the entry's CSV and XML reports
3. Waits for generation, then downloads the latest instance of each
4. Builds the solution and vulnerability summaries
5. Mails the summaries to the entry's receivers
6. Advances the counter, wrapping to the first entry after the last

The counter is only advanced when every step succeeded, so a failed
entry is retried on the next invocation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		result, err := w.RunAuto(ctx)
		if err != nil {
			return fmt.Errorf("workflow run failed: %w", err)
		}

		wlog.Info("Workflow run completed",
			zap.Int("position", result.Position),
			zap.Int("total", result.Total),
			zap.String("group", result.Entry.Group),
			zap.Strings("delivered", result.Delivered),
		)

		// delivered reports go straight to the monthly archive
		archiver := report.NewArchiver(wlog)
		if _, err := archiver.Sweep(cfg.Workflow.DownloadPath, cfg.Workflow.ArchivePath); err != nil {
			wlog.Warn("Archive sweep failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(autoCmd)
}
