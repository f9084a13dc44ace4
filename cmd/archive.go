package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/report"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move downloaded reports into the monthly archive",
	Long: `Move every file from the download directory into a month-named
subdirectory of the archive directory, leaving the download directory
empty for the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		log := GetLogger()

		archiver := report.NewArchiver(log)
		moved, err := archiver.Sweep(cfg.Workflow.DownloadPath, cfg.Workflow.ArchivePath)
		if err != nil {
			return fmt.Errorf("archive sweep failed: %w", err)
		}

		if len(moved) == 0 {
			fmt.Println("Nothing to archive")
			return nil
		}
		log.Info("Archive sweep completed", zap.Int("files", len(moved)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
