package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kidoz/insightvm-workflow-go/internal/schedule"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which schedule entry runs next",
	Long: `Print the current schedule position, the total number of entries,
and the entry the next auto run will execute. Read-only: neither the
counter nor the console is touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		w, err := initWorkflow(cfg, GetLogger())
		if err != nil {
			return fmt.Errorf("failed to initialize workflow: %w", err)
		}

		status, sched, err := w.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Schedule position: %d of %d\n", status.Position, status.Total)
		fmt.Printf("Next entry:        %s\n", formatEntry(status.Current))

		for i, entry := range sched.Flatten() {
			marker := " "
			if i+1 == status.Position {
				marker = ">"
			}
			fmt.Printf("%s%3d  %s\n", marker, i+1, formatEntry(entry))
		}
		return nil
	},
}

func formatEntry(entry schedule.FlatEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] reports %v -> %s", entry.Group, entry.Pair, strings.Join(entry.Receivers, ", "))
	if len(entry.CC) > 0 {
		fmt.Fprintf(&b, " (cc: %s)", strings.Join(entry.CC, ", "))
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
