package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

const defaultShowLimit = 10

var showCmd = &cobra.Command{
	Use:   "show [N|all]",
	Short: "List report definitions on the console",
	Long: `List the N most recent report definitions (default 10), or all of
them. The printed IDs are what schedule pairs and the check command
refer to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := defaultShowLimit
		if len(args) == 1 {
			if args[0] == "all" {
				limit = 0
			} else {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("argument must be a positive number or \"all\"")
				}
				limit = n
			}
		}

		cfg := GetConfig()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initClient(cfg, GetLogger())
		if err != nil {
			return fmt.Errorf("failed to initialize client: %w", err)
		}

		reports, err := client.ListReports(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}

		fmt.Printf("%-8s %-16s %s\n", "ID", "FORMAT", "NAME")
		for _, r := range reports {
			fmt.Printf("%-8d %-16s %s\n", r.ID, r.Format, r.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
