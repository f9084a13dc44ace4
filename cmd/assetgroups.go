package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var assetGroupsCmd = &cobra.Command{
	Use:   "asset-groups",
	Short: "List asset groups defined on the console",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initClient(cfg, GetLogger())
		if err != nil {
			return fmt.Errorf("failed to initialize client: %w", err)
		}

		groups, err := client.ListAssetGroups(ctx)
		if err != nil {
			return fmt.Errorf("failed to list asset groups: %w", err)
		}

		fmt.Printf("%-8s %-10s %s\n", "ID", "ASSETS", "NAME")
		for _, g := range groups {
			fmt.Printf("%-8d %-10d %s\n", g.ID, g.Assets, g.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assetGroupsCmd)
}
