package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/storage/sqlite"
	"github.com/muralgen/mural/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <campaign-id>",
	Short: "Show saved-image counts and outcome for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		campaignID := args[0]

		store, err := sqlite.New(appCfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		images, err := store.ListSavedImages(ctx, campaignID)
		if err != nil {
			return err
		}
		entries, err := store.GetEntriesByCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if len(images) == 0 && len(entries) == 0 {
			return fmt.Errorf("no records for campaign %s", campaignID)
		}

		byPhase := make(map[types.Phase]int)
		for _, img := range images {
			byPhase[img.Phase]++
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("%s %s\n", cyan("Campaign"), campaignID)
		for _, phase := range types.PhaseOrder {
			fmt.Printf("  %-8s %d saved\n", phase, byPhase[phase])
		}
		fmt.Printf("  %-8s %d saved\n", "total", len(images))

		// The final campaign_finished entry carries the terminal status.
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Type == events.EventTypeCampaignFinished {
				fmt.Printf("\n%s %s\n", gray("outcome:"), entries[i].Message)
				return nil
			}
		}
		fmt.Printf("\n%s\n", gray("outcome: still running or interrupted"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
