package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/storage/sqlite"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the persisted campaign event log",
	Long: `Display log entries from past and running campaigns.

By default the most recent entries across all campaigns are shown.
Filter to one campaign with --campaign, or to the text/image view
with --category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		categoryStr, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := sqlite.New(appCfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		var entries []*events.LogEntry
		if campaignID != "" {
			entries, err = store.GetEntriesByCampaign(ctx, campaignID)
		} else {
			entries, err = store.GetRecentEntries(ctx, limit)
		}
		if err != nil {
			return err
		}

		if categoryStr != "" {
			category := events.Category(categoryStr)
			filtered := entries[:0]
			for _, e := range entries {
				if e.Category == category {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}

		if len(entries) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Println(gray("No events found"))
			return nil
		}

		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, e := range entries {
			scope := e.Phase
			if e.SlotIndex >= 0 {
				scope = fmt.Sprintf("%s[%d]", e.Phase, e.SlotIndex)
			}
			line := fmt.Sprintf("%s  %-22s %-12s %s",
				e.Timestamp.Format("15:04:05"), e.Type, scope, e.Message)
			switch e.Severity {
			case events.SeverityError:
				fmt.Println(red(line))
			case events.SeverityWarning:
				fmt.Println(yellow(line))
			default:
				if e.Category == events.CategoryText {
					fmt.Println(gray(line))
				} else {
					fmt.Println(line)
				}
			}
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("campaign", "", "show all entries for one campaign")
	eventsCmd.Flags().String("category", "", "filter by category (text|image)")
	eventsCmd.Flags().Int("limit", 50, "max entries when showing recent events")
	rootCmd.AddCommand(eventsCmd)
}
