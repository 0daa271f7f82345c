package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/muralgen/mural/internal/storage/sqlite"
)

var imagesCmd = &cobra.Command{
	Use:   "images <campaign-id>",
	Short: "List the accepted images of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(appCfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		images, err := store.ListSavedImages(context.Background(), args[0])
		if err != nil {
			return err
		}
		if len(images) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Println(gray("No saved images for this campaign"))
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, img := range images {
			marker := ""
			if img.UsedPolishedResult {
				marker = " (polished)"
			}
			fmt.Printf("%s  %-10s slot %d  score %s%s\n",
				img.SavedAt.Format("15:04:05"), img.Phase, img.SlotIndex,
				green(fmt.Sprintf("%d", img.Score)), marker)
			fmt.Printf("    %s %s\n", gray("id:"), img.ID)
			prompt := img.Prompt
			if len(prompt) > 100 {
				prompt = prompt[:100] + "..."
			}
			fmt.Printf("    %s %s\n", gray("prompt:"), prompt)
		}
		fmt.Printf("\n%d image(s)\n", len(images))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)
}
