package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/muralgen/mural/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter campaign preset",
	Long: `Write a commented starter preset to the given path (default
mural.yaml). Edit the preset and pass it to "mural run".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "mural.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteStarterPreset(path); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Wrote starter preset to %s\n", green("✓"), path)
		fmt.Println("Edit it, then start a campaign with:")
		fmt.Printf("  mural run %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
