// Command mural runs unattended game-art generation campaigns: phased
// image generation with model-scored acceptance, polish passes, and an
// append-only event log.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muralgen/mural/internal/config"
)

var (
	cfgFile string
	appCfg  *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mural",
	Short: "Unattended multi-phase game art generation",
	Long: `Mural runs autoplay image generation campaigns for game art.

A campaign walks a fixed phase order (sketch, gameplay, poster, hud),
generating images slot by slot. Each image is scored by a vision model
against the campaign brief; failing results are retried with the
judge's feedback, marginal ones get a rescue polish pass, and accepted
images are saved along with a full event log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitViper(cfgFile); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appCfg = cfg
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: "+config.ConfigDir()+"/config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
