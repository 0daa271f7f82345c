package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/muralgen/mural/internal/ai"
	"github.com/muralgen/mural/internal/campaign"
	"github.com/muralgen/mural/internal/config"
	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/iterate"
	"github.com/muralgen/mural/internal/prompt"
	"github.com/muralgen/mural/internal/storage/sqlite"
	"github.com/muralgen/mural/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run [preset.yaml]",
	Short: "Run a campaign to completion",
	Long: `Run one campaign from a preset file.

The campaign runs unattended until every phase finishes. Ctrl+C
requests a graceful stop: the in-flight image finishes, everything
saved so far is kept, and the campaign ends as aborted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var campaignCfg *types.CampaignConfig
		if len(args) > 0 {
			cfg, err := config.LoadCampaignPreset(args[0])
			if err != nil {
				return err
			}
			campaignCfg = cfg
		} else {
			campaignCfg = config.DefaultCampaign()
		}

		if idea, _ := cmd.Flags().GetString("idea"); idea != "" {
			campaignCfg.Idea = idea
		}
		if campaignCfg.Idea == "" {
			return fmt.Errorf("no campaign idea: set one in the preset or pass --idea")
		}

		store, err := sqlite.New(appCfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		retry := ai.DefaultRetryConfig()
		retry.MaxRetries = appCfg.API.MaxRetries
		retry.Timeout = time.Duration(appCfg.API.TimeoutSeconds) * time.Second
		retry.MaxConcurrentCalls = appCfg.API.MaxConcurrentCalls

		client, err := ai.NewClient(&ai.Config{
			JudgeModel: appCfg.Models.Judge,
			ImageModel: appCfg.Models.Image,
			ImageSize:  appCfg.Models.ImageSize,
			Retry:      retry,
		})
		if err != nil {
			return err
		}

		log := events.NewLog(store)
		defer log.Close()

		// The controller and the orchestrator must share one campaign ID
		// or slot events and save intents land under a different key than
		// the phase events.
		campaignID, _ := cmd.Flags().GetString("campaign-id")
		if campaignID == "" {
			campaignID = uuid.New().String()
		}

		controller, err := iterate.NewController(iterate.Config{
			Generator:         client,
			Evaluator:         client,
			Polisher:          client,
			Saver:             store,
			Log:               log,
			BuildPrompt:       prompt.Build,
			BuildPolishPrompt: prompt.BuildPolish,
			Campaign:          campaignCfg,
			CampaignID:        campaignID,
		})
		if err != nil {
			return err
		}

		orch, err := campaign.New(campaign.Config{
			Slots:      controller,
			Selector:   client,
			Saver:      store,
			Log:        log,
			Campaign:   campaignCfg,
			CampaignID: campaignID,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Fprintf(os.Stderr, "\n%s stop requested, finishing the current image...\n", yellow("●"))
			orch.Abort()
			<-sigCh
			fmt.Fprintln(os.Stderr, "force quit")
			cancel()
		}()

		sub, unsubscribe := log.Subscribe()
		defer unsubscribe()
		go streamEvents(sub)

		if err := orch.Start(ctx); err != nil {
			return err
		}
		<-orch.Done()

		printSummary(orch.State())
		if state := orch.State(); state.Status == types.CampaignErrored {
			return fmt.Errorf("campaign failed: %s", state.Error)
		}
		return nil
	},
}

// streamEvents prints the live event feed, one line per entry.
func streamEvents(sub <-chan *events.LogEntry) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	for entry := range sub {
		switch entry.Type {
		case events.EventTypePhaseStarted, events.EventTypePhaseCompleted,
			events.EventTypeCampaignStarted, events.EventTypeCampaignFinished:
			fmt.Printf("%s %s\n", cyan("▶"), entry.Message)
		case events.EventTypeImageSaved:
			fmt.Printf("%s %s\n", green("✓"), entry.Message)
		case events.EventTypeImageRejected, events.EventTypePolishNoImprovement:
			fmt.Printf("%s %s\n", yellow("✗"), entry.Message)
		default:
			switch entry.Severity {
			case events.SeverityError:
				fmt.Printf("%s %s\n", red("!"), entry.Message)
			case events.SeverityWarning:
				fmt.Printf("%s %s\n", yellow("!"), entry.Message)
			default:
				fmt.Printf("  %s\n", gray(entry.Message))
			}
		}
	}
}

func printSummary(state types.CampaignState) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n", cyan("=== Campaign Summary ==="))
	statusStr := green(string(state.Status))
	switch state.Status {
	case types.CampaignErrored:
		statusStr = red(string(state.Status))
	case types.CampaignAborted:
		statusStr = yellow(string(state.Status))
	}
	fmt.Printf("Campaign %s: %s\n", state.ID, statusStr)

	for _, phase := range types.PhaseOrder {
		progress := state.Progress[phase]
		status := state.PhaseStatuses[phase]
		line := fmt.Sprintf("  %-8s %-8s %d/%d saved", phase, status, progress.Saved, progress.Target)
		if status == types.PhaseSkipped {
			fmt.Println(gray(line))
		} else {
			fmt.Println(line)
		}
	}
	fmt.Printf("Total images saved: %d\n", state.TotalSaved)
	if state.Error != "" {
		fmt.Printf("%s %s\n", red("Error:"), state.Error)
	}
}

func init() {
	runCmd.Flags().String("idea", "", "campaign idea, overrides the preset")
	runCmd.Flags().String("campaign-id", "", "campaign identifier (default: generated)")
	rootCmd.AddCommand(runCmd)
}
