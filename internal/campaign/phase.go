package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/iterate"
	"github.com/muralgen/mural/internal/types"
)

// runPhase dispatches one phase to its runner. A phase whose target is
// zero or whose precondition is unmet is skipped without ever becoming
// active.
func (o *Orchestrator) runPhase(ctx context.Context, phase types.Phase) types.PhaseResult {
	switch phase {
	case types.PhaseSketch:
		return o.runCountedPhase(ctx, phase, o.cfg.Campaign.SketchTarget)
	case types.PhaseGameplay:
		return o.runCountedPhase(ctx, phase, o.cfg.Campaign.GameplayTarget)
	case types.PhasePoster:
		return o.runSelectionPhase(ctx, phase)
	case types.PhaseHUD:
		return o.runEnrichmentPhase(ctx, phase)
	}
	return types.PhaseResult{Phase: phase, Status: types.PhaseSkipped}
}

// beginPhase marks the phase active and records its resolved target.
// Derived phases only learn their target here.
func (o *Orchestrator) beginPhase(ctx context.Context, phase types.Phase, target int) {
	o.updateState(func(s *types.CampaignState) {
		s.CurrentPhase = phase
		s.PhaseStatuses[phase] = types.PhaseActive
		s.Progress[phase] = types.PhaseProgress{Target: target}
	})
	o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypePhaseStarted, o.cfg.CampaignID, string(phase),
		events.SeverityInfo, fmt.Sprintf("phase %s started (target %d)", phase, target),
		map[string]interface{}{"target": target}))
}

// skipPhase records a skip without activating the phase.
func (o *Orchestrator) skipPhase(ctx context.Context, phase types.Phase, reason string) types.PhaseResult {
	o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypePhaseCompleted, o.cfg.CampaignID, string(phase),
		events.SeverityInfo, fmt.Sprintf("phase %s skipped: %s", phase, reason), nil))
	return types.PhaseResult{Phase: phase, Status: types.PhaseSkipped}
}

// endPhase settles the phase status from saved-vs-target and logs it.
func (o *Orchestrator) endPhase(ctx context.Context, phase types.Phase, saved, target int) types.PhaseResult {
	status := types.PhaseComplete
	if saved < target {
		status = types.PhasePartial
	}
	o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypePhaseCompleted, o.cfg.CampaignID, string(phase),
		events.SeverityInfo, fmt.Sprintf("phase %s finished: %d/%d slots saved", phase, saved, target),
		map[string]interface{}{"saved": saved, "target": target, "status": string(status)}))
	return types.PhaseResult{Phase: phase, Status: status, CompletedSlots: saved, Target: target}
}

// runCountedPhase fills target slots through the iteration loop. An
// exhausted slot is skipped and the phase moves on; an errored slot
// fails the whole phase. Abort requests are honored between slots.
func (o *Orchestrator) runCountedPhase(ctx context.Context, phase types.Phase, target int) types.PhaseResult {
	if target == 0 {
		return o.skipPhase(ctx, phase, "target is zero")
	}
	o.beginPhase(ctx, phase, target)

	saved := 0
	for slot := 0; slot < target; slot++ {
		if o.aborted(ctx) {
			return o.endPhase(ctx, phase, saved, target)
		}

		result := o.cfg.Slots.RunSlot(ctx, iterate.SlotParams{Phase: phase, SlotIndex: slot})
		switch result.Outcome {
		case types.SlotSaved:
			saved++
			o.recordSave(phase, result.Saved)
		case types.SlotErrored:
			o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypeError, o.cfg.CampaignID, string(phase),
				events.SeverityError, fmt.Sprintf("slot %d failed: %s", slot, result.Err), nil))
			return types.PhaseResult{Phase: phase, Status: types.PhaseErrored, CompletedSlots: saved, Target: target, Err: result.Err}
		}
		// SlotExhausted leaves the slot unfilled
	}
	return o.endPhase(ctx, phase, saved, target)
}

// runSelectionPhase picks the best sketch candidate as the poster. A
// selector fault leaves the phase partial; the campaign continues
// since the poster is a bonus artifact, not part of the counted work.
func (o *Orchestrator) runSelectionPhase(ctx context.Context, phase types.Phase) types.PhaseResult {
	if !o.cfg.Campaign.PosterEnabled {
		return o.skipPhase(ctx, phase, "poster disabled")
	}
	if len(o.sketchHandles) == 0 {
		return o.skipPhase(ctx, phase, "no sketch candidates to select from")
	}
	o.beginPhase(ctx, phase, 1)

	criteria := "Pick the image that would work best as a promotional poster: strong silhouette, readable at a distance, eye-catching composition."
	selection, err := o.cfg.Selector.SelectBest(ctx, o.sketchHandles, criteria)
	if err != nil {
		o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypeError, o.cfg.CampaignID, string(phase),
			events.SeverityWarning, fmt.Sprintf("poster selection failed: %v", err), nil))
		return o.endPhase(ctx, phase, 0, 1)
	}
	if selection.SelectedIndex < 0 || selection.SelectedIndex >= len(o.sketchHandles) {
		o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypeError, o.cfg.CampaignID, string(phase),
			events.SeverityWarning, fmt.Sprintf("poster selection index %d out of range (%d candidates)", selection.SelectedIndex, len(o.sketchHandles)), nil))
		return o.endPhase(ctx, phase, 0, 1)
	}

	chosen := o.sketchHandles[selection.SelectedIndex]
	poster := *chosen
	poster.ID = uuid.New().String()
	poster.Phase = phase

	intent := &types.SaveIntent{
		CampaignID: o.cfg.CampaignID,
		Phase:      phase,
		SlotIndex:  0,
		Image:      &poster,
		PromptText: chosen.Prompt,
		SavedAt:    time.Now(),
	}
	if err := o.cfg.Saver.SaveImage(ctx, intent); err != nil {
		o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypeError, o.cfg.CampaignID, string(phase),
			events.SeverityWarning, fmt.Sprintf("poster save failed: %v", err), nil))
		return o.endPhase(ctx, phase, 0, 1)
	}

	o.recordSave(phase, intent)
	o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypeImageSaved, o.cfg.CampaignID, string(phase),
		events.SeverityInfo, fmt.Sprintf("poster selected from candidate %d: %s", selection.SelectedIndex, selection.Reasoning),
		map[string]interface{}{"selected_index": selection.SelectedIndex, "confidence": selection.Confidence}))
	return o.endPhase(ctx, phase, 1, 1)
}

// runEnrichmentPhase runs one single-iteration pass per accepted
// gameplay image. Each source succeeds or fails independently; a slot
// fault degrades that slot rather than failing the phase.
func (o *Orchestrator) runEnrichmentPhase(ctx context.Context, phase types.Phase) types.PhaseResult {
	if !o.cfg.Campaign.HUDEnabled {
		return o.skipPhase(ctx, phase, "hud disabled")
	}
	sources := o.gameplayHandles
	if len(sources) == 0 {
		return o.skipPhase(ctx, phase, "no gameplay images to enrich")
	}
	target := len(sources)
	o.beginPhase(ctx, phase, target)

	saved := 0
	for slot, src := range sources {
		if o.aborted(ctx) {
			return o.endPhase(ctx, phase, saved, target)
		}

		result := o.cfg.Slots.RunSlot(ctx, iterate.SlotParams{
			Phase:         phase,
			SlotIndex:     slot,
			MaxIterations: 1,
			Source:        src,
		})
		switch result.Outcome {
		case types.SlotSaved:
			saved++
			o.recordSave(phase, result.Saved)
		case types.SlotErrored:
			o.cfg.Log.Append(ctx, events.NewPhaseEntry(events.EventTypeError, o.cfg.CampaignID, string(phase),
				events.SeverityWarning, fmt.Sprintf("enrichment of source %s failed: %s", src.ID, result.Err), nil))
		}
	}
	return o.endPhase(ctx, phase, saved, target)
}

// recordSave bumps the phase progress and retains accepted handles the
// derived phases consume.
func (o *Orchestrator) recordSave(phase types.Phase, intent *types.SaveIntent) {
	if intent != nil && intent.Image != nil {
		switch phase {
		case types.PhaseSketch:
			o.sketchHandles = append(o.sketchHandles, intent.Image)
		case types.PhaseGameplay:
			o.gameplayHandles = append(o.gameplayHandles, intent.Image)
		}
	}
	o.updateState(func(s *types.CampaignState) {
		p := s.Progress[phase]
		p.Saved++
		s.Progress[phase] = p
	})
}
