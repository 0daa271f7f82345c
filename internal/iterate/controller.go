// Package iterate drives the per-slot generation loop: generate an
// image, score it against the campaign thresholds, and accept, polish,
// or retry until the slot is saved or iterations run out. The loop
// mechanics live here; collaborator clients and decision thresholds are
// injected.
package iterate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/score"
	"github.com/muralgen/mural/internal/types"
)

// PolishPromptBuilder builds the revision prompt for a polish pass.
// Pure, like types.PromptBuilder.
type PolishPromptBuilder func(eval *types.ImageEvaluation, decision types.Decision, intensity types.ExcellenceIntensity) string

// Config holds the controller's collaborators and campaign settings.
type Config struct {
	Generator types.Generator
	Evaluator types.Evaluator
	// Polisher may be nil; polishing then degrades to skipped
	Polisher types.Polisher
	Saver    types.Saver
	Log      *events.Log

	BuildPrompt       types.PromptBuilder
	BuildPolishPrompt PolishPromptBuilder

	Campaign   *types.CampaignConfig
	CampaignID string
}

// Controller runs the iteration loop for individual image slots.
// A single controller is shared across all slots of a campaign; all
// per-slot state is local to RunSlot.
type Controller struct {
	cfg Config
}

// NewController validates the configuration and creates a controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.Saver == nil {
		return nil, fmt.Errorf("saver is required")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("event log is required")
	}
	if cfg.BuildPrompt == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}
	if cfg.BuildPolishPrompt == nil {
		return nil, fmt.Errorf("polish prompt builder is required")
	}
	if cfg.Campaign == nil {
		return nil, fmt.Errorf("campaign config is required")
	}
	return &Controller{cfg: cfg}, nil
}

// SlotParams identifies one image slot to fill.
type SlotParams struct {
	Phase     types.Phase
	SlotIndex int
	// MaxIterations overrides the campaign's per-image bound when > 0.
	// Enrichment phases use this to run a single pass per source image.
	MaxIterations int
	// Source is the image being enriched, nil outside enrichment
	Source *types.ImageHandle
}

// RunSlot drives one slot to a terminal result. Within the slot the
// order is strictly generate -> evaluate -> (polish) -> decision; a
// collaborator failure consumes the iteration rather than retrying
// in place, and running out of iterations is a normal outcome.
func (c *Controller) RunSlot(ctx context.Context, p SlotParams) *types.SlotResult {
	maxIterations := p.MaxIterations
	if maxIterations <= 0 {
		maxIterations = c.cfg.Campaign.MaxIterationsPerImage
	}
	policy := c.cfg.Campaign.Polish

	var attempts []*types.IterationAttempt
	var feedback, strengths []string
	polishCalls := 0

	for iteration := 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return c.errored(attempts, nil, fmt.Errorf("slot canceled at iteration %d: %w", iteration, err))
		}

		attempt := &types.IterationAttempt{IterationNumber: iteration}
		attempts = append(attempts, attempt)
		lastIteration := iteration == maxIterations

		pc := &types.PromptContext{
			CampaignID: c.cfg.CampaignID,
			Phase:      p.Phase,
			SlotIndex:  p.SlotIndex,
			Iteration:  iteration,
			Idea:       c.cfg.Campaign.Idea,
			Feedback:   feedback,
			Strengths:  strengths,
			Bias:       c.cfg.Campaign.Bias,
			Source:     p.Source,
		}
		pc.PromptText = c.cfg.BuildPrompt(pc)

		c.logSlot(ctx, events.EventTypePromptGenerated, p, iteration, events.SeverityInfo,
			fmt.Sprintf("prompt built for %s slot %d iteration %d", p.Phase, p.SlotIndex, iteration),
			map[string]interface{}{"prompt": pc.PromptText})

		c.logSlot(ctx, events.EventTypeImageGenerating, p, iteration, events.SeverityInfo,
			fmt.Sprintf("generating %s image (iteration %d/%d)", p.Phase, iteration, maxIterations), nil)

		img, err := c.cfg.Generator.Generate(ctx, pc)
		if err != nil {
			attempt.Err = fmt.Sprintf("generation failed: %v", err)
			c.logSlot(ctx, events.EventTypeImageFailed, p, iteration, events.SeverityWarning, attempt.Err, nil)
			if lastIteration {
				return c.errored(attempts, attempt, fmt.Errorf("generation failed on final iteration: %w", err))
			}
			c.iterationDone(ctx, p, iteration)
			continue
		}
		attempt.Image = img
		c.logSlot(ctx, events.EventTypeImageComplete, p, iteration, events.SeverityInfo,
			fmt.Sprintf("image %s generated", img.ID), nil)

		eval, err := c.cfg.Evaluator.Evaluate(ctx, img, pc)
		if err != nil {
			attempt.Err = fmt.Sprintf("evaluation failed: %v", err)
			c.logSlot(ctx, events.EventTypeImageFailed, p, iteration, events.SeverityWarning, attempt.Err, nil)
			if lastIteration {
				return c.errored(attempts, attempt, fmt.Errorf("evaluation failed on final iteration: %w", err))
			}
			c.iterationDone(ctx, p, iteration)
			continue
		}
		attempt.Evaluation = eval

		decision := score.Classify(eval.Score, policy, c.cfg.Campaign.ApprovalThreshold)
		attempt.Decision = decision

		switch decision {
		case types.DecisionAccept:
			c.logSlot(ctx, events.EventTypeImageApproved, p, iteration, events.SeverityInfo,
				fmt.Sprintf("score %d meets threshold %d", eval.Score, c.cfg.Campaign.ApprovalThreshold), nil)
			return c.accept(ctx, p, iteration, attempts, attempt, img, eval.Score, false)

		case types.DecisionRescuePolish, types.DecisionExcellencePolish:
			polished, polishedEval := c.tryPolish(ctx, p, iteration, attempt, img, eval, decision, &polishCalls)
			if polished != nil {
				return c.accept(ctx, p, iteration, attempts, attempt, polished, polishedEval.Score, true)
			}
			if decision == types.DecisionExcellencePolish {
				// The original already cleared the approval threshold;
				// a failed excellence polish never costs the slot.
				c.logSlot(ctx, events.EventTypeImageApproved, p, iteration, events.SeverityInfo,
					fmt.Sprintf("score %d accepted; excellence polish did not improve it", eval.Score), nil)
				return c.accept(ctx, p, iteration, attempts, attempt, img, eval.Score, false)
			}
			// Unimproved rescue polish falls through to the reject path
			fallthrough

		case types.DecisionReject:
			c.logSlot(ctx, events.EventTypeImageRejected, p, iteration, events.SeverityInfo,
				fmt.Sprintf("score %d rejected (threshold %d)", eval.Score, c.cfg.Campaign.ApprovalThreshold),
				map[string]interface{}{"score": eval.Score, "feedback": eval.Feedback})

			if !lastIteration {
				feedback = eval.Improvements
				strengths = eval.Strengths
				c.logSlot(ctx, events.EventTypeFeedbackApplied, p, iteration, events.SeverityInfo,
					fmt.Sprintf("carrying %d improvement notes into iteration %d", len(feedback), iteration+1), nil)
				c.iterationDone(ctx, p, iteration)
				continue
			}

			c.iterationDone(ctx, p, iteration)
			// Exhaustion discards the best-scoring rejected attempt;
			// the slot is simply skipped for saving.
			return &types.SlotResult{
				Outcome:  types.SlotExhausted,
				Attempt:  attempt,
				Attempts: attempts,
			}
		}
	}

	// Unreachable: every iteration either returns or continues, and the
	// final iteration always returns.
	return &types.SlotResult{Outcome: types.SlotExhausted, Attempts: attempts}
}

// tryPolish runs one polish pass and the re-evaluation behind the
// improvement gate. It returns the polished image and its evaluation
// only when the polished result should replace the original; any
// failure or insufficient gain returns nil, nil.
func (c *Controller) tryPolish(ctx context.Context, p SlotParams, iteration int, attempt *types.IterationAttempt, img *types.ImageHandle, eval *types.ImageEvaluation, decision types.Decision, polishCalls *int) (*types.ImageHandle, *types.ImageEvaluation) {
	policy := c.cfg.Campaign.Polish
	outcome := &types.PolishOutcome{}
	attempt.Polish = outcome

	if c.cfg.Polisher == nil || policy.MaxPolishAttempts <= 0 || *polishCalls >= policy.MaxPolishAttempts {
		c.logSlot(ctx, events.EventTypePolishSkipped, p, iteration, events.SeverityInfo,
			fmt.Sprintf("polish skipped for %s decision", decision), nil)
		return nil, nil
	}
	*polishCalls++
	outcome.Attempted = true

	polishPrompt := c.cfg.BuildPolishPrompt(eval, decision, policy.ExcellenceIntensity)
	c.logSlot(ctx, events.EventTypePolishStarted, p, iteration, events.SeverityInfo,
		fmt.Sprintf("%s pass on image %s (score %d)", decision, img.ID, eval.Score), nil)

	polishCtx := ctx
	cancel := context.CancelFunc(func() {})
	if policy.PolishTimeoutMs > 0 {
		polishCtx, cancel = context.WithTimeout(ctx, time.Duration(policy.PolishTimeoutMs)*time.Millisecond)
	}
	polished, err := c.cfg.Polisher.Polish(polishCtx, img, polishPrompt)
	cancel()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			c.logSlot(ctx, events.EventTypeTimeout, p, iteration, events.SeverityWarning,
				fmt.Sprintf("polish timed out after %dms", policy.PolishTimeoutMs), nil)
		} else {
			c.logSlot(ctx, events.EventTypePolishError, p, iteration, events.SeverityWarning,
				fmt.Sprintf("polish failed: %v", err), nil)
		}
		return nil, nil
	}

	polishedEval, err := c.cfg.Evaluator.Evaluate(ctx, polished, &types.PromptContext{
		CampaignID: c.cfg.CampaignID,
		Phase:      p.Phase,
		SlotIndex:  p.SlotIndex,
		Iteration:  iteration,
		Idea:       c.cfg.Campaign.Idea,
		Bias:       c.cfg.Campaign.Bias,
		PromptText: img.Prompt,
	})
	if err != nil {
		c.logSlot(ctx, events.EventTypePolishError, p, iteration, events.SeverityWarning,
			fmt.Sprintf("polished image evaluation failed: %v", err), nil)
		return nil, nil
	}

	outcome.Succeeded = true
	outcome.NewScore = polishedEval.Score

	gain := polishedEval.Score - eval.Score
	if gain < policy.MinScoreImprovement {
		c.logSlot(ctx, events.EventTypePolishNoImprovement, p, iteration, events.SeverityInfo,
			fmt.Sprintf("polish gained %d points, below the %d point gate", gain, policy.MinScoreImprovement), nil)
		return nil, nil
	}

	outcome.UsedPolishedResult = true
	c.logSlot(ctx, events.EventTypeImagePolished, p, iteration, events.SeverityInfo,
		fmt.Sprintf("polished result adopted: %d -> %d", eval.Score, polishedEval.Score), nil)
	return polished, polishedEval
}

// accept emits the save intent for an accepted image and closes out the
// slot. A saver failure is an unrecoverable fault for the slot.
func (c *Controller) accept(ctx context.Context, p SlotParams, iteration int, attempts []*types.IterationAttempt, attempt *types.IterationAttempt, img *types.ImageHandle, finalScore int, usedPolished bool) *types.SlotResult {
	intent := &types.SaveIntent{
		CampaignID:         c.cfg.CampaignID,
		Phase:              p.Phase,
		SlotIndex:          p.SlotIndex,
		Image:              img,
		PromptText:         img.Prompt,
		Score:              finalScore,
		UsedPolishedResult: usedPolished,
		SavedAt:            time.Now(),
	}
	if err := c.cfg.Saver.SaveImage(ctx, intent); err != nil {
		c.logSlot(ctx, events.EventTypeError, p, iteration, events.SeverityError,
			fmt.Sprintf("save intent failed: %v", err), nil)
		return c.errored(attempts, attempt, fmt.Errorf("failed to save accepted image: %w", err))
	}

	c.logSlot(ctx, events.EventTypeImageSaved, p, iteration, events.SeverityInfo,
		fmt.Sprintf("image %s saved for %s slot %d", img.ID, p.Phase, p.SlotIndex),
		map[string]interface{}{"score": finalScore, "used_polished_result": usedPolished})
	c.iterationDone(ctx, p, iteration)

	return &types.SlotResult{
		Outcome:  types.SlotSaved,
		Attempt:  attempt,
		Attempts: attempts,
		Saved:    intent,
	}
}

func (c *Controller) errored(attempts []*types.IterationAttempt, attempt *types.IterationAttempt, err error) *types.SlotResult {
	return &types.SlotResult{
		Outcome:  types.SlotErrored,
		Attempt:  attempt,
		Attempts: attempts,
		Err:      err.Error(),
	}
}

func (c *Controller) iterationDone(ctx context.Context, p SlotParams, iteration int) {
	c.logSlot(ctx, events.EventTypeIterationComplete, p, iteration, events.SeverityInfo,
		fmt.Sprintf("iteration %d complete for %s slot %d", iteration, p.Phase, p.SlotIndex), nil)
}

func (c *Controller) logSlot(ctx context.Context, t events.EventType, p SlotParams, iteration int, sev events.Severity, msg string, details map[string]interface{}) {
	c.cfg.Log.Append(ctx, events.NewSlotEntry(t, c.cfg.CampaignID, string(p.Phase), p.SlotIndex, iteration, sev, msg, details))
}
