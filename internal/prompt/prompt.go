// Package prompt assembles generation and polish prompts from campaign
// configuration and iteration feedback. Everything here is pure; the
// orchestrator calls through a PromptBuilder function value so a UI
// layer can substitute its own templating.
package prompt

import (
	"fmt"
	"strings"

	"github.com/muralgen/mural/internal/types"
)

// phaseDirectives sets the framing per phase. Wording is deliberately
// plain; campaign-specific flavor comes from the idea and bias.
var phaseDirectives = map[types.Phase]string{
	types.PhaseSketch:   "Concept sketch for a video game. Loose, expressive linework establishing the core visual idea.",
	types.PhaseGameplay: "In-game screenshot of a video game. Third-person camera, readable silhouettes, action mid-frame.",
	types.PhasePoster:   "Promotional poster artwork for a video game. Strong focal composition, title-safe margins.",
	types.PhaseHUD:      "The same game scene with a heads-up display overlaid: health, minimap, and objective markers that match the game's art style.",
}

// Build constructs the generation prompt for one iteration. Feedback
// from the previous iteration's evaluation is appended as directives;
// strengths are called out so the generator preserves them.
func Build(pc *types.PromptContext) string {
	var b strings.Builder

	b.WriteString(phaseDirectives[pc.Phase])

	if pc.Idea != "" {
		fmt.Fprintf(&b, " Theme: %s.", pc.Idea)
	}

	if pc.Source != nil && pc.Source.Prompt != "" {
		fmt.Fprintf(&b, " Base scene: %s.", pc.Source.Prompt)
	}

	if bias := pc.Bias; bias != nil {
		if len(bias.Palettes) > 0 {
			fmt.Fprintf(&b, " Preferred palette: %s.", strings.Join(bias.Palettes, ", "))
		}
		if bias.Notes != "" {
			fmt.Fprintf(&b, " Style notes: %s.", bias.Notes)
		}
		if len(bias.StyleWeights) > 0 {
			if top := dominantStyle(bias.StyleWeights); top != "" {
				fmt.Fprintf(&b, " Lean toward a %s style.", top)
			}
		}
	}

	if len(pc.Strengths) > 0 {
		fmt.Fprintf(&b, " Keep from the previous attempt: %s.", strings.Join(pc.Strengths, "; "))
	}
	if len(pc.Feedback) > 0 {
		fmt.Fprintf(&b, " Fix from the previous attempt: %s.", strings.Join(pc.Feedback, "; "))
	}

	return b.String()
}

// BuildPolish constructs the revision prompt for a polish pass. Rescue
// polish targets the evaluator's concrete complaints; excellence polish
// asks for refinement at the configured intensity without changing what
// already works.
func BuildPolish(eval *types.ImageEvaluation, decision types.Decision, intensity types.ExcellenceIntensity) string {
	var b strings.Builder

	switch decision {
	case types.DecisionRescuePolish:
		b.WriteString("Revise this image to address the following problems while keeping the composition intact")
		if len(eval.Improvements) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(eval.Improvements, "; "))
		}
		b.WriteString(".")
	case types.DecisionExcellencePolish:
		if intensity == types.IntensityCreative {
			b.WriteString("Elevate this image with bolder lighting, richer detail, and a more dramatic mood. Take creative liberties where they strengthen the piece.")
		} else {
			b.WriteString("Subtly refine this image: cleaner edges, better material definition, tighter values. Change nothing about the composition or palette.")
		}
	}

	if len(eval.Strengths) > 0 {
		fmt.Fprintf(&b, " Preserve: %s.", strings.Join(eval.Strengths, "; "))
	}

	return b.String()
}

// dominantStyle returns the highest-weighted style key, or "" if the
// map is empty. Ties resolve to the lexicographically smallest key so
// prompt construction stays deterministic.
func dominantStyle(weights map[string]float64) string {
	best := ""
	bestW := 0.0
	for k, w := range weights {
		if w > bestW || (w == bestW && (best == "" || k < best)) {
			best = k
			bestW = w
		}
	}
	return best
}
