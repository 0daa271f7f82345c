package ai

import (
	"strings"
	"testing"

	"github.com/muralgen/mural/internal/types"
)

func TestBuildEvalPrompt(t *testing.T) {
	pc := &types.PromptContext{
		Phase:      types.PhaseSketch,
		Iteration:  2,
		Idea:       "neon city racer",
		PromptText: "a rough concept sketch of the hero vehicle",
		Feedback:   []string{"more contrast", "tighter framing"},
	}
	prompt := buildEvalPrompt(pc)

	for _, want := range []string{"sketch", "hero vehicle", "neon city racer", "more contrast", `"score"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildEvalPrompt_FirstIterationHasNoFeedbackSection(t *testing.T) {
	pc := &types.PromptContext{
		Phase:      types.PhaseGameplay,
		Iteration:  1,
		PromptText: "an in-game screenshot",
	}
	prompt := buildEvalPrompt(pc)
	if strings.Contains(prompt, "previous attempt") {
		t.Error("first iteration prompt should not mention a previous attempt")
	}
}

func TestBuildSelectionPrompt(t *testing.T) {
	prompt := buildSelectionPrompt(4, "strongest poster composition")
	for _, want := range []string{"4 candidate", "strongest poster composition", "0-3", `"selected_index"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
