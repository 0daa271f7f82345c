package prompt

import (
	"strings"
	"testing"

	"github.com/muralgen/mural/internal/types"
)

func TestBuild_IncludesIdeaAndFeedback(t *testing.T) {
	pc := &types.PromptContext{
		Phase:     types.PhaseSketch,
		Idea:      "derelict space elevator",
		Feedback:  []string{"stronger foreground contrast", "less empty sky"},
		Strengths: []string{"silhouette of the tether"},
	}

	got := Build(pc)

	for _, want := range []string{
		"derelict space elevator",
		"stronger foreground contrast; less empty sky",
		"silhouette of the tether",
		"Concept sketch",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuild_BiasIsOptional(t *testing.T) {
	pc := &types.PromptContext{Phase: types.PhaseGameplay, Idea: "lava caves"}
	got := Build(pc)
	if !strings.Contains(got, "lava caves") {
		t.Errorf("prompt missing idea: %s", got)
	}

	pc.Bias = &types.LearnedBias{
		Palettes:     []string{"teal", "amber"},
		StyleWeights: map[string]float64{"painterly": 0.8, "pixel": 0.3},
	}
	got = Build(pc)
	if !strings.Contains(got, "teal, amber") {
		t.Errorf("prompt missing palette: %s", got)
	}
	if !strings.Contains(got, "painterly") {
		t.Errorf("prompt missing dominant style: %s", got)
	}
}

func TestBuild_EnrichmentCarriesSourcePrompt(t *testing.T) {
	pc := &types.PromptContext{
		Phase:  types.PhaseHUD,
		Source: &types.ImageHandle{Prompt: "knight crossing a rope bridge"},
	}
	got := Build(pc)
	if !strings.Contains(got, "knight crossing a rope bridge") {
		t.Errorf("enrichment prompt missing source scene: %s", got)
	}
	if !strings.Contains(got, "heads-up display") {
		t.Errorf("enrichment prompt missing HUD directive: %s", got)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	pc := &types.PromptContext{
		Phase: types.PhaseSketch,
		Bias: &types.LearnedBias{
			// Equal weights; the tie must resolve the same way every time
			StyleWeights: map[string]float64{"b-style": 0.5, "a-style": 0.5},
		},
	}
	first := Build(pc)
	for i := 0; i < 20; i++ {
		if got := Build(pc); got != first {
			t.Fatalf("Build is not deterministic:\n%s\nvs\n%s", first, got)
		}
	}
	if !strings.Contains(first, "a-style") {
		t.Errorf("tie should resolve to lexicographically smallest key: %s", first)
	}
}

func TestBuildPolish_RescueUsesImprovements(t *testing.T) {
	eval := &types.ImageEvaluation{
		Improvements: []string{"fix hand anatomy"},
		Strengths:    []string{"color harmony"},
	}
	got := BuildPolish(eval, types.DecisionRescuePolish, types.IntensitySubtle)
	if !strings.Contains(got, "fix hand anatomy") {
		t.Errorf("rescue prompt missing improvements: %s", got)
	}
	if !strings.Contains(got, "color harmony") {
		t.Errorf("rescue prompt missing strengths: %s", got)
	}
}

func TestBuildPolish_ExcellenceIntensity(t *testing.T) {
	eval := &types.ImageEvaluation{}

	subtle := BuildPolish(eval, types.DecisionExcellencePolish, types.IntensitySubtle)
	creative := BuildPolish(eval, types.DecisionExcellencePolish, types.IntensityCreative)

	if subtle == creative {
		t.Error("subtle and creative polish prompts should differ")
	}
	if !strings.Contains(subtle, "Subtly refine") {
		t.Errorf("unexpected subtle prompt: %s", subtle)
	}
	if !strings.Contains(creative, "creative liberties") {
		t.Errorf("unexpected creative prompt: %s", creative)
	}
}
