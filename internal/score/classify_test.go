package score

import (
	"testing"

	"github.com/muralgen/mural/internal/types"
)

func testPolicy(rescue, excellence bool) types.PolishPolicy {
	return types.PolishPolicy{
		RescueEnabled:       rescue,
		RescueFloor:         50,
		ExcellenceEnabled:   excellence,
		ExcellenceFloor:     70,
		ExcellenceCeiling:   90,
		ExcellenceIntensity: types.IntensitySubtle,
		MaxPolishAttempts:   1,
	}
}

func TestClassify_Boundaries(t *testing.T) {
	const threshold = 70

	tests := []struct {
		name       string
		score      int
		rescue     bool
		excellence bool
		want       types.Decision
	}{
		{"below rescue floor", 49, true, true, types.DecisionReject},
		{"at rescue floor", 50, true, true, types.DecisionRescuePolish},
		{"at rescue floor, rescue disabled", 50, false, true, types.DecisionReject},
		{"just below threshold", 69, true, true, types.DecisionRescuePolish},
		{"just below threshold, rescue disabled", 69, false, true, types.DecisionReject},
		{"at threshold, excellence enabled", 70, true, true, types.DecisionExcellencePolish},
		{"at threshold, excellence disabled", 70, true, false, types.DecisionAccept},
		{"at ceiling, excellence enabled", 90, true, true, types.DecisionExcellencePolish},
		{"at ceiling, excellence disabled", 90, true, false, types.DecisionAccept},
		{"above ceiling", 91, true, true, types.DecisionAccept},
		{"perfect score", 100, true, true, types.DecisionAccept},
		{"zero score", 0, true, true, types.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.score, testPolicy(tt.rescue, tt.excellence), threshold)
			if got != tt.want {
				t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestClassify_AcceptBandBetweenThresholdAndExcellenceFloor(t *testing.T) {
	// With an excellence floor above the approval threshold, scores in
	// between are plain accepts even when excellence is enabled.
	policy := testPolicy(true, true)
	policy.ExcellenceFloor = 80

	for s := 70; s < 80; s++ {
		if got := Classify(s, policy, 70); got != types.DecisionAccept {
			t.Errorf("Classify(%d) = %s, want accept", s, got)
		}
	}
}

func TestClassify_Totality(t *testing.T) {
	// Every score 0-100 maps to exactly one valid decision for every
	// combination of rescue/excellence flags.
	for _, rescue := range []bool{false, true} {
		for _, excellence := range []bool{false, true} {
			policy := testPolicy(rescue, excellence)
			for s := 0; s <= 100; s++ {
				d := Classify(s, policy, 70)
				if !d.IsValid() {
					t.Fatalf("Classify(%d, rescue=%v, excellence=%v) returned invalid decision %q",
						s, rescue, excellence, d)
				}
			}
		}
	}
}

func TestClassify_RejectNeverPolishedBelowFloor(t *testing.T) {
	// Scores below the rescue floor reject even with rescue enabled;
	// they are not worth the polish API cost.
	policy := testPolicy(true, true)
	for s := 0; s < policy.RescueFloor; s++ {
		if got := Classify(s, policy, 70); got != types.DecisionReject {
			t.Errorf("Classify(%d) = %s, want reject", s, got)
		}
	}
}
