// Package score maps raw evaluation scores to accept/polish/reject
// decisions. Classification is pure and total: every score maps to
// exactly one decision for a given policy.
package score

import "github.com/muralgen/mural/internal/types"

// Classify maps a quality score to a decision under the given polish
// policy and approval threshold.
//
// Bands, in order:
//   - below RescueFloor: reject outright, never polished
//   - [RescueFloor, approvalThreshold): rescue polish if enabled, else reject
//   - [approvalThreshold, ExcellenceFloor): accept as-is
//   - [ExcellenceFloor, ExcellenceCeiling]: excellence polish if enabled, else accept
//   - above ExcellenceCeiling: accept as-is
func Classify(score int, policy types.PolishPolicy, approvalThreshold int) types.Decision {
	switch {
	case score < policy.RescueFloor:
		return types.DecisionReject

	case score < approvalThreshold:
		if policy.RescueEnabled {
			return types.DecisionRescuePolish
		}
		return types.DecisionReject

	case score < policy.ExcellenceFloor:
		return types.DecisionAccept

	case score <= policy.ExcellenceCeiling:
		if policy.ExcellenceEnabled {
			return types.DecisionExcellencePolish
		}
		return types.DecisionAccept

	default:
		return types.DecisionAccept
	}
}
