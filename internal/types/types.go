package types

import (
	"fmt"
	"time"
)

// Phase identifies one stage of a generation campaign
type Phase string

const (
	PhaseSketch   Phase = "sketch"   // Concept/sketch images
	PhaseGameplay Phase = "gameplay" // Gameplay screenshots
	PhasePoster   Phase = "poster"   // Best-of selection over sketch candidates
	PhaseHUD      Phase = "hud"      // Per-image HUD enrichment of gameplay shots
)

// IsValid checks if the phase value is valid
func (p Phase) IsValid() bool {
	switch p {
	case PhaseSketch, PhaseGameplay, PhasePoster, PhaseHUD:
		return true
	}
	return false
}

// PhaseOrder is the fixed precedence order phases are executed in.
// A phase only becomes active if its target (or precondition, for the
// derived poster/hud phases) is satisfied.
var PhaseOrder = []Phase{PhaseSketch, PhaseGameplay, PhasePoster, PhaseHUD}

// PhaseKind categorizes how a phase is driven
type PhaseKind string

const (
	// KindCounted runs the iteration loop once per target slot
	KindCounted PhaseKind = "counted"
	// KindSelection makes a single best-of-N selection over upstream candidates
	KindSelection PhaseKind = "selection"
	// KindEnrichment runs one enrichment pass per eligible source image
	KindEnrichment PhaseKind = "enrichment"
)

// PhaseStatus represents the lifecycle state of a phase within a campaign
type PhaseStatus string

const (
	PhasePending  PhaseStatus = "pending"
	PhaseActive   PhaseStatus = "active"
	PhaseComplete PhaseStatus = "complete"
	PhasePartial  PhaseStatus = "partial" // Some slots saved, some exhausted
	PhaseSkipped  PhaseStatus = "skipped" // Target was zero or precondition unmet
	PhaseErrored  PhaseStatus = "errored"
)

// IsTerminal reports whether the phase has reached a final state
func (s PhaseStatus) IsTerminal() bool {
	switch s {
	case PhaseComplete, PhasePartial, PhaseSkipped, PhaseErrored:
		return true
	}
	return false
}

// CampaignStatus represents the overall state of a campaign
type CampaignStatus string

const (
	CampaignIdle     CampaignStatus = "idle"
	CampaignRunning  CampaignStatus = "running"
	CampaignComplete CampaignStatus = "complete"
	CampaignAborted  CampaignStatus = "aborted" // User-requested stop; not an error
	CampaignErrored  CampaignStatus = "errored"
)

// IsTerminal reports whether the campaign has reached a final state
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignComplete, CampaignAborted, CampaignErrored:
		return true
	}
	return false
}

// ExcellenceIntensity controls how aggressive an excellence polish pass is
type ExcellenceIntensity string

const (
	IntensitySubtle   ExcellenceIntensity = "subtle"
	IntensityCreative ExcellenceIntensity = "creative"
)

// IsValid checks if the intensity value is valid
func (i ExcellenceIntensity) IsValid() bool {
	switch i {
	case IntensitySubtle, IntensityCreative:
		return true
	}
	return false
}

// PolishPolicy controls when and how failing or near-excellent results
// are sent back for a polish pass instead of being accepted or discarded.
type PolishPolicy struct {
	// RescueEnabled allows polishing marginal failures (score between
	// RescueFloor and the approval threshold) instead of discarding them
	RescueEnabled bool `json:"rescue_enabled" yaml:"rescue_enabled"`
	// RescueFloor is the score below which a result is an outright
	// reject; results this bad are never worth the polish API cost
	RescueFloor int `json:"rescue_floor" yaml:"rescue_floor"`
	// ExcellenceEnabled allows an optional "make it even better" polish
	// for results inside the excellence band
	ExcellenceEnabled bool `json:"excellence_enabled" yaml:"excellence_enabled"`
	// ExcellenceFloor is the lower bound of the excellence band (inclusive)
	ExcellenceFloor int `json:"excellence_floor" yaml:"excellence_floor"`
	// ExcellenceCeiling is the upper bound of the excellence band
	// (inclusive); scores above it are accepted untouched since
	// polishing an already-excellent result risks regression
	ExcellenceCeiling int `json:"excellence_ceiling" yaml:"excellence_ceiling"`
	// ExcellenceIntensity selects the polish prompt register
	ExcellenceIntensity ExcellenceIntensity `json:"excellence_intensity" yaml:"excellence_intensity"`
	// MaxPolishAttempts caps polish calls per slot (0 disables polishing)
	MaxPolishAttempts int `json:"max_polish_attempts" yaml:"max_polish_attempts"`
	// PolishTimeoutMs bounds a single polish call; on timeout the polish
	// is treated as non-improving, never as a fatal error
	PolishTimeoutMs int `json:"polish_timeout_ms" yaml:"polish_timeout_ms"`
	// MinScoreImprovement is the minimum gain a polished result must
	// show over the original before it is preferred
	MinScoreImprovement int `json:"min_score_improvement" yaml:"min_score_improvement"`
}

// Validate checks the polish policy invariants against the approval
// threshold: rescueFloor < approvalThreshold <= excellenceFloor < excellenceCeiling
func (p *PolishPolicy) Validate(approvalThreshold int) error {
	if p.RescueFloor >= approvalThreshold {
		return fmt.Errorf("rescue_floor (%d) must be below approval_threshold (%d)", p.RescueFloor, approvalThreshold)
	}
	if p.ExcellenceFloor < approvalThreshold {
		return fmt.Errorf("excellence_floor (%d) must be at or above approval_threshold (%d)", p.ExcellenceFloor, approvalThreshold)
	}
	if p.ExcellenceFloor >= p.ExcellenceCeiling {
		return fmt.Errorf("excellence_floor (%d) must be below excellence_ceiling (%d)", p.ExcellenceFloor, p.ExcellenceCeiling)
	}
	if p.MaxPolishAttempts < 0 {
		return fmt.Errorf("max_polish_attempts cannot be negative (got %d)", p.MaxPolishAttempts)
	}
	if p.PolishTimeoutMs < 0 {
		return fmt.Errorf("polish_timeout_ms cannot be negative (got %d)", p.PolishTimeoutMs)
	}
	if p.MinScoreImprovement < 0 {
		return fmt.Errorf("min_score_improvement cannot be negative (got %d)", p.MinScoreImprovement)
	}
	if !p.ExcellenceIntensity.IsValid() {
		return fmt.Errorf("invalid excellence_intensity: %s", p.ExcellenceIntensity)
	}
	return nil
}

// CampaignConfig is the immutable configuration for one campaign run.
// It is validated once at campaign start; partial presets are merged
// with defaults before they get here.
type CampaignConfig struct {
	// SketchTarget is the number of sketch images to save
	SketchTarget int `json:"sketch_target" yaml:"sketch_target"`
	// GameplayTarget is the number of gameplay images to save
	GameplayTarget int `json:"gameplay_target" yaml:"gameplay_target"`
	// PosterEnabled turns on the poster selection phase; it only
	// activates if at least one sketch candidate was saved
	PosterEnabled bool `json:"poster_enabled" yaml:"poster_enabled"`
	// HUDEnabled turns on the HUD enrichment phase; its target is the
	// count of accepted gameplay images
	HUDEnabled bool `json:"hud_enabled" yaml:"hud_enabled"`
	// MaxIterationsPerImage bounds the generate/evaluate loop per slot (1-3)
	MaxIterationsPerImage int `json:"max_iterations_per_image" yaml:"max_iterations_per_image"`
	// ApprovalThreshold is the score at or above which a result is
	// accepted outright
	ApprovalThreshold int `json:"approval_threshold" yaml:"approval_threshold"`
	// Polish controls rescue and excellence polishing
	Polish PolishPolicy `json:"polish" yaml:"polish"`
	// Idea is an optional seed prompt idea for the whole campaign
	Idea string `json:"idea,omitempty" yaml:"idea,omitempty"`
	// Bias is optional read-only preference data supplied at campaign
	// start; the orchestrator never mutates it
	Bias *LearnedBias `json:"bias,omitempty" yaml:"bias,omitempty"`
}

// Validate checks the campaign config invariants
func (c *CampaignConfig) Validate() error {
	if c.SketchTarget < 0 || c.GameplayTarget < 0 {
		return fmt.Errorf("phase targets cannot be negative (sketch=%d, gameplay=%d)", c.SketchTarget, c.GameplayTarget)
	}
	if c.SketchTarget == 0 && c.GameplayTarget == 0 {
		return fmt.Errorf("at least one phase target must be greater than zero")
	}
	if c.MaxIterationsPerImage < 1 || c.MaxIterationsPerImage > 3 {
		return fmt.Errorf("max_iterations_per_image must be between 1 and 3 (got %d)", c.MaxIterationsPerImage)
	}
	if c.ApprovalThreshold < 0 || c.ApprovalThreshold > 100 {
		return fmt.Errorf("approval_threshold must be between 0 and 100 (got %d)", c.ApprovalThreshold)
	}
	if err := c.Polish.Validate(c.ApprovalThreshold); err != nil {
		return fmt.Errorf("invalid polish policy: %w", err)
	}
	return nil
}

// LearnedBias is opaque preference data from the preference-learning
// subsystem. The orchestrator passes it through to prompt construction
// and never writes to it.
type LearnedBias struct {
	StyleWeights map[string]float64 `json:"style_weights,omitempty" yaml:"style_weights,omitempty"`
	Palettes     []string           `json:"palettes,omitempty" yaml:"palettes,omitempty"`
	Notes        string             `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ImageHandle is an opaque reference to a generated image. Depending on
// the generation backend it carries a URL, inline base64 data, or both.
type ImageHandle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	B64Data   string    `json:"b64_data,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Prompt    string    `json:"prompt"`
	Phase     Phase     `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageEvaluation is the external evaluator's verdict on one image.
// The orchestrator never mutates it.
type ImageEvaluation struct {
	// Score is the quality score, 0-100
	Score int `json:"score"`
	// Approved is the evaluator's own pass/fail opinion; the
	// orchestrator's decision comes from the score thresholds
	Approved bool `json:"approved"`
	// Feedback is a free-form critique
	Feedback string `json:"feedback,omitempty"`
	// Improvements are concrete changes to try on the next iteration
	Improvements []string `json:"improvements,omitempty"`
	// Strengths are aspects worth preserving across iterations
	Strengths []string `json:"strengths,omitempty"`
}

// PolishOutcome records what a polish pass did for one attempt
type PolishOutcome struct {
	Attempted bool `json:"attempted"`
	Succeeded bool `json:"succeeded"`
	// NewScore is the re-evaluated score of the polished result
	NewScore int `json:"new_score,omitempty"`
	// UsedPolishedResult is true only if the polished result gained at
	// least MinScoreImprovement points over the original
	UsedPolishedResult bool `json:"used_polished_result"`
}

// Decision is the score classifier's verdict for one evaluation
type Decision string

const (
	DecisionAccept           Decision = "accept"
	DecisionRescuePolish     Decision = "rescue_polish"
	DecisionExcellencePolish Decision = "excellence_polish"
	DecisionReject           Decision = "reject"
)

// IsValid checks if the decision value is valid
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAccept, DecisionRescuePolish, DecisionExcellencePolish, DecisionReject:
		return true
	}
	return false
}

// IterationAttempt is one generate -> evaluate -> (polish) pass for one
// slot. It is created at the start of the attempt and immutable once
// the decision is recorded.
type IterationAttempt struct {
	// IterationNumber is 1-based and never exceeds MaxIterationsPerImage
	IterationNumber int              `json:"iteration_number"`
	Image           *ImageHandle     `json:"image,omitempty"`
	Evaluation      *ImageEvaluation `json:"evaluation,omitempty"`
	Decision        Decision         `json:"decision,omitempty"`
	Polish          *PolishOutcome   `json:"polish,omitempty"`
	// Err holds the collaborator failure message if this attempt failed
	Err string `json:"error,omitempty"`
}

// SlotOutcome is the terminal result kind for one image slot
type SlotOutcome string

const (
	// SlotSaved means an attempt was accepted and a save intent emitted
	SlotSaved SlotOutcome = "saved"
	// SlotExhausted means iterations ran out without acceptance; this
	// is a normal outcome, not an error
	SlotExhausted SlotOutcome = "exhausted"
	// SlotErrored means an unrecoverable fault ended the slot
	SlotErrored SlotOutcome = "errored"
)

// SlotResult is the terminal result of running one image slot
type SlotResult struct {
	Outcome SlotOutcome `json:"outcome"`
	// Attempt is the accepted attempt for SlotSaved, or the last
	// attempt for SlotExhausted/SlotErrored
	Attempt *IterationAttempt `json:"attempt,omitempty"`
	// Attempts holds every attempt made for this slot, in order
	Attempts []*IterationAttempt `json:"attempts,omitempty"`
	// Saved is the emitted save intent for SlotSaved, nil otherwise
	Saved *SaveIntent `json:"saved,omitempty"`
	// Err describes the fault for SlotErrored
	Err string `json:"error,omitempty"`
}

// PhaseResult is the terminal result of running one phase
type PhaseResult struct {
	Phase          Phase       `json:"phase"`
	Status         PhaseStatus `json:"status"`
	CompletedSlots int         `json:"completed_slots"`
	Target         int         `json:"target"`
	// Err describes the fault for PhaseErrored
	Err string `json:"error,omitempty"`
}

// PhaseProgress tracks saved-vs-target for one phase. Saved is mutated
// only by the phase runner that owns the phase and is monotonically
// non-decreasing until the campaign completes or is reset.
type PhaseProgress struct {
	Saved  int `json:"saved"`
	Target int `json:"target"`
}

// CampaignState is the orchestrator's owned aggregate. The orchestrator
// goroutine is the single writer; observers receive value snapshots.
type CampaignState struct {
	ID             string                  `json:"id"`
	Status         CampaignStatus          `json:"status"`
	CurrentPhase   Phase                   `json:"current_phase,omitempty"`
	PhaseStatuses  map[Phase]PhaseStatus   `json:"phase_statuses"`
	Progress       map[Phase]PhaseProgress `json:"progress"`
	TotalSaved     int                     `json:"total_saved"`
	Error          string                  `json:"error,omitempty"`
	AbortRequested bool                    `json:"abort_requested"`
	StartedAt      time.Time               `json:"started_at,omitempty"`
	UpdatedAt      time.Time               `json:"updated_at,omitempty"`
}

// Clone returns a deep copy safe to hand to observers
func (s *CampaignState) Clone() CampaignState {
	out := *s
	out.PhaseStatuses = make(map[Phase]PhaseStatus, len(s.PhaseStatuses))
	for k, v := range s.PhaseStatuses {
		out.PhaseStatuses[k] = v
	}
	out.Progress = make(map[Phase]PhaseProgress, len(s.Progress))
	for k, v := range s.Progress {
		out.Progress[k] = v
	}
	return out
}

// SaveIntent tells the persistence consumer to save one accepted image.
// The orchestrator emits intents; how they are stored is the consumer's
// concern.
type SaveIntent struct {
	CampaignID         string       `json:"campaign_id"`
	Phase              Phase        `json:"phase"`
	SlotIndex          int          `json:"slot_index"`
	Image              *ImageHandle `json:"image"`
	PromptText         string       `json:"prompt_text"`
	Score              int          `json:"score"`
	UsedPolishedResult bool         `json:"used_polished_result"`
	SavedAt            time.Time    `json:"saved_at"`
}

// Selection is the selector collaborator's pick over a candidate set
type Selection struct {
	SelectedIndex int     `json:"selected_index"`
	Reasoning     string  `json:"reasoning,omitempty"`
	Confidence    float64 `json:"confidence"`
}
