package types

import "context"

// PromptContext carries everything a generation call needs: the seed
// idea, refinement feedback from earlier iterations, optional learned
// bias, and (for enrichment) the source image being enriched.
type PromptContext struct {
	CampaignID string
	Phase      Phase
	SlotIndex  int
	Iteration  int
	// Idea is the campaign's seed prompt idea
	Idea string
	// PromptText is the fully built prompt for this iteration
	PromptText string
	// Feedback holds the previous evaluation's improvement suggestions
	Feedback []string
	// Strengths holds aspects of the previous attempt worth keeping
	Strengths []string
	// Bias is read-only learned preference data, possibly nil
	Bias *LearnedBias
	// Source is the image being enriched, nil outside enrichment phases
	Source *ImageHandle
}

// Generator produces an image for a prompt context. Calls are expected
// to hit a remote API and may fail; the iteration loop is the retry.
type Generator interface {
	Generate(ctx context.Context, pc *PromptContext) (*ImageHandle, error)
}

// Evaluator scores a generated image against its prompt context
type Evaluator interface {
	Evaluate(ctx context.Context, img *ImageHandle, pc *PromptContext) (*ImageEvaluation, error)
}

// Polisher revises an image according to a polish prompt. The caller
// bounds the call with a context deadline; a deadline hit is treated as
// a non-improving polish, not a fatal fault.
type Polisher interface {
	Polish(ctx context.Context, img *ImageHandle, polishPrompt string) (*ImageHandle, error)
}

// Selector picks the best candidate from a set (poster phase)
type Selector interface {
	SelectBest(ctx context.Context, candidates []*ImageHandle, criteria string) (*Selection, error)
}

// Saver consumes save intents. Implementations persist however they
// like; the orchestrator only guarantees one intent per saved slot.
type Saver interface {
	SaveImage(ctx context.Context, intent *SaveIntent) error
}

// PromptBuilder is the pure prompt-construction hook. The UI layer owns
// template wording; the orchestrator only calls through this function.
type PromptBuilder func(pc *PromptContext) string
