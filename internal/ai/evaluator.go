package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/muralgen/mural/internal/types"
)

// evalPayload is the JSON shape the judge model is asked to return
type evalPayload struct {
	Score        int      `json:"score"`
	Approved     bool     `json:"approved"`
	Feedback     string   `json:"feedback"`
	Improvements []string `json:"improvements"`
	Strengths    []string `json:"strengths"`
}

// Evaluate scores one generated image against the prompt that produced
// it. The score drives the accept/polish/retry decision downstream; the
// model's own approved flag is advisory only.
func (c *Client) Evaluate(ctx context.Context, img *types.ImageHandle, pc *types.PromptContext) (*types.ImageEvaluation, error) {
	if img.B64Data == "" {
		return nil, fmt.Errorf("image %s has no inline data to evaluate", img.ID)
	}
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}

	prompt := buildEvalPrompt(pc)

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "evaluate", func(attemptCtx context.Context) error {
		resp, apiErr := c.judge.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.judgeModel),
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64(mediaType, img.B64Data),
					anthropic.NewTextBlock(prompt),
				),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation call failed: %w", err)
	}

	payload, err := parseJSON[evalPayload](collectText(response), "evaluation response")
	if err != nil {
		return nil, err
	}
	if payload.Score < 0 {
		payload.Score = 0
	}
	if payload.Score > 100 {
		payload.Score = 100
	}

	return &types.ImageEvaluation{
		Score:        payload.Score,
		Approved:     payload.Approved,
		Feedback:     payload.Feedback,
		Improvements: payload.Improvements,
		Strengths:    payload.Strengths,
	}, nil
}

// buildEvalPrompt asks the judge for a strict JSON verdict on one image.
func buildEvalPrompt(pc *types.PromptContext) string {
	var b strings.Builder
	b.WriteString("You are an art director reviewing generated game art. Score the attached image against the brief below.\n\n")
	fmt.Fprintf(&b, "Phase: %s\n", pc.Phase)
	fmt.Fprintf(&b, "Brief: %s\n", pc.PromptText)
	if pc.Idea != "" {
		fmt.Fprintf(&b, "Campaign idea: %s\n", pc.Idea)
	}
	if len(pc.Feedback) > 0 {
		fmt.Fprintf(&b, "This is iteration %d; the previous attempt was asked to fix: %s\n",
			pc.Iteration, strings.Join(pc.Feedback, "; "))
	}
	b.WriteString(`
Respond with ONLY this JSON, no other text:
{
  "score": <0-100 integer, overall quality and brief adherence>,
  "approved": <true if you would ship this as-is>,
  "feedback": "<one paragraph critique>",
  "improvements": ["<concrete change to try next>", ...],
  "strengths": ["<aspect worth preserving>", ...]
}`)
	return b.String()
}

// collectText concatenates the text blocks of a judge response
func collectText(msg *anthropic.Message) string {
	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String()
}
