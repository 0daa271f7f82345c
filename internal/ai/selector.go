package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/muralgen/mural/internal/types"
)

// selectionPayload is the JSON shape the judge returns for a selection
type selectionPayload struct {
	SelectedIndex int     `json:"selected_index"`
	Reasoning     string  `json:"reasoning"`
	Confidence    float64 `json:"confidence"`
}

// SelectBest asks the judge to pick one candidate against the given
// criteria. Indices in the result refer to the candidates slice.
func (c *Client) SelectBest(ctx context.Context, candidates []*types.ImageHandle, criteria string) (*types.Selection, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to select from")
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, 2*len(candidates)+1)
	for i, img := range candidates {
		if img.B64Data == "" {
			return nil, fmt.Errorf("candidate %d (%s) has no inline data", i, img.ID)
		}
		mediaType := img.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		blocks = append(blocks,
			anthropic.NewTextBlock(fmt.Sprintf("Candidate %d:", i)),
			anthropic.NewImageBlockBase64(mediaType, img.B64Data),
		)
	}
	blocks = append(blocks, anthropic.NewTextBlock(buildSelectionPrompt(len(candidates), criteria)))

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "select", func(attemptCtx context.Context) error {
		resp, apiErr := c.judge.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.judgeModel),
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(blocks...),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("selection call failed: %w", err)
	}

	payload, err := parseJSON[selectionPayload](collectText(response), "selection response")
	if err != nil {
		return nil, err
	}
	if payload.SelectedIndex < 0 || payload.SelectedIndex >= len(candidates) {
		return nil, fmt.Errorf("selection index %d out of range (%d candidates)", payload.SelectedIndex, len(candidates))
	}

	return &types.Selection{
		SelectedIndex: payload.SelectedIndex,
		Reasoning:     payload.Reasoning,
		Confidence:    payload.Confidence,
	}, nil
}

func buildSelectionPrompt(n int, criteria string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an art director choosing between %d candidate images.\n", n)
	fmt.Fprintf(&b, "Criteria: %s\n", criteria)
	fmt.Fprintf(&b, `
Respond with ONLY this JSON, no other text:
{
  "selected_index": <0-%d>,
  "reasoning": "<why this candidate wins>",
  "confidence": <0.0-1.0>
}`, n-1)
	return b.String()
}
