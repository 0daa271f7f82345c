package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"

	"github.com/muralgen/mural/internal/types"
)

// Generate produces one image for the prompt context. The image comes
// back as inline base64 so the judge can score it without a fetch.
func (c *Client) Generate(ctx context.Context, pc *types.PromptContext) (*types.ImageHandle, error) {
	img, err := c.generateImage(ctx, "generate", pc.PromptText)
	if err != nil {
		return nil, err
	}
	img.Prompt = pc.PromptText
	img.Phase = pc.Phase
	return img, nil
}

// Polish re-renders an image guided by the polish prompt. The image
// API has no true in-place edit for arbitrary generations, so a polish
// is a regeneration of the original brief with the revision notes
// appended.
func (c *Client) Polish(ctx context.Context, img *types.ImageHandle, polishPrompt string) (*types.ImageHandle, error) {
	combined := fmt.Sprintf("%s\n\n%s", img.Prompt, polishPrompt)
	polished, err := c.generateImage(ctx, "polish", combined)
	if err != nil {
		return nil, err
	}
	polished.Prompt = img.Prompt
	polished.Phase = img.Phase
	return polished, nil
}

func (c *Client) generateImage(ctx context.Context, operation, prompt string) (*types.ImageHandle, error) {
	var response *openai.ImagesResponse
	err := c.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := c.images.Images.Generate(attemptCtx, openai.ImageGenerateParams{
			Prompt:         prompt,
			Model:          openai.ImageModel(c.imageModel),
			N:              openai.Int(1),
			Size:           openai.ImageGenerateParamsSize(c.imageSize),
			ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("image %s call failed: %w", operation, err)
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("image %s returned no data", operation)
	}

	data := response.Data[0]
	if data.B64JSON == "" && data.URL == "" {
		return nil, fmt.Errorf("image %s returned neither inline data nor a URL", operation)
	}

	return &types.ImageHandle{
		ID:        uuid.New().String(),
		URL:       data.URL,
		B64Data:   data.B64JSON,
		MediaType: "image/png",
		CreatedAt: time.Now(),
	}, nil
}
