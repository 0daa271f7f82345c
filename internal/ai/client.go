// Package ai implements the campaign's model-backed collaborators: the
// image generator and polisher on the OpenAI image API, and the
// evaluator and selector on the Anthropic messages API.
//
// The package is split across files:
// - client.go: core struct, model selection, constructor (this file)
// - retry.go: circuit breaker and retry logic
// - json_parser.go: resilient JSON parsing of model output
// - evaluator.go: image scoring
// - generator.go: image generation and polish passes
// - selector.go: best-of-N candidate selection
package ai

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"golang.org/x/sync/semaphore"

	"github.com/muralgen/mural/internal/types"
)

// Model constants. The judge model scores and selects; the image model
// generates and polishes.
//
// Environment variable overrides:
// - MURAL_MODEL_JUDGE: Override the scoring/selection model
// - MURAL_MODEL_IMAGE: Override the image generation model
const (
	// ModelJudge is the default vision model for scoring and selection
	ModelJudge = "claude-sonnet-4-5-20250929"

	// ModelImage is the default image generation model
	ModelImage = "gpt-image-1"
)

// GetJudgeModel returns the judge model, checking MURAL_MODEL_JUDGE first
func GetJudgeModel() string {
	if model := os.Getenv("MURAL_MODEL_JUDGE"); model != "" {
		return model
	}
	return ModelJudge
}

// GetImageModel returns the image model, checking MURAL_MODEL_IMAGE first
func GetImageModel() string {
	if model := os.Getenv("MURAL_MODEL_IMAGE"); model != "" {
		return model
	}
	return ModelImage
}

// Client bundles the two model backends behind the collaborator
// interfaces the iteration loop consumes.
type Client struct {
	judge          *anthropic.Client
	images         *openai.Client
	judgeModel     string
	imageModel     string
	imageSize      string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted // Limits concurrent model API calls
}

// Compile-time checks that Client covers every collaborator role
var (
	_ types.Generator = (*Client)(nil)
	_ types.Evaluator = (*Client)(nil)
	_ types.Polisher  = (*Client)(nil)
	_ types.Selector  = (*Client)(nil)
)

// Config holds client configuration
type Config struct {
	AnthropicAPIKey string // If empty, reads from ANTHROPIC_API_KEY env var
	OpenAIAPIKey    string // If empty, reads from OPENAI_API_KEY env var
	JudgeModel      string // Model for scoring/selection (default: GetJudgeModel())
	ImageModel      string // Model for generation/polish (default: GetImageModel())
	ImageSize       string // Generated image size (default: 1024x1024)
	Retry           RetryConfig
}

// NewClient creates the model client used by all collaborator roles.
func NewClient(cfg *Config) (*Client, error) {
	anthropicKey := cfg.AnthropicAPIKey
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
		if anthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	openaiKey := cfg.OpenAIAPIKey
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
		if openaiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
	}

	judgeModel := cfg.JudgeModel
	if judgeModel == "" {
		judgeModel = GetJudgeModel()
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = GetImageModel()
	}
	imageSize := cfg.ImageSize
	if imageSize == "" {
		imageSize = "1024x1024"
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	judge := anthropic.NewClient(anthropicoption.WithAPIKey(anthropicKey))
	images := openai.NewClient(openaioption.WithAPIKey(openaiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(
			retry.FailureThreshold,
			retry.SuccessThreshold,
			retry.OpenTimeout,
		)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Client{
		judge:          &judge,
		images:         &images,
		judgeModel:     judgeModel,
		imageModel:     imageModel,
		imageSize:      imageSize,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
	}, nil
}

// HealthCheck reports whether the client is able to make calls.
// Returns an error while the circuit breaker is open.
func (c *Client) HealthCheck() error {
	if c.circuitBreaker != nil {
		state, failures, _ := c.circuitBreaker.GetMetrics()
		if state == CircuitOpen {
			return fmt.Errorf("model client unavailable: %w (failures=%d, retry in %v)",
				ErrCircuitOpen, failures, c.retry.OpenTimeout)
		}
	}
	return nil
}
