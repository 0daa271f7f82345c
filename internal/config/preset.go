package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/muralgen/mural/internal/types"
)

// DefaultCampaign returns the campaign settings used when a preset
// omits a field.
func DefaultCampaign() *types.CampaignConfig {
	return &types.CampaignConfig{
		SketchTarget:          3,
		GameplayTarget:        3,
		PosterEnabled:         true,
		HUDEnabled:            true,
		MaxIterationsPerImage: 2,
		ApprovalThreshold:     70,
		Polish: types.PolishPolicy{
			RescueEnabled:       true,
			RescueFloor:         50,
			ExcellenceEnabled:   false,
			ExcellenceFloor:     85,
			ExcellenceCeiling:   95,
			ExcellenceIntensity: types.IntensitySubtle,
			MaxPolishAttempts:   1,
			PolishTimeoutMs:     120000,
			MinScoreImprovement: 5,
		},
	}
}

// campaignPreset mirrors types.CampaignConfig with optional fields so
// a preset can override only what it names.
type campaignPreset struct {
	SketchTarget          *int               `yaml:"sketch_target"`
	GameplayTarget        *int               `yaml:"gameplay_target"`
	PosterEnabled         *bool              `yaml:"poster_enabled"`
	HUDEnabled            *bool              `yaml:"hud_enabled"`
	MaxIterationsPerImage *int               `yaml:"max_iterations_per_image"`
	ApprovalThreshold     *int               `yaml:"approval_threshold"`
	Polish                *polishPreset      `yaml:"polish"`
	Idea                  *string            `yaml:"idea"`
	Bias                  *types.LearnedBias `yaml:"bias"`
}

type polishPreset struct {
	RescueEnabled       *bool   `yaml:"rescue_enabled"`
	RescueFloor         *int    `yaml:"rescue_floor"`
	ExcellenceEnabled   *bool   `yaml:"excellence_enabled"`
	ExcellenceFloor     *int    `yaml:"excellence_floor"`
	ExcellenceCeiling   *int    `yaml:"excellence_ceiling"`
	ExcellenceIntensity *string `yaml:"excellence_intensity"`
	MaxPolishAttempts   *int    `yaml:"max_polish_attempts"`
	PolishTimeoutMs     *int    `yaml:"polish_timeout_ms"`
	MinScoreImprovement *int    `yaml:"min_score_improvement"`
}

// LoadCampaignPreset reads a YAML preset, merges it over the defaults,
// and validates the result.
func LoadCampaignPreset(path string) (*types.CampaignConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset %s: %w", path, err)
	}

	var preset campaignPreset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}

	cfg := DefaultCampaign()
	applyPreset(cfg, &preset)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return cfg, nil
}

func applyPreset(cfg *types.CampaignConfig, p *campaignPreset) {
	if p.SketchTarget != nil {
		cfg.SketchTarget = *p.SketchTarget
	}
	if p.GameplayTarget != nil {
		cfg.GameplayTarget = *p.GameplayTarget
	}
	if p.PosterEnabled != nil {
		cfg.PosterEnabled = *p.PosterEnabled
	}
	if p.HUDEnabled != nil {
		cfg.HUDEnabled = *p.HUDEnabled
	}
	if p.MaxIterationsPerImage != nil {
		cfg.MaxIterationsPerImage = *p.MaxIterationsPerImage
	}
	if p.ApprovalThreshold != nil {
		cfg.ApprovalThreshold = *p.ApprovalThreshold
	}
	if p.Idea != nil {
		cfg.Idea = *p.Idea
	}
	if p.Bias != nil {
		cfg.Bias = p.Bias
	}
	if p.Polish == nil {
		return
	}
	pp := p.Polish
	if pp.RescueEnabled != nil {
		cfg.Polish.RescueEnabled = *pp.RescueEnabled
	}
	if pp.RescueFloor != nil {
		cfg.Polish.RescueFloor = *pp.RescueFloor
	}
	if pp.ExcellenceEnabled != nil {
		cfg.Polish.ExcellenceEnabled = *pp.ExcellenceEnabled
	}
	if pp.ExcellenceFloor != nil {
		cfg.Polish.ExcellenceFloor = *pp.ExcellenceFloor
	}
	if pp.ExcellenceCeiling != nil {
		cfg.Polish.ExcellenceCeiling = *pp.ExcellenceCeiling
	}
	if pp.ExcellenceIntensity != nil {
		cfg.Polish.ExcellenceIntensity = types.ExcellenceIntensity(*pp.ExcellenceIntensity)
	}
	if pp.MaxPolishAttempts != nil {
		cfg.Polish.MaxPolishAttempts = *pp.MaxPolishAttempts
	}
	if pp.PolishTimeoutMs != nil {
		cfg.Polish.PolishTimeoutMs = *pp.PolishTimeoutMs
	}
	if pp.MinScoreImprovement != nil {
		cfg.Polish.MinScoreImprovement = *pp.MinScoreImprovement
	}
}

// StarterPreset is the YAML written by the init command.
const StarterPreset = `# mural campaign preset
# Any omitted field falls back to the built-in default.

idea: "a cozy pixel-art farming village"

sketch_target: 3
gameplay_target: 3
poster_enabled: true
hud_enabled: true

# 1-3 generate/evaluate passes per image
max_iterations_per_image: 2

# Score at or above which an image is accepted outright (0-100)
approval_threshold: 70

polish:
  # Polish marginal failures (score between rescue_floor and the
  # approval threshold) instead of discarding them
  rescue_enabled: true
  rescue_floor: 50
  # Optional extra polish for already-approved images inside the band
  excellence_enabled: false
  excellence_floor: 85
  excellence_ceiling: 95
  excellence_intensity: subtle  # subtle | creative
  max_polish_attempts: 1
  polish_timeout_ms: 120000
  min_score_improvement: 5
`

// WriteStarterPreset writes the starter preset, refusing to clobber an
// existing file.
func WriteStarterPreset(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(StarterPreset), 0644); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	return nil
}
