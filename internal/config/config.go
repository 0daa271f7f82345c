// Package config holds the application configuration (storage paths,
// model selection, API behavior) and the campaign preset files. App
// config loads through viper from ~/.config/mural/config.yaml plus
// MURAL_* environment variables; campaign presets are plain YAML files
// passed to the run command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Models  ModelsConfig  `mapstructure:"models"`
	API     APIConfig     `mapstructure:"api"`
}

// StorageConfig controls where campaign data lives
type StorageConfig struct {
	// Path is the SQLite database file for the event log and saved images
	Path string `mapstructure:"path"`
}

// ModelsConfig selects the models behind the collaborator roles
type ModelsConfig struct {
	// Judge is the vision model that scores and selects ("" = built-in default)
	Judge string `mapstructure:"judge"`
	// Image is the image generation model ("" = built-in default)
	Image string `mapstructure:"image"`
	// ImageSize is the generated image size (default: 1024x1024)
	ImageSize string `mapstructure:"image_size"`
}

// APIConfig controls retry and concurrency behavior of model calls
type APIConfig struct {
	// MaxRetries per model call (default: 3)
	MaxRetries int `mapstructure:"max_retries"`
	// TimeoutSeconds per model call attempt (default: 120)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// MaxConcurrentCalls caps in-flight model calls (default: 2)
	MaxConcurrentCalls int `mapstructure:"max_concurrent_calls"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: filepath.Join(DataDir(), "mural.db"),
		},
		Models: ModelsConfig{
			ImageSize: "1024x1024",
		},
		API: APIConfig{
			MaxRetries:         3,
			TimeoutSeconds:     120,
			MaxConcurrentCalls: 2,
		},
	}
}

// SetDefaults registers the defaults with viper. Call before Load.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("storage.path", defaults.Storage.Path)

	viper.SetDefault("models.judge", defaults.Models.Judge)
	viper.SetDefault("models.image", defaults.Models.Image)
	viper.SetDefault("models.image_size", defaults.Models.ImageSize)

	viper.SetDefault("api.max_retries", defaults.API.MaxRetries)
	viper.SetDefault("api.timeout_seconds", defaults.API.TimeoutSeconds)
	viper.SetDefault("api.max_concurrent_calls", defaults.API.MaxConcurrentCalls)
}

// Load reads the configuration from viper and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the app config invariants
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries cannot be negative (got %d)", c.API.MaxRetries)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive (got %d)", c.API.TimeoutSeconds)
	}
	if c.API.MaxConcurrentCalls < 0 {
		return fmt.Errorf("api.max_concurrent_calls cannot be negative (got %d)", c.API.MaxConcurrentCalls)
	}
	return nil
}

// ConfigDir returns the user's config directory for mural
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mural")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mural"
	}
	return filepath.Join(home, ".config", "mural")
}

// DataDir returns the user's data directory for mural
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mural")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mural"
	}
	return filepath.Join(home, ".local", "share", "mural")
}

// InitViper wires viper to the config file and MURAL_* environment
// variables. A missing config file is fine; defaults apply.
func InitViper(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(ConfigDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MURAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile == "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				return nil
			}
			if os.IsNotExist(err) {
				return nil
			}
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
