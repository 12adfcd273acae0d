// Package config loads and saves user configuration from
// .clarity/config.json, with environment variables taking precedence
// over the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default backend address when nothing is configured.
const DefaultAPIURL = "http://localhost:8000"

// UserConfig holds all configuration from .clarity/config.json.
// This is the single source of truth for configuration.
type UserConfig struct {
	// Backend address, e.g. http://localhost:8000
	APIURL string `json:"api_url,omitempty"`

	// Stable identity the backend keys conversations on
	UserID string `json:"user_id,omitempty"`

	// Theme for the TUI ("light" or "dark")
	Theme string `json:"theme,omitempty"`

	// FastMode skips the staged reasoning on the backend
	FastMode bool `json:"fast_mode,omitempty"`

	// SearchMode lets the coach pull in outside material
	SearchMode bool `json:"search_mode,omitempty"`

	// Speech toggles the voice input/output hooks
	Speech *SpeechConfig `json:"speech,omitempty"`

	// Logging configuration (mirrored by internal/logging)
	Logging *LoggingConfig `json:"logging,omitempty"`
}

// SpeechConfig controls the optional voice interface.
type SpeechConfig struct {
	InputEnabled  bool `json:"input_enabled,omitempty"`
	OutputEnabled bool `json:"output_enabled,omitempty"`
}

// LoggingConfig controls categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode,omitempty"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level,omitempty"`
	JSONFormat bool            `json:"json_format,omitempty"`
}

// GetAPIURL returns the backend address with the default applied.
func (c *UserConfig) GetAPIURL() string {
	if c.APIURL == "" {
		return DefaultAPIURL
	}
	return c.APIURL
}

// GetTheme returns the theme with the default applied.
func (c *UserConfig) GetTheme() string {
	if c.Theme == "" {
		return "dark"
	}
	return c.Theme
}

// GetSpeech returns the speech config with defaults.
func (c *UserConfig) GetSpeech() SpeechConfig {
	if c.Speech != nil {
		return *c.Speech
	}
	return SpeechConfig{}
}

// DefaultPath returns the config location under the user's home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".clarity", "config.json")
	}
	return filepath.Join(home, ".clarity", "config.json")
}

// Load reads configuration from the given path. A missing file yields
// an empty config rather than an error; env overrides still apply.
func Load(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides lets the environment win over the file.
func (c *UserConfig) ApplyEnvOverrides() {
	if v := os.Getenv("CLARITY_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("CLARITY_USER_ID"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("CLARITY_THEME"); v != "" {
		c.Theme = v
	}
}

// Save writes configuration to the given path, creating the directory
// when needed.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
