// Package config holds the plugin-wide settings that every engine call
// receives explicitly: the default provider, model and temperature,
// per-provider credentials, the model catalog and logging.
//
// Settings are layered: built-in defaults, then a YAML file, then .env files,
// then process environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default is the sentinel meaning "use the plugin-wide setting".
const Default = "default"

// ErrInvalidConfig is returned for settings that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// ProviderConfig holds the credential and endpoint for one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelInfo describes what a provider+model pair accepts.
type ModelInfo struct {
	ContextWindow     int  `yaml:"context_window"`
	SupportsStreaming bool `yaml:"streaming"`
}

// LogConfig selects the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, compact or pretty
}

// Config is the full settings value.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	Providers      map[string]ProviderConfig       `yaml:"providers"`
	CustomEndpoint string                          `yaml:"custom_endpoint"`
	Models         map[string]map[string]ModelInfo `yaml:"models"` // provider -> model -> info

	// Vault is the directory file nodes and [[references]] resolve against.
	Vault    string `yaml:"vault"`
	// ChatsDir is where exported conversations are written, relative to Vault.
	ChatsDir string `yaml:"chats_dir"`

	Log LogConfig `yaml:"log"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: 1,
		Providers:   map[string]ProviderConfig{},
		Models:      builtinCatalog(),
		Vault:       ".",
		ChatsDir:    "chats",
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the given .env files (".env" in the working directory when
// none are given and it exists) and finally the environment.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := cfg.merge(raw); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := loadDotenv(envFiles); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge overlays YAML onto cfg. Catalog entries are added to the built-in
// catalog rather than replacing it.
func (c *Config) merge(raw []byte) error {
	builtin := c.Models
	c.Models = nil

	if err := yaml.Unmarshal(raw, c); err != nil {
		return err
	}

	overrides := c.Models
	c.Models = builtin
	for provider, models := range overrides {
		if c.Models[provider] == nil {
			c.Models[provider] = map[string]ModelInfo{}
		}
		for model, info := range models {
			c.Models[provider][model] = info
		}
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	return nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	// godotenv.Load never overrides variables already set in the process
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// envKeys maps provider ids to the variable holding their API key.
var envKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"groq":       "GROQ_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"custom":     "CARET_CUSTOM_API_KEY",
}

func (c *Config) applyEnv() {
	for provider, variable := range envKeys {
		if value := os.Getenv(variable); value != "" {
			entry := c.Providers[provider]
			entry.APIKey = value
			c.Providers[provider] = entry
		}
	}

	if value := os.Getenv("OLLAMA_BASE_URL"); value != "" {
		entry := c.Providers["ollama"]
		entry.BaseURL = value
		c.Providers["ollama"] = entry
	}
	if value := os.Getenv("CARET_CUSTOM_ENDPOINT"); value != "" {
		c.CustomEndpoint = value
	}
	if value := os.Getenv("CARET_PROVIDER"); value != "" {
		c.Provider = value
	}
	if value := os.Getenv("CARET_MODEL"); value != "" {
		c.Model = value
	}
	if value := os.Getenv("CARET_VAULT"); value != "" {
		c.Vault = value
	}
	if value := os.Getenv("CARET_LOG_LEVEL"); value != "" {
		c.Log.Level = value
	}
	if value := os.Getenv("CARET_LOG_FORMAT"); value != "" {
		c.Log.Format = value
	}
}

// Validate checks ranges and required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Provider) == "" || c.Provider == Default {
		return fmt.Errorf("%w: provider must be set", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Model) == "" || c.Model == Default {
		return fmt.Errorf("%w: model must be set", ErrInvalidConfig)
	}
	if math.IsNaN(c.Temperature) || c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v outside [0, 2]", ErrInvalidConfig, c.Temperature)
	}
	return nil
}

// Credential returns the configured key and base URL for provider.
func (c Config) Credential(provider string) ProviderConfig {
	return c.Providers[provider]
}

// ModelInfo returns the catalog entry for a provider+model pair. Pairs that
// are not in the catalog get a conservative context window; they stream
// unless the provider never does.
func (c Config) ModelInfo(provider, model string) ModelInfo {
	if info, ok := c.Models[provider][model]; ok {
		return info
	}
	return ModelInfo{
		ContextWindow:     fallbackContextWindow,
		SupportsStreaming: provider != "anthropic",
	}
}

// ParseTemperature reads a temperature setting. Empty and "default" yield nil.
func ParseTemperature(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, Default) {
		return nil, nil
	}
	temperature, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("temperature %q is not a number", value)
	}
	if math.IsNaN(temperature) || temperature < 0 || temperature > 2 {
		return nil, fmt.Errorf("temperature %v outside [0, 2]", temperature)
	}
	return &temperature, nil
}
