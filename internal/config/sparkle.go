package config

import "strings"

// SparkleConfig is a per-invocation override. Empty or "default" fields, and
// a nil Temperature, fall back to the plugin-wide value.
type SparkleConfig struct {
	Provider    string
	Model       string
	Temperature *float64

	// SystemPrompt applies when the conversation itself sets none.
	SystemPrompt string
}

// Resolved is the concrete tuple one dispatch runs with.
type Resolved struct {
	Provider          string
	Model             string
	Temperature       float64
	ContextWindow     int
	SupportsStreaming bool
	SystemPrompt      string
}

func isDefault(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, Default)
}

// Resolve fills the override's gaps from c and looks the pair up in the
// catalog.
func (c Config) Resolve(override SparkleConfig) Resolved {
	resolved := Resolved{
		Provider:     c.Provider,
		Model:        c.Model,
		Temperature:  c.Temperature,
		SystemPrompt: override.SystemPrompt,
	}
	if !isDefault(override.Provider) {
		resolved.Provider = strings.TrimSpace(override.Provider)
	}
	if !isDefault(override.Model) {
		resolved.Model = strings.TrimSpace(override.Model)
	}
	if override.Temperature != nil {
		resolved.Temperature = *override.Temperature
	}

	info := c.ModelInfo(resolved.Provider, resolved.Model)
	resolved.ContextWindow = info.ContextWindow
	resolved.SupportsStreaming = info.SupportsStreaming
	return resolved
}
