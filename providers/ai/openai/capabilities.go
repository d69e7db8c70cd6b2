package openai

import "strings"

// Capabilities describes what a given OpenAI-compatible host supports.
// Populated by [detectCapabilities] whenever the base URL changes; override
// with [OpenAIProvider.WithCapabilities] for hosts the detection misses.
type Capabilities struct {
	Name              string // Short host label used in logs and errors
	SupportsStreaming bool   // SSE streaming on /chat/completions
	RequiresAPIKey    bool   // false for local servers such as Ollama
	SupportsUsage     bool   // stream_options.include_usage is accepted
}

// detectCapabilities attempts to detect provider capabilities based on baseURL
func detectCapabilities(baseURL string) Capabilities {
	baseURL = strings.ToLower(baseURL)

	switch {
	case strings.Contains(baseURL, "api.openai.com"):
		return Capabilities{Name: "openai", SupportsStreaming: true, RequiresAPIKey: true, SupportsUsage: true}

	case strings.Contains(baseURL, "api.groq.com"):
		return Capabilities{Name: "groq", SupportsStreaming: true, RequiresAPIKey: true, SupportsUsage: true}

	case strings.Contains(baseURL, "openrouter.ai"):
		return Capabilities{Name: "openrouter", SupportsStreaming: true, RequiresAPIKey: true, SupportsUsage: true}

	case strings.Contains(baseURL, ":11434"):
		// Ollama ignores stream_options on older builds
		return Capabilities{Name: "ollama", SupportsStreaming: true, RequiresAPIKey: false, SupportsUsage: false}
	}

	// Conservative defaults for unknown providers
	return Capabilities{Name: "custom", SupportsStreaming: true, RequiresAPIKey: false, SupportsUsage: false}
}
