package dispatch

import (
	"fmt"
	"net/http"

	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/providers/ai"
	"github.com/leofalp/caret/providers/ai/anthropic"
	"github.com/leofalp/caret/providers/ai/gemini"
	"github.com/leofalp/caret/providers/ai/openai"
)

// Hosted OpenAI-compatible endpoints and the local Ollama default.
const (
	OllamaBaseURL     = "http://localhost:11434/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Factory builds a provider adapter from its configured credential.
type Factory func(credential config.ProviderConfig, cfg config.Config) (ai.Provider, error)

// Adapter describes one provider id.
type Adapter struct {
	// RequiresKey makes the dispatcher fail with ErrMissingCredentials when
	// no key is configured.
	RequiresKey bool
	Build       Factory
}

// Registry maps provider ids to adapters.
type Registry map[string]Adapter

// DefaultRegistry returns the built-in provider variants.
func DefaultRegistry() Registry {
	return Registry{
		"ollama": {
			Build: openAICompatible(OllamaBaseURL),
		},
		"openai": {
			RequiresKey: true,
			Build:       openAICompatible(OpenAIBaseURL),
		},
		"groq": {
			RequiresKey: true,
			Build:       openAICompatible(GroqBaseURL),
		},
		"openrouter": {
			RequiresKey: true,
			Build:       openAICompatible(OpenRouterBaseURL),
		},
		"gemini": {
			RequiresKey: true,
			Build: func(credential config.ProviderConfig, _ config.Config) (ai.Provider, error) {
				return configure(gemini.New(), credential), nil
			},
		},
		"anthropic": {
			RequiresKey: true,
			Build: func(credential config.ProviderConfig, _ config.Config) (ai.Provider, error) {
				return configure(anthropic.New(), credential), nil
			},
		},
		"custom": {
			Build: func(credential config.ProviderConfig, cfg config.Config) (ai.Provider, error) {
				endpoint := cfg.CustomEndpoint
				if credential.BaseURL != "" {
					endpoint = credential.BaseURL
				}
				if endpoint == "" {
					return nil, ErrMissingEndpoint
				}
				provider := openai.New()
				provider.WithBaseURL(endpoint)
				provider.WithAPIKey(credential.APIKey)
				// the user endpoint decides whether it streams; the catalog gates it
				capabilities := provider.Capabilities()
				capabilities.Name = "custom"
				return provider.WithCapabilities(capabilities), nil
			},
		},
	}
}

func openAICompatible(baseURL string) Factory {
	return func(credential config.ProviderConfig, _ config.Config) (ai.Provider, error) {
		url := baseURL
		if credential.BaseURL != "" {
			url = credential.BaseURL
		}
		provider := openai.New()
		provider.WithBaseURL(url)
		provider.WithAPIKey(credential.APIKey)
		return provider, nil
	}
}

// configure applies the credential over whatever the adapter picked up from
// the environment. An empty base URL keeps the adapter default.
func configure(provider ai.Provider, credential config.ProviderConfig) ai.Provider {
	provider.WithAPIKey(credential.APIKey)
	if credential.BaseURL != "" {
		provider.WithBaseURL(credential.BaseURL)
	}
	return provider
}

// build resolves and constructs the adapter for providerID, checking the
// credential first.
func (r Registry) build(providerID string, cfg config.Config, client *http.Client) (ai.Provider, error) {
	adapter, ok := r[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerID)
	}

	credential := cfg.Credential(providerID)
	if adapter.RequiresKey && credential.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, providerID)
	}

	provider, err := adapter.Build(credential, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerID, err)
	}
	if client != nil {
		provider.WithHttpClient(client)
	}
	return provider, nil
}
