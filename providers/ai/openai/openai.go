package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/caret/internal/utils"
	"github.com/leofalp/caret/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
)

// ErrMissingAPIKey is returned when the host requires a key and none is set.
var ErrMissingAPIKey = errors.New("API key is not set")

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	capabilities Capabilities
}

// New creates a new OpenAI provider instance with default values
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:       os.Getenv("OPENAI_API_KEY"),
		baseURL:      baseURL,
		client:       &http.Client{},
		capabilities: detectCapabilities(baseURL),
	}
}

// WithAPIKey sets the API key for the provider
func (provider *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL sets the base URL for the API and re-detects capabilities.
func (provider *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	provider.baseURL = baseURL
	provider.capabilities = detectCapabilities(baseURL)
	return provider
}

// WithHttpClient sets a custom HTTP client
func (provider *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	provider.client = httpClient
	return provider
}

// WithCapabilities overrides the detected capabilities.
func (provider *OpenAIProvider) WithCapabilities(capabilities Capabilities) *OpenAIProvider {
	provider.capabilities = capabilities
	return provider
}

// Capabilities returns the capabilities currently in effect.
func (provider *OpenAIProvider) Capabilities() Capabilities {
	return provider.capabilities
}

func (provider *OpenAIProvider) checkKey() error {
	if provider.capabilities.RequiresAPIKey && provider.apiKey == "" {
		return fmt.Errorf("%s: %w", provider.capabilities.Name, ErrMissingAPIKey)
	}
	return nil
}

// SendMessage implements the Provider interface
func (provider *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := provider.checkKey(); err != nil {
		return nil, err
	}

	httpResponse, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, provider.client, provider.baseURL+chatCompletionsEndpoint, provider.apiKey, requestToChatCompletion(request))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider.capabilities.Name, err)
	}

	if resp == nil {
		return nil, fmt.Errorf("empty response from %s API: %s", provider.capabilities.Name, httpResponse.Status)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices in response", provider.capabilities.Name)
	}

	return responseToGeneric(*resp), nil
}
