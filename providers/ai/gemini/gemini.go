package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is not set")

// GeminiProvider implements the Provider interface for the Gemini API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Gemini provider instance reading GEMINI_API_KEY and
// GEMINI_API_BASE_URL from the environment.
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

func (p *GeminiProvider) headers() []utils.HeaderOption {
	return []utils.HeaderOption{{Key: "x-goog-api-key", Value: p.apiKey}}
}

func modelOrDefault(model string) string {
	if model == "" {
		return defaultModel
	}
	return model
}

// SendMessage implements the Provider interface.
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := modelOrDefault(request.Model)
	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)

	httpResponse, resp, err := utils.DoPostSync[generateContentResponse](ctx, p.client, url, "", requestToGemini(request), p.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("empty response from Gemini API: %s", httpResponse.Status)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	return responseToGeneric(*resp, model), nil
}
