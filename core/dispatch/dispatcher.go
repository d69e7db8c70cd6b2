package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/providers/ai"
)

// Request is one dispatch: a provider+model pair, the conversation oldest
// first and the sampling temperature. A system prompt already compiled into
// Messages needs no SystemPrompt here.
type Request struct {
	Provider     string
	Model        string
	Messages     []ai.Message
	SystemPrompt string
	Temperature  *float64
}

func (r Request) chatRequest() ai.ChatRequest {
	request := ai.ChatRequest{
		Model:        r.Model,
		Messages:     r.Messages,
		SystemPrompt: r.SystemPrompt,
	}
	if r.Temperature != nil {
		request.GenerationConfig = ai.NewTemperature(*r.Temperature)
	}
	return request
}

// Dispatcher routes requests to provider adapters.
type Dispatcher struct {
	cfg         config.Config
	registry    Registry
	middlewares []MiddlewareConfig
	client      *http.Client
	logger      *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces the built-in provider variants.
func WithRegistry(registry Registry) Option {
	return func(d *Dispatcher) { d.registry = registry }
}

// WithMiddleware appends middlewares; the first one given is the outermost.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(d *Dispatcher) { d.middlewares = append(d.middlewares, middlewares...) }
}

// WithHTTPClient sets the client every adapter uses.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.client = client }
}

// New returns a Dispatcher over cfg. A nil logger means slog.Default().
func New(cfg config.Config, logger *slog.Logger, options ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		cfg:      cfg,
		registry: DefaultRegistry(),
		logger:   logger,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// SupportsStreaming reports whether the catalog allows streaming for the pair.
func (d *Dispatcher) SupportsStreaming(provider, model string) bool {
	return d.cfg.ModelInfo(provider, model).SupportsStreaming
}

// Call sends the request and waits for the whole answer.
func (d *Dispatcher) Call(ctx context.Context, request Request) (*ai.ChatResponse, error) {
	provider, err := d.registry.build(request.Provider, d.cfg, d.client)
	if err != nil {
		return nil, err
	}

	d.logger.DebugContext(ctx, "dispatching",
		slog.String("provider", request.Provider),
		slog.String("model", request.Model),
		slog.Int("messages", len(request.Messages)),
	)

	response, err := buildSendChain(provider, d.middlewares)(ctx, request.chatRequest())
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", request.Provider, request.Model, err)
	}
	return response, nil
}

// Stream sends the request and returns the fragment stream. Pairs the catalog
// marks as non-streaming, and adapters that cannot stream, fail with
// ErrStreamingUnsupported instead of falling back to Call. The caller owns the
// returned stream and must read it to the end or break out of it.
func (d *Dispatcher) Stream(ctx context.Context, request Request) (*ai.ChatStream, error) {
	streamer, err := d.streamer(request.Provider, request.Model)
	if err != nil {
		return nil, err
	}

	d.logger.DebugContext(ctx, "dispatching stream",
		slog.String("provider", request.Provider),
		slog.String("model", request.Model),
		slog.Int("messages", len(request.Messages)),
	)

	stream, err := buildStreamChain(streamer, d.middlewares)(ctx, request.chatRequest())
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", request.Provider, request.Model, err)
	}
	return stream, nil
}

func (d *Dispatcher) streamer(providerID, model string) (ai.StreamProvider, error) {
	if !d.SupportsStreaming(providerID, model) {
		return nil, fmt.Errorf("%w: %s/%s", ErrStreamingUnsupported, providerID, model)
	}

	provider, err := d.registry.build(providerID, d.cfg, d.client)
	if err != nil {
		return nil, err
	}
	streamer, ok := provider.(ai.StreamProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamingUnsupported, providerID)
	}
	return streamer, nil
}

// Check runs the same provider, credential and streaming checks as Call or
// Stream without sending anything. Callers use it before touching the canvas
// so that configuration errors leave no nodes behind.
func (d *Dispatcher) Check(provider, model string, stream bool) error {
	if stream {
		_, err := d.streamer(provider, model)
		return err
	}
	_, err := d.registry.build(provider, d.cfg, d.client)
	return err
}

// Prompt is a single-turn call: one user message, no history.
func (d *Dispatcher) Prompt(ctx context.Context, provider, model, prompt string, temperature *float64) (string, error) {
	response, err := d.Call(ctx, Request{
		Provider:    provider,
		Model:       model,
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return response.Content, nil
}
