package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/providers/ai"
)

// fakeProvider answers synchronously and records the last request.
type fakeProvider struct {
	response    *ai.ChatResponse
	err         error
	calls       int
	lastRequest ai.ChatRequest
}

func (f *fakeProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	f.calls++
	f.lastRequest = request
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeProvider) WithAPIKey(string) ai.Provider           { return f }
func (f *fakeProvider) WithBaseURL(string) ai.Provider          { return f }
func (f *fakeProvider) WithHttpClient(*http.Client) ai.Provider { return f }

// fakeStreamProvider also streams the given fragments.
type fakeStreamProvider struct {
	fakeProvider
	fragments []string
	streams   int
}

func (f *fakeStreamProvider) StreamMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	f.streams++
	f.lastRequest = request
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		for _, fragment := range f.fragments {
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: fragment}, nil) {
				return
			}
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
	}), nil
}

func registryWith(id string, provider ai.Provider, requiresKey bool) Registry {
	return Registry{
		id: {
			RequiresKey: requiresKey,
			Build: func(config.ProviderConfig, config.Config) (ai.Provider, error) {
				return provider, nil
			},
		},
	}
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Models["fake"] = map[string]config.ModelInfo{
		"streamer": {ContextWindow: 1000, SupportsStreaming: true},
		"sync":     {ContextWindow: 1000, SupportsStreaming: false},
	}
	return cfg
}

func TestCall_ForwardsRequest(t *testing.T) {
	fake := &fakeProvider{response: &ai.ChatResponse{Content: "pong", FinishReason: "stop"}}
	dispatcher := New(testConfig(), nil, WithRegistry(registryWith("fake", fake, false)))

	temperature := 0.3
	response, err := dispatcher.Call(context.Background(), Request{
		Provider:    "fake",
		Model:       "sync",
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: "ping"}},
		Temperature: &temperature,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "pong" {
		t.Errorf("expected pong, got %q", response.Content)
	}
	if fake.lastRequest.Model != "sync" || len(fake.lastRequest.Messages) != 1 {
		t.Errorf("unexpected request %+v", fake.lastRequest)
	}
	if fake.lastRequest.GenerationConfig == nil || *fake.lastRequest.GenerationConfig.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %+v", fake.lastRequest.GenerationConfig)
	}
}

func TestCall_PreservesProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	fake := &fakeProvider{err: boom}
	dispatcher := New(testConfig(), nil, WithRegistry(registryWith("fake", fake, false)))

	_, err := dispatcher.Call(context.Background(), Request{Provider: "fake", Model: "sync"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped %v, got %v", boom, err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected underlying message in %q", err.Error())
	}
	if fake.calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", fake.calls)
	}
}

func TestCall_MissingCredentialsBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	for _, provider := range []string{"openai", "groq", "openrouter", "gemini", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			cfg := testConfig()
			cfg.Providers[provider] = config.ProviderConfig{BaseURL: server.URL}
			dispatcher := New(cfg, nil, WithHTTPClient(server.Client()))

			_, err := dispatcher.Call(context.Background(), Request{Provider: provider, Model: "m"})
			if !errors.Is(err, ErrMissingCredentials) {
				t.Fatalf("expected ErrMissingCredentials, got %v", err)
			}
		})
	}

	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
}

func TestCall_UnknownProvider(t *testing.T) {
	dispatcher := New(testConfig(), nil)
	if _, err := dispatcher.Call(context.Background(), Request{Provider: "nope", Model: "m"}); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestCall_CustomWithoutEndpoint(t *testing.T) {
	dispatcher := New(testConfig(), nil)
	if _, err := dispatcher.Call(context.Background(), Request{Provider: "custom", Model: "m"}); !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}
}

// TestCall_OllamaNeedsNoKey runs the local provider against a fake
// OpenAI-compatible server.
func TestCall_OllamaNeedsNoKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no Authorization header, got %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","model":"llama3.1","choices":[{"index":0,"message":{"role":"assistant","content":"local answer"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Providers["ollama"] = config.ProviderConfig{BaseURL: server.URL}
	dispatcher := New(cfg, nil, WithHTTPClient(server.Client()))

	answer, err := dispatcher.Prompt(context.Background(), "ollama", "llama3.1", "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "local answer" {
		t.Errorf("expected local answer, got %q", answer)
	}
}

func TestCall_CustomEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer key, got %q", got)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"custom"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.CustomEndpoint = server.URL
	cfg.Providers["custom"] = config.ProviderConfig{APIKey: "secret"}
	dispatcher := New(cfg, nil, WithHTTPClient(server.Client()))

	answer, err := dispatcher.Prompt(context.Background(), "custom", "anything", "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "custom" {
		t.Errorf("expected custom, got %q", answer)
	}
}

func TestStream_YieldsFragments(t *testing.T) {
	fake := &fakeStreamProvider{fragments: []string{"a", "b", "c"}}
	dispatcher := New(testConfig(), nil, WithRegistry(registryWith("fake", fake, false)))

	stream, err := dispatcher.Stream(context.Background(), Request{Provider: "fake", Model: "streamer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for fragment, err := range stream.Text() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, fragment)
	}
	if strings.Join(got, "") != "abc" || len(got) != 3 {
		t.Errorf("expected three fragments abc, got %q", got)
	}
	if fake.calls != 0 {
		t.Errorf("expected no sync call, got %d", fake.calls)
	}
}

func TestStream_RejectedByCatalog(t *testing.T) {
	fake := &fakeStreamProvider{fragments: []string{"x"}}
	dispatcher := New(testConfig(), nil, WithRegistry(registryWith("fake", fake, false)))

	_, err := dispatcher.Stream(context.Background(), Request{Provider: "fake", Model: "sync"})
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
	if fake.streams != 0 || fake.calls != 0 {
		t.Errorf("expected no fallback call, got streams=%d calls=%d", fake.streams, fake.calls)
	}
}

func TestStream_RejectedForSyncOnlyAdapter(t *testing.T) {
	fake := &fakeProvider{response: &ai.ChatResponse{Content: "x"}}
	dispatcher := New(testConfig(), nil, WithRegistry(registryWith("fake", fake, false)))

	_, err := dispatcher.Stream(context.Background(), Request{Provider: "fake", Model: "streamer"})
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("expected no silent fallback, got %d calls", fake.calls)
	}
}

func TestStream_AnthropicNeverStreams(t *testing.T) {
	cfg := testConfig()
	cfg.Providers["anthropic"] = config.ProviderConfig{APIKey: "k"}
	dispatcher := New(cfg, nil)

	for _, model := range []string{"claude-3-5-sonnet-latest", "not-in-catalog"} {
		if _, err := dispatcher.Stream(context.Background(), Request{Provider: "anthropic", Model: model}); !errors.Is(err, ErrStreamingUnsupported) {
			t.Errorf("%s: expected ErrStreamingUnsupported, got %v", model, err)
		}
	}
}

func TestCheck_SendsNothing(t *testing.T) {
	fake := &fakeStreamProvider{fragments: []string{"x"}}
	dispatcher := New(testConfig(), nil, WithRegistry(Registry{
		"fake":   registryWith("fake", fake, false)["fake"],
		"locked": registryWith("locked", fake, true)["locked"],
	}))

	tests := []struct {
		name     string
		provider string
		model    string
		stream   bool
		want     error
	}{
		{"sync ok", "fake", "sync", false, nil},
		{"stream ok", "fake", "streamer", true, nil},
		{"stream not in catalog", "fake", "sync", true, ErrStreamingUnsupported},
		{"missing key", "locked", "sync", false, ErrMissingCredentials},
		{"unknown provider", "nope", "m", false, ErrUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dispatcher.Check(tt.provider, tt.model, tt.stream)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if fake.calls != 0 || fake.streams != 0 {
		t.Errorf("expected no provider calls, got calls=%d streams=%d", fake.calls, fake.streams)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) MiddlewareConfig {
		return MiddlewareConfig{Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				order = append(order, name)
				return next(ctx, request)
			}
		}}
	}

	fake := &fakeProvider{response: &ai.ChatResponse{Content: "ok"}}
	dispatcher := New(testConfig(), nil,
		WithRegistry(registryWith("fake", fake, false)),
		WithMiddleware(tag("outer"), tag("inner")),
	)

	if _, err := dispatcher.Call(context.Background(), Request{Provider: "fake", Model: "sync"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(order) != "[outer inner]" {
		t.Errorf("expected [outer inner], got %v", order)
	}
}
