package dispatch

import (
	"context"

	"github.com/leofalp/caret/providers/ai"
)

// SendFunc sends a chat request and returns the completed response.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// StreamFunc sends a chat request and returns the fragment stream.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Middleware wraps a SendFunc.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware wraps a StreamFunc.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs a send middleware with its optional streaming
// counterpart. A nil Stream means streaming calls bypass the entry.
type MiddlewareConfig struct {
	Send   Middleware
	Stream StreamMiddleware
}

// buildSendChain wraps the provider call so that middlewares[0] runs first.
func buildSendChain(provider ai.Provider, middlewares []MiddlewareConfig) SendFunc {
	var chain SendFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		return provider.SendMessage(ctx, request)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Send != nil {
			chain = middlewares[i].Send(chain)
		}
	}
	return chain
}

// buildStreamChain is the streaming counterpart of buildSendChain. The
// provider must already be known to stream.
func buildStreamChain(provider ai.StreamProvider, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc = provider.StreamMessage

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}
	return chain
}
