package dispatch

import (
	"context"
	"time"

	"github.com/leofalp/caret/providers/ai"
)

// NewTimeoutMiddleware bounds every provider call by timeout.
//
// A synchronous call gets a context.WithTimeout that is released when the
// provider returns. A streamed call keeps its deadline for the whole stream:
// the cancel function runs once the stream is done, fails, or the consumer
// stops iterating. A shorter deadline already on the caller's context still
// wins.
//
// Callers must range over a returned stream, or Collect it, to release the
// deadline. A stream that is never read holds its timer until timeout fires.
func NewTimeoutMiddleware(timeout time.Duration) MiddlewareConfig {
	return MiddlewareConfig{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				return next(ctx, request)
			}
		},
		Stream: func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)

				stream, err := next(ctx, request)
				if err != nil {
					cancel()
					return nil, err
				}
				return cancelOnEnd(stream, cancel), nil
			}
		},
	}
}

func cancelOnEnd(stream *ai.ChatStream, cancel context.CancelFunc) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer cancel()

		for event, err := range stream.Iter() {
			if !yield(event, err) || err != nil || event.Type == ai.StreamEventDone {
				return
			}
		}
	})
}
