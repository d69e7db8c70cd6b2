package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leofalp/caret/internal/utils"
	"github.com/leofalp/caret/providers/ai"
)

// StreamMessage implements ai.StreamProvider for the chat completions endpoint.
// It sends a request with stream=true and returns a ChatStream that yields
// incremental deltas as SSE events arrive from the API.
func (provider *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := provider.checkKey(); err != nil {
		return nil, err
	}
	if !provider.capabilities.SupportsStreaming {
		return nil, fmt.Errorf("%s: streaming not supported", provider.capabilities.Name)
	}

	chatRequest := requestToChatCompletion(request)
	chatRequest.Stream = true
	if provider.capabilities.SupportsUsage {
		chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	// Body is left open for SSE reading
	httpResponse, err := utils.DoPostStream(ctx, provider.client, provider.baseURL+chatCompletionsEndpoint, provider.apiKey, chatRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider.capabilities.Name, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var finishReason string
		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, err := sseScanner.Next()
			if err == io.EOF {
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
				return
			}
			if err != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("error reading stream: %w", err))
				return
			}

			var chunk chatCompletionStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("error parsing stream chunk: %w", err))
				return
			}

			for _, choice := range chunk.Choices {
				if choice.FinishReason != nil {
					finishReason = *choice.FinishReason
				}
				if choice.Delta.Content == nil || *choice.Delta.Content == "" {
					continue
				}
				if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: *choice.Delta.Content}, nil) {
					return
				}
			}

			if chunk.Usage != nil {
				if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usageToGeneric(chunk.Usage)}, nil) {
					return
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
