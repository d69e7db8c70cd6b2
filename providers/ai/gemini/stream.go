package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leofalp/caret/internal/utils"
	"github.com/leofalp/caret/providers/ai"
)

// StreamMessage implements ai.StreamProvider for Gemini.
// It uses the streamGenerateContent endpoint with alt=sse to receive
// incremental chunks and yields each one as a content delta.
func (provider *GeminiProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if provider.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := modelOrDefault(request.Model)
	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", provider.baseURL, model)

	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, "", requestToGemini(request), provider.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var finishReason string
		var usage *ai.Usage

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, err := sseScanner.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("error reading stream: %w", err))
				return
			}

			var chunk generateContentResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("error parsing stream chunk: %w", err))
				return
			}

			text, reason := candidateText(chunk)
			if reason != "" {
				finishReason = reason
			}
			if chunk.UsageMetadata != nil {
				usage = usageToGeneric(chunk.UsageMetadata)
			}

			if text == "" {
				continue
			}
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: text}, nil) {
				return
			}
		}

		// Gemini repeats usage on every chunk; report only the final value
		if usage != nil {
			if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage}, nil) {
				return
			}
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
	}

	return ai.NewChatStream(iteratorFunc), nil
}
