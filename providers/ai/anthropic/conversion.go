package anthropic

import (
	"strings"

	"github.com/leofalp/caret/providers/ai"
)

// requestToAnthropic converts the generic request into the Messages API shape.
// System messages found in the history are folded into the top-level system
// field, and consecutive messages with the same role are merged since the API
// expects the roles to alternate.
func requestToAnthropic(request ai.ChatRequest) anthropicRequest {
	out := anthropicRequest{
		Model:     request.Model,
		MaxTokens: defaultMaxTokens,
	}

	systemParts := []string{}
	if request.SystemPrompt != "" {
		systemParts = append(systemParts, request.SystemPrompt)
	}

	for _, message := range request.Messages {
		if message.Role == ai.RoleSystem {
			systemParts = append(systemParts, message.Content)
			continue
		}
		last := len(out.Messages) - 1
		if last >= 0 && out.Messages[last].Role == string(message.Role) {
			out.Messages[last].Content += "\n\n" + message.Content
			continue
		}
		out.Messages = append(out.Messages, anthropicMessage{Role: string(message.Role), Content: message.Content})
	}
	out.System = strings.Join(systemParts, "\n\n")

	if request.GenerationConfig != nil {
		if request.GenerationConfig.MaxTokens > 0 {
			out.MaxTokens = request.GenerationConfig.MaxTokens
		}
		out.Temperature = request.GenerationConfig.Temperature
	}

	return out
}

// responseToGeneric concatenates the text blocks of the reply.
func responseToGeneric(response anthropicResponse) *ai.ChatResponse {
	var content strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		Content:      content.String(),
		FinishReason: response.StopReason,
		Usage: &ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}
}
