package openai

import (
	"github.com/leofalp/caret/providers/ai"
)

// requestToChatCompletion converts the generic request to the wire format.
// The system prompt, when set, is sent as the leading system message.
func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	messages := make([]chatMessage, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})
	}
	for _, message := range request.Messages {
		messages = append(messages, chatMessage{Role: string(message.Role), Content: message.Content})
	}

	out := chatCompletionRequest{
		Model:    request.Model,
		Messages: messages,
	}
	if request.GenerationConfig != nil {
		out.MaxTokens = request.GenerationConfig.MaxTokens
		out.Temperature = request.GenerationConfig.Temperature
	}
	return out
}

func usageToGeneric(usage *chatUsage) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}

func responseToGeneric(response chatCompletionResponse) *ai.ChatResponse {
	out := &ai.ChatResponse{
		Id:    response.ID,
		Model: response.Model,
		Usage: usageToGeneric(response.Usage),
	}
	if len(response.Choices) > 0 {
		out.Content = response.Choices[0].Message.Content
		out.FinishReason = response.Choices[0].FinishReason
	}
	return out
}
