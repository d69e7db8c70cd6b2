package gemini

import (
	"strings"

	"github.com/leofalp/caret/providers/ai"
)

// requestToGemini maps roles onto Gemini's user/model pair. System messages in
// the history join the system instruction.
func requestToGemini(request ai.ChatRequest) generateContentRequest {
	out := generateContentRequest{}

	var systemParts []part
	if request.SystemPrompt != "" {
		systemParts = append(systemParts, part{Text: request.SystemPrompt})
	}

	for _, message := range request.Messages {
		switch message.Role {
		case ai.RoleSystem:
			systemParts = append(systemParts, part{Text: message.Content})
		case ai.RoleAssistant:
			out.Contents = append(out.Contents, content{Role: "model", Parts: []part{{Text: message.Content}}})
		default:
			out.Contents = append(out.Contents, content{Role: "user", Parts: []part{{Text: message.Content}}})
		}
	}

	if len(systemParts) > 0 {
		out.SystemInstruction = &systemInstruction{Parts: systemParts}
	}

	if config := request.GenerationConfig; config != nil {
		generation := &generationConfig{Temperature: config.Temperature}
		if config.MaxTokens > 0 {
			maxTokens := config.MaxTokens
			generation.MaxOutputTokens = &maxTokens
		}
		out.GenerationConfig = generation
	}

	return out
}

// candidateText joins the non-thought text parts of the first candidate.
func candidateText(response generateContentResponse) (string, string) {
	if len(response.Candidates) == 0 {
		return "", ""
	}
	first := response.Candidates[0]

	var text strings.Builder
	for _, p := range first.Content.Parts {
		if p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}
	return text.String(), first.FinishReason
}

func usageToGeneric(usage *usageMetadata) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}

func responseToGeneric(response generateContentResponse, model string) *ai.ChatResponse {
	text, finishReason := candidateText(response)
	if response.ModelVersion != "" {
		model = response.ModelVersion
	}
	return &ai.ChatResponse{
		Id:           response.ResponseID,
		Model:        model,
		Content:      text,
		FinishReason: finishReason,
		Usage:        usageToGeneric(response.UsageMetadata),
	}
}
