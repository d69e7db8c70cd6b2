package config

const fallbackContextWindow = 8192

func builtinCatalog() map[string]map[string]ModelInfo {
	return map[string]map[string]ModelInfo{
		"ollama": {
			"llama3.1": {ContextWindow: 128000, SupportsStreaming: true},
			"llama3.2": {ContextWindow: 128000, SupportsStreaming: true},
			"mistral":  {ContextWindow: 32768, SupportsStreaming: true},
			"qwen2.5":  {ContextWindow: 32768, SupportsStreaming: true},
			"phi3":     {ContextWindow: 4096, SupportsStreaming: true},
		},
		"openai": {
			"gpt-4o":      {ContextWindow: 128000, SupportsStreaming: true},
			"gpt-4o-mini": {ContextWindow: 128000, SupportsStreaming: true},
			"gpt-4-turbo": {ContextWindow: 128000, SupportsStreaming: true},
			"o1-mini":     {ContextWindow: 128000, SupportsStreaming: false},
		},
		"groq": {
			"llama-3.1-70b-versatile": {ContextWindow: 131072, SupportsStreaming: true},
			"llama-3.1-8b-instant":    {ContextWindow: 131072, SupportsStreaming: true},
			"mixtral-8x7b-32768":      {ContextWindow: 32768, SupportsStreaming: true},
		},
		"openrouter": {
			"anthropic/claude-3.5-sonnet":       {ContextWindow: 200000, SupportsStreaming: true},
			"meta-llama/llama-3.1-70b-instruct": {ContextWindow: 131072, SupportsStreaming: true},
		},
		"anthropic": {
			"claude-3-5-sonnet-latest": {ContextWindow: 200000, SupportsStreaming: false},
			"claude-3-5-haiku-latest":  {ContextWindow: 200000, SupportsStreaming: false},
			"claude-3-opus-latest":     {ContextWindow: 200000, SupportsStreaming: false},
		},
		"gemini": {
			"gemini-1.5-flash": {ContextWindow: 1048576, SupportsStreaming: true},
			"gemini-1.5-pro":   {ContextWindow: 2097152, SupportsStreaming: true},
			"gemini-2.0-flash": {ContextWindow: 1048576, SupportsStreaming: true},
		},
	}
}
