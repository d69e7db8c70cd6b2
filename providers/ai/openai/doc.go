// Package openai implements [ai.Provider] and [ai.StreamProvider] for the
// OpenAI chat completions API and every host that speaks the same wire
// format: Groq, OpenRouter, a local Ollama server, or a user-supplied
// custom endpoint.
//
// The provider reads OPENAI_API_KEY and OPENAI_API_BASE_URL at construction
// time. Host-specific behaviour is selected by [detectCapabilities] from the
// configured base URL.
package openai
