// Package ai defines the shared, provider-agnostic types and interfaces used
// across all chat backends (OpenAI-compatible hosts, Gemini, Anthropic).
// Each provider's conversion layer is responsible for mapping these types to
// its own wire format, keeping the conversation engine decoupled from
// provider-specific details.
//
// The two central interfaces are [Provider] for synchronous chat completions
// and [StreamProvider] for SSE-based streaming responses. Request data flows
// through [ChatRequest] and responses are returned as [ChatResponse].
// Streams are normalized to [ChatStream], an iterator over [StreamEvent]
// values that carry either a text delta or a completion marker, so consumers
// see one sequence shape regardless of backend.
package ai
