// Package anthropic implements [ai.Provider] for Anthropic's Messages API.
//
// The adapter is synchronous only: it does not implement [ai.StreamProvider],
// so callers asking for a streamed reply get a clear error from the
// dispatcher instead of a silently buffered response.
package anthropic
