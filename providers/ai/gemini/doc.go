// Package gemini implements [ai.Provider] and [ai.StreamProvider] for the
// Google Gemini generateContent API.
//
// Authentication uses the x-goog-api-key header read from GEMINI_API_KEY.
// Streaming uses streamGenerateContent with alt=sse; each chunk carries only
// the new text and is yielded as-is.
package gemini
