// Package dispatch sends a compiled conversation to one of the configured
// chat backends.
//
// A [Dispatcher] builds the provider adapter for a provider id from the
// [config.Config] it was given, checks credentials before any request leaves
// the process and gates streaming on the model catalog. Calls go through a
// middleware chain so callers can add logging, a retry policy or a deadline;
// the dispatcher itself never retries and sets no timeout.
//
// Streaming returns an [ai.ChatStream]: a lazy, finite sequence of text
// fragments that is not buffered by the dispatcher. Abandoning the range loop
// releases the underlying HTTP response.
package dispatch
