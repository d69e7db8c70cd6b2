// Package utils provides shared low-level helpers used by the provider
// adapters. It covers HTTP request helpers for both synchronous and
// streaming (SSE) communication with chat APIs, string truncation for log
// output, and the escaping and fencing used when embedding documents in
// prompts and exported conversations.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] together with [SSEScanner] for Server-Sent Events streaming,
// and [StatusError] for classifying non-2xx responses.
package utils
