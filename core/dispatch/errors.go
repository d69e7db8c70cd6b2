package dispatch

import "errors"

var (
	// ErrMissingCredentials is returned when the provider needs an API key
	// and none is configured. No request is attempted.
	ErrMissingCredentials = errors.New("dispatch: provider credentials are not configured")

	// ErrStreamingUnsupported is returned when streaming is requested for a
	// provider+model pair that cannot stream.
	ErrStreamingUnsupported = errors.New("dispatch: streaming is not supported for this model")

	// ErrUnknownProvider is returned for provider ids with no registered adapter.
	ErrUnknownProvider = errors.New("dispatch: unknown provider")

	// ErrMissingEndpoint is returned when the custom provider is selected
	// without an endpoint.
	ErrMissingEndpoint = errors.New("dispatch: custom endpoint is not configured")

	// ErrRetryExhausted is returned by the retry middleware when every attempt
	// failed. It wraps the last provider error as well.
	ErrRetryExhausted = errors.New("dispatch: all retry attempts exhausted")
)
