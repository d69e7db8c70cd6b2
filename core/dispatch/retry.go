package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/leofalp/caret/internal/utils"
	"github.com/leofalp/caret/providers/ai"
)

// RetryConfig tunes the retry middleware. Zero fields take the defaults
// noted on each field.
type RetryConfig struct {
	MaxRetries     int           // retries after the first failure; default 3
	InitialBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 30s
	BackoffFactor  float64       // default 2
	JitterFraction float64       // default 0.1

	// Retryable decides whether an error is worth another attempt. The
	// default retries HTTP 429, 500, 502, 503 and 529.
	Retryable func(error) bool
}

var retryableStatus = []int{429, 500, 502, 503, 529}

// IsRetryable reports whether err carries a transient HTTP status.
func IsRetryable(err error) bool {
	var statusErr *utils.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return slices.Contains(retryableStatus, statusErr.StatusCode)
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2
	}
	if c.JitterFraction == 0 {
		c.JitterFraction = 0.1
	}
	if c.Retryable == nil {
		c.Retryable = IsRetryable
	}
}

// backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter
func (c RetryConfig) backoff(attempt int) time.Duration {
	base := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt))
	if base > float64(c.MaxBackoff) {
		base = float64(c.MaxBackoff)
	}
	jitter := base * c.JitterFraction * rand.Float64() //nolint:gosec // jitter only
	return time.Duration(base + jitter)
}

// NewRetryMiddleware retries failed send calls. Streams are not retried:
// fragments already handed to the caller cannot be taken back.
//
// On exhaustion the error wraps both ErrRetryExhausted and the last provider
// error.
func NewRetryMiddleware(config RetryConfig) MiddlewareConfig {
	config.applyDefaults()

	send := func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			var lastErr error

			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(config.backoff(attempt - 1)):
					}
				}

				response, err := next(ctx, request)
				if err == nil {
					return response, nil
				}
				lastErr = err

				if !config.Retryable(err) {
					return nil, err
				}
			}

			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	}

	return MiddlewareConfig{Send: send}
}
