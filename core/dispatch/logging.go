package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/caret/internal/utils"
	"github.com/leofalp/caret/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits.
type LogLevel int

const (
	// LogLevelMinimal logs the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and finish reason.
	LogLevelStandard

	// LogLevelVerbose adds the first message and the response text, truncated.
	// Prompts and answers end up in the log, so keep it to local debugging.
	LogLevelVerbose
)

// ParseLogLevel maps "minimal", "standard" and "verbose" to a level.
// Anything else is LogLevelStandard.
func ParseLogLevel(value string) LogLevel {
	switch value {
	case "minimal":
		return LogLevelMinimal
	case "verbose":
		return LogLevelVerbose
	}
	return LogLevelStandard
}

// NewLoggingMiddleware logs every call before and after the provider runs.
// For streams the completion entry is written once the fragment sequence
// ends, fails or is abandoned.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) MiddlewareConfig {
	if logger == nil {
		logger = slog.Default()
	}
	return MiddlewareConfig{
		Send:   sendLogging(logger, level),
		Stream: streamLogging(logger, level),
	}
}

func sendLogging(logger *slog.Logger, level LogLevel) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			logger.InfoContext(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed", responseAttrs(request.Model, response, elapsed, level)...)
			return response, nil
		}
	}
}

func streamLogging(logger *slog.Logger, level LogLevel) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			logger.InfoContext(ctx, "llm stream", requestAttrs(request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil, err
			}
			return wrapStream(ctx, stream, logger, request.Model, level, start), nil
		}
	}
}

func wrapStream(ctx context.Context, stream *ai.ChatStream, logger *slog.Logger, model string, level LogLevel, start time.Time) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var (
			finishReason string
			usage        *ai.Usage
			fragments    int
		)

		for event, err := range stream.Iter() {
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("fragments", fragments),
					slog.String("error", err.Error()),
				)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				fragments++
			case ai.StreamEventUsage:
				usage = event.Usage
			case ai.StreamEventDone:
				finishReason = event.FinishReason
			}

			if !yield(event, nil) {
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("fragments", fragments),
				)
				return
			}
		}

		attrs := []any{
			slog.String("model", model),
			slog.Duration("duration", time.Since(start)),
		}
		if level >= LogLevelStandard {
			attrs = append(attrs, slog.Int("fragments", fragments))
			if finishReason != "" {
				attrs = append(attrs, slog.String("finish_reason", finishReason))
			}
		}
		if usage != nil {
			attrs = append(attrs,
				slog.Int("prompt_tokens", usage.PromptTokens),
				slog.Int("completion_tokens", usage.CompletionTokens),
				slog.Int("total_tokens", usage.TotalTokens),
			)
		}
		logger.InfoContext(ctx, "llm stream completed", attrs...)
	})
}

func requestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}
	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		first := request.Messages[0]
		attrs = append(attrs,
			slog.String("first_message_role", string(first.Role)),
			slog.String("first_message_content", utils.TruncateString(first.Content, utils.DefaultMaxStringLength)),
		)
	}
	return attrs
}

func responseAttrs(model string, response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	if response.Model != "" {
		model = response.Model
	}
	attrs := []any{
		slog.String("model", model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}
	if level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
	}
	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, utils.DefaultMaxStringLength)))
	}
	return attrs
}
