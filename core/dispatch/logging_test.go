package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/caret/providers/ai"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingMiddleware_SendLevels(t *testing.T) {
	next := func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{
			Model:        "m",
			Content:      "the answer",
			FinishReason: "stop",
			Usage:        &ai.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		}, nil
	}
	request := ai.ChatRequest{Model: "m", Messages: []ai.Message{{Role: ai.RoleUser, Content: "secret prompt"}}}

	tests := []struct {
		level   LogLevel
		want    []string
		notWant []string
	}{
		{LogLevelMinimal, []string{"prompt_tokens=3"}, []string{"message_count", "finish_reason", "secret prompt"}},
		{LogLevelStandard, []string{"message_count=1", "finish_reason=stop"}, []string{"secret prompt", "the answer"}},
		{LogLevelVerbose, []string{"secret prompt", "the answer"}, nil},
	}

	for _, tt := range tests {
		buf := &bytes.Buffer{}
		chain := NewLoggingMiddleware(testLogger(buf), tt.level).Send(next)
		if _, err := chain(context.Background(), request); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range tt.want {
			if !strings.Contains(output, want) {
				t.Errorf("level %d: expected %q in:\n%s", tt.level, want, output)
			}
		}
		for _, notWant := range tt.notWant {
			if strings.Contains(output, notWant) {
				t.Errorf("level %d: did not expect %q in:\n%s", tt.level, notWant, output)
			}
		}
	}
}

func TestLoggingMiddleware_SendError(t *testing.T) {
	buf := &bytes.Buffer{}
	boom := errors.New("upstream down")
	chain := NewLoggingMiddleware(testLogger(buf), LogLevelStandard).Send(func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
		return nil, boom
	})

	if _, err := chain(context.Background(), ai.ChatRequest{Model: "m"}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if !strings.Contains(buf.String(), "llm send failed") || !strings.Contains(buf.String(), "upstream down") {
		t.Errorf("expected failure entry, got:\n%s", buf.String())
	}
}

func fragmentStream(fragments ...string) StreamFunc {
	return func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
			for _, fragment := range fragments {
				if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: fragment}, nil) {
					return
				}
			}
			yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
		}), nil
	}
}

func TestLoggingMiddleware_StreamCompleted(t *testing.T) {
	buf := &bytes.Buffer{}
	chain := NewLoggingMiddleware(testLogger(buf), LogLevelStandard).Stream(fragmentStream("a", "b"))

	stream, err := chain(context.Background(), ai.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "llm stream completed") {
		t.Fatal("completion must not be logged before the stream is consumed")
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "ab" {
		t.Errorf("expected ab, got %q", response.Content)
	}
	output := buf.String()
	if !strings.Contains(output, "llm stream completed") || !strings.Contains(output, "fragments=2") {
		t.Errorf("expected completion entry with fragment count, got:\n%s", output)
	}
}

func TestLoggingMiddleware_StreamAbandoned(t *testing.T) {
	buf := &bytes.Buffer{}
	chain := NewLoggingMiddleware(testLogger(buf), LogLevelStandard).Stream(fragmentStream("a", "b", "c"))

	stream, err := chain(context.Background(), ai.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range stream.Iter() {
		break
	}

	if !strings.Contains(buf.String(), "llm stream abandoned") {
		t.Errorf("expected abandoned entry, got:\n%s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	if ParseLogLevel("minimal") != LogLevelMinimal || ParseLogLevel("verbose") != LogLevelVerbose || ParseLogLevel("") != LogLevelStandard {
		t.Error("unexpected level mapping")
	}
}
