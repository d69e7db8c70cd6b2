package ai

import (
	"errors"
	"iter"
	"testing"
)

// makeStream is a test helper that builds a ChatStream from a hand-crafted event
// slice. If midErr is non-nil and errAtIndex is a valid index, the error is
// injected at that position instead of a normal yield.
func makeStream(events []StreamEvent, midErr error, errAtIndex int) *ChatStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		for i, event := range events {
			if midErr != nil && i == errAtIndex {
				yield(StreamEvent{}, midErr)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
	return NewChatStream(iter.Seq2[StreamEvent, error](iteratorFunc))
}

// ========== NewSingleEventStream ==========

// TestNewSingleEventStream_ContentOnly verifies that a response with only Content
// produces a content event followed by a done event.
func TestNewSingleEventStream_ContentOnly(t *testing.T) {
	response := &ChatResponse{Content: "hello world", FinishReason: "stop"}
	stream := NewSingleEventStream(response)

	var collected []StreamEvent
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		collected = append(collected, event)
	}

	if len(collected) != 2 {
		t.Fatalf("expected 2 events (content + done), got %d", len(collected))
	}
	if collected[0].Type != StreamEventContent {
		t.Errorf("expected first event type %q, got %q", StreamEventContent, collected[0].Type)
	}
	if collected[0].Content != "hello world" {
		t.Errorf("expected content %q, got %q", "hello world", collected[0].Content)
	}
	if collected[1].Type != StreamEventDone {
		t.Errorf("expected last event type %q, got %q", StreamEventDone, collected[1].Type)
	}
	if collected[1].FinishReason != "stop" {
		t.Errorf("expected FinishReason %q, got %q", "stop", collected[1].FinishReason)
	}
}

// TestNewSingleEventStream_WithUsage verifies that usage is emitted before done.
func TestNewSingleEventStream_WithUsage(t *testing.T) {
	usage := &Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}
	stream := NewSingleEventStream(&ChatResponse{Content: "x", Usage: usage})

	var types []StreamEventType
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		types = append(types, event.Type)
	}

	want := []StreamEventType{StreamEventContent, StreamEventUsage, StreamEventDone}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], types[i])
		}
	}
}

// TestNewSingleEventStream_EarlyBreak verifies that breaking after the first
// event does not panic or yield further events.
func TestNewSingleEventStream_EarlyBreak(t *testing.T) {
	stream := NewSingleEventStream(&ChatResponse{Content: "a", Usage: &Usage{TotalTokens: 1}})

	count := 0
	for range stream.Iter() {
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected 1 event before break, got %d", count)
	}
}

// ========== Text ==========

// TestText_SkipsNonContent verifies that Text yields only content deltas.
func TestText_SkipsNonContent(t *testing.T) {
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "Hel"},
		{Type: StreamEventUsage, Usage: &Usage{TotalTokens: 3}},
		{Type: StreamEventContent, Content: "lo"},
		{Type: StreamEventDone, FinishReason: "stop"},
	}, nil, -1)

	var fragments []string
	for fragment, err := range stream.Text() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fragments = append(fragments, fragment)
	}

	if len(fragments) != 2 || fragments[0] != "Hel" || fragments[1] != "lo" {
		t.Errorf("unexpected fragments %q", fragments)
	}
}

// TestText_PropagatesError verifies that a mid-stream error reaches the caller.
func TestText_PropagatesError(t *testing.T) {
	boom := errors.New("connection reset")
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "partial"},
		{Type: StreamEventContent, Content: "never"},
	}, boom, 1)

	var gotErr error
	var fragments []string
	for fragment, err := range stream.Text() {
		if err != nil {
			gotErr = err
			break
		}
		fragments = append(fragments, fragment)
	}

	if !errors.Is(gotErr, boom) {
		t.Fatalf("expected %v, got %v", boom, gotErr)
	}
	if len(fragments) != 1 || fragments[0] != "partial" {
		t.Errorf("expected only the partial fragment, got %q", fragments)
	}
}

// ========== Collect ==========

// TestCollect_AccumulatesContent verifies that content deltas are concatenated
// and usage/finish reason are captured.
func TestCollect_AccumulatesContent(t *testing.T) {
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "The "},
		{Type: StreamEventContent, Content: "answer"},
		{Type: StreamEventUsage, Usage: &Usage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6}},
		{Type: StreamEventDone, FinishReason: "stop"},
	}, nil, -1)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "The answer" {
		t.Errorf("expected content %q, got %q", "The answer", response.Content)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 6 {
		t.Errorf("expected usage total 6, got %+v", response.Usage)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected finish reason %q, got %q", "stop", response.FinishReason)
	}
}

// TestCollect_PartialOnError verifies that a mid-stream error returns the
// content accumulated so far along with the error.
func TestCollect_PartialOnError(t *testing.T) {
	boom := errors.New("disconnect")
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "half"},
		{Type: StreamEventContent, Content: "lost"},
	}, boom, 1)

	response, err := stream.Collect()
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if response.Content != "half" {
		t.Errorf("expected partial content %q, got %q", "half", response.Content)
	}
}

// TestMessageRole_Valid checks the accepted conversation roles.
func TestMessageRole_Valid(t *testing.T) {
	tests := []struct {
		role MessageRole
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{RoleSystem, true},
		{"tool", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("MessageRole(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}
