package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestHandler_Compact(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &HandlerOptions{Format: FormatCompact, Level: slog.LevelDebug}))

	logger.Info("llm send completed", "provider", "ollama", "fragments", 3)

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected a single line, got:\n%s", output)
	}
	if !strings.Contains(output, " INFO llm send completed → ") {
		t.Errorf("unexpected header: %s", output)
	}
	if !strings.HasSuffix(output, `{"provider":"ollama","fragments":3}`+"\n") {
		t.Errorf("expected ordered JSON attributes, got: %s", output)
	}
}

func TestHandler_CompactWithoutAttributes(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, nil)).Warn("canvas saved")

	if strings.Contains(buf.String(), "→") {
		t.Errorf("expected no attribute separator, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), " WARN canvas saved") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestHandler_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &HandlerOptions{Format: FormatPretty}))

	logger.Error("llm send failed", "model", "gpt-4o", "error", errors.New("quota"))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[0], "ERROR llm send failed") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "├─ model: gpt-4o") {
		t.Errorf("unexpected first attribute %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "└─ error: quota") {
		t.Errorf("unexpected last attribute %q", lines[2])
	}
}

func TestHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got: %s", buf.String())
	}
}

func TestHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).
		With("canvas", "notes.canvas").
		WithGroup("node").
		With("id", "a1")

	logger.Info("turn", "role", "assistant", slog.Group("pos", "x", 10))

	line := buf.String()
	start := strings.Index(line, "{")
	var attrs map[string]any
	if err := json.Unmarshal([]byte(line[start:]), &attrs); err != nil {
		t.Fatalf("attributes are not JSON: %v\n%s", err, line)
	}

	want := map[string]any{
		"canvas":     "notes.canvas",
		"node.id":    "a1",
		"node.role":  "assistant",
		"node.pos.x": float64(10),
	}
	for key, value := range want {
		if attrs[key] != value {
			t.Errorf("%s = %v, want %v", key, attrs[key], value)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{" Compact ", FormatCompact},
		{"PRETTY", FormatPretty},
		{"text", FormatText},
		{"", FormatText},
		{"xml", FormatText},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_SelectsHandler(t *testing.T) {
	var buf bytes.Buffer
	New(FormatJSON, slog.LevelInfo, &buf).Info("hello", "k", "v")
	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("expected a JSON record, got: %s", buf.String())
	}

	buf.Reset()
	New(FormatText, slog.LevelInfo, &buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello k=v") {
		t.Errorf("expected a text record, got: %s", buf.String())
	}

	buf.Reset()
	New(FormatCompact, slog.LevelInfo, &buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `hello → {"k":"v"}`) {
		t.Errorf("expected a compact record, got: %s", buf.String())
	}
}
