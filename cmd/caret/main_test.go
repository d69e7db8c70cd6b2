package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leofalp/caret/core/canvas"
)

// fakeOllama answers chat completions with the given words, streamed or not.
func fakeOllama(t *testing.T, words ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}

		if !body.Stream {
			fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, strings.Join(words, ""))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, word := range words {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", word)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)
	return server
}

// workspace writes a config pointing at baseURL and a two-node canvas.
func workspace(t *testing.T, baseURL string) (configPath, canvasPath string) {
	t.Helper()
	dir := t.TempDir()

	configPath = filepath.Join(dir, "caret.yaml")
	config := fmt.Sprintf(`provider: ollama
model: llama3.1
vault: %q
providers:
  ollama:
    base_url: %q
log:
  level: error
`, dir, baseURL)
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	canvasPath = filepath.Join(dir, "chat.canvas")
	doc := `{
	"nodes": [
		{"id": "q1", "type": "text", "text": "<role>user</role>\nName a gopher.", "x": 0, "y": 0, "width": 250, "height": 60},
		{"id": "a1", "type": "text", "text": "Gordon.", "role": "assistant", "x": 450, "y": 0, "width": 250, "height": 60},
		{"id": "q2", "type": "text", "text": "Another one?", "role": "user", "x": 900, "y": 0, "width": 250, "height": 60}
	],
	"edges": [
		{"id": "e1", "fromNode": "q1", "fromSide": "right", "toNode": "a1", "toSide": "left"},
		{"id": "e2", "fromNode": "a1", "fromSide": "right", "toNode": "q2", "toSide": "left"},
	]
}`
	if err := os.WriteFile(canvasPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, canvasPath
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func reload(t *testing.T, path string) canvas.Data {
	t.Helper()
	store, err := canvas.Open(path, nil)
	if err != nil {
		t.Fatalf("reopen canvas: %v", err)
	}
	return store.Data()
}

func TestSparkleCommand_Streams(t *testing.T) {
	server := fakeOllama(t, "Go", "pher", " Jr.")
	configPath, canvasPath := workspace(t, server.URL)

	stdout, stderr, err := run(t, "sparkle", canvasPath, "q2", "--config", configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "Gopher Jr.") {
		t.Errorf("expected streamed answer on stdout, got %q", stdout)
	}

	data := reload(t, canvasPath)
	if len(data.Nodes) != 4 {
		t.Fatalf("expected the answer node to be saved, got %d nodes", len(data.Nodes))
	}
	answer := data.Nodes[3]
	if answer.Text != "Gopher Jr." || answer.Role != canvas.RoleAssistant {
		t.Errorf("unexpected answer node %+v", answer)
	}
	// the role tag was turned into a typed role on load
	if q1, _ := data.NodeByID("q1"); q1.Role != canvas.RoleUser || q1.Text != "Name a gopher." {
		t.Errorf("unexpected q1 %+v", q1)
	}
}

func TestSparkleCommand_NoStream(t *testing.T) {
	server := fakeOllama(t, "whole")
	configPath, canvasPath := workspace(t, server.URL)

	if _, stderr, err := run(t, "sparkle", canvasPath, "q2", "--config", configPath, "--no-stream"); err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	if data := reload(t, canvasPath); data.Nodes[len(data.Nodes)-1].Text != "whole" {
		t.Errorf("expected synchronous answer saved")
	}
}

func TestSparkleCommand_BadTemperature(t *testing.T) {
	configPath, canvasPath := workspace(t, "http://127.0.0.1:1")
	if _, _, err := run(t, "sparkle", canvasPath, "q2", "--config", configPath, "--temperature", "9"); err == nil {
		t.Fatal("expected an error for temperature 9")
	}
}

func TestChildCommand(t *testing.T) {
	configPath, canvasPath := workspace(t, "http://127.0.0.1:1")

	stdout, stderr, err := run(t, "child", canvasPath, "q2", "--config", configPath, "--direction", "bottom", "--text", "follow up")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	id := strings.TrimSpace(stdout)

	data := reload(t, canvasPath)
	child, ok := data.NodeByID(id)
	if !ok {
		t.Fatalf("child %q not saved", id)
	}
	if child.Role != canvas.RoleUser || child.Text != "follow up" || child.Y != 260 {
		t.Errorf("unexpected child %+v", child)
	}
	if neighbor, ok := canvas.Neighbor(data, "q2", canvas.SideBottom); !ok || neighbor.ID != id {
		t.Error("expected an edge from the bottom of q2")
	}
}

func TestChildCommand_InvalidDirection(t *testing.T) {
	configPath, canvasPath := workspace(t, "http://127.0.0.1:1")
	if _, _, err := run(t, "child", canvasPath, "q2", "--config", configPath, "--direction", "up"); err == nil {
		t.Fatal("expected an error for an invalid direction")
	}
}

func TestExportCommand(t *testing.T) {
	configPath, canvasPath := workspace(t, "http://127.0.0.1:1")

	stdout, stderr, err := run(t, "export", canvasPath, "q2", "--config", configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	for _, want := range []string{"```xml", "<role>user</role><content>Name a gopher.</content>", "<role>assistant</role><content>Gordon.</content>"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestAskCommand(t *testing.T) {
	server := fakeOllama(t, "pong")
	configPath, _ := workspace(t, server.URL)

	stdout, stderr, err := run(t, "ask", "ping", "--config", configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	if strings.TrimSpace(stdout) != "pong" {
		t.Errorf("expected pong, got %q", stdout)
	}
}

func TestAskCommand_TimeoutAndCompactLog(t *testing.T) {
	server := fakeOllama(t, "pong")
	configPath, _ := workspace(t, server.URL)
	t.Setenv("CARET_LOG_LEVEL", "info")
	t.Setenv("CARET_LOG_FORMAT", "compact")

	stdout, stderr, err := run(t, "ask", "ping", "--config", configPath, "--timeout", "5s")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	if strings.TrimSpace(stdout) != "pong" {
		t.Errorf("expected pong, got %q", stdout)
	}
	if !strings.Contains(stderr, "INFO llm send completed → {") {
		t.Errorf("expected a compact log line, got:\n%s", stderr)
	}
}
