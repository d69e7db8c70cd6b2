package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---- SSEScanner tests -------------------------------------------------------

// TestSSEScanner_MultipleEvents verifies that multiple events separated by
// blank lines are returned in order.
func TestSSEScanner_MultipleEvents(t *testing.T) {
	input := "data: first\n\ndata: second\n\ndata: third\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	for _, expected := range []string{"first", "second", "third"} {
		payload, err := scanner.Next()
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if payload != expected {
			t.Errorf("expected %q, got %q", expected, payload)
		}
	}

	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

// TestSSEScanner_MultiLineData verifies that consecutive "data:" lines are
// joined with newlines.
func TestSSEScanner_MultiLineData(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: one\ndata: two\n\n"))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "one\ntwo" {
		t.Errorf("expected joined payload, got %q", payload)
	}
}

// TestSSEScanner_SkipsCommentsAndFields verifies that comments and non-data
// fields are ignored.
func TestSSEScanner_SkipsCommentsAndFields(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader(": keepalive\nevent: message_start\nid: 7\ndata: payload\n\n"))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "payload" {
		t.Errorf("expected %q, got %q", "payload", payload)
	}
}

// TestSSEScanner_DoneSentinel verifies that [DONE] terminates the stream.
func TestSSEScanner_DoneSentinel(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: a\n\ndata: [DONE]\n\ndata: ignored\n\n"))

	if payload, _ := scanner.Next(); payload != "a" {
		t.Fatalf("expected %q, got %q", "a", payload)
	}
	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at [DONE], got %v", err)
	}
}

// TestSSEScanner_TrailingDataWithoutBlankLine verifies that data at EOF is flushed.
func TestSSEScanner_TrailingDataWithoutBlankLine(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: tail"))

	payload, err := scanner.Next()
	if err != nil || payload != "tail" {
		t.Fatalf("expected trailing payload, got %q / %v", payload, err)
	}
}

// ---- DoPostStream tests -----------------------------------------------------

// TestDoPostStream_Success verifies that the body is left open for reading and
// the Accept header requests an event stream.
func TestDoPostStream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected Accept text/event-stream, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: hi\n\n")
	}))
	defer server.Close()

	response, err := DoPostStream(context.Background(), server.Client(), server.URL, "k", map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer CloseWithLog(response.Body)

	payload, err := NewSSEScanner(response.Body).Next()
	if err != nil || payload != "hi" {
		t.Fatalf("expected payload %q, got %q / %v", "hi", payload, err)
	}
}

// TestDoPostStream_Non2xx verifies that error statuses are surfaced as *StatusError.
func TestDoPostStream_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "bad key")
	}))
	defer server.Close()

	_, err := DoPostStream(context.Background(), server.Client(), server.URL, "k", nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
}
