// Package materialize writes model output into a canvas node.
//
// Text is only ever appended to the destination node, and the node is resized
// after every append. When a stream fails, the text written so far stays in
// the node and the error is returned.
package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/providers/ai"
)

// Materializer appends text to nodes of one graph.
type Materializer struct {
	acc      canvas.Accessor
	layout   Layout
	observer func(nodeID, fragment string)
	logger   *slog.Logger
}

// New returns a Materializer using WordLayout. A nil logger means
// slog.Default().
func New(acc canvas.Accessor, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{acc: acc, layout: WordLayout, logger: logger}
}

// WithLayout replaces the sizing heuristic.
func (m *Materializer) WithLayout(layout Layout) *Materializer {
	m.layout = layout
	return m
}

// WithObserver registers a callback invoked after each fragment is written.
func (m *Materializer) WithObserver(observer func(nodeID, fragment string)) *Materializer {
	m.observer = observer
	return m
}

// Write appends a completed answer in one step.
func (m *Materializer) Write(nodeID, text string) error {
	return m.appendText(nodeID, text)
}

// Stream appends each content fragment as it arrives and returns the text
// this call wrote. A mid-stream error or a cancelled ctx stops consumption;
// the partial text is returned along with the error. Every return path stops
// the stream's iterator.
func (m *Materializer) Stream(ctx context.Context, nodeID string, stream *ai.ChatStream) (string, error) {
	var written strings.Builder
	fragments := 0

	for fragment, err := range stream.Text() {
		if err != nil {
			m.logger.WarnContext(ctx, "stream interrupted",
				slog.String("node", nodeID),
				slog.Int("fragments", fragments),
				slog.String("error", err.Error()),
			)
			return written.String(), err
		}
		if err := ctx.Err(); err != nil {
			return written.String(), err
		}

		if err := m.appendText(nodeID, fragment); err != nil {
			return written.String(), err
		}
		written.WriteString(fragment)
		fragments++
	}

	m.logger.DebugContext(ctx, "stream materialized",
		slog.String("node", nodeID),
		slog.Int("fragments", fragments),
		slog.Int("bytes", written.Len()),
	)
	return written.String(), nil
}

func (m *Materializer) appendText(nodeID, fragment string) error {
	err := m.acc.UpdateNode(nodeID, func(node *canvas.Node) {
		node.Text += fragment
		node.Width, node.Height = m.layout(node.Text)
	})
	if err != nil {
		return fmt.Errorf("materialize %s: %w", nodeID, err)
	}
	if m.observer != nil {
		m.observer(nodeID, fragment)
	}
	return nil
}
