package sparkle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/core/dispatch"
	"github.com/leofalp/caret/core/enrich"
	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/providers/ai"
)

const (
	selectionGap   = 50
	selectionColor = "6"
)

// SelectionText merges the text of the selected nodes. File nodes are read
// and introduced by their title; unreadable files are reported as warnings.
func (r *Runner) SelectionText(nodes []canvas.Node) (string, []enrich.Warning) {
	var b strings.Builder
	var warnings []enrich.Warning

	for _, node := range nodes {
		if node.Type != canvas.KindFile {
			b.WriteString(node.Text)
			b.WriteString("\n")
			continue
		}

		content, err := enrich.Load(r.reader, node.File)
		if err != nil {
			warnings = append(warnings, enrich.Warning{
				Kind:    enrich.WarningMissingFile,
				NodeID:  node.ID,
				Message: fmt.Sprintf("%s: %v", node.File, err),
			})
			continue
		}
		title := strings.TrimSuffix(node.File, filepath.Ext(node.File))
		fmt.Fprintf(&b, "Title: %s\n%s\n", title, content)
	}
	return b.String(), warnings
}

// SelectionPrompt asks the model to apply instruction to the merged content
// of nodeIDs in a single call. The answer becomes a new unconnected node to
// the right of the selection, at its average height and size.
func (r *Runner) SelectionPrompt(ctx context.Context, nodeIDs []string, instruction string, override config.SparkleConfig) (Result, error) {
	if len(nodeIDs) == 0 {
		return Result{}, fmt.Errorf("selection prompt: no nodes selected")
	}

	nodes := make([]canvas.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		node, ok := r.canvas.NodeByID(id)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, id)
		}
		nodes = append(nodes, node)
	}

	content, warnings := r.SelectionText(nodes)
	prompt := fmt.Sprintf("Please do the following:\n%s\n\nGiven this content:\n%s", instruction, content)

	resolved := r.cfg.Resolve(override)
	temperature := resolved.Temperature
	request := dispatch.Request{
		Provider:     resolved.Provider,
		Model:        resolved.Model,
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: prompt}},
		SystemPrompt: resolved.SystemPrompt,
		Temperature:  &temperature,
	}
	response, err := r.dispatcher.Call(ctx, request)
	if err != nil {
		return Result{Warnings: warnings}, err
	}

	spec := selectionSpec(nodes)
	spec.Text = response.Content
	node, err := r.canvas.CreateNode(spec)
	if err != nil {
		return Result{Warnings: warnings}, err
	}
	if err := r.canvas.Save(); err != nil {
		return Result{NodeID: node.ID, Text: node.Text, Warnings: warnings}, fmt.Errorf("saving answer: %w", err)
	}
	return Result{NodeID: node.ID, Text: node.Text, Warnings: warnings}, nil
}

// selectionSpec places a node selectionGap beyond the right-most selected
// x, at the average y with the average size.
func selectionSpec(nodes []canvas.Node) canvas.NodeSpec {
	maxX := nodes[0].X
	var sumY, sumWidth, sumHeight int
	for _, node := range nodes {
		maxX = max(maxX, node.X)
		sumY += node.Y
		sumWidth += node.Width
		sumHeight += node.Height
	}
	count := len(nodes)

	return canvas.NodeSpec{
		Type:   canvas.KindText,
		X:      maxX + selectionGap,
		Y:      sumY / count,
		Width:  sumWidth / count,
		Height: sumHeight / count,
		Color:  selectionColor,
	}
}
