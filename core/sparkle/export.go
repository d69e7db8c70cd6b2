package sparkle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leofalp/caret/core/conversation"
	"github.com/leofalp/caret/internal/config"
)

// Conversation compiles the conversation ending at nodeID without sending it.
func (r *Runner) Conversation(nodeID string, override config.SparkleConfig) (conversation.Document, Result, error) {
	p, err := r.prepare(nodeID, r.cfg.Resolve(override))
	if err != nil {
		return conversation.Document{}, Result{}, err
	}
	doc := conversation.Document{ID: conversation.NewID(), Messages: p.compiled.Messages}
	return doc, Result{Warnings: p.warnings}, nil
}

// ExportConversation writes the conversation ending at nodeID to
// <vault>/<chats dir>/<id>.md and returns the file path.
func (r *Runner) ExportConversation(nodeID string, override config.SparkleConfig) (string, error) {
	doc, _, err := r.Conversation(nodeID, override)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(r.cfg.Vault, r.cfg.ChatsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	path := filepath.Join(dir, doc.ID+".md")
	if err := os.WriteFile(path, []byte(conversation.Marshal(doc)), 0o644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	r.logger.Info("conversation exported", "node", nodeID, "path", path, "messages", len(doc.Messages))
	return path, nil
}
