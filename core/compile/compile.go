// Package compile turns a lineage and its gathered context into the ordered
// message list sent to a provider.
package compile

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/core/enrich"
	"github.com/leofalp/caret/core/tokens"
	"github.com/leofalp/caret/providers/ai"
)

// ContextInstruction follows the gathered context in the first user message.
const ContextInstruction = "Use the additional content above if it helps you answer."

// Input is everything one compilation needs.
type Input struct {
	// Lineage runs from the start node back to the oldest ancestor.
	Lineage []canvas.Node
	// StartText is the start node's content. File nodes are read by the
	// caller, so this may differ from Lineage[0].Text.
	StartText string
	// Context is the enriched ancestor context, possibly empty.
	Context string
	// ContextWindow caps the encoded size of the message list.
	ContextWindow int
	// SystemPrompt is used when no system node is found in the lineage.
	SystemPrompt string
}

// Output is the compiled conversation, oldest message first.
type Output struct {
	Messages     []ai.Message
	SystemPrompt string
	Tokens       int
	Warnings     []enrich.Warning
}

// Compiler builds message lists.
type Compiler struct {
	enricher *enrich.Enricher
	counter  tokens.Counter
	logger   *slog.Logger
}

// New returns a Compiler that expands [[references]] in user turns with
// enricher and measures with the enricher's counter.
func New(enricher *enrich.Enricher, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{enricher: enricher, counter: enricher.Counter(), logger: logger}
}

// FirstMessage joins the start text with the gathered context.
func FirstMessage(startText, context string) string {
	if context == "" {
		return startText
	}
	return startText + "\n\n" + context + "\n\n" + ContextInstruction
}

// Compile walks the lineage after the start node. User and assistant nodes
// become messages until the next one would overflow the context window;
// from then on only system nodes are still read. Each system node replaces
// the prompt found so far, so the one nearest the beginning of the
// conversation takes effect. The list is reversed to oldest first and the
// system prompt, if any, is prepended.
func (c *Compiler) Compile(in Input) Output {
	var out Output

	startID := ""
	if len(in.Lineage) > 0 {
		startID = in.Lineage[0].ID
	}
	startText, warnings := c.enricher.ExpandReferences(startID, in.StartText)
	out.Warnings = append(out.Warnings, warnings...)

	first := FirstMessage(startText, in.Context)
	out.Tokens = c.counter.Count(first)
	if out.Tokens > in.ContextWindow {
		out.Warnings = append(out.Warnings, c.warn(startID,
			fmt.Sprintf("the current message alone needs %d tokens, above the %d token window", out.Tokens, in.ContextWindow)))
	}

	reversed := []ai.Message{{Role: ai.RoleUser, Content: first}}
	systemPrompt := ""
	truncated := false

	for _, node := range in.Lineage[min(1, len(in.Lineage)):] {
		if node.Role == canvas.RoleSystem {
			systemPrompt = node.Text
			continue
		}
		if truncated || (node.Role != canvas.RoleUser && node.Role != canvas.RoleAssistant) {
			continue
		}

		message := ai.Message{Role: ai.RoleAssistant, Content: node.Text}
		if node.Role == canvas.RoleUser {
			text, warnings := c.enricher.ExpandReferences(node.ID, node.Text)
			out.Warnings = append(out.Warnings, warnings...)
			message = ai.Message{Role: ai.RoleUser, Content: text}
		}

		count := c.counter.Count(message.Content)
		if out.Tokens+count > in.ContextWindow {
			truncated = true
			out.Warnings = append(out.Warnings, c.warn(node.ID,
				fmt.Sprintf("conversation truncated at %d of %d tokens", out.Tokens, in.ContextWindow)))
			continue
		}
		out.Tokens += count
		reversed = append(reversed, message)
	}

	if systemPrompt == "" {
		systemPrompt = in.SystemPrompt
	}

	slices.Reverse(reversed)
	if systemPrompt != "" {
		out.Messages = append(out.Messages, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	}
	out.Messages = append(out.Messages, reversed...)
	out.SystemPrompt = systemPrompt
	return out
}

func (c *Compiler) warn(nodeID, message string) enrich.Warning {
	c.logger.Warn("message compilation", "node", nodeID, "message", message)
	return enrich.Warning{Kind: enrich.WarningBudgetExceeded, NodeID: nodeID, Message: message}
}
