// Package enrich gathers ambient context for a conversation turn: the text
// of untagged ancestor nodes, the documents behind ancestor file nodes and
// the targets of [[references]] written in node text.
//
// Gathering is bounded by a token budget. Running out of budget, a missing
// file or an unresolvable reference never fails the pass; each produces a
// Warning and the context gathered so far is used as is.
package enrich

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/core/lineage"
	"github.com/leofalp/caret/core/tokens"
	"github.com/leofalp/caret/core/workflow"
)

var referencePattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// Enricher collects context for a node.
type Enricher struct {
	reader  Reader
	counter tokens.Counter
	logger  *slog.Logger
}

// New returns an Enricher. A nil counter means tokens.Estimator and a nil
// logger means slog.Default().
func New(reader Reader, counter tokens.Counter, logger *slog.Logger) *Enricher {
	if counter == nil {
		counter = tokens.Estimator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{reader: reader, counter: counter, logger: logger}
}

// Counter returns the tokenizer budgets are measured with.
func (e *Enricher) Counter() tokens.Counter {
	return e.counter
}

// Result is the gathered context.
type Result struct {
	Text     string
	Tokens   int
	Warnings []Warning
}

// referenceName strips an alias (|) or heading/block anchor (#) from the
// inside of a [[...]] reference.
func referenceName(inner string) string {
	if i := strings.IndexAny(inner, "|#"); i >= 0 {
		inner = inner[:i]
	}
	return strings.TrimSpace(inner)
}

// ExpandReferences appends the content of every distinct [[name]] found in
// text, in order of first appearance. References that cannot be resolved or
// read are skipped with a warning.
func (e *Enricher) ExpandReferences(nodeID, text string) (string, []Warning) {
	matches := referencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var warnings []Warning
	var b strings.Builder
	b.WriteString(text)
	seen := map[string]bool{}

	for _, match := range matches {
		name := referenceName(match[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		path, err := e.reader.Resolve(name)
		if err != nil {
			warnings = append(warnings, e.warn(WarningUnresolvedReference, nodeID, fmt.Sprintf("[[%s]]: %v", name, err)))
			continue
		}
		content, err := Load(e.reader, path)
		if err != nil {
			warnings = append(warnings, e.warn(WarningUnresolvedReference, nodeID, fmt.Sprintf("[[%s]]: %v", name, err)))
			continue
		}

		fmt.Fprintf(&b, "\n\n%s", content)
	}

	return b.String(), warnings
}

// Enrich walks every ancestor of nodeID breadth first and accumulates
// context until the next piece would push the total past budget.
// Role-tagged ancestors are conversation turns and are left to the message
// compiler. Workflow documents are never folded in.
func (e *Enricher) Enrich(data canvas.Data, nodeID string, budget int) Result {
	var result Result
	var parts []string

	for _, ancestor := range lineage.AllAncestors(data, nodeID) {
		if ancestor.Role != canvas.RoleNone {
			continue
		}

		content, warnings, ok := e.nodeContent(ancestor)
		result.Warnings = append(result.Warnings, warnings...)
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}

		count := e.counter.Count(content)
		if result.Tokens+count > budget {
			result.Warnings = append(result.Warnings, e.warn(WarningBudgetExceeded, ancestor.ID,
				fmt.Sprintf("context budget of %d tokens reached; %d tokens used, node needs %d", budget, result.Tokens, count)))
			break
		}

		parts = append(parts, content)
		result.Tokens += count
	}

	result.Text = strings.Join(parts, "\n\n")
	return result
}

// nodeContent returns what an untagged ancestor contributes.
func (e *Enricher) nodeContent(node canvas.Node) (string, []Warning, bool) {
	switch node.Type {
	case canvas.KindFile:
		return e.fileContent(node)
	default:
		text, warnings := e.ExpandReferences(node.ID, node.Text)
		return text, warnings, true
	}
}

func (e *Enricher) fileContent(node canvas.Node) (string, []Warning, bool) {
	if !IsBinaryDocument(node.File) && !IsTextDocument(node.File) {
		e.logger.Debug("skipping unsupported file node", "node", node.ID, "file", node.File)
		return "", nil, false
	}

	content, err := Load(e.reader, node.File)
	if err != nil {
		return "", []Warning{e.warn(WarningMissingFile, node.ID, fmt.Sprintf("%s: %v", node.File, err))}, false
	}

	if !IsBinaryDocument(node.File) && workflow.IsDocument(content) {
		e.logger.Debug("skipping workflow document", "node", node.ID, "file", node.File)
		return "", nil, false
	}
	return content, nil, true
}

func (e *Enricher) warn(kind WarningKind, nodeID, message string) Warning {
	warning := Warning{Kind: kind, NodeID: nodeID, Message: message}
	e.logger.Warn("context enrichment", "kind", string(kind), "node", nodeID, "message", message)
	return warning
}
