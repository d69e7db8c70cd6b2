// Package sparkle runs one conversation turn on a canvas: it resolves the
// lineage of a node, gathers context, compiles the messages, dispatches them
// and writes the answer into a new assistant node to the right.
//
// A node that is a workflow document is handed to the workflow expander,
// which calls back into the runner once per step.
package sparkle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/core/compile"
	"github.com/leofalp/caret/core/dispatch"
	"github.com/leofalp/caret/core/enrich"
	"github.com/leofalp/caret/core/lineage"
	"github.com/leofalp/caret/core/materialize"
	"github.com/leofalp/caret/core/tokens"
	"github.com/leofalp/caret/core/workflow"
	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/providers/ai"
)

// Dispatcher is the part of dispatch.Dispatcher the runner uses.
type Dispatcher interface {
	Call(ctx context.Context, request dispatch.Request) (*ai.ChatResponse, error)
	Stream(ctx context.Context, request dispatch.Request) (*ai.ChatStream, error)
	Check(provider, model string, stream bool) error
}

// Result describes what a run produced.
type Result struct {
	// NodeID is the assistant node holding the answer. For a linear
	// workflow it is the last step's answer; parallel workflows leave it
	// empty.
	NodeID   string
	Text     string
	Warnings []enrich.Warning
	Workflow *workflow.Result
}

// Runner executes turns against one canvas.
type Runner struct {
	cfg        config.Config
	canvas     canvas.Accessor
	reader     enrich.Reader
	dispatcher Dispatcher
	logger     *slog.Logger

	noStream bool
	observer func(nodeID, fragment string)
}

// New returns a Runner. A nil logger means slog.Default().
func New(cfg config.Config, acc canvas.Accessor, reader enrich.Reader, dispatcher Dispatcher, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, canvas: acc, reader: reader, dispatcher: dispatcher, logger: logger}
}

// WithoutStreaming makes every turn use a synchronous call.
func (r *Runner) WithoutStreaming() *Runner {
	r.noStream = true
	return r
}

// WithObserver is called with every fragment written into an answer node.
func (r *Runner) WithObserver(observer func(nodeID, fragment string)) *Runner {
	r.observer = observer
	return r
}

// Run answers the conversation ending at nodeID, or expands it when it is a
// workflow document.
func (r *Runner) Run(ctx context.Context, nodeID string, override config.SparkleConfig) (Result, error) {
	node, ok := r.canvas.NodeByID(nodeID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, nodeID)
	}

	if doc, ok, err := r.workflowDocument(node); err != nil {
		return Result{}, err
	} else if ok {
		return r.expand(ctx, node, doc, override)
	}

	return r.turn(ctx, node.ID, r.cfg.Resolve(override))
}

// RunTurn runs a single turn from userNodeID and returns the answer node.
func (r *Runner) RunTurn(ctx context.Context, userNodeID string, override config.SparkleConfig) (string, error) {
	result, err := r.turn(ctx, userNodeID, r.cfg.Resolve(override))
	return result.NodeID, err
}

// CheckTurn reports configuration errors, such as missing credentials, that
// RunTurn would hit with override. It touches neither the canvas nor the
// network.
func (r *Runner) CheckTurn(override config.SparkleConfig) error {
	return r.check(r.cfg.Resolve(override))
}

func (r *Runner) check(resolved config.Resolved) error {
	return r.dispatcher.Check(resolved.Provider, resolved.Model, r.streams(resolved))
}

func (r *Runner) streams(resolved config.Resolved) bool {
	return resolved.SupportsStreaming && !r.noStream
}

// Workflow returns the workflow document held by nodeID, if any.
func (r *Runner) Workflow(nodeID string) (workflow.Document, bool, error) {
	node, ok := r.canvas.NodeByID(nodeID)
	if !ok {
		return workflow.Document{}, false, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, nodeID)
	}
	return r.workflowDocument(node)
}

// workflowDocument reports whether node is a file node holding a workflow.
// A document that is marked as a workflow but fails to parse is an error.
func (r *Runner) workflowDocument(node canvas.Node) (workflow.Document, bool, error) {
	if node.Type != canvas.KindFile || !enrich.IsTextDocument(node.File) {
		return workflow.Document{}, false, nil
	}
	content, err := enrich.Load(r.reader, node.File)
	if err != nil || !workflow.IsDocument(content) {
		return workflow.Document{}, false, nil
	}

	doc, err := workflow.Parse(content)
	if err != nil {
		return workflow.Document{}, false, fmt.Errorf("%s: %w", node.File, err)
	}
	return doc, true, nil
}

func (r *Runner) expand(ctx context.Context, source canvas.Node, doc workflow.Document, base config.SparkleConfig) (Result, error) {
	turn := workflowTurn{runner: r, base: base}
	expanded, err := workflow.NewExpander(r.canvas, turn, r.logger).Expand(ctx, source.ID, doc)
	result := Result{NodeID: expanded.Final, Workflow: &expanded}
	if node, ok := r.canvas.NodeByID(expanded.Final); ok {
		result.Text = node.Text
	}
	return result, err
}

// workflowTurn runs workflow steps on top of the run-level override.
type workflowTurn struct {
	runner *Runner
	base   config.SparkleConfig
}

func (t workflowTurn) RunTurn(ctx context.Context, userNodeID string, step config.SparkleConfig) (string, error) {
	return t.runner.RunTurn(ctx, userNodeID, mergeOverride(t.base, step))
}

func (t workflowTurn) CheckTurn(step config.SparkleConfig) error {
	return t.runner.CheckTurn(mergeOverride(t.base, step))
}

// mergeOverride lets a workflow step's own settings win over the run's.
func mergeOverride(run, step config.SparkleConfig) config.SparkleConfig {
	merged := run
	if !isDefault(step.Provider) {
		merged.Provider = step.Provider
	}
	if !isDefault(step.Model) {
		merged.Model = step.Model
	}
	if step.Temperature != nil {
		merged.Temperature = step.Temperature
	}
	if step.SystemPrompt != "" {
		merged.SystemPrompt = step.SystemPrompt
	}
	return merged
}

func isDefault(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, config.Default)
}

// prepared is a compiled conversation ready for dispatch.
type prepared struct {
	start    canvas.Node
	compiled compile.Output
	warnings []enrich.Warning
}

// prepare runs lineage, enrichment and compilation for startID.
func (r *Runner) prepare(startID string, resolved config.Resolved) (prepared, error) {
	data := r.canvas.Data()
	nodes := lineage.Longest(data, startID)
	if len(nodes) == 0 {
		return prepared{}, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, startID)
	}
	start := nodes[0]

	startText := start.Text
	if start.Type == canvas.KindFile {
		text, err := enrich.Load(r.reader, start.File)
		if err != nil {
			return prepared{}, fmt.Errorf("reading %s: %w", start.File, err)
		}
		startText = text
	}

	counter := tokens.ForModel(resolved.Model, r.logger)
	enricher := enrich.New(r.reader, counter, r.logger)

	budget := max(resolved.ContextWindow-counter.Count(startText), 0)
	gathered := enricher.Enrich(data, startID, budget)

	compiled := compile.New(enricher, r.logger).Compile(compile.Input{
		Lineage:       nodes,
		StartText:     startText,
		Context:       gathered.Text,
		ContextWindow: resolved.ContextWindow,
		SystemPrompt:  resolved.SystemPrompt,
	})

	warnings := append(gathered.Warnings, compiled.Warnings...)
	return prepared{start: start, compiled: compiled, warnings: warnings}, nil
}

func (r *Runner) turn(ctx context.Context, startID string, resolved config.Resolved) (Result, error) {
	p, err := r.prepare(startID, resolved)
	if err != nil {
		return Result{}, err
	}
	if err := r.check(resolved); err != nil {
		return Result{Warnings: p.warnings}, err
	}

	answer, err := canvas.CreateChild(r.canvas, p.start, canvas.SideRight, "", canvas.RoleAssistant)
	if err != nil {
		return Result{}, err
	}
	r.save()

	r.logger.InfoContext(ctx, "sparkle",
		slog.String("node", startID),
		slog.String("answer", answer.ID),
		slog.String("provider", resolved.Provider),
		slog.String("model", resolved.Model),
		slog.Int("messages", len(p.compiled.Messages)),
		slog.Int("tokens", p.compiled.Tokens),
		slog.Int("warnings", len(p.warnings)),
	)

	temperature := resolved.Temperature
	request := dispatch.Request{
		Provider:    resolved.Provider,
		Model:       resolved.Model,
		Messages:    p.compiled.Messages,
		Temperature: &temperature,
	}

	text, err := r.respond(ctx, answer.ID, request, r.streams(resolved))
	// partial answers are kept on disk too
	if saveErr := r.canvas.Save(); saveErr != nil && err == nil {
		err = fmt.Errorf("saving answer: %w", saveErr)
	}

	return Result{NodeID: answer.ID, Text: text, Warnings: p.warnings}, err
}

func (r *Runner) respond(ctx context.Context, nodeID string, request dispatch.Request, stream bool) (string, error) {
	writer := materialize.New(r.canvas, r.logger).WithObserver(r.observer)

	if !stream {
		response, err := r.dispatcher.Call(ctx, request)
		if err != nil {
			return "", err
		}
		return response.Content, writer.Write(nodeID, response.Content)
	}

	chatStream, err := r.dispatcher.Stream(ctx, request)
	if err != nil {
		return "", err
	}
	return writer.Stream(ctx, nodeID, chatStream)
}

func (r *Runner) save() {
	if err := r.canvas.Save(); err != nil {
		r.logger.Warn("saving canvas failed", "error", err.Error())
	}
}
