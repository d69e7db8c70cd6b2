package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/internal/config"
)

// branchGap is the vertical space between parallel branch nodes.
const branchGap = 50

// Turn runs one conversation turn whose last user message is the node
// userNodeID and returns the id of the assistant node holding the reply.
type Turn interface {
	RunTurn(ctx context.Context, userNodeID string, override config.SparkleConfig) (string, error)
}

// Checker is implemented by turns that can detect configuration errors
// without side effects. Expand checks every step before creating any node.
type Checker interface {
	CheckTurn(override config.SparkleConfig) error
}

// TurnFunc adapts a function to Turn.
type TurnFunc func(ctx context.Context, userNodeID string, override config.SparkleConfig) (string, error)

// RunTurn implements Turn.
func (f TurnFunc) RunTurn(ctx context.Context, userNodeID string, override config.SparkleConfig) (string, error) {
	return f(ctx, userNodeID, override)
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step          int
	UserNode      string
	AssistantNode string
	Err           error
}

// Result is what an expansion produced. For linear workflows Final is the
// last assistant node; parallel workflows leave it empty.
type Result struct {
	Kind  Kind
	Steps []StepResult
	Final string
}

// Expander drives a document's steps over a canvas.
type Expander struct {
	canvas canvas.Accessor
	turn   Turn
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExpander returns an Expander. A nil logger means slog.Default().
func NewExpander(acc canvas.Accessor, turn Turn, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{canvas: acc, turn: turn, logger: logger, sleep: sleepContext}
}

// WithSleep replaces the delay function, mainly for tests.
func (e *Expander) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Expander {
	e.sleep = sleep
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Expand validates doc and runs it from sourceID. Nothing is created when
// the document is invalid, the source node is missing or, for a Checker
// turn, any step fails its check.
func (e *Expander) Expand(ctx context.Context, sourceID string, doc Document) (Result, error) {
	if err := doc.Validate(); err != nil {
		return Result{}, err
	}
	source, ok := e.canvas.NodeByID(sourceID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, sourceID)
	}
	if checker, ok := e.turn.(Checker); ok {
		for i, step := range doc.Steps {
			if err := checker.CheckTurn(step.Override(doc.SystemPrompt)); err != nil {
				return Result{}, fmt.Errorf("workflow step %d: %w", i+1, err)
			}
		}
	}

	e.logger.Info("expanding workflow", "kind", doc.Kind, "steps", len(doc.Steps), "source", sourceID)

	if doc.Kind == KindParallel {
		return e.parallel(ctx, source, doc)
	}
	return e.linear(ctx, source, doc)
}

// linear chains each step off the previous reply. The first failure stops
// the chain since later prompts build on earlier answers.
func (e *Expander) linear(ctx context.Context, source canvas.Node, doc Document) (Result, error) {
	result := Result{Kind: KindLinear}
	previous := source

	for i, step := range doc.Steps {
		stepResult := StepResult{Step: i}

		user, err := canvas.CreateChild(e.canvas, previous, canvas.SideRight, step.Prompt, canvas.RoleUser)
		if err != nil {
			return result, fmt.Errorf("workflow step %d: %w", i+1, err)
		}
		stepResult.UserNode = user.ID
		if err := e.canvas.Save(); err != nil {
			e.logger.Warn("saving canvas failed", "error", err.Error())
		}

		assistantID, err := e.runStep(ctx, user.ID, step, doc.SystemPrompt)
		stepResult.AssistantNode = assistantID
		stepResult.Err = err
		result.Steps = append(result.Steps, stepResult)
		if err != nil {
			return result, fmt.Errorf("workflow step %d: %w", i+1, err)
		}

		next, ok := e.canvas.NodeByID(assistantID)
		if !ok {
			return result, fmt.Errorf("workflow step %d: %w: %s", i+1, canvas.ErrNodeNotFound, assistantID)
		}
		previous = next
		result.Final = assistantID
	}

	return result, nil
}

// parallel fans every step out from source. Branch failures are recorded
// per step and joined into the returned error once all branches are done.
func (e *Expander) parallel(ctx context.Context, source canvas.Node, doc Document) (Result, error) {
	results := make([]StepResult, len(doc.Steps))
	positions := branchPositions(source, len(doc.Steps))

	var group errgroup.Group

	for i, step := range doc.Steps {
		group.Go(func() error {
			stepResult := StepResult{Step: i}
			defer func() { results[i] = stepResult }()

			user, err := canvas.CreateConnected(e.canvas, source.ID, canvas.SideRight, canvas.NodeSpec{
				Type:   canvas.KindText,
				Text:   step.Prompt,
				X:      positions[i].x,
				Y:      positions[i].y,
				Width:  source.Width,
				Height: source.Height,
				Role:   canvas.RoleUser,
			})
			if err != nil {
				stepResult.Err = err
				return nil
			}
			stepResult.UserNode = user.ID
			if err := e.canvas.Save(); err != nil {
				e.logger.Warn("saving canvas failed", "error", err.Error())
			}

			stepResult.AssistantNode, stepResult.Err = e.runStep(ctx, user.ID, step, doc.SystemPrompt)
			if stepResult.Err != nil {
				e.logger.Warn("workflow branch failed", "step", i+1, "error", stepResult.Err.Error())
			}
			// Branch errors stay in the result so siblings keep running
			return nil
		})
	}
	_ = group.Wait()

	var errs []error
	for _, stepResult := range results {
		if stepResult.Err != nil {
			errs = append(errs, fmt.Errorf("workflow branch %d: %w", stepResult.Step+1, stepResult.Err))
		}
	}
	return Result{Kind: KindParallel, Steps: results}, errors.Join(errs...)
}

func (e *Expander) runStep(ctx context.Context, userNodeID string, step Step, systemPrompt string) (string, error) {
	if err := e.sleep(ctx, step.Delay); err != nil {
		return "", err
	}
	return e.turn.RunTurn(ctx, userNodeID, step.Override(systemPrompt))
}

type position struct{ x, y int }

// branchPositions stacks n nodes of the source's size to its right, centred
// on the source's vertical midpoint.
func branchPositions(source canvas.Node, n int) []position {
	x := source.X + source.Width + 200
	total := n*source.Height + (n-1)*branchGap
	top := source.Y + source.Height/2 - total/2

	positions := make([]position, n)
	for i := range positions {
		positions[i] = position{x: x, y: top + i*(source.Height+branchGap)}
	}
	return positions
}
