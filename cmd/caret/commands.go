package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/core/conversation"
)

func newSparkleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sparkle <canvas> <node-id>",
		Short: "Answer the conversation ending at a node",
		Long: `Walks the longest chain of edges leading to the node, gathers context
from its other ancestors and writes the model's answer into a new node to
its right. Workflow documents are expanded step by step.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			override, err := opts.override()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s.runner.WithObserver(func(_ string, fragment string) { fmt.Fprint(out, fragment) })

			result, err := s.runner.Run(cmd.Context(), args[1], override)
			fmt.Fprintln(out)
			printWarnings(cmd.ErrOrStderr(), result.Warnings)
			if err != nil {
				return err
			}
			if result.NodeID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "answer written to node %s\n", result.NodeID)
			}
			return nil
		},
	}
}

func newWorkflowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "workflow <canvas> <node-id>",
		Short: "Run the workflow document held by a file node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			override, err := opts.override()
			if err != nil {
				return err
			}

			doc, ok, err := s.runner.Workflow(args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("node %s is not a workflow document", args[1])
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "running %s workflow with %d steps\n", doc.Kind, len(doc.Steps))

			result, err := s.runner.Run(cmd.Context(), args[1], override)
			if result.Workflow != nil {
				for _, step := range result.Workflow.Steps {
					status := "ok"
					if step.Err != nil {
						status = step.Err.Error()
					}
					fmt.Fprintf(cmd.OutOrStdout(), "step %d: user %s -> answer %s: %s\n", step.Step+1, step.UserNode, step.AssistantNode, status)
				}
			}
			return err
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "export <canvas> <node-id>",
		Short: "Print the conversation ending at a node as a chat document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			override, err := opts.override()
			if err != nil {
				return err
			}

			if write {
				path, err := s.runner.ExportConversation(args[1], override)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			doc, result, err := s.runner.Conversation(args[1], override)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), result.Warnings)
			fmt.Fprint(cmd.OutOrStdout(), conversation.Marshal(doc))
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "save to <vault>/<chats dir>/<id>.md instead of printing")
	return cmd
}

func newChildCmd(opts *options) *cobra.Command {
	var (
		direction string
		text      string
	)

	cmd := &cobra.Command{
		Use:   "child <canvas> <node-id>",
		Short: "Create an empty user node next to a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := canvas.Side(strings.ToLower(direction))
			if !side.Valid() {
				return fmt.Errorf("%w: %q", canvas.ErrInvalidSide, direction)
			}

			s, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			parent, ok := s.store.NodeByID(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, args[1])
			}

			child, err := canvas.CreateChild(s.store, parent, side, text, canvas.RoleUser)
			if err != nil {
				return err
			}
			if err := s.store.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), child.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", string(canvas.SideRight), "left, right, top or bottom")
	cmd.Flags().StringVar(&text, "text", "", "text of the new node")
	return cmd
}

func newSelectCmd(opts *options) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "select <canvas> <node-id>...",
		Short: "Apply an instruction to several nodes at once",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(instruction) == "" {
				return errors.New("--instruction is required")
			}
			s, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			override, err := opts.override()
			if err != nil {
				return err
			}

			result, err := s.runner.SelectionPrompt(cmd.Context(), args[1:], instruction, override)
			printWarnings(cmd.ErrOrStderr(), result.Warnings)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "answer written to node %s\n", result.NodeID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "what to do with the selected nodes")
	return cmd
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a single prompt without a canvas",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, dispatcher, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			override, err := opts.override()
			if err != nil {
				return err
			}

			resolved := cfg.Resolve(override)
			temperature := resolved.Temperature
			answer, err := dispatcher.Prompt(cmd.Context(), resolved.Provider, resolved.Model, strings.Join(args, " "), &temperature)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
