// Command caret runs canvas conversations from the terminal.
//
// Each node of a JSON Canvas file is a message; edges say which message
// follows which. caret walks the conversation that ends at a node, sends it
// to the configured model and writes the answer into a new node beside it.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
