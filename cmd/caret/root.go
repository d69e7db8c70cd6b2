package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/caret/core/canvas"
	"github.com/leofalp/caret/core/dispatch"
	"github.com/leofalp/caret/core/enrich"
	"github.com/leofalp/caret/core/sparkle"
	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/internal/logging"
)

var version = "0.1.0-dev"

// options holds the flags shared by every command.
type options struct {
	configPath  string
	envFiles    []string
	vault       string
	provider    string
	model       string
	temperature string
	noStream    bool
	retries     int
	timeout     time.Duration
	llmLog      string
}

// session is everything one command needs to act on a canvas.
type session struct {
	store  *canvas.FileStore
	runner *sparkle.Runner
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "caret",
		Short:        "Chat with language models on a JSON Canvas",
		Version:      version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env when present)")
	flags.StringVar(&opts.vault, "vault", "", "directory that file nodes and [[references]] resolve against")
	flags.StringVar(&opts.provider, "provider", "", "provider id, or \"default\"")
	flags.StringVar(&opts.model, "model", "", "model id, or \"default\"")
	flags.StringVar(&opts.temperature, "temperature", "", "sampling temperature in [0, 2], or \"default\"")
	flags.BoolVar(&opts.noStream, "no-stream", false, "wait for the whole answer instead of streaming")
	flags.IntVar(&opts.retries, "retries", 0, "retry transient provider failures this many times")
	flags.DurationVar(&opts.timeout, "timeout", 0, "deadline for each provider call, streams included (0 disables)")
	flags.StringVar(&opts.llmLog, "llm-log", "standard", "provider call logging: minimal, standard or verbose")

	root.AddCommand(
		newSparkleCmd(opts),
		newWorkflowCmd(opts),
		newExportCmd(opts),
		newChildCmd(opts),
		newSelectCmd(opts),
		newAskCmd(opts),
	)
	return root
}

// override turns the model flags into a per-invocation override.
func (o *options) override() (config.SparkleConfig, error) {
	temperature, err := config.ParseTemperature(o.temperature)
	if err != nil {
		return config.SparkleConfig{}, err
	}
	return config.SparkleConfig{
		Provider:    o.provider,
		Model:       o.model,
		Temperature: temperature,
	}, nil
}

// load reads the configuration and builds the logger and dispatcher.
func (o *options) load(stderr io.Writer) (config.Config, *slog.Logger, *dispatch.Dispatcher, error) {
	cfg, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if o.vault != "" {
		cfg.Vault = o.vault
	}

	logger := newLogger(cfg.Log, stderr)

	middlewares := []dispatch.MiddlewareConfig{dispatch.NewLoggingMiddleware(logger, dispatch.ParseLogLevel(o.llmLog))}
	if o.retries > 0 {
		middlewares = append(middlewares, dispatch.NewRetryMiddleware(dispatch.RetryConfig{MaxRetries: o.retries}))
	}
	if o.timeout > 0 {
		middlewares = append(middlewares, dispatch.NewTimeoutMiddleware(o.timeout))
	}
	dispatcher := dispatch.New(cfg, logger, dispatch.WithMiddleware(middlewares...))

	return cfg, logger, dispatcher, nil
}

// open loads the configuration and the canvas at path.
func (o *options) open(cmd *cobra.Command, path string) (*session, error) {
	cfg, logger, dispatcher, err := o.load(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	store, err := canvas.Open(path, logger)
	if err != nil {
		return nil, err
	}

	runner := sparkle.New(cfg, store, enrich.NewVault(cfg.Vault), dispatcher, logger)
	if o.noStream {
		runner.WithoutStreaming()
	}

	return &session{store: store, runner: runner}, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	return logging.New(logging.ParseFormat(cfg.Format), logging.ParseLevel(cfg.Level), w)
}

func printWarnings(w io.Writer, warnings []enrich.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
