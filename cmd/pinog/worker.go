package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render/pipeline"
)

// newWorkerCommand is the process the renderer spawns per render. It reads
// one JSON input on stdin and writes the image to stdout. Diagnostics go to
// stderr and a non-zero exit marks failure.
func newWorkerCommand() *cobra.Command {
	var evalTimeout time.Duration
	cmd := &cobra.Command{
		Use:    workerUse,
		Short:  "Render one card from stdin to stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), evalTimeout)
		},
	}
	cmd.Flags().DurationVar(&evalTimeout, "eval-timeout", 5*time.Second, "limit for evaluating UI code")
	return cmd
}

func runWorker(ctx context.Context, evalTimeout time.Duration) error {
	logger := observe.NewLoggerWithConfig(observe.LoggingConfig{
		Enabled: true,
		Level:   envOr("PINOG_WORKER_LOG_LEVEL", "warn"),
		Format:  "json",
		Output:  os.Stderr,
	})
	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithEvalTimeout(evalTimeout))
	if err := p.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return &exitError{code: 1}
	}
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
