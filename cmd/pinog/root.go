package main

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/pinog/render"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pinog",
		Short:         "Pin preview card service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (default $PINOG_CONFIG or ./pinog.yaml)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newWorkerCommand())
	cmd.AddCommand(newRenderCommand())
	return cmd
}

// workerUse is the subcommand the renderer re-executes.
const workerUse = render.WorkerSubcommand
