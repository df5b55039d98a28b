package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render/pipeline"
)

type renderOptions struct {
	propsPath string
	output    string
	format    string
	width     int
	height    int
	baseURL   string
}

// newRenderCommand renders a UI file in-process, for iterating on a card
// without the service.
func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <ui-file>",
		Short: "Render a UI file to PNG or SVG",
		Example: `  pinog render card.jsx --props props.json -o card.png
  pinog render card.jsx --format svg -o - > card.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.propsPath, "props", "", "JSON file with props")
	f.StringVarP(&opts.output, "output", "o", "", "output file, - for stdout (default <ui-file>.<format>)")
	f.StringVar(&opts.format, "format", "", "png or svg (default from the output extension, else png)")
	f.IntVar(&opts.width, "width", pipeline.DefaultWidth, "card width")
	f.IntVar(&opts.height, "height", pipeline.DefaultHeight, "card height")
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:3000", "base for root-relative asset URLs")
	return cmd
}

func runRender(cmd *cobra.Command, uiPath string, opts *renderOptions) error {
	code, err := os.ReadFile(uiPath)
	if err != nil {
		return err
	}
	props := map[string]any{}
	if opts.propsPath != "" {
		raw, err := os.ReadFile(opts.propsPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &props); err != nil {
			return fmt.Errorf("props: %w", err)
		}
	}

	format := pipeline.Format(strings.ToLower(opts.format))
	if format == "" {
		format = pipeline.FormatPNG
		if strings.EqualFold(filepath.Ext(opts.output), ".svg") {
			format = pipeline.FormatSVG
		}
	}
	out := opts.output
	if out == "" {
		out = strings.TrimSuffix(uiPath, filepath.Ext(uiPath)) + "." + string(format)
	}

	logger := observe.NewLoggerWithConfig(observe.LoggingConfig{Enabled: true, Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
	var buf bytes.Buffer
	err = pipeline.New(pipeline.WithLogger(logger)).Render(cmd.Context(), pipeline.Input{
		UICode:  string(code),
		Props:   props,
		Width:   opts.width,
		Height:  opts.height,
		BaseURL: opts.baseURL,
		Format:  format,
	}, &buf)
	if err != nil {
		return err
	}

	if out == "-" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, buf.Len())
	return nil
}
