package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
	"github.com/matzehuels/prereqgraph/pkg/render"
)

// renderCommand creates the render command. It accepts either layout JSON
// written by 'layout' or a payload, in which case the whole pipeline runs.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
	)
	flags := defaultOptions()
	groups := []flagSet{loadFlags, levelFlags, layoutFlags, renderFlags}

	cmd := &cobra.Command{
		Use:   "render [layout.json | payload.json | URL]",
		Short: "Render a layout to SVG, DOT, PNG, PDF or JSON",
		Long: `Render a layout to one or more output formats.

The argument is either a layout file produced by 'layout', which is rendered
as is, or a prerequisite payload (file or URL), which is leveled and laid
out first. Without an argument the payload for --department is fetched from
the course catalog.

SVG comes from the native writer or, with --engine graphviz, from Graphviz
(neato with pinned positions). PNG and PDF are converted from SVG and need
rsvg-convert on PATH.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolveOptions(cmd, flags, groups...)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.Input = args[0]
			}
			if cmd.Flags().Changed("format") || len(opts.Formats) == 0 {
				opts.Formats = parseFormats(formatsStr)
			}
			return c.runRender(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	bindFlags(cmd, &flags, groups...)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if needsConverter(opts.Formats) && !render.Available() {
		return fmt.Errorf("png and pdf output need rsvg-convert on PATH")
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var (
		artifacts map[string][]byte
		dept      string
		nodes     int
		links     int
		cached    bool
		crossings = -1
	)

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	if l, ok := readLayout(opts.Input); ok {
		c.Logger.Debug("rendering existing layout", "path", opts.Input, "nodes", len(l.Nodes))
		spinner.Start()
		artifacts, cached, err = runner.RenderWithCacheInfo(ctx, l, opts)
		dept, nodes, links = l.Department, len(l.Nodes), len(l.Links)
	} else {
		spinner.Start()
		var res *pipeline.Result
		res, err = runner.Execute(ctx, opts)
		if err == nil {
			artifacts = res.Artifacts
			dept = res.Dataset.Department
			nodes, links = res.Stats.NodeCount, res.Stats.EdgeCount
			cached = res.CacheInfo.LayoutHit && res.CacheInfo.RenderHit
			crossings = res.Stats.Crossings
		}
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	base := outputBase(output, opts.Input, dept)
	var written []string
	for _, format := range opts.Formats {
		path := base + "." + format
		if len(opts.Formats) == 1 && output != "" {
			path = output
		}
		if err := writeFile(path, artifacts[format]); err != nil {
			return err
		}
		written = append(written, path)
	}

	printSuccess("Rendered %s", strings.Join(opts.Formats, ", "))
	for _, path := range written {
		printFile(path)
	}
	printStats(nodes, links, cached)
	if crossings >= 0 {
		printDetail("%d crossings", crossings)
	}
	return nil
}

// readLayout reports whether input is a layout file and returns it.
// Payload files decode as layouts without nodes and are rejected.
func readLayout(input string) (graph.Layout, bool) {
	if input == "" || strings.Contains(input, "://") {
		return graph.Layout{}, false
	}
	l, err := graph.ReadLayoutFile(input)
	if err != nil || len(l.Nodes) == 0 {
		return graph.Layout{}, false
	}
	return l, true
}

func needsConverter(formats []string) bool {
	return slices.Contains(formats, pipeline.FormatPNG) || slices.Contains(formats, pipeline.FormatPDF)
}
