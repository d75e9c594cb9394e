package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prereqgraph/pkg/dag"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

// layoutCommand creates the layout command for computing column layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	flags := defaultOptions()
	groups := []flagSet{loadFlags, levelFlags, layoutFlags}

	cmd := &cobra.Command{
		Use:   "layout [payload.json | URL]",
		Short: "Compute a column layout from a prerequisite payload",
		Long: `Compute a column layout from a prerequisite payload.

The payload is read from a file or URL, or fetched from the course catalog
for --department when no argument is given. Courses are leveled into
columns and the force simulation runs until it settles or --max-ticks ticks
have run. The result is written as layout JSON (same format as
'render -f json') and can be rendered or inspected later.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolveOptions(cmd, flags, groups...)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.Input = args[0]
			}
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	bindFlags(cmd, &flags, groups...)

	return cmd
}

// runLayout loads the payload, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	ds, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", pipeline.Source(opts), err)
	}

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	l, cacheHit, err := runner.GenerateLayoutWithCacheInfo(ctx, ds, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase("", opts.Input, ds.Department) + ".layout.json"
	}
	if err := graph.WriteLayoutFile(l, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(l.Nodes), len(l.Links), cacheHit)
	g, _ := ds.Build()
	printDetail("%d columns · %d crossings · %d ticks", len(l.Columns), dag.Crossings(g, l.Order()), l.Ticks)
	printNewline()
	printNextStep("Render", "prereqgraph render "+outputPath)
	printNextStep("Inspect", "prereqgraph inspect "+outputPath)

	return nil
}
