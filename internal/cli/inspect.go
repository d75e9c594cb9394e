package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

// inspectCommand creates the inspect command, an interactive view of the
// columns of a payload's layout.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	flags := defaultOptions()
	groups := []flagSet{loadFlags, levelFlags, layoutFlags}

	cmd := &cobra.Command{
		Use:   "inspect [payload.json | URL]",
		Short: "Browse and edit a layout's columns in the terminal",
		Long: `Lay out a prerequisite payload and browse it column by column.

Select a course with the arrow keys to see what it requires and what
requires it. shift+←/→ drags the course into the neighboring column; the
simulation runs again and the course stays where it was dropped. Press w to
write the current layout as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolveOptions(cmd, flags, groups...)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.Input = args[0]
			}
			return c.runInspect(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file written by w (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	bindFlags(cmd, &flags, groups...)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	spinner := newSpinnerWithContext(ctx, "Loading "+pipeline.Source(opts)+"...")
	spinner.Start()
	s, ds, err := runner.NewSession(ctx, opts)
	if err != nil {
		spinner.StopWithError("Load failed")
		return err
	}
	// Settle before the first frame so the columns open in a stable order.
	spinner.Update(fmt.Sprintf("Settling %d courses...", len(ds.Courses)))
	s.Run(opts.MaxTicks)
	spinner.Stop()

	if output == "" {
		output = outputBase("", opts.Input, ds.Department) + ".layout.json"
	}
	save := func(l graph.Layout) (string, error) {
		return output, graph.WriteLayoutFile(l, output)
	}

	model := NewColumnsModel(s, ds.Department, save)
	final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run inspector: %w", err)
	}

	if m, ok := final.(ColumnsModel); ok && m.Dirty {
		printWarning("Quit with unsaved moves")
	}
	return nil
}
