package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prereqgraph/pkg/cache"
	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/integrations/catalog"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

// fetchCommand creates the fetch command, which downloads a department
// payload from the course catalog.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	flags := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "fetch [DEPT]",
		Short: "Download a department's prerequisite payload",
		Long: `Download a department's prerequisite payload from the course catalog
service and write it to a file. The payload is validated before it is written.

Responses are cached locally; use --refresh to force a new request.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolveOptions(cmd, flags, loadFlags)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.Department = args[0]
			}
			return c.runFetch(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <dept>.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	loadFlags(cmd.Flags(), &flags)

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	dept := strings.ToUpper(opts.Department)
	if dept == "" {
		dept = graph.DefaultDepartment
	}
	if err := perrors.ValidateDepartment(dept); err != nil {
		return err
	}

	backend, err := newCache(noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer backend.Close()

	client := catalog.NewClient(cache.Observe(backend), opts.CatalogURL, cache.HTTPTTL)
	url := client.DepartmentURL(dept)

	spinner := newSpinnerWithContext(ctx, "Fetching "+url+"...")
	spinner.Start()
	prog := newProgress(c.Logger)
	raw, err := client.FetchRaw(ctx, dept, opts.Refresh)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	spinner.Stop()

	ds, err := graph.ParseDataset(raw, dept)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode %s", url)
	}
	prog.done("Fetched "+dept, "bytes", len(raw))

	if output == "" {
		output = strings.ToLower(dept) + ".json"
	}
	if err := writeFile(output, raw); err != nil {
		return err
	}

	printSuccess("Fetched %s", StyleHighlight.Render(dept))
	printFile(output)
	printDetail("%d courses · %d groups", len(ds.Courses), len(ds.Meta))
	printNewline()
	printNextStep("Lay out", "prereqgraph layout "+output)
	return nil
}
