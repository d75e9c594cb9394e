package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

// flagSet registers a group of option flags on fs, bound to o. Defaults are
// taken from o, so registering onto options loaded from a file keeps the
// file's values.
type flagSet func(fs *pflag.FlagSet, o *pipeline.Options)

func loadFlags(fs *pflag.FlagSet, o *pipeline.Options) {
	fs.StringVarP(&o.Department, "department", "d", o.Department, "department code (default CSCI)")
	fs.StringVar(&o.CatalogURL, "catalog-url", o.CatalogURL, "course catalog service URL")
	fs.BoolVar(&o.Refresh, "refresh", o.Refresh, "bypass cached payloads and layouts")
}

func levelFlags(fs *pflag.FlagSet, o *pipeline.Options) {
	fs.IntVar(&o.HighLevelIndex, "high-level-index", o.HighLevelIndex, "index of the course-number digit that marks high-level courses")
	fs.IntVar(&o.HighLevelThreshold, "high-level-threshold", o.HighLevelThreshold, "digit value at or above which a course is high-level")
	fs.BoolVar(&o.DisableHighLevel, "no-high-level", o.DisableHighLevel, "do not force high-level courses without prerequisites to the last column")
}

func layoutFlags(fs *pflag.FlagSet, o *pipeline.Options) {
	fs.Float64Var(&o.Width, "width", o.Width, "canvas width")
	fs.Float64Var(&o.Height, "height", o.Height, "canvas height")
	fs.Float64Var(&o.ColumnWidth, "column-width", o.ColumnWidth, "width of one column band")
	fs.Float64Var(&o.NodeRadius, "node-radius", o.NodeRadius, "node radius")
	fs.Float64Var(&o.BandMargin, "band-margin", o.BandMargin, "gap kept between a node and its band edge")
	fs.Float64Var(&o.LinkDistance, "link-distance", o.LinkDistance, "rest length of links")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "random seed for initial jitter")
	fs.IntVar(&o.MaxTicks, "max-ticks", o.MaxTicks, "stop the simulation after this many ticks")
}

func renderFlags(fs *pflag.FlagSet, o *pipeline.Options) {
	fs.StringVar(&o.Engine, "engine", o.Engine, "SVG engine: native, graphviz")
	fs.BoolVar(&o.HideLabels, "no-labels", o.HideLabels, "omit node labels")
	fs.BoolVar(&o.ShowColumns, "columns", o.ShowColumns, "draw column bands")
	fs.Float64Var(&o.Scale, "scale", o.Scale, "PNG scale factor")
}

// bindFlags registers every group on cmd bound to o.
func bindFlags(cmd *cobra.Command, o *pipeline.Options, groups ...flagSet) {
	for _, g := range groups {
		g(cmd.Flags(), o)
	}
}

// resolveOptions returns the options a command runs with: the config file
// (if any) with every flag the user set on top, or just the flag values
// when no config file is given.
func (c *CLI) resolveOptions(cmd *cobra.Command, flags pipeline.Options, groups ...flagSet) (pipeline.Options, error) {
	if c.configPath == "" {
		return flags, nil
	}
	opts, err := pipeline.LoadOptionsFile(c.configPath)
	if err != nil {
		return pipeline.Options{}, err
	}
	c.Logger.Debug("loaded options", "path", c.configPath)

	shadow := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	for _, g := range groups {
		g(shadow, &opts)
	}
	var setErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if setErr != nil || shadow.Lookup(f.Name) == nil {
			return
		}
		setErr = shadow.Set(f.Name, f.Value.String())
	})
	return opts, setErr
}

// defaultOptions returns options with layout and render defaults filled in,
// so that flag help shows them.
func defaultOptions() pipeline.Options {
	var o pipeline.Options
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	return o
}
