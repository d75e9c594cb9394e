package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/prereqgraph/pkg/cache"
	"github.com/matzehuels/prereqgraph/pkg/dag"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/layout"
	"github.com/matzehuels/prereqgraph/pkg/level"
	"github.com/matzehuels/prereqgraph/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the server use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  cache.Observe(c),
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → level → layout → render pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger
	hooks := observability.Pipeline()

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	ds, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Dataset = ds
	result.Stats.LoadTime = time.Since(loadStart)

	g, build := ds.Build()
	result.Graph = g
	result.Build = build
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	r.logBuild(logger, build)

	logger.Info("loaded dataset",
		"department", ds.Department,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.LoadTime)

	// Stage 2+3: Level and layout
	layoutStart := time.Now()
	l, rep, hash, hit, err := r.layout(ctx, ds, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.DatasetHash = hash
	result.Layout = l
	result.Level = rep
	result.Stats.ColumnCount = len(l.Columns)
	result.Stats.Crossings = dag.Crossings(g, l.Order())
	result.Stats.Ticks = l.Ticks
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = hit

	logger.Info("computed layout",
		"columns", len(l.Columns),
		"crossings", result.Stats.Crossings,
		"ticks", l.Ticks,
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	// Stage 4: Render
	renderStart := time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load decodes the payload named by opts, going through the runner's cache
// for remote sources.
func (r *Runner) Load(ctx context.Context, opts Options) (graph.Dataset, error) {
	r.applyLogger(&opts)
	opts.SetLoadDefaults()
	hooks := observability.Pipeline()
	source := Source(opts)

	start := time.Now()
	hooks.OnLoadStart(ctx, source)
	ds, err := load(ctx, r.Cache, r.Keyer, opts)
	hooks.OnLoadComplete(ctx, source, len(ds.Courses)+len(ds.Meta), time.Since(start), err)
	if err != nil {
		return graph.Dataset{}, err
	}
	opts.Logger.Debug("decoded payload", "source", source, "courses", len(ds.Courses), "meta", len(ds.Meta))
	return ds, nil
}

// GenerateLayoutWithCacheInfo levels and lays out ds, reusing a cached
// layout for the same payload and options.
func (r *Runner) GenerateLayoutWithCacheInfo(ctx context.Context, ds graph.Dataset, opts Options) (graph.Layout, bool, error) {
	r.applyLogger(&opts)
	g, build := ds.Build()
	r.logBuild(opts.Logger, build)
	l, _, _, hit, err := r.layout(ctx, ds, g, opts)
	return l, hit, err
}

// GenerateLayout is a convenience wrapper that calls
// GenerateLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) GenerateLayout(ctx context.Context, ds graph.Dataset, opts Options) (graph.Layout, error) {
	l, _, err := r.GenerateLayoutWithCacheInfo(ctx, ds, opts)
	return l, err
}

func (r *Runner) layout(ctx context.Context, ds graph.Dataset, g *dag.DAG, opts Options) (graph.Layout, level.Report, string, bool, error) {
	r.applyLogger(&opts)
	opts.SetLoadDefaults()
	opts.SetLayoutDefaults()
	if err := opts.LayoutConfig().Bounds.Validate(); err != nil {
		return graph.Layout{}, level.Report{}, "", false, err
	}
	logger := opts.Logger

	payload, err := graph.MarshalDataset(ds)
	if err != nil {
		return graph.Layout{}, level.Report{}, "", false, fmt.Errorf("serialize dataset for cache key: %w", err)
	}
	hash := cache.Hash(payload)
	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := graph.UnmarshalLayout(data); err == nil {
				return cached, level.Report{}, hash, true, nil
			}
			// A corrupt entry is recomputed and overwritten.
		}
	}

	l, rep := GenerateLayout(ctx, g, opts, logger)
	l.Department = ds.Department

	if data, err := graph.MarshalLayout(l); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.LayoutTTL)
	}
	return l, rep, hash, false, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache
// hit info. Every format is looked up separately and only missing formats
// are rendered.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, bool, error) {
	opts.SetRenderDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}
	if err := ValidateEngine(opts.Engine); err != nil {
		return nil, false, err
	}

	layoutData, err := graph.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			artifacts[format] = data
		} else {
			missing = append(missing, format)
		}
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, l, renderOpts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, key, data, cache.ArtifactTTL)
	}
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// NewSession loads the payload named by opts and returns an unticked live
// session for it. Sessions are never cached; the server and the inspect
// TUI drive them tick by tick.
func (r *Runner) NewSession(ctx context.Context, opts Options) (*layout.Session, graph.Dataset, error) {
	return r.RestoreSession(ctx, opts, nil)
}

// RestoreSession is like NewSession but commits the given manual column
// placements after leveling, as if each node had been dragged there.
// Placements naming unknown nodes are skipped.
func (r *Runner) RestoreSession(ctx context.Context, opts Options, placements map[string]int) (*layout.Session, graph.Dataset, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, graph.Dataset{}, fmt.Errorf("invalid options: %w", err)
	}
	ds, err := r.Load(ctx, opts)
	if err != nil {
		return nil, graph.Dataset{}, err
	}
	g, build := ds.Build()
	r.logBuild(opts.Logger, build)

	cols, _ := Level(g, opts, opts.Logger)
	for _, id := range slices.Sorted(maps.Keys(placements)) {
		n, ok := g.Node(id)
		if !ok {
			opts.Logger.Warn("placement for unknown node skipped", "node", id)
			continue
		}
		cols.ForcePlace(n, placements[id])
	}
	return layout.NewSession(g, cols, opts.LayoutConfig()), ds, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logBuild(logger *log.Logger, rep graph.BuildReport) {
	for _, id := range rep.Duplicates {
		logger.Warn("duplicate node id skipped", "node", id)
	}
	if rep.Invalid > 0 {
		logger.Warn("records without id skipped", "count", rep.Invalid)
	}
	if rep.MissingRefs > 0 {
		logger.Debug("unresolved references skipped", "count", rep.MissingRefs)
	}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
