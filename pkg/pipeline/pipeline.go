// Package pipeline provides the load → level → layout → render pipeline for
// prerequisite graphs.
//
// The CLI and the HTTP server both go through this package, so a dataset is
// decoded, leveled and laid out the same way regardless of entry point.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Decode a department payload from a file, a URL or the catalog service
//  2. Level: Assign every node a column ([level.Leveler])
//  3. Layout: Run the constrained force simulation until it settles ([layout.Session])
//  4. Render: Generate output in various formats (SVG, DOT, PNG, PDF, JSON)
//
// Each stage can be run on its own or as part of [Runner.Execute].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Department: "CSCI",
//	    Input:      "prereq.json",
//	    Formats:    []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/prereqgraph/pkg/cache"
	"github.com/matzehuels/prereqgraph/pkg/dag"
	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/force"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/layout"
	"github.com/matzehuels/prereqgraph/pkg/level"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultSeed is the default random seed for reproducible layouts.
	DefaultSeed = uint64(42)

	// DefaultMaxTicks bounds the simulation. With the default alpha decay the
	// simulation cools below alphaMin after about 300 ticks.
	DefaultMaxTicks = 300

	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// Rendering engines.
const (
	EngineNative   = "native"
	EngineGraphviz = "graphviz"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidEngines is the set of supported SVG engines.
var ValidEngines = map[string]bool{
	EngineNative:   true,
	EngineGraphviz: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline. It can be decoded from
// JSON request bodies and from TOML or YAML config files.
type Options struct {
	// Load options
	Department string `json:"department,omitempty" toml:"department" yaml:"department" validate:"omitempty,alpha,min=2,max=8"`
	Input      string `json:"input,omitempty" toml:"input" yaml:"input"` // payload file path or http(s) URL
	CatalogURL string `json:"catalog_url,omitempty" toml:"catalog_url" yaml:"catalog_url" validate:"omitempty,url"`
	Refresh    bool   `json:"refresh,omitempty" toml:"refresh" yaml:"refresh"`

	// Level options
	HighLevelIndex     int  `json:"high_level_index,omitempty" toml:"high_level_index" yaml:"high_level_index" validate:"gte=0"`
	HighLevelThreshold int  `json:"high_level_threshold,omitempty" toml:"high_level_threshold" yaml:"high_level_threshold" validate:"gte=0,lte=9"`
	DisableHighLevel   bool `json:"disable_high_level,omitempty" toml:"disable_high_level" yaml:"disable_high_level"`

	// Layout options
	Width        float64          `json:"width,omitempty" toml:"width" yaml:"width" validate:"gte=0"`
	Height       float64          `json:"height,omitempty" toml:"height" yaml:"height" validate:"gte=0"`
	ColumnWidth  float64          `json:"column_width,omitempty" toml:"column_width" yaml:"column_width" validate:"gte=0"`
	NodeRadius   float64          `json:"node_radius,omitempty" toml:"node_radius" yaml:"node_radius" validate:"gte=0"`
	StrokeWidth  float64          `json:"stroke_width,omitempty" toml:"stroke_width" yaml:"stroke_width" validate:"gte=0"`
	BandMargin   float64          `json:"band_margin,omitempty" toml:"band_margin" yaml:"band_margin" validate:"gte=0"`
	LinkDistance float64          `json:"link_distance,omitempty" toml:"link_distance" yaml:"link_distance" validate:"gte=0"`
	Attract      layout.BodyForce `json:"attract,omitzero" toml:"attract" yaml:"attract"`
	Repel        layout.BodyForce `json:"repel,omitzero" toml:"repel" yaml:"repel"`
	Seed         uint64           `json:"seed,omitempty" toml:"seed" yaml:"seed"`
	MaxTicks     int              `json:"max_ticks,omitempty" toml:"max_ticks" yaml:"max_ticks" validate:"gte=0,lte=100000"`

	// Render options
	Formats     []string `json:"formats,omitempty" toml:"formats" yaml:"formats"`
	Engine      string   `json:"engine,omitempty" toml:"engine" yaml:"engine"`
	HideLabels  bool     `json:"hide_labels,omitempty" toml:"hide_labels" yaml:"hide_labels"`
	ShowColumns bool     `json:"show_columns,omitempty" toml:"show_columns" yaml:"show_columns"`
	Scale       float64  `json:"scale,omitempty" toml:"scale" yaml:"scale" validate:"gte=0,lte=8"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-" yaml:"-" validate:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Dataset is the decoded payload.
	Dataset graph.Dataset

	// DatasetHash is the content hash of the normalized payload.
	DatasetHash string

	// Graph is the built prerequisite graph with final columns assigned.
	Graph *dag.DAG

	// Build lists records skipped while building the graph.
	Build graph.BuildReport

	// Level describes the leveling run. Empty when the layout came from cache.
	Level level.Report

	// Layout is the settled node and link set.
	Layout graph.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	ColumnCount int
	Crossings   int // links crossing between adjacent columns
	Ticks       int
	LoadTime    time.Duration
	LevelTime   time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return perrors.New(perrors.ErrCodeInvalidConfig, "invalid format: %q (must be one of: svg, dot, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEngine checks that an SVG engine is valid.
func ValidateEngine(engine string) error {
	if !ValidEngines[engine] {
		return perrors.New(perrors.ErrCodeInvalidConfig, "invalid engine: %q (must be one of: native, graphviz)", engine)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults for the
// full pipeline. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := validateStruct(o); err != nil {
		return err
	}
	o.SetLoadDefaults()
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	if err := o.LayoutConfig().Bounds.Validate(); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "layout bounds")
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateEngine(o.Engine); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLoadDefaults sets the department and logger defaults.
func (o *Options) SetLoadDefaults() {
	if o.Department == "" {
		o.Department = graph.DefaultDepartment
	}
	o.Department = strings.ToUpper(o.Department)
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetLayoutDefaults sets default values for leveling and layout.
func (o *Options) SetLayoutDefaults() {
	if o.HighLevelIndex == 0 {
		o.HighLevelIndex = level.DefaultHighLevelIndex
	}
	if o.HighLevelThreshold == 0 {
		o.HighLevelThreshold = level.DefaultHighLevelThreshold
	}
	def := layout.DefaultConfig()
	if o.Width == 0 {
		o.Width = def.Bounds.CanvasWidth
	}
	if o.Height == 0 {
		o.Height = def.Bounds.CanvasHeight
	}
	if o.ColumnWidth == 0 {
		o.ColumnWidth = def.Bounds.ColumnWidth
	}
	if o.NodeRadius == 0 {
		o.NodeRadius = def.Bounds.NodeRadius
	}
	if o.StrokeWidth == 0 {
		o.StrokeWidth = def.Bounds.StrokeWidth
	}
	if o.BandMargin == 0 {
		o.BandMargin = def.Bounds.BandMargin
	}
	if o.LinkDistance == 0 {
		o.LinkDistance = force.DefaultLinkDistance
	}
	if o.Attract == (layout.BodyForce{}) {
		o.Attract = def.Attract
	}
	if o.Repel == (layout.BodyForce{}) {
		o.Repel = def.Repel
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.MaxTicks == 0 {
		o.MaxTicks = DefaultMaxTicks
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Engine == "" {
		o.Engine = EngineNative
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Leveler returns the leveling configuration.
func (o *Options) Leveler() level.Leveler {
	return level.Leveler{
		HighLevelIndex:     o.HighLevelIndex,
		HighLevelThreshold: o.HighLevelThreshold,
		DisableHighLevel:   o.DisableHighLevel,
	}
}

// LayoutConfig returns the session configuration. Call SetLayoutDefaults
// first; zero fields are passed through unchanged.
func (o *Options) LayoutConfig() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.Bounds = layout.Bounds{
		CanvasWidth:  o.Width,
		CanvasHeight: o.Height,
		ColumnWidth:  o.ColumnWidth,
		NodeRadius:   o.NodeRadius,
		StrokeWidth:  o.StrokeWidth,
		BandMargin:   o.BandMargin,
	}
	cfg.LinkDistance = o.LinkDistance
	cfg.Attract = o.Attract
	cfg.Repel = o.Repel
	cfg.Seed = o.Seed
	return cfg
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	highLevel := fmt.Sprintf("%d:%d", o.HighLevelIndex, o.HighLevelThreshold)
	if o.DisableHighLevel {
		highLevel = "off"
	}
	return cache.LayoutKeyOpts{
		Width:        o.Width,
		Height:       o.Height,
		ColumnWidth:  o.ColumnWidth,
		NodeRadius:   o.NodeRadius,
		StrokeWidth:  o.StrokeWidth,
		BandMargin:   o.BandMargin,
		LinkDistance: o.LinkDistance,
		Attract:      [3]float64{o.Attract.Strength, o.Attract.DistanceMin, o.Attract.DistanceMax},
		Repel:        [3]float64{o.Repel.Strength, o.Repel.DistanceMin, o.Repel.DistanceMax},
		HighLevel:    highLevel,
		Seed:         o.Seed,
		MaxTicks:     o.MaxTicks,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	engine := o.Engine
	if format == FormatJSON || format == FormatDOT {
		engine = ""
	}
	return cache.ArtifactKeyOpts{
		Format:  format,
		Engine:  engine,
		Labels:  !o.HideLabels,
		Columns: o.ShowColumns,
		Scale:   o.Scale,
	}
}
