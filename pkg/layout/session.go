package layout

import (
	"math"
	"time"

	"github.com/matzehuels/prereqgraph/pkg/dag"
	"github.com/matzehuels/prereqgraph/pkg/force"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/level"
	"github.com/matzehuels/prereqgraph/pkg/observability"
)

// DefaultReheatTarget is the alpha target set while a node is dragged.
const DefaultReheatTarget = 0.3

// BodyForce configures one many-body force instance.
type BodyForce struct {
	Strength    float64 `json:"strength" toml:"strength" yaml:"strength"`
	DistanceMin float64 `json:"distance_min" toml:"distance_min" yaml:"distance_min"`
	DistanceMax float64 `json:"distance_max" toml:"distance_max" yaml:"distance_max"`
}

// Config holds the geometry and physics parameters of a [Session].
type Config struct {
	Bounds       Bounds
	LinkDistance float64
	Attract      BodyForce
	Repel        BodyForce
	ReheatTarget float64
	Seed         uint64
}

// DefaultConfig returns the standard geometry with a weak long-range
// attraction and a strong short-range repulsion.
func DefaultConfig() Config {
	return Config{
		Bounds:       DefaultBounds(),
		LinkDistance: force.DefaultLinkDistance,
		Attract:      BodyForce{Strength: 0.005, DistanceMin: 60, DistanceMax: 10000},
		Repel:        BodyForce{Strength: -175, DistanceMin: 10, DistanceMax: 100},
		ReheatTarget: DefaultReheatTarget,
	}
}

// Link is an edge with its endpoint coordinates as of the last tick.
type Link struct {
	Edge   *dag.Edge
	X1, Y1 float64
	X2, Y2 float64
}

// Session binds a leveled graph to a running force simulation and keeps
// every node inside its column band.
//
// All methods must be called from one goroutine.
type Session struct {
	g      *dag.DAG
	cols   *level.Columns
	bounds Bounds
	cfg    Config
	sim    *force.Simulation
	nodes  []*dag.Node
	bodies map[string]*force.Body
	links  []Link
	ticks  int

	// OnTick, when set, runs at the end of every tick after link endpoints
	// are updated.
	OnTick func(*Session)
}

// NewSession creates a simulation for a leveled graph. Each node starts at
// the center of its column band, spread vertically by its position in the
// bucket.
func NewSession(g *dag.DAG, cols *level.Columns, cfg Config) *Session {
	if cfg.ReheatTarget == 0 {
		cfg.ReheatTarget = DefaultReheatTarget
	}
	s := &Session{
		g:      g,
		cols:   cols,
		bounds: cfg.Bounds,
		cfg:    cfg,
		nodes:  g.Nodes(),
		bodies: make(map[string]*force.Body),
	}

	start := s.initialPositions()
	bodies := make([]*force.Body, len(s.nodes))
	index := make(map[string]int, len(s.nodes))
	for i, n := range s.nodes {
		p := start[n.ID]
		bodies[i] = &force.Body{ID: n.ID, X: p[0], Y: p[1]}
		s.bodies[n.ID] = bodies[i]
		index[n.ID] = i
	}

	var links []force.Link
	for _, e := range g.Edges() {
		links = append(links, force.Link{Source: index[e.Source], Target: index[e.Target]})
		s.links = append(s.links, Link{Edge: e})
	}

	s.sim = force.New(bodies, &force.Options{Seed: cfg.Seed})
	lf := force.NewLink(links)
	if cfg.LinkDistance > 0 {
		lf.Distance = cfg.LinkDistance
	}
	s.sim.SetForce("link", lf)
	s.sim.SetForce("attract", force.NewManyBody(cfg.Attract.Strength, cfg.Attract.DistanceMin, cfg.Attract.DistanceMax))
	s.sim.SetForce("repel", force.NewManyBody(cfg.Repel.Strength, cfg.Repel.DistanceMin, cfg.Repel.DistanceMax))
	s.sim.SetForce("center", force.NewCenter(s.bounds.CanvasWidth/2, s.bounds.CanvasHeight/2))

	s.constrain()
	s.updateLinks()
	return s
}

func (s *Session) initialPositions() map[string][2]float64 {
	out := make(map[string][2]float64, len(s.nodes))
	b := s.bounds
	for col := 0; col < s.cols.Len(); col++ {
		bucket := s.cols.Bucket(col)
		lo, hi := b.Band(col)
		step := (b.CanvasHeight - 2*b.Pad()) / float64(len(bucket)+1)
		for i, n := range bucket {
			out[n.ID] = [2]float64{(lo + hi) / 2, b.Pad() + float64(i+1)*step}
		}
	}
	for _, n := range s.nodes {
		if _, ok := out[n.ID]; !ok {
			out[n.ID] = [2]float64{math.NaN(), math.NaN()}
		}
	}
	return out
}

// Tick advances the simulation one step, clamps every node, writes the
// final positions back to the graph nodes, and only then recomputes link
// endpoints.
func (s *Session) Tick() {
	start := time.Now()
	s.sim.Tick()
	s.constrain()
	s.updateLinks()
	s.ticks++
	observability.Layout().OnTick(s.sim.Alpha(), time.Since(start))
	if s.OnTick != nil {
		s.OnTick(s)
	}
}

// Run ticks until the simulation settles or maxTicks ticks have run, and
// returns the number of ticks performed. A maxTicks of 0 or less means no
// limit besides settling.
func (s *Session) Run(maxTicks int) int {
	n := 0
	for s.sim.Active() && (maxTicks <= 0 || n < maxTicks) {
		s.Tick()
		n++
	}
	return n
}

func (s *Session) constrain() {
	for _, n := range s.nodes {
		body := s.bodies[n.ID]
		body.X = s.bounds.ClampX(body.X, n.Column, s.cols.Len(), n.Dragging)
		body.Y = s.bounds.ClampY(body.Y)
		n.X, n.Y = body.X, body.Y
	}
}

func (s *Session) updateLinks() {
	for i := range s.links {
		l := &s.links[i]
		src, _ := s.g.Node(l.Edge.Source)
		tgt, _ := s.g.Node(l.Edge.Target)
		l.X1, l.Y1 = src.X, src.Y
		l.X2, l.Y2 = tgt.X, tgt.Y
	}
}

// Reheat raises the alpha target and wakes the simulation.
func (s *Session) Reheat() {
	s.sim.SetAlphaTarget(s.cfg.ReheatTarget)
	s.sim.Restart()
}

// Cool drops the alpha target so the simulation settles again.
func (s *Session) Cool() { s.sim.SetAlphaTarget(0) }

// Active reports whether the simulation still wants ticks.
func (s *Session) Active() bool { return s.sim.Active() }

// Alpha returns the simulation's current alpha.
func (s *Session) Alpha() float64 { return s.sim.Alpha() }

// Ticks returns the number of ticks run so far.
func (s *Session) Ticks() int { return s.ticks }

// Graph returns the underlying graph.
func (s *Session) Graph() *dag.DAG { return s.g }

// Columns returns the column list the session clamps against.
func (s *Session) Columns() *level.Columns { return s.cols }

// Bounds returns the session geometry.
func (s *Session) Bounds() Bounds { return s.bounds }

// Links returns the links with endpoints as of the last tick.
func (s *Session) Links() []Link { return s.links }

func (s *Session) body(id string) *force.Body { return s.bodies[id] }

// Snapshot exports the current node and link state.
func (s *Session) Snapshot() graph.Layout {
	b := s.bounds
	out := graph.Layout{
		Width:       b.Width(s.cols.Len()),
		Height:      b.CanvasHeight,
		ColumnWidth: b.ColumnWidth,
		NodeRadius:  b.NodeRadius,
		Ticks:       s.ticks,
		Alpha:       s.sim.Alpha(),
		Active:      s.sim.Active(),
		Columns:     make([][]string, s.cols.Len()),
	}
	for i := range out.Columns {
		out.Columns[i] = dag.NodeIDs(s.cols.Bucket(i))
	}
	for _, n := range s.nodes {
		out.Nodes = append(out.Nodes, graph.Node{
			ID:        n.ID,
			Column:    n.Column,
			X:         n.X,
			Y:         n.Y,
			Grouping:  n.IsGrouping(),
			Contained: n.Contained,
			Dragging:  n.Dragging,
		})
	}
	for _, l := range s.links {
		out.Links = append(out.Links, graph.Link{
			Source: l.Edge.Source,
			Target: l.Edge.Target,
			Kind:   string(l.Edge.Kind),
			X1:     l.X1,
			Y1:     l.Y1,
			X2:     l.X2,
			Y2:     l.Y2,
		})
	}
	return out
}
