package dag

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	// All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph. The second insert is rejected and
	// the existing node is left untouched.
	ErrDuplicateNodeID = errors.New("duplicate node ID")
)

// Unassigned is the column value of a node that has not been leveled yet.
const Unassigned = -1

// EdgeKind tags an edge as a prerequisite or a corequisite relation.
type EdgeKind string

const (
	// KindPrereq marks a prerequisite edge. Only prerequisite edges
	// participate in column computation.
	KindPrereq EdgeKind = "prereq"
	// KindCoreq marks a corequisite edge. Corequisite edges are rendered
	// but never constrain leveling.
	KindCoreq EdgeKind = "coreq"
)

// Node is a vertex of the prerequisite graph.
//
// Grouping (meta) nodes carry the IDs of the nodes they represent in
// Contained; for ordinary nodes Contained is nil. Column is the node's
// assigned column, or [Unassigned]. X and Y hold the node's position as of
// the last finished simulation tick, and Dragging is true while a pointer
// holds the node.
//
// Column must only be changed through the level package so that the node
// stays in sync with its column bucket.
type Node struct {
	ID        string
	Contained []string
	Column    int
	X, Y      float64
	Dragging  bool
}

// IsGrouping reports whether the node is a grouping (meta) node.
func (n *Node) IsGrouping() bool { return n.Contained != nil }

// Edge is a directed relation from Source to Target. For a course, Source is
// the course itself and Target is one of its prerequisites or corequisites.
type Edge struct {
	Source string
	Target string
	Kind   EdgeKind
}

// DAG holds the nodes and edges of one loaded dataset.
//
// Nodes are kept in insertion order and edges are indexed under both of their
// endpoints, so traversal from either side is a single map lookup. The zero
// value is not usable; create instances with [New].
//
// DAG is not safe for concurrent use.
type DAG struct {
	nodes    map[string]*Node
	order    []*Node
	edges    []*Edge
	incident map[string][]*Edge
}

// New creates an empty graph.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		incident: make(map[string][]*Edge),
	}
}

// AddNode inserts a node with the given ID and contained IDs. The new node
// starts in column [Unassigned]. Pass a nil contained slice for ordinary
// nodes; a non-nil (possibly empty) slice marks a grouping node.
//
// AddNode returns ErrInvalidNodeID for an empty ID and ErrDuplicateNodeID if
// the ID is already present.
func (d *DAG) AddNode(id string, contained []string) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidNodeID
	}
	if _, exists := d.nodes[id]; exists {
		return nil, ErrDuplicateNodeID
	}
	n := &Node{ID: id, Column: Unassigned}
	if contained != nil {
		n.Contained = slices.Clone(contained)
	}
	d.nodes[id] = n
	d.order = append(d.order, n)
	return n, nil
}

// AddEdge inserts a directed edge between two registered nodes and indexes it
// under both endpoints. It reports false, and leaves the graph unchanged, when
// either endpoint is unknown.
func (d *DAG) AddEdge(source, target string, kind EdgeKind) bool {
	if _, ok := d.nodes[source]; !ok {
		return false
	}
	if _, ok := d.nodes[target]; !ok {
		return false
	}
	e := &Edge{Source: source, Target: target, Kind: kind}
	d.edges = append(d.edges, e)
	d.incident[source] = append(d.incident[source], e)
	if target != source {
		d.incident[target] = append(d.incident[target], e)
	}
	return true
}

// EdgesOf returns every edge touching id, in insertion order. The result is
// empty for unknown IDs and for nodes without edges. The returned slice is a
// read-only view.
func (d *DAG) EdgesOf(id string) []*Edge { return d.incident[id] }

// Node returns the node with the given ID.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order. The pointers refer to the
// graph's own nodes.
func (d *DAG) Nodes() []*Node { return slices.Clone(d.order) }

// Edges returns all edges in insertion order.
func (d *DAG) Edges() []*Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.order) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Prereqs returns the IDs of the prerequisites of id, that is the targets of
// its outgoing prerequisite edges, in insertion order.
func (d *DAG) Prereqs(id string) []string {
	var out []string
	for _, e := range d.incident[id] {
		if e.Kind == KindPrereq && e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

// Dependents returns the IDs of the nodes that list id as a prerequisite,
// in insertion order.
func (d *DAG) Dependents(id string) []string {
	var out []string
	for _, e := range d.incident[id] {
		if e.Kind == KindPrereq && e.Target == id {
			out = append(out, e.Source)
		}
	}
	return out
}

// Grouping returns the grouping nodes in insertion order.
func (d *DAG) Grouping() []*Node {
	var out []*Node
	for _, n := range d.order {
		if n.IsGrouping() {
			out = append(out, n)
		}
	}
	return out
}

// NodeIDs extracts the ID from each node in a slice, preserving order.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
