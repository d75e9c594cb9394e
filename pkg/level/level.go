package level

import (
	"github.com/matzehuels/prereqgraph/pkg/dag"
)

const (
	// DefaultHighLevelIndex is the byte offset of the course-level digit in
	// an identifier such as "CSCI-4430".
	DefaultHighLevelIndex = 5
	// DefaultHighLevelThreshold is the smallest course-level digit treated
	// as high level.
	DefaultHighLevelThreshold = 4
)

// Leveler assigns columns to the nodes of a prerequisite graph.
//
// The zero value uses [DefaultHighLevelIndex] and
// [DefaultHighLevelThreshold]. Set DisableHighLevel to skip high-level
// placement entirely.
type Leveler struct {
	HighLevelIndex     int
	HighLevelThreshold int
	DisableHighLevel   bool
}

// Report describes how a leveling run placed nodes. It is meant for logging
// and diagnostics; the authoritative result is the returned [Columns].
type Report struct {
	Roots       []string    // ordinary nodes without resolvable prerequisites
	Grouping    []string    // grouping nodes placed from their contained nodes
	HighLevel   []string    // edge-less high-level nodes forced into the last column
	Fallback    []string    // nodes never reached by propagation, placed at 0
	CycleCapped []*dag.Edge // prerequisite edges whose propagation hit the depth cap
	Passes      int         // grouping/high-level passes until stable
	Converged   bool        // false when the pass limit was reached first
	Columns     int         // number of buckets after leveling
}

// Level computes a column for every node of g and returns the resulting
// column list.
//
// # Algorithm
//
// Every node is first reset to [dag.Unassigned], so Level is idempotent on an
// unchanged graph. Then:
//
//  1. Ordinary nodes without outgoing prerequisite edges are roots at depth 0.
//  2. Depth flows from a node to each of its dependents as depth+1 along
//     prerequisite edges, using an explicit work stack. A node's depth is only
//     ever increased, so it ends at the longest prerequisite chain below it.
//  3. Each grouping node takes the largest depth among its contained nodes;
//     unknown or unreached members count as 0. The grouping node's dependents
//     are propagated as in step 2.
//  4. Edge-less ordinary nodes whose ID carries a high-level digit are moved
//     to the deepest column.
//
// Steps 3 and 4 repeat until no depth changes, at most once per node.
// Ordinary nodes still without a depth, which only happens when all of their
// prerequisites sit on a cycle, fall back to column 0.
//
// # Cycles
//
// No correct depth can exceed NodeCount-1. Propagation stops at that cap and
// the offending edge is recorded in [Report.CycleCapped].
//
// # Performance
//
// O(V·E) in the worst case because a node may be deepened once per distinct
// path length. Typical course catalogs are shallow and level in O(V+E).
func (l Leveler) Level(g *dag.DAG) (*Columns, Report) {
	nodes := g.Nodes()
	for _, n := range nodes {
		n.Column = dag.Unassigned
	}

	w := &walker{g: g, depth: make(map[string]int, len(nodes)), limit: max(len(nodes)-1, 0)}
	var rep Report

	var roots []string
	for _, n := range nodes {
		if !n.IsGrouping() && len(g.Prereqs(n.ID)) == 0 {
			roots = append(roots, n.ID)
			w.depth[n.ID] = 0
		}
	}
	rep.Roots = roots
	w.propagate(roots)

	var highLevel []*dag.Node
	if !l.DisableHighLevel {
		for _, n := range nodes {
			if l.isHighLevel(g, n) {
				highLevel = append(highLevel, n)
			}
		}
	}

	groups := g.Grouping()
	maxPasses := len(nodes) + 1
	for rep.Passes < maxPasses {
		rep.Passes++
		changed := false
		for _, m := range groups {
			d := w.containedDepth(m)
			if cur, ok := w.depth[m.ID]; !ok || cur != d {
				w.depth[m.ID] = d
				w.propagate([]string{m.ID})
				changed = true
			}
		}
		last := w.deepest(highLevel)
		for _, n := range highLevel {
			if w.depth[n.ID] != last {
				w.depth[n.ID] = last
				changed = true
			}
		}
		if !changed {
			rep.Converged = true
			break
		}
	}
	rep.CycleCapped = w.capped

	cols := NewColumns()
	isHigh := make(map[string]bool, len(highLevel))
	for _, n := range highLevel {
		isHigh[n.ID] = true
	}
	for _, n := range nodes {
		if isHigh[n.ID] {
			continue
		}
		d, ok := w.depth[n.ID]
		if !ok {
			rep.Fallback = append(rep.Fallback, n.ID)
			d = 0
		}
		cols.PlaceIfUnset(n, d)
		if n.IsGrouping() {
			rep.Grouping = append(rep.Grouping, n.ID)
		}
	}
	for _, n := range highLevel {
		// High-level nodes have no edges and start as roots.
		cols.PlaceIfUnset(n, 0)
		cols.ForcePlace(n, max(cols.Len()-1, 0))
		rep.HighLevel = append(rep.HighLevel, n.ID)
	}
	rep.Columns = cols.Len()
	return cols, rep
}

// IsHighLevel reports whether id carries a course-level digit of at least
// threshold at byte offset index. Short IDs and non-digits are not high level.
func IsHighLevel(id string, index, threshold int) bool {
	if index < 0 || index >= len(id) {
		return false
	}
	c := id[index]
	if c < '0' || c > '9' {
		return false
	}
	return int(c-'0') >= threshold
}

func (l Leveler) isHighLevel(g *dag.DAG, n *dag.Node) bool {
	if n.IsGrouping() || len(g.EdgesOf(n.ID)) > 0 {
		return false
	}
	idx, th := l.HighLevelIndex, l.HighLevelThreshold
	if idx == 0 && th == 0 {
		idx, th = DefaultHighLevelIndex, DefaultHighLevelThreshold
	}
	return IsHighLevel(n.ID, idx, th)
}

type walker struct {
	g      *dag.DAG
	depth  map[string]int
	limit  int
	capped []*dag.Edge
}

// propagate pushes depth from the given start nodes to all transitive
// dependents, deepening only.
func (w *walker) propagate(start []string) {
	stack := append([]string(nil), start...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := w.depth[id] + 1

		for _, e := range w.g.EdgesOf(id) {
			if e.Kind != dag.KindPrereq || e.Target != id || e.Source == id {
				continue
			}
			if dep, ok := w.g.Node(e.Source); !ok || dep.IsGrouping() {
				continue
			}
			if cur, ok := w.depth[e.Source]; ok && cur >= next {
				continue
			}
			if next > w.limit {
				w.capped = append(w.capped, e)
				continue
			}
			w.depth[e.Source] = next
			stack = append(stack, e.Source)
		}
	}
}

func (w *walker) containedDepth(m *dag.Node) int {
	d := 0
	for _, id := range m.Contained {
		if v, ok := w.depth[id]; ok && v > d {
			d = v
		}
	}
	return d
}

// deepest returns the largest depth among nodes not in skip.
func (w *walker) deepest(skip []*dag.Node) int {
	ignored := make(map[string]bool, len(skip))
	for _, n := range skip {
		ignored[n.ID] = true
	}
	d := 0
	for id, v := range w.depth {
		if !ignored[id] && v > d {
			d = v
		}
	}
	return d
}
