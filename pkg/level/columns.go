package level

import (
	"slices"

	"github.com/matzehuels/prereqgraph/pkg/dag"
)

// Columns is the ordered list of column buckets. Bucket i holds, in
// placement order, the nodes whose Column is i.
//
// The list grows lazily to the highest requested index and never shrinks,
// so a bucket may be empty after its last node was moved elsewhere. Columns
// only holds references; the graph owns the nodes.
type Columns struct {
	buckets [][]*dag.Node
}

// NewColumns returns an empty column list.
func NewColumns() *Columns { return &Columns{} }

// Len returns the number of buckets, including empty ones.
func (c *Columns) Len() int { return len(c.buckets) }

// Bucket returns the nodes in column i, or nil when i is out of range.
func (c *Columns) Bucket(i int) []*dag.Node {
	if i < 0 || i >= len(c.buckets) {
		return nil
	}
	return slices.Clone(c.buckets[i])
}

// Contains reports whether n is a member of some bucket.
func (c *Columns) Contains(n *dag.Node) bool {
	return c.indexIn(n.Column, n) >= 0
}

// PlaceIfUnset puts n into column col unless n already has a column. It
// reports whether the node was placed. A negative col is treated as 0.
func (c *Columns) PlaceIfUnset(n *dag.Node, col int) bool {
	if n.Column != dag.Unassigned {
		return false
	}
	c.insert(n, max(col, 0))
	return true
}

// ForcePlace moves n into column col regardless of its current column. A
// negative col is treated as 0, and moving a node to the column it already
// occupies changes nothing.
//
// When n leaves its old bucket, every node that stays behind gets its Column
// rewritten to that bucket's index, so no member is left with a stale value.
func (c *Columns) ForcePlace(n *dag.Node, col int) {
	col = max(col, 0)
	old := n.Column
	if old == col && c.indexIn(old, n) >= 0 {
		return
	}
	if i := c.indexIn(old, n); i >= 0 {
		c.buckets[old] = slices.Delete(c.buckets[old], i, i+1)
		for _, rest := range c.buckets[old][i:] {
			rest.Column = old
		}
	}
	c.insert(n, col)
}

// Assignments returns a map from node ID to column for every placed node.
func (c *Columns) Assignments() map[string]int {
	out := make(map[string]int)
	for i, b := range c.buckets {
		for _, n := range b {
			out[n.ID] = i
		}
	}
	return out
}

func (c *Columns) insert(n *dag.Node, col int) {
	for len(c.buckets) <= col {
		c.buckets = append(c.buckets, nil)
	}
	c.buckets[col] = append(c.buckets[col], n)
	n.Column = col
}

func (c *Columns) indexIn(col int, n *dag.Node) int {
	if col < 0 || col >= len(c.buckets) {
		return -1
	}
	return slices.Index(c.buckets[col], n)
}
