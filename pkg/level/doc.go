// Package level assigns prerequisite graph nodes to discrete columns.
//
// A column is one topological depth: a course sits strictly to the right of
// every prerequisite it requires. [Leveler.Level] derives columns from a
// [dag.DAG] and returns the [Columns] bucket list.
//
// Columns exposes two ways to set a node's column. [Columns.PlaceIfUnset] is
// the initial placement and leaves already placed nodes alone.
// [Columns.ForcePlace] is the override used after a manual drag; it may move
// a node anywhere, including to a column that breaks the computed ordering.
//
//	cols, report := level.Leveler{}.Level(g)
//	n, _ := g.Node("CSCI-2300")
//	cols.ForcePlace(n, 0)
package level
