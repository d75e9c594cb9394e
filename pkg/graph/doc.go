// Package graph provides the wire formats of prereqgraph.
//
// Two formats cross the package boundary:
//
//   - [Dataset]: the prerequisite payload served by the catalog endpoint,
//     decoded with [ParseDataset] and turned into a [dag.DAG] by
//     [Dataset.Build].
//   - [Layout]: the finalized node and link set after leveling and
//     simulation, written by the layout command and read by the renderers.
//
// # Payload
//
// The course list key depends on the department:
//
//	ds, _ := graph.ParseDataset(data, "CSCI")   // reads "CSCI_nodes"
//	g, report := ds.Build()
//
// A payload without "<DEPT>_nodes" falls back to a plain "nodes" key.
// Build never fails on incomplete data; unresolved references and duplicate
// IDs are counted in the [BuildReport].
//
// # Layout
//
//	graph.WriteLayoutFile(session.Snapshot(), "layout.json")
//	l, _ := graph.ReadLayoutFile("layout.json")
package graph
