// Package dag provides the graph store for course prerequisite graphs.
//
// # Overview
//
// A prerequisite graph has two node flavours: ordinary course nodes and
// grouping (meta) nodes that stand in for a set of courses. Edges run from a
// course to each of its prerequisites ([KindPrereq]) or corequisites
// ([KindCoreq]). Only prerequisite edges influence column assignment; the
// leveling itself lives in the level package.
//
// # Basic Usage
//
// Grouping nodes are created first because courses may reference them as
// prerequisites:
//
//	g := dag.New()
//	g.AddNode("CSCI-META-1", []string{"CSCI-1100", "CSCI-1200"})
//	g.AddNode("CSCI-1100", nil)
//	g.AddNode("CSCI-2300", nil)
//	g.AddEdge("CSCI-2300", "CSCI-1100", dag.KindPrereq)
//
// [DAG.AddEdge] reports false without touching the graph when an endpoint is
// unknown, which is how incomplete datasets degrade. [DAG.AddNode] rejects a
// duplicate ID with [ErrDuplicateNodeID] instead of overwriting.
//
// # Traversal
//
// Every edge is indexed under both endpoints, so [DAG.EdgesOf],
// [DAG.Prereqs], and [DAG.Dependents] are a single map lookup plus a scan of
// the incident list. All query results preserve insertion order, which keeps
// leveling deterministic.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. The layout engine mutates a
// graph from a single goroutine.
package dag
