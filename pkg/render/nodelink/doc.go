// Package nodelink draws leveled prerequisite graphs as node-link diagrams.
//
// # Overview
//
// Nodes are drawn at the positions computed by the layout session, so the
// column structure survives into the output. Corequisite links are dashed
// and grouping nodes are drawn larger than ordinary nodes.
//
// Two renderers are provided:
//
//   - [RenderSVG] writes SVG directly from a [graph.Layout]
//   - [ToDOT] and [RenderGraphviz] go through Graphviz (neato engine) with
//     every node pinned, for users who want Graphviz output or DOT source
//
// # Usage
//
//	svg := nodelink.RenderSVG(l, nodelink.Options{Labels: true, Columns: true})
//
//	dot := nodelink.ToDOT(l, nodelink.Options{Labels: true})
//	svg, err := nodelink.RenderGraphviz(ctx, dot)
//
// For PDF or PNG output use [RenderPDF] and [RenderPNG], which require
// librsvg (rsvg-convert).
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process Graphviz
// rendering.
//
// [graph.Layout]: github.com/matzehuels/prereqgraph/pkg/graph.Layout
package nodelink
