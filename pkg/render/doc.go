// Package render turns settled layouts into files.
//
// # Overview
//
// The [nodelink] subpackage draws a [graph.Layout] as a column diagram,
// either directly as SVG or through Graphviz with every node pinned to its
// computed position. This package holds the format conversions shared by
// all renderers:
//
//	svg := nodelink.RenderSVG(l, nodelink.Options{Labels: true})
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
//
// [ToPDF] and [ToPNG] shell out to rsvg-convert (librsvg).
//
// [nodelink]: github.com/matzehuels/prereqgraph/pkg/render/nodelink
// [graph.Layout]: github.com/matzehuels/prereqgraph/pkg/graph.Layout
package render
