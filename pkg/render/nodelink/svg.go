package nodelink

import (
	"bytes"
	"cmp"
	"fmt"
	"html"
	"slices"

	"github.com/matzehuels/prereqgraph/pkg/graph"
)

const diagramCSS = `
    .band { fill: #f6f7f9; }
    .band.odd { fill: #eef0f4; }
    .link { stroke: #888; stroke-width: 1; fill: none; marker-end: url(#arrow); }
    .link.coreq { stroke-dasharray: 4 3; }
    .node { fill: #fff; stroke: #333; }
    .node.grouping { fill: #dde6f5; stroke: #3a5a99; }
    .node.dragging { stroke: #d9480f; }
    .label { font: 10px sans-serif; fill: #222; }`

// RenderSVG draws l as a standalone SVG document: optional column bands,
// straight links (corequisites dashed), nodes as circles and optional
// labels. Grouping nodes are drawn larger. Output is deterministic for a
// given layout.
func RenderSVG(l graph.Layout, opts Options) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		l.Width, l.Height, l.Width, l.Height)
	buf.WriteString("  <defs>\n")
	buf.WriteString(`    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse">` +
		`<path d="M 0 0 L 10 5 L 0 10 z" fill="#888"/></marker>` + "\n")
	fmt.Fprintf(&buf, "    <style>%s\n    </style>\n", diagramCSS)
	buf.WriteString("  </defs>\n")

	if opts.Columns {
		renderBands(&buf, l)
	}
	renderLinks(&buf, l)

	nodes := slices.Clone(l.Nodes)
	slices.SortStableFunc(nodes, func(a, b graph.Node) int {
		// grouping nodes first so ordinary nodes stay on top
		return cmp.Compare(boolRank(!a.Grouping), boolRank(!b.Grouping))
	})
	for _, n := range nodes {
		renderNode(&buf, l, n)
	}
	if opts.Labels {
		for _, n := range nodes {
			fmt.Fprintf(&buf, `  <text class="label" x="%.1f" y="%.1f">%s</text>`+"\n",
				n.X+radius(l, n)+3, n.Y+3, html.EscapeString(n.ID))
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderBands(buf *bytes.Buffer, l graph.Layout) {
	for i := range l.Columns {
		class := "band"
		if i%2 == 1 {
			class += " odd"
		}
		fmt.Fprintf(buf, `  <rect class="%s" x="%.1f" y="0" width="%.1f" height="%.1f"/>`+"\n",
			class, float64(i)*l.ColumnWidth, l.ColumnWidth, l.Height)
	}
}

func renderLinks(buf *bytes.Buffer, l graph.Layout) {
	for _, e := range l.Links {
		class := "link"
		if e.Kind == "coreq" {
			class += " coreq"
		}
		fmt.Fprintf(buf, `  <line class="%s" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
			class, e.X1, e.Y1, e.X2, e.Y2)
	}
}

func renderNode(buf *bytes.Buffer, l graph.Layout, n graph.Node) {
	class := "node"
	if n.Grouping {
		class += " grouping"
	}
	if n.Dragging {
		class += " dragging"
	}
	fmt.Fprintf(buf, `  <circle id="node-%s" class="%s" cx="%.1f" cy="%.1f" r="%.1f"><title>%s</title></circle>`+"\n",
		html.EscapeString(n.ID), class, n.X, n.Y, radius(l, n), html.EscapeString(n.ID))
}

func radius(l graph.Layout, n graph.Node) float64 {
	if n.Grouping {
		return l.NodeRadius * groupingScale
	}
	return l.NodeRadius
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
