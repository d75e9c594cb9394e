package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/render"
)

// Options configures diagram rendering.
type Options struct {
	// Labels draws node IDs next to the nodes.
	Labels bool

	// Columns draws the column bands behind the nodes (SVG only).
	Columns bool
}

// groupingScale is how much larger grouping nodes are drawn.
const groupingScale = 1.6

// ToDOT converts a layout to Graphviz DOT. Every node is pinned at its
// layout position, so the neato engine used by [RenderGraphviz] only routes
// edges. Coordinates are flipped vertically because Graphviz's y axis points
// up.
func ToDOT(l graph.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=line;\n")
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fillcolor=white, fixedsize=true, fontsize=10, width=%s];\n",
		inches(2*l.NodeRadius))
	buf.WriteString("  edge [arrowsize=0.5, color=\"#888888\"];\n")
	buf.WriteString("\n")

	for _, n := range l.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(l, n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Links {
		attrs := ""
		if e.Kind == "coreq" {
			attrs = " [style=dashed]"
		}
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", e.Source, e.Target, attrs)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(l graph.Layout, n graph.Node, opts Options) []string {
	label := ""
	if opts.Labels {
		label = n.ID
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=\"%s,%s!\"", num(n.X), num(l.Height-n.Y)),
	}
	if n.Grouping {
		attrs = append(attrs,
			fmt.Sprintf("width=%s", inches(2*l.NodeRadius*groupingScale)),
			"fillcolor=\"#dde6f5\"",
			"penwidth=2")
	}
	return attrs
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func inches(points float64) string { return strconv.FormatFloat(points/72, 'f', 3, 64) }

// RenderGraphviz lays out dot with the neato engine and renders it to SVG.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel-sized one so the SVG scales like the native renderer's output.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders the Graphviz diagram of l as PDF.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, l graph.Layout, opts Options) ([]byte, error) {
	svg, err := RenderGraphviz(ctx, ToDOT(l, opts))
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders the Graphviz diagram of l as PNG at the given scale.
func RenderPNG(ctx context.Context, l graph.Layout, opts Options, scale float64) ([]byte, error) {
	svg, err := RenderGraphviz(ctx, ToDOT(l, opts))
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
