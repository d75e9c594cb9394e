package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/prereqgraph/pkg/graph"
)

func sampleLayout() graph.Layout {
	return graph.Layout{
		Width: 600, Height: 400, ColumnWidth: 200, NodeRadius: 10,
		Columns: [][]string{{"CSCI-1100"}, {"CSCI-1200", "CSCI-META"}},
		Nodes: []graph.Node{
			{ID: "CSCI-1100", Column: 0, X: 100, Y: 50},
			{ID: "CSCI-1200", Column: 1, X: 300, Y: 80},
			{ID: "CSCI-META", Column: 1, X: 300, Y: 200, Grouping: true, Contained: []string{"CSCI-1100"}},
		},
		Links: []graph.Link{
			{Source: "CSCI-1200", Target: "CSCI-1100", Kind: "prereq", X1: 300, Y1: 80, X2: 100, Y2: 50},
			{Source: "CSCI-1200", Target: "CSCI-1100", Kind: "coreq", X1: 300, Y1: 80, X2: 100, Y2: 50},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleLayout(), Options{Labels: true})

	for _, want := range []string{
		"digraph G",
		`"CSCI-1200" -> "CSCI-1100";`,
		`"CSCI-1200" -> "CSCI-1100" [style=dashed];`,
		`pos="100.00,350.00!"`,
		`label="CSCI-1100"`,
		"inputscale=72",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %s", want)
		}
	}
}

func TestToDOT_GroupingLarger(t *testing.T) {
	dot := ToDOT(sampleLayout(), Options{})

	var meta string
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, `"CSCI-META" [`) {
			meta = line
		}
	}
	if !strings.Contains(meta, "width=0.444") {
		t.Errorf("grouping node should be 1.6x wider: %s", meta)
	}
	if !strings.Contains(dot, `label=""`) {
		t.Error("labels should be empty when disabled")
	}
}

func TestRenderSVG(t *testing.T) {
	svg := string(RenderSVG(sampleLayout(), Options{Labels: true, Columns: true}))

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatal("RenderSVG() should produce a complete svg document")
	}
	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("circles = %d, want 3", got)
	}
	if got := strings.Count(svg, `class="band`); got != 2 {
		t.Errorf("bands = %d, want 2", got)
	}
	if !strings.Contains(svg, `class="link coreq"`) {
		t.Error("coreq link should carry the coreq class")
	}
	if !strings.Contains(svg, `class="node grouping" cx="300.0" cy="200.0" r="16.0"`) {
		t.Error("grouping node should be drawn larger")
	}
	if got := strings.Count(svg, `class="label"`); got != 3 {
		t.Errorf("labels = %d, want 3", got)
	}
}

func TestRenderSVG_Deterministic(t *testing.T) {
	a := RenderSVG(sampleLayout(), Options{})
	b := RenderSVG(sampleLayout(), Options{})
	if string(a) != string(b) {
		t.Error("RenderSVG() should be deterministic")
	}
	if strings.Contains(string(a), `class="label"`) {
		t.Error("labels should be omitted when disabled")
	}
}

func TestRenderSVG_EscapesIDs(t *testing.T) {
	l := graph.Layout{Width: 100, Height: 100, NodeRadius: 5, Nodes: []graph.Node{{ID: `<x&y>`, X: 10, Y: 10}}}
	svg := string(RenderSVG(l, Options{Labels: true}))
	if strings.Contains(svg, "<x&y>") || !strings.Contains(svg, "&lt;x&amp;y&gt;") {
		t.Error("node IDs should be escaped")
	}
}

func TestRenderGraphviz(t *testing.T) {
	svg, err := RenderGraphviz(context.Background(), ToDOT(sampleLayout(), Options{Labels: true}))
	if err != nil {
		t.Fatalf("RenderGraphviz() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderGraphviz() output is not svg")
	}
	if !strings.Contains(string(svg), "CSCI-1200") {
		t.Error("RenderGraphviz() output missing node label")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := string(normalizeViewBox([]byte("<svg></svg>"))); got != "<svg></svg>" {
		t.Errorf("svg without viewBox should be unchanged, got %s", got)
	}
}
