package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestAddNode(t *testing.T) {
	g := New()

	n, err := g.AddNode("CSCI-1100", nil)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if n.Column != Unassigned {
		t.Errorf("Column = %d, want %d", n.Column, Unassigned)
	}
	if n.IsGrouping() {
		t.Error("ordinary node reported as grouping")
	}

	meta, err := g.AddNode("META-1", []string{"CSCI-1100"})
	if err != nil {
		t.Fatalf("AddNode meta: %v", err)
	}
	if !meta.IsGrouping() {
		t.Error("meta node not reported as grouping")
	}

	empty, err := g.AddNode("META-EMPTY", []string{})
	if err != nil {
		t.Fatalf("AddNode empty meta: %v", err)
	}
	if !empty.IsGrouping() {
		t.Error("empty contained list should still mark a grouping node")
	}

	if got := g.NodeCount(); got != 3 {
		t.Errorf("NodeCount = %d, want 3", got)
	}
}

func TestAddNodeErrors(t *testing.T) {
	g := New()
	if _, err := g.AddNode("", nil); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("empty ID: got %v, want ErrInvalidNodeID", err)
	}

	first, _ := g.AddNode("a", nil)
	first.Column = 3

	if _, err := g.AddNode("a", []string{"x"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Fatalf("duplicate: got %v, want ErrDuplicateNodeID", err)
	}

	got, _ := g.Node("a")
	if got != first || got.Column != 3 || got.IsGrouping() {
		t.Error("duplicate insert must not overwrite the existing node")
	}
}

func TestAddNodeCopiesContained(t *testing.T) {
	g := New()
	ids := []string{"a", "b"}
	n, _ := g.AddNode("m", ids)
	ids[0] = "z"
	if n.Contained[0] != "a" {
		t.Error("contained IDs should be copied")
	}
}

func TestAddEdge(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		want   bool
	}{
		{"both exist", "b", "a", true},
		{"missing target", "b", "zzz", false},
		{"missing source", "zzz", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			g.AddNode("a", nil)
			g.AddNode("b", nil)

			if got := g.AddEdge(tt.source, tt.target, KindPrereq); got != tt.want {
				t.Errorf("AddEdge = %v, want %v", got, tt.want)
			}
			wantEdges := 0
			if tt.want {
				wantEdges = 1
			}
			if g.EdgeCount() != wantEdges {
				t.Errorf("EdgeCount = %d, want %d", g.EdgeCount(), wantEdges)
			}
			if !tt.want && (len(g.EdgesOf("a")) != 0 || len(g.EdgesOf("b")) != 0) {
				t.Error("failed AddEdge must not index anything")
			}
		})
	}
}

func TestEdgesOf(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, nil)
	}
	g.AddEdge("b", "a", KindPrereq)
	g.AddEdge("c", "a", KindCoreq)
	g.AddEdge("c", "b", KindPrereq)

	edges := g.EdgesOf("a")
	if len(edges) != 2 {
		t.Fatalf("EdgesOf(a) len = %d, want 2", len(edges))
	}
	if edges[0].Source != "b" || edges[1].Source != "c" {
		t.Errorf("EdgesOf(a) not in insertion order: %+v, %+v", edges[0], edges[1])
	}
	if len(g.EdgesOf("c")) != 2 {
		t.Errorf("EdgesOf(c) len = %d, want 2", len(g.EdgesOf("c")))
	}
	if len(g.EdgesOf("missing")) != 0 {
		t.Error("EdgesOf(unknown) should be empty")
	}
}

func TestPrereqsAndDependents(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, nil)
	}
	g.AddEdge("b", "a", KindPrereq)
	g.AddEdge("c", "a", KindCoreq)
	g.AddEdge("c", "b", KindPrereq)

	if got := g.Dependents("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Dependents(a) = %v, want [b] (coreq excluded)", got)
	}
	if got := g.Prereqs("c"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Prereqs(c) = %v, want [b]", got)
	}
	if got := g.Prereqs("a"); len(got) != 0 {
		t.Errorf("Prereqs(a) = %v, want none", got)
	}
}

func TestSelfEdgeIndexedOnce(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	g.AddEdge("a", "a", KindPrereq)
	if got := len(g.EdgesOf("a")); got != 1 {
		t.Errorf("self edge indexed %d times, want 1", got)
	}
}

func TestNodesInsertionOrder(t *testing.T) {
	g := New()
	want := []string{"m", "c", "a", "b"}
	g.AddNode("m", []string{"a"})
	for _, id := range want[1:] {
		g.AddNode(id, nil)
	}
	if got := NodeIDs(g.Nodes()); !slices.Equal(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if got := NodeIDs(g.Grouping()); !slices.Equal(got, []string{"m"}) {
		t.Errorf("Grouping() = %v, want [m]", got)
	}
}

func TestColumnCrossings(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "x", "y", "z"} {
		_, _ = g.AddNode(id, nil)
	}
	g.AddEdge("x", "c", KindPrereq)
	g.AddEdge("y", "b", KindPrereq)
	g.AddEdge("z", "a", KindPrereq)
	g.AddEdge("x", "a", KindCoreq)

	tests := []struct {
		name        string
		left, right []string
		want        int
	}{
		{"fully reversed", []string{"a", "b", "c"}, []string{"x", "y", "z"}, 3},
		{"aligned", []string{"c", "b", "a"}, []string{"x", "y", "z"}, 0},
		{"one swap", []string{"b", "c", "a"}, []string{"x", "y", "z"}, 1},
		{"empty left", nil, []string{"x"}, 0},
		{"missing nodes ignored", []string{"a"}, []string{"x", "y", "z"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColumnCrossings(g, tt.left, tt.right); got != tt.want {
				t.Errorf("ColumnCrossings = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCrossingsSharedEndpoint(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "x", "y"} {
		_, _ = g.AddNode(id, nil)
	}
	// Links that share an endpoint never cross.
	g.AddEdge("x", "a", KindPrereq)
	g.AddEdge("x", "b", KindPrereq)
	g.AddEdge("y", "b", KindPrereq)

	if got := Crossings(g, [][]string{{"a", "b"}, {"x", "y"}}); got != 0 {
		t.Errorf("Crossings = %d, want 0", got)
	}
	if got := Crossings(g, [][]string{{"b", "a"}, {"x", "y"}}); got != 1 {
		t.Errorf("Crossings = %d, want 1", got)
	}
}
