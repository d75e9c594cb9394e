package level

import (
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/prereqgraph/pkg/dag"
)

type edgeSpec struct {
	src, tgt string
	kind     dag.EdgeKind
}

func buildGraph(t *testing.T, groups map[string][]string, ids []string, edges []edgeSpec) *dag.DAG {
	t.Helper()
	g := dag.New()
	groupIDs := make([]string, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	slices.Sort(groupIDs)
	for _, id := range groupIDs {
		if _, err := g.AddNode(id, groups[id]); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, id := range ids {
		if _, err := g.AddNode(id, nil); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, e := range edges {
		kind := e.kind
		if kind == "" {
			kind = dag.KindPrereq
		}
		g.AddEdge(e.src, e.tgt, kind)
	}
	return g
}

func columnsOf(g *dag.DAG) map[string]int {
	out := make(map[string]int)
	for _, n := range g.Nodes() {
		out[n.ID] = n.Column
	}
	return out
}

func TestLevelChain(t *testing.T) {
	g := buildGraph(t, nil, []string{"A", "B", "C"}, []edgeSpec{
		{src: "B", tgt: "A"},
		{src: "C", tgt: "B"},
	})
	cols, rep := Leveler{}.Level(g)

	want := map[string]int{"A": 0, "B": 1, "C": 2}
	for id, col := range want {
		if got := columnsOf(g)[id]; got != col {
			t.Errorf("%s column = %d, want %d", id, got, col)
		}
	}
	if cols.Len() != 3 {
		t.Errorf("Len = %d, want 3", cols.Len())
	}
	if !slices.Equal(rep.Roots, []string{"A"}) {
		t.Errorf("Roots = %v, want [A]", rep.Roots)
	}
	if !rep.Converged {
		t.Error("expected convergence")
	}
}

func TestLevelLongestPath(t *testing.T) {
	// D depends on A directly and on C through A->B->C.
	g := buildGraph(t, nil, []string{"A", "B", "C", "D"}, []edgeSpec{
		{src: "D", tgt: "A"},
		{src: "B", tgt: "A"},
		{src: "C", tgt: "B"},
		{src: "D", tgt: "C"},
	})
	Leveler{}.Level(g)

	got := columnsOf(g)
	if got["D"] != 3 {
		t.Errorf("D column = %d, want 3", got["D"])
	}
}

func TestLevelCoreqIgnored(t *testing.T) {
	g := buildGraph(t, nil, []string{"A", "B"}, []edgeSpec{
		{src: "B", tgt: "A", kind: dag.KindCoreq},
	})
	Leveler{}.Level(g)
	got := columnsOf(g)
	if got["A"] != 0 || got["B"] != 0 {
		t.Errorf("columns = %v, want both 0", got)
	}
}

func TestLevelUnresolvedPrereqIsRoot(t *testing.T) {
	g := buildGraph(t, nil, []string{"A"}, []edgeSpec{{src: "A", tgt: "MISSING"}})
	Leveler{}.Level(g)
	if n, _ := g.Node("A"); n.Column != 0 {
		t.Errorf("A column = %d, want 0", n.Column)
	}
}

func TestLevelGrouping(t *testing.T) {
	g := buildGraph(t,
		map[string][]string{"G": {"A", "C", "NOPE"}},
		[]string{"A", "B", "C"},
		[]edgeSpec{{src: "B", tgt: "A"}, {src: "C", tgt: "B"}},
	)
	_, rep := Leveler{}.Level(g)

	if got := columnsOf(g)["G"]; got != 2 {
		t.Errorf("G column = %d, want 2", got)
	}
	if !slices.Equal(rep.Grouping, []string{"G"}) {
		t.Errorf("Grouping = %v, want [G]", rep.Grouping)
	}
}

func TestLevelGroupingWithoutResolvableMembers(t *testing.T) {
	g := buildGraph(t, map[string][]string{"G": {"X", "Y"}, "E": {}}, []string{"A"}, nil)
	Leveler{}.Level(g)
	got := columnsOf(g)
	if got["G"] != 0 || got["E"] != 0 {
		t.Errorf("columns = %v, want G=0 E=0", got)
	}
}

func TestLevelGroupingDependents(t *testing.T) {
	// D requires the group, which spans up to column 1.
	g := buildGraph(t,
		map[string][]string{"G": {"A", "B"}},
		[]string{"A", "B", "D"},
		[]edgeSpec{{src: "B", tgt: "A"}, {src: "D", tgt: "G"}},
	)
	Leveler{}.Level(g)
	got := columnsOf(g)
	if got["G"] != 1 || got["D"] != 2 {
		t.Errorf("columns = %v, want G=1 D=2", got)
	}
}

func TestLevelHighLevel(t *testing.T) {
	g := buildGraph(t, nil,
		[]string{"CSCI-1100", "CSCI-2300", "CSCI-4960", "CSCI-1960"},
		[]edgeSpec{{src: "CSCI-2300", tgt: "CSCI-1100"}},
	)
	cols, rep := Leveler{}.Level(g)
	got := columnsOf(g)

	if got["CSCI-4960"] != cols.Len()-1 || got["CSCI-4960"] != 1 {
		t.Errorf("CSCI-4960 column = %d, want last column 1", got["CSCI-4960"])
	}
	if got["CSCI-1960"] != 0 {
		t.Errorf("CSCI-1960 column = %d, want 0", got["CSCI-1960"])
	}
	if !slices.Equal(rep.HighLevel, []string{"CSCI-4960"}) {
		t.Errorf("HighLevel = %v", rep.HighLevel)
	}
	if slices.Contains(dag.NodeIDs(cols.Bucket(0)), "CSCI-4960") {
		t.Error("high-level node still in column 0 bucket")
	}
}

func TestLevelHighLevelWithEdgesNotMoved(t *testing.T) {
	g := buildGraph(t, nil,
		[]string{"CSCI-4100", "CSCI-4200", "CSCI-4300"},
		[]edgeSpec{{src: "CSCI-4300", tgt: "CSCI-4200"}},
	)
	Leveler{}.Level(g)
	got := columnsOf(g)
	if got["CSCI-4200"] != 0 || got["CSCI-4300"] != 1 || got["CSCI-4100"] != 1 {
		t.Errorf("columns = %v", got)
	}
}

func TestLevelHighLevelDisabled(t *testing.T) {
	g := buildGraph(t, nil, []string{"CSCI-1100", "CSCI-2300", "CSCI-4960"},
		[]edgeSpec{{src: "CSCI-2300", tgt: "CSCI-1100"}})
	Leveler{DisableHighLevel: true}.Level(g)
	if got := columnsOf(g)["CSCI-4960"]; got != 0 {
		t.Errorf("CSCI-4960 column = %d, want 0", got)
	}
}

func TestIsHighLevel(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"CSCI-4430", true},
		{"CSCI-6000", true},
		{"CSCI-3400", false},
		{"CSCI-", false},
		{"CS", false},
		{"", false},
		{"CSCI-X430", false},
	}
	for _, tt := range tests {
		if got := IsHighLevel(tt.id, DefaultHighLevelIndex, DefaultHighLevelThreshold); got != tt.want {
			t.Errorf("IsHighLevel(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestLevelCycleFallback(t *testing.T) {
	// B and C require each other; nothing reaches them from a root.
	g := buildGraph(t, nil, []string{"A", "B", "C"}, []edgeSpec{
		{src: "B", tgt: "C"},
		{src: "C", tgt: "B"},
	})
	_, rep := Leveler{}.Level(g)
	got := columnsOf(g)
	if got["B"] != 0 || got["C"] != 0 {
		t.Errorf("columns = %v, want cycle members at 0", got)
	}
	if !slices.Equal(rep.Fallback, []string{"B", "C"}) {
		t.Errorf("Fallback = %v, want [B C]", rep.Fallback)
	}
}

func TestLevelCycleCapped(t *testing.T) {
	// A is a root; B and C form a cycle hanging off it.
	g := buildGraph(t, nil, []string{"A", "B", "C"}, []edgeSpec{
		{src: "B", tgt: "A"},
		{src: "C", tgt: "B"},
		{src: "B", tgt: "C"},
	})
	cols, rep := Leveler{}.Level(g)
	if len(rep.CycleCapped) == 0 {
		t.Error("expected capped edges")
	}
	if cols.Len() > g.NodeCount() {
		t.Errorf("Len = %d exceeds node count %d", cols.Len(), g.NodeCount())
	}
	for _, n := range g.Nodes() {
		if n.Column < 0 {
			t.Errorf("%s unassigned", n.ID)
		}
	}
}

func TestLevelIdempotent(t *testing.T) {
	g := buildGraph(t,
		map[string][]string{"G": {"B", "C"}},
		[]string{"A", "B", "C", "D", "CSCI-4999"},
		[]edgeSpec{{src: "B", tgt: "A"}, {src: "C", tgt: "B"}, {src: "D", tgt: "G"}},
	)
	Leveler{}.Level(g)
	first := columnsOf(g)
	Leveler{}.Level(g)
	second := columnsOf(g)
	for id, c := range first {
		if second[id] != c {
			t.Errorf("%s: %d then %d", id, c, second[id])
		}
	}
}

func TestLevelResetsManualPlacement(t *testing.T) {
	g := buildGraph(t, nil, []string{"A", "B"}, []edgeSpec{{src: "B", tgt: "A"}})
	cols, _ := Leveler{}.Level(g)
	b, _ := g.Node("B")
	cols.ForcePlace(b, 0)

	Leveler{}.Level(g)
	if b.Column != 1 {
		t.Errorf("B column = %d, want 1 after releveling", b.Column)
	}
}

func ExampleLeveler_Level() {
	g := dag.New()
	g.AddNode("CSCI-META", []string{"CSCI-1200", "CSCI-2200"})
	for _, id := range []string{"CSCI-1100", "CSCI-1200", "CSCI-2200"} {
		g.AddNode(id, nil)
	}
	g.AddEdge("CSCI-1200", "CSCI-1100", dag.KindPrereq)
	g.AddEdge("CSCI-2200", "CSCI-1200", dag.KindPrereq)

	cols, _ := Leveler{}.Level(g)
	for i := 0; i < cols.Len(); i++ {
		fmt.Println(i, dag.NodeIDs(cols.Bucket(i)))
	}
	// Output:
	// 0 [CSCI-1100]
	// 1 [CSCI-1200]
	// 2 [CSCI-META CSCI-2200]
}
