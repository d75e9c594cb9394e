package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

func newTestModel(t *testing.T, save func(graph.Layout) (string, error)) ColumnsModel {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, quietCLI().Logger)
	s, ds, err := runner.NewSession(context.Background(), pipeline.Options{
		Input: writeTemp(t, "csci.json", testPayload),
		Seed:  3,
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Run(pipeline.DefaultMaxTicks)
	return NewColumnsModel(s, ds.Department, save)
}

func press(t *testing.T, m ColumnsModel, keys ...string) ColumnsModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(ColumnsModel)
	}
	return m
}

func TestColumnsModelNavigation(t *testing.T) {
	m := newTestModel(t, nil)

	if n := m.selected(); n == nil || n.ID != "CSCI-1100" {
		t.Fatalf("initial selection = %v, want CSCI-1100", n)
	}

	m = press(t, m, "right")
	if n := m.selected(); n == nil || n.ID != "CSCI-1200" {
		t.Errorf("after right: selection = %v, want CSCI-1200", n)
	}

	m = press(t, m, "left", "left")
	if m.Col != 0 {
		t.Errorf("cursor left of column 0: Col = %d", m.Col)
	}

	last := m.s.Columns().Len() - 1
	m = press(t, m, "right", "right", "right", "right")
	if m.Col != last {
		t.Errorf("Col = %d, want last column %d", m.Col, last)
	}
	if got := len(m.column(last)); got != 2 {
		t.Errorf("last column holds %d nodes, want CSCI-2300 and CSCI-4430", got)
	}
	m = press(t, m, "down", "down", "down")
	if m.Row != 1 {
		t.Errorf("Row = %d, want 1", m.Row)
	}
}

func TestColumnsModelMove(t *testing.T) {
	m := newTestModel(t, nil)

	m = press(t, m, "H")
	if !strings.Contains(m.status, "first column") {
		t.Errorf("status = %q, want a first column notice", m.status)
	}
	if m.Dirty {
		t.Error("a rejected move must not mark the model dirty")
	}

	m = press(t, m, "L")
	n := m.selected()
	if n == nil || n.ID != "CSCI-1100" {
		t.Fatalf("selection after move = %v, want CSCI-1100", n)
	}
	if n.Column != 1 || m.Col != 1 {
		t.Errorf("CSCI-1100 in column %d, cursor in %d; want 1", n.Column, m.Col)
	}
	if !m.Dirty || m.Moves != 1 {
		t.Errorf("Dirty = %v Moves = %d after a move", m.Dirty, m.Moves)
	}
	if !m.s.Active() {
		t.Error("the simulation should reheat after a drag")
	}

	m.s.Run(pipeline.DefaultMaxTicks)
	if n.Column != 1 {
		t.Errorf("CSCI-1100 left column 1 while settling: %d", n.Column)
	}
}

func TestColumnsModelWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.layout.json")
	save := func(l graph.Layout) (string, error) {
		return path, graph.WriteLayoutFile(l, path)
	}
	m := newTestModel(t, save)
	m = press(t, m, "L", "w")

	if m.Dirty {
		t.Error("writing should clear Dirty")
	}
	l, err := graph.ReadLayoutFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if l.Department != "CSCI" {
		t.Errorf("department = %q, want CSCI", l.Department)
	}
	got, ok := l.NodeByID("CSCI-1100")
	if !ok || got.Column != 1 {
		t.Errorf("CSCI-1100 written as %+v, want column 1", got)
	}
}

func TestColumnsModelView(t *testing.T) {
	m := newTestModel(t, nil)
	view := m.View()
	for _, want := range []string{"CSCI columns", "CSCI-1100", "CSCI-4430", "required by: CSCI-1200"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestColumnsModelQuit(t *testing.T) {
	m := newTestModel(t, nil)
	for _, k := range []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("q")}, {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s: expected a quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
	}
}
