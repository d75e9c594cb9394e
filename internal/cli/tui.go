package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/prereqgraph/pkg/dag"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/layout"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listGroupStyle    = lipgloss.NewStyle().Foreground(colorYellow)
)

// frameInterval paces the simulation while the TUI animates a move.
const frameInterval = 16 * time.Millisecond

type frameMsg struct{}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

// ColumnsModel is the bubbletea model of the inspect command. It shows one
// table column per layout column, ordered top to bottom by position, and
// moves the selected node between columns with a simulated drag.
type ColumnsModel struct {
	s    *layout.Session
	ctrl *layout.Controller
	dept string

	Col, Row int
	Moves    int
	Dirty    bool
	Height   int
	Offset   int

	save   func(graph.Layout) (string, error)
	status string
}

// NewColumnsModel creates a model over s. save, if non-nil, is called with
// the current snapshot when the user presses w.
func NewColumnsModel(s *layout.Session, dept string, save func(graph.Layout) (string, error)) ColumnsModel {
	return ColumnsModel{
		s:      s,
		ctrl:   layout.NewController(s, nil),
		dept:   dept,
		Height: 20,
		save:   save,
	}
}

func (m ColumnsModel) Init() tea.Cmd {
	if m.s.Active() {
		return nextFrame()
	}
	return nil
}

func (m ColumnsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if !m.s.Active() {
			return m, nil
		}
		m.s.Tick()
		m.follow()
		return m, nextFrame()

	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.selectColumn(m.Col - 1)
		case "right", "l":
			m.selectColumn(m.Col + 1)
		case "up", "k":
			if m.Row > 0 {
				m.Row--
			}
		case "down", "j":
			if m.Row < len(m.column(m.Col))-1 {
				m.Row++
			}
		case "shift+left", "H":
			return m.move(-1)
		case "shift+right", "L":
			return m.move(+1)
		case "w":
			m.write()
		}
		m.scroll()
	}
	return m, nil
}

// column returns the nodes of col ordered by their vertical position.
func (m ColumnsModel) column(col int) []*dag.Node {
	if col < 0 || col >= m.s.Columns().Len() {
		return nil
	}
	nodes := slices.Clone(m.s.Columns().Bucket(col))
	slices.SortStableFunc(nodes, func(a, b *dag.Node) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), strings.Compare(a.ID, b.ID))
	})
	return nodes
}

func (m ColumnsModel) selected() *dag.Node {
	nodes := m.column(m.Col)
	if m.Row < 0 || m.Row >= len(nodes) {
		return nil
	}
	return nodes[m.Row]
}

func (m *ColumnsModel) selectColumn(col int) {
	if col < 0 || col >= m.s.Columns().Len() {
		return
	}
	m.Col = col
	m.Row = min(m.Row, max(len(m.column(col))-1, 0))
}

// move drags the selected node to the center of the neighboring column.
func (m ColumnsModel) move(delta int) (tea.Model, tea.Cmd) {
	n := m.selected()
	if n == nil {
		return m, nil
	}
	target := n.Column + delta
	if target < 0 {
		m.status = "already in the first column"
		return m, nil
	}

	x := m.s.Bounds().ColumnCenter(target)
	if err := m.ctrl.DragStart(n.ID, n.X, n.Y); err != nil {
		m.status = err.Error()
		return m, nil
	}
	if err := m.ctrl.DragMove(n.ID, x, n.Y); err != nil {
		m.status = err.Error()
		return m, nil
	}
	from := n.Column
	col, err := m.ctrl.DragEnd(n.ID, x, n.Y)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	m.Moves++
	m.Dirty = true
	m.status = fmt.Sprintf("%s: column %d → %d", n.ID, from, col)
	m.Col = col
	m.Row = slices.Index(m.column(col), n)
	m.scroll()
	return m, nextFrame()
}

// follow keeps the cursor on the selected node while the simulation
// reorders its column.
func (m *ColumnsModel) follow() {
	if n := m.selected(); n != nil {
		m.Row = slices.Index(m.column(m.Col), n)
	}
}

func (m *ColumnsModel) scroll() {
	if m.Row < m.Offset {
		m.Offset = m.Row
	}
	if m.Row >= m.Offset+m.Height {
		m.Offset = m.Row - m.Height + 1
	}
}

func (m *ColumnsModel) write() {
	if m.save == nil {
		m.status = "no output file"
		return
	}
	snap := m.s.Snapshot()
	snap.Department = m.dept
	path, err := m.save(snap)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.Dirty = false
	m.status = "wrote " + path
}

// Snapshot returns the current layout.
func (m ColumnsModel) Snapshot() graph.Layout {
	snap := m.s.Snapshot()
	snap.Department = m.dept
	return snap
}

func (m ColumnsModel) View() string {
	var b strings.Builder

	title := "Columns"
	if m.dept != "" {
		title = m.dept + " columns"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→ column  ↑/↓ node  shift+←/→ move node  w write  q quit"))
	b.WriteString("\n\n")

	ncols := m.s.Columns().Len()
	cols := make([][]*dag.Node, ncols)
	order := make([][]string, ncols)
	rowsNeeded := 0
	for c := range ncols {
		cols[c] = m.column(c)
		order[c] = dag.NodeIDs(cols[c])
		rowsNeeded = max(rowsNeeded, len(cols[c]))
	}
	end := min(m.Offset+m.Height, rowsNeeded)

	headers := make([]string, ncols)
	for c := range ncols {
		headers[c] = fmt.Sprintf("%d (%d)", c, len(cols[c]))
	}
	rows := make([][]string, 0, max(end-m.Offset, 0))
	for r := m.Offset; r < end; r++ {
		row := make([]string, ncols)
		for c := range ncols {
			if r < len(cols[c]) {
				row[c] = cols[c][r].ID
			}
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				if col == m.Col {
					return base.Inherit(listSelectedStyle)
				}
				return base.Inherit(headerStyle)
			}
			r := m.Offset + row
			if col == m.Col && r == m.Row {
				return base.Inherit(listSelectedStyle).Reverse(true)
			}
			if r < len(cols[col]) && cols[col][r].IsGrouping() {
				return base.Inherit(listGroupStyle)
			}
			if col == m.Col {
				return base.Inherit(listNormalStyle)
			}
			return base.Inherit(listDimStyle)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")

	if n := m.selected(); n != nil {
		g := m.s.Graph()
		b.WriteString(listSelectedStyle.Render(n.ID))
		if n.IsGrouping() {
			b.WriteString(listGroupStyle.Render("  groups " + strings.Join(n.Contained, ", ")))
		}
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("  requires:    " + orDash(g.Prereqs(n.ID))))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("  required by: " + orDash(g.Dependents(n.ID))))
		b.WriteString("\n")
	}

	state := "settled"
	if m.s.Active() {
		state = fmt.Sprintf("alpha %.3f", m.s.Alpha())
	}
	crossings := dag.Crossings(m.s.Graph(), order)
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d ticks · %s · %d crossings · %d moves", m.s.Ticks(), state, crossings, m.Moves)))
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(StyleHighlight.Render("  " + m.status))
	}
	return b.String()
}

func orDash(ids []string) string {
	if len(ids) == 0 {
		return "—"
	}
	return strings.Join(ids, ", ")
}
