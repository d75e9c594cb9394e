package graph

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

// =============================================================================
// Layout - Finalized Node and Link Set
// =============================================================================

// Layout is the serialized state of a column layout: every node with its
// column and position, every link with its endpoints, and the bucket order
// of each column.
type Layout struct {
	Department  string     `json:"department,omitempty"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	ColumnWidth float64    `json:"column_width"`
	NodeRadius  float64    `json:"node_radius"`
	Ticks       int        `json:"ticks"`
	Alpha       float64    `json:"alpha"`
	Active      bool       `json:"active,omitempty"`
	Columns     [][]string `json:"columns"`
	Nodes       []Node     `json:"nodes"`
	Links       []Link     `json:"links"`
}

// Node is a positioned node.
type Node struct {
	ID        string   `json:"id"`
	Column    int      `json:"column"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Grouping  bool     `json:"grouping,omitempty"`
	Contained []string `json:"contained,omitempty"`
	Dragging  bool     `json:"dragging,omitempty"`
}

// Link is a drawn edge from Source (the dependent course) to Target (its
// prerequisite or corequisite).
type Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"kind"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
}

// NodeByID returns the node with the given ID.
func (l *Layout) NodeByID(id string) (Node, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Order returns the node IDs of each column sorted top to bottom by Y, ties
// broken by ID. Nodes with a column outside Columns are skipped.
func (l *Layout) Order() [][]string {
	order := make([][]string, len(l.Columns))
	byCol := make([][]Node, len(l.Columns))
	for _, n := range l.Nodes {
		if n.Column >= 0 && n.Column < len(byCol) {
			byCol[n.Column] = append(byCol[n.Column], n)
		}
	}
	for c, nodes := range byCol {
		slices.SortFunc(nodes, func(a, b Node) int {
			return cmp.Or(cmp.Compare(a.Y, b.Y), strings.Compare(a.ID, b.ID))
		})
		order[c] = make([]string, len(nodes))
		for i, n := range nodes {
			order[c][i] = n.ID
		}
	}
	return order
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout. Every link must
// reference nodes present in the layout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	ids := make(map[string]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		if n.ID == "" {
			return Layout{}, fmt.Errorf("layout node without id")
		}
		ids[n.ID] = true
	}
	for _, e := range l.Links {
		if !ids[e.Source] || !ids[e.Target] {
			return Layout{}, fmt.Errorf("link %s->%s references unknown node", e.Source, e.Target)
		}
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
