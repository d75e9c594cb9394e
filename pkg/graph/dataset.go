package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/prereqgraph/pkg/dag"
)

// =============================================================================
// Dataset - Ingestion Payload
// =============================================================================

// DefaultDepartment is the department whose node list is read when none is
// given.
const DefaultDepartment = "CSCI"

// Payload keys.
const (
	metaNodesKey     = "meta_nodes"
	fallbackNodesKey = "nodes"
	nodesKeySuffix   = "_nodes"
)

// Course is one ordinary node of the payload.
type Course struct {
	UID    string   `json:"course_uid"`
	Prereq []string `json:"prereq_formula"`
	Coreq  []string `json:"coreq_formula"`
}

// Meta is one grouping node of the payload.
type Meta struct {
	UID      string   `json:"meta_uid"`
	Contains []string `json:"contains"`
}

// Dataset is a decoded prerequisite payload for one department.
//
// On the wire the course list lives under "<DEPT>_nodes" (for example
// "CSCI_nodes") next to "meta_nodes":
//
//	{
//	  "CSCI_nodes": [{"course_uid": "CSCI-2300", "prereq_formula": ["CSCI-1200"], "coreq_formula": []}],
//	  "meta_nodes": [{"meta_uid": "CSCI-META-1", "contains": ["CSCI-1100", "CSCI-1200"]}]
//	}
type Dataset struct {
	Department string
	Courses    []Course
	Meta       []Meta
}

// NodesKey returns the payload key holding the course list of dept.
func NodesKey(dept string) string {
	return strings.ToUpper(dept) + nodesKeySuffix
}

// ParseDataset decodes a payload for dept. When the department key is
// missing, a plain "nodes" key is used instead; when neither is present the
// payload is rejected.
func ParseDataset(data []byte, dept string) (Dataset, error) {
	if dept == "" {
		dept = DefaultDepartment
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Dataset{}, fmt.Errorf("decode payload: %w", err)
	}

	ds := Dataset{Department: strings.ToUpper(dept)}
	body, ok := raw[NodesKey(dept)]
	if !ok {
		body, ok = raw[fallbackNodesKey]
	}
	if !ok {
		return Dataset{}, fmt.Errorf("payload has neither %q nor %q", NodesKey(dept), fallbackNodesKey)
	}
	if err := json.Unmarshal(body, &ds.Courses); err != nil {
		return Dataset{}, fmt.Errorf("decode %s: %w", NodesKey(dept), err)
	}
	if body, ok := raw[metaNodesKey]; ok && !bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		if err := json.Unmarshal(body, &ds.Meta); err != nil {
			return Dataset{}, fmt.Errorf("decode %s: %w", metaNodesKey, err)
		}
	}
	return ds, nil
}

// ReadDataset decodes a payload from r.
func ReadDataset(r io.Reader, dept string) (Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("read payload: %w", err)
	}
	return ParseDataset(data, dept)
}

// ReadDatasetFile decodes a payload file.
func ReadDatasetFile(path, dept string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseDataset(data, dept)
}

// MarshalDataset encodes ds in the wire format, keyed by its department.
func MarshalDataset(ds Dataset) ([]byte, error) {
	dept := ds.Department
	if dept == "" {
		dept = DefaultDepartment
	}
	courses := ds.Courses
	if courses == nil {
		courses = []Course{}
	}
	meta := ds.Meta
	if meta == nil {
		meta = []Meta{}
	}
	return json.MarshalIndent(map[string]any{
		NodesKey(dept): courses,
		metaNodesKey:   meta,
	}, "", "  ")
}

// =============================================================================
// Dataset → DAG
// =============================================================================

// BuildReport lists what [Dataset.Build] had to skip.
type BuildReport struct {
	Duplicates  []string // node IDs rejected because they were already present
	Invalid     int      // records without an ID
	MissingRefs int      // prerequisite or corequisite references to unknown nodes
}

// Build creates the graph for ds. Grouping nodes are inserted before courses
// and every node is inserted before any edge, so references resolve
// regardless of record order. Duplicate or empty IDs and unresolved
// references are skipped and counted in the report; they never fail the
// build.
func (ds Dataset) Build() (*dag.DAG, BuildReport) {
	g := dag.New()
	var rep BuildReport

	add := func(id string, contained []string) bool {
		_, err := g.AddNode(id, contained)
		switch {
		case err == nil:
			return true
		case errors.Is(err, dag.ErrDuplicateNodeID):
			rep.Duplicates = append(rep.Duplicates, id)
		default:
			rep.Invalid++
		}
		return false
	}

	for _, m := range ds.Meta {
		contains := m.Contains
		if contains == nil {
			contains = []string{}
		}
		add(m.UID, contains)
	}
	accepted := make([]bool, len(ds.Courses))
	for i, c := range ds.Courses {
		accepted[i] = add(c.UID, nil)
	}

	for i, c := range ds.Courses {
		if !accepted[i] {
			continue
		}
		for _, p := range c.Prereq {
			if !g.AddEdge(c.UID, p, dag.KindPrereq) {
				rep.MissingRefs++
			}
		}
		for _, p := range c.Coreq {
			if !g.AddEdge(c.UID, p, dag.KindCoreq) {
				rep.MissingRefs++
			}
		}
	}
	return g, rep
}
