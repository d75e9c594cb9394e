package layout

import (
	"errors"
	"fmt"

	"github.com/matzehuels/prereqgraph/pkg/observability"
)

var (
	// ErrUnknownNode is returned when a drag event names a node that is not
	// part of the session.
	ErrUnknownNode = errors.New("unknown node")

	// ErrAlreadyDragging is returned by [Controller.DragStart] for a node
	// that is already being dragged.
	ErrAlreadyDragging = errors.New("node is already being dragged")

	// ErrNotDragging is returned by [Controller.DragMove] and
	// [Controller.DragEnd] for a node that is not being dragged.
	ErrNotDragging = errors.New("node is not being dragged")
)

// DragHooks lets the owner react when dragging begins and ends. OnDragStart
// fires when the first concurrent drag starts and OnDragEnd when the last
// one ends.
type DragHooks struct {
	OnDragStart func()
	OnDragEnd   func()
}

// Controller turns pointer drag events into node pins and column changes.
// Each node moves through Idle, Dragging, and back to Idle.
type Controller struct {
	s        *Session
	hooks    DragHooks
	dragging map[string]bool
}

// NewController returns a controller for s. Nil hook fields default to
// reheating the simulation on drag start and letting it cool on drag end.
func NewController(s *Session, hooks *DragHooks) *Controller {
	h := DragHooks{OnDragStart: s.Reheat, OnDragEnd: s.Cool}
	if hooks != nil {
		if hooks.OnDragStart != nil {
			h.OnDragStart = hooks.OnDragStart
		}
		if hooks.OnDragEnd != nil {
			h.OnDragEnd = hooks.OnDragEnd
		}
	}
	return &Controller{s: s, hooks: h, dragging: make(map[string]bool)}
}

// DragStart pins node id at the pointer and marks it as dragging.
func (c *Controller) DragStart(id string, px, py float64) error {
	n, ok := c.s.g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if n.Dragging {
		return fmt.Errorf("%w: %s", ErrAlreadyDragging, id)
	}
	if len(c.dragging) == 0 {
		c.hooks.OnDragStart()
	}
	n.Dragging = true
	c.dragging[id] = true
	c.s.body(id).Pin(px, py)
	observability.Layout().OnDrag("start")
	return nil
}

// DragMove moves the pin of a dragged node to the pointer.
func (c *Controller) DragMove(id string, px, py float64) error {
	n, ok := c.s.g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if !n.Dragging {
		return fmt.Errorf("%w: %s", ErrNotDragging, id)
	}
	c.s.body(id).Pin(px, py)
	observability.Layout().OnDrag("move")
	return nil
}

// DragEnd releases node id at the pointer and commits the column nearest to
// px, overriding the leveled column. The node is moved into the band of
// that column right away. It returns the committed column.
func (c *Controller) DragEnd(id string, px, py float64) (int, error) {
	n, ok := c.s.g.Node(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if !n.Dragging {
		return 0, fmt.Errorf("%w: %s", ErrNotDragging, id)
	}

	body := c.s.body(id)
	body.Unpin()
	body.X, body.Y = px, py
	n.Dragging = false
	delete(c.dragging, id)
	if len(c.dragging) == 0 {
		c.hooks.OnDragEnd()
	}

	from := n.Column
	col := c.s.bounds.ColumnAt(px)
	c.s.cols.ForcePlace(n, col)
	c.s.constrain()
	c.s.updateLinks()
	observability.Layout().OnDrag("end")
	if from != col {
		observability.Layout().OnColumnChange(id, from, col)
	}
	return col, nil
}

// Dragging reports whether any node is currently being dragged.
func (c *Controller) Dragging() bool { return len(c.dragging) > 0 }
