package layout

import (
	"fmt"
	"math"
)

// Default geometry of the drawing surface.
const (
	DefaultCanvasWidth  = 1600.0
	DefaultCanvasHeight = 600.0
	DefaultColumnWidth  = 200.0
	DefaultNodeRadius   = 10.0
	DefaultStrokeWidth  = 2.0
	DefaultBandMargin   = 10.0
)

// Bounds describes the canvas and column geometry that node positions are
// clamped to.
type Bounds struct {
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
	ColumnWidth  float64 `json:"column_width"`
	NodeRadius   float64 `json:"node_radius"`
	StrokeWidth  float64 `json:"stroke_width"`
	BandMargin   float64 `json:"band_margin"`
}

// DefaultBounds returns the default 1600x600 canvas with 200-wide columns.
func DefaultBounds() Bounds {
	return Bounds{
		CanvasWidth:  DefaultCanvasWidth,
		CanvasHeight: DefaultCanvasHeight,
		ColumnWidth:  DefaultColumnWidth,
		NodeRadius:   DefaultNodeRadius,
		StrokeWidth:  DefaultStrokeWidth,
		BandMargin:   DefaultBandMargin,
	}
}

// Validate checks that the geometry can hold at least one node.
func (b Bounds) Validate() error {
	switch {
	case b.ColumnWidth <= 0:
		return fmt.Errorf("column width must be positive, got %v", b.ColumnWidth)
	case b.NodeRadius < 0 || b.StrokeWidth < 0 || b.BandMargin < 0:
		return fmt.Errorf("node radius, stroke width and band margin must not be negative")
	case b.CanvasWidth < 2*b.Pad() || b.CanvasHeight < 2*b.Pad():
		return fmt.Errorf("canvas %vx%v is smaller than one node", b.CanvasWidth, b.CanvasHeight)
	}
	return nil
}

// Pad is the distance from a node's center to the outer edge of its stroke.
func (b Bounds) Pad() float64 { return b.NodeRadius + b.StrokeWidth }

// Inset is the distance kept between a node's center and its band edges.
func (b Bounds) Inset() float64 { return b.BandMargin + b.Pad() }

// Band returns the horizontal range a resting node in col may occupy. When
// the column is too narrow for the inset, the band collapses to its center.
func (b Bounds) Band(col int) (lo, hi float64) {
	left := float64(col) * b.ColumnWidth
	lo, hi = left+b.Inset(), left+b.ColumnWidth-b.Inset()
	if lo > hi {
		c := left + b.ColumnWidth/2
		return c, c
	}
	return lo, hi
}

// ClampX bounds x to the band of col. While the node is being dragged it
// may go anywhere on the drawing of cols columns, which is at least as wide
// as the canvas, so that nodes in columns past the canvas edge stay where
// they are grabbed.
func (b Bounds) ClampX(x float64, col, cols int, dragging bool) float64 {
	if dragging {
		return clamp(x, b.Pad(), b.Width(cols)-b.Pad())
	}
	lo, hi := b.Band(max(col, 0))
	return clamp(x, lo, hi)
}

// ClampY bounds y to the canvas height.
func (b Bounds) ClampY(y float64) float64 {
	return clamp(y, b.Pad(), b.CanvasHeight-b.Pad())
}

// ColumnAt returns the column a node released at x snaps to. The snap point
// sits a quarter column left of each boundary, so a node only needs to
// cross three quarters of a column to land in the next one.
func (b Bounds) ColumnAt(x float64) int {
	return max(0, int(math.Floor((x+b.ColumnWidth/4)/b.ColumnWidth)))
}

// ColumnCenter returns the horizontal center of col.
func (b Bounds) ColumnCenter(col int) float64 {
	return (float64(col) + 0.5) * b.ColumnWidth
}

// Width returns the drawing width needed to show cols columns, never less
// than the canvas width.
func (b Bounds) Width(cols int) float64 {
	return max(b.CanvasWidth, float64(cols)*b.ColumnWidth)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
