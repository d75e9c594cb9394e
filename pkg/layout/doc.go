// Package layout runs the column-constrained force layout.
//
// A [Session] owns a force simulation over a leveled graph. After every
// simulation step it clamps each resting node into the horizontal band of
// its column, clamps every node vertically to the canvas, copies the final
// positions onto the graph nodes, and recomputes link endpoints last so
// links never lag behind nodes.
//
// A [Controller] handles pointer drags. While a node is dragged it is pinned
// to the pointer and may cross the whole canvas. On release it snaps to the
// column under the pointer through [level.Columns.ForcePlace], even when
// that breaks the leveled ordering.
//
//	cols, _ := level.Leveler{}.Level(g)
//	s := layout.NewSession(g, cols, layout.DefaultConfig())
//	ctl := layout.NewController(s, nil)
//	s.Run(300)
//	ctl.DragStart("CSCI-2300", 250, 100)
//	ctl.DragMove("CSCI-2300", 620, 140)
//	col, _ := ctl.DragEnd("CSCI-2300", 620, 140) // col == 3
package layout
