package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/prereqgraph/pkg/dag"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/layout"
	"github.com/matzehuels/prereqgraph/pkg/level"
	"github.com/matzehuels/prereqgraph/pkg/observability"
)

// =============================================================================
// Leveling
// =============================================================================

// Level assigns columns to g and logs everything the leveler had to
// degrade: nodes placed at column 0 because their prerequisites only reach
// each other through a cycle, and edges whose propagation hit the depth cap.
func Level(g *dag.DAG, opts Options, logger *log.Logger) (*level.Columns, level.Report) {
	cols, rep := opts.Leveler().Level(g)
	if logger == nil {
		return cols, rep
	}
	for _, id := range rep.Fallback {
		logger.Warn("prerequisites unreachable, placing at column 0", "node", id)
	}
	for _, e := range rep.CycleCapped {
		logger.Warn("prerequisite cycle, depth capped", "source", e.Source, "target", e.Target)
	}
	if !rep.Converged {
		logger.Warn("grouping placement did not converge", "passes", rep.Passes)
	}
	logger.Debug("leveled graph",
		"columns", rep.Columns,
		"roots", len(rep.Roots),
		"grouping", len(rep.Grouping),
		"high_level", len(rep.HighLevel))
	return cols, rep
}

// =============================================================================
// Layout
// =============================================================================

// GenerateLayout levels g and runs the simulation until it cools or
// opts.MaxTicks ticks have passed. Call opts.SetLayoutDefaults first.
func GenerateLayout(ctx context.Context, g *dag.DAG, opts Options, logger *log.Logger) (graph.Layout, level.Report) {
	hooks := observability.Pipeline()

	levelStart := time.Now()
	cols, rep := Level(g, opts, logger)
	hooks.OnLevelComplete(ctx, g.NodeCount(), cols.Len(), len(rep.Fallback), time.Since(levelStart))

	start := time.Now()
	hooks.OnLayoutStart(ctx, g.NodeCount())
	s := layout.NewSession(g, cols, opts.LayoutConfig())
	ticks := s.Run(opts.MaxTicks)
	hooks.OnLayoutComplete(ctx, ticks, time.Since(start), nil)
	if s.Active() && logger != nil {
		logger.Debug("simulation stopped before settling", "ticks", ticks, "alpha", s.Alpha())
	}

	l := s.Snapshot()
	l.Department = opts.Department
	return l, rep
}
